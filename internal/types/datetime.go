package types

import (
	"fmt"
)

// daysBeforeMonth[m-1] is the number of days elapsed before the first of
// month m (1-indexed), so daysBeforeMonth[m] is the day count through the
// end of month m, in a leap year (the sellable window never crosses
// February, but the table is built for any calendar date).
var daysBeforeMonth = [13]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335, 366}

// Datetime is minutes since Jan 1, 00:00, laid out as a single int32 so it
// has the same deterministic 4-byte binary layout as any other B+-tree key
// component. The seat matrix's sellable window (Jun 1 - Aug 31, 92 days)
// is addressed via DayOffset, which is 0 on June 1.
type Datetime int32

// NewDatetime builds a Datetime from a calendar date and time of day.
func NewDatetime(month, day, hour, minute int) Datetime {
	return Datetime((daysBeforeMonth[month-1]+day-1)*24*60 + hour*60 + minute)
}

// ParseDatetime parses "mm-dd hh:mm".
func ParseDatetime(s string) (Datetime, error) {
	var month, day, hour, minute int
	if _, err := fmt.Sscanf(s, "%d-%d %d:%d", &month, &day, &hour, &minute); err != nil {
		return 0, fmt.Errorf("types: invalid datetime %q: %w", s, err)
	}
	return NewDatetime(month, day, hour, minute), nil
}

// ParseDate parses "mm-dd" into a Datetime at midnight.
func ParseDate(s string) (Datetime, error) {
	var month, day int
	if _, err := fmt.Sscanf(s, "%d-%d", &month, &day); err != nil {
		return 0, fmt.Errorf("types: invalid date %q: %w", s, err)
	}
	return NewDatetime(month, day, 0, 0), nil
}

// AddMinutes returns a Datetime offset by the given number of minutes.
func (d Datetime) AddMinutes(m int) Datetime { return d + Datetime(m) }

// Date truncates to midnight of the same day.
func (d Datetime) Date() Datetime { return d / (24 * 60) * (24 * 60) }

// DayOffset returns days elapsed since June 1 (day 0), the seat matrix's
// native index; negative/out-of-range values mean the date falls outside
// the 92-day sellable window.
func (d Datetime) DayOffset() int { return int(d)/(24*60) - 152 }

// TimeOfDay returns minutes since midnight.
func (d Datetime) TimeOfDay() int { return int(d) % (24 * 60) }

func (d Datetime) String() string {
	t := int(d) % (24 * 60)
	dayIdx := int(d)/(24*60) + 1
	month := 1
	for daysBeforeMonth[month] < dayIdx {
		month++
	}
	day := dayIdx - daysBeforeMonth[month-1]
	return fmt.Sprintf("%02d-%02d %02d:%02d", month, day, t/60, t%60)
}

// DatetimeCodec packs a Datetime as 4 big-endian bytes.
type DatetimeCodec struct{ Int32Codec }

func (DatetimeCodec) Encode(v Datetime, buf []byte) { Int32Codec{}.Encode(int32(v), buf) }
func (DatetimeCodec) Decode(buf []byte) Datetime    { return Datetime(Int32Codec{}.Decode(buf)) }
