// Package railway composes the storage core (internal/blockfile,
// internal/pagecache, internal/bptree, internal/heap, internal/container)
// into a railway ticketing domain layer: users, trains, seat inventory,
// orders and a pending-queue, giving the storage core a real, testable
// caller.
package railway

import (
	"encoding/binary"

	"github.com/foxhollow/trackvault/internal/types"
)

// MaxStations bounds a single train's route length; MaxStations-1 is the
// number of sellable segments its seat matrix tracks.
const MaxStations = 20

// SeatDays is the width of the sellable window, June 1 through August 31
// inclusive (30 + 31 + 31 = 92 days).
const SeatDays = 92

// TrainState is the small, frequently-touched record kept in the
// trainsState index (bptree.BTree[uint64, TrainState] keyed by
// StringHash(trainID)): where to find the train's full metadata and seat
// matrix, and whether it has been released for sale yet.
type TrainState struct {
	TrainHeapIndex int64
	SeatHeapIndex  int64
	Released       bool
}

type TrainStateCodec struct{}

func (TrainStateCodec) Size() int { return 17 }

func (TrainStateCodec) Encode(v TrainState, buf []byte) {
	binary.BigEndian.PutUint64(buf[0:], uint64(v.TrainHeapIndex))
	binary.BigEndian.PutUint64(buf[8:], uint64(v.SeatHeapIndex))
	if v.Released {
		buf[16] = 1
	} else {
		buf[16] = 0
	}
}

func (TrainStateCodec) Decode(buf []byte) TrainState {
	return TrainState{
		TrainHeapIndex: int64(binary.BigEndian.Uint64(buf[0:])),
		SeatHeapIndex:  int64(binary.BigEndian.Uint64(buf[8:])),
		Released:       buf[16] != 0,
	}
}

// TrainRecord is a train's full, rarely-changed metadata: its route,
// per-station schedule offsets (minutes from midnight of the day the train
// leaves its first station; past 1440 on later days) and
// the cumulative price prefix sum a ticket's fare is computed from
// (prices[to] - prices[from]).
type TrainRecord struct {
	ID           types.TrainID
	StationCount int32
	SeatCap      int32
	StartDate    types.Datetime
	EndDate      types.Datetime
	Stations     [MaxStations]types.StationName
	ArriveOffset [MaxStations]int32
	LeaveOffset  [MaxStations]int32
	Prices       [MaxStations]int32
}

type TrainRecordCodec struct{}

func (TrainRecordCodec) Size() int {
	return types.TrainIDCodec{}.Size() + 4 + 4 + 4 + 4 +
		MaxStations*types.StationNameCodec{}.Size() +
		MaxStations*4*3
}

func (TrainRecordCodec) Encode(v TrainRecord, buf []byte) {
	off := 0
	types.TrainIDCodec{}.Encode(v.ID, buf[off:])
	off += types.TrainIDCodec{}.Size()
	binary.BigEndian.PutUint32(buf[off:], uint32(v.StationCount))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], uint32(v.SeatCap))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], uint32(v.StartDate))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], uint32(v.EndDate))
	off += 4
	for i := 0; i < MaxStations; i++ {
		types.StationNameCodec{}.Encode(v.Stations[i], buf[off:])
		off += types.StationNameCodec{}.Size()
	}
	for i := 0; i < MaxStations; i++ {
		binary.BigEndian.PutUint32(buf[off:], uint32(v.ArriveOffset[i]))
		off += 4
	}
	for i := 0; i < MaxStations; i++ {
		binary.BigEndian.PutUint32(buf[off:], uint32(v.LeaveOffset[i]))
		off += 4
	}
	for i := 0; i < MaxStations; i++ {
		binary.BigEndian.PutUint32(buf[off:], uint32(v.Prices[i]))
		off += 4
	}
}

func (TrainRecordCodec) Decode(buf []byte) TrainRecord {
	var v TrainRecord
	off := 0
	v.ID = types.TrainIDCodec{}.Decode(buf[off:])
	off += types.TrainIDCodec{}.Size()
	v.StationCount = int32(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	v.SeatCap = int32(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	v.StartDate = types.Datetime(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	v.EndDate = types.Datetime(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	for i := 0; i < MaxStations; i++ {
		v.Stations[i] = types.StationNameCodec{}.Decode(buf[off:])
		off += types.StationNameCodec{}.Size()
	}
	for i := 0; i < MaxStations; i++ {
		v.ArriveOffset[i] = int32(binary.BigEndian.Uint32(buf[off:]))
		off += 4
	}
	for i := 0; i < MaxStations; i++ {
		v.LeaveOffset[i] = int32(binary.BigEndian.Uint32(buf[off:]))
		off += 4
	}
	for i := 0; i < MaxStations; i++ {
		v.Prices[i] = int32(binary.BigEndian.Uint32(buf[off:]))
		off += 4
	}
	return v
}

// SeatMatrix holds remaining-seat counts for every (segment, day) pair in
// the sellable window. Segment i covers Stations[i] -> Stations[i+1].
type SeatMatrix struct {
	Seats [SeatDays][MaxStations - 1]int16
}

type SeatMatrixCodec struct{}

func (SeatMatrixCodec) Size() int { return SeatDays * (MaxStations - 1) * 2 }

func (SeatMatrixCodec) Encode(v SeatMatrix, buf []byte) {
	off := 0
	for d := 0; d < SeatDays; d++ {
		for s := 0; s < MaxStations-1; s++ {
			binary.BigEndian.PutUint16(buf[off:], uint16(v.Seats[d][s]))
			off += 2
		}
	}
}

func (SeatMatrixCodec) Decode(buf []byte) SeatMatrix {
	var v SeatMatrix
	off := 0
	for d := 0; d < SeatDays; d++ {
		for s := 0; s < MaxStations-1; s++ {
			v.Seats[d][s] = int16(binary.BigEndian.Uint16(buf[off:]))
			off += 2
		}
	}
	return v
}

// TrainLite is the per-station route entry stored in stationsMap: just
// enough to answer "which trains call at this station, and when" without
// loading the train's full TrainRecord.
type TrainLite struct {
	TrainIndex   int64
	StationPos   int32
	ArriveOffset int32
	LeaveOffset  int32
}

type TrainLiteCodec struct{}

func (TrainLiteCodec) Size() int { return 8 + 4 + 4 + 4 }

func (TrainLiteCodec) Encode(v TrainLite, buf []byte) {
	binary.BigEndian.PutUint64(buf[0:], uint64(v.TrainIndex))
	binary.BigEndian.PutUint32(buf[8:], uint32(v.StationPos))
	binary.BigEndian.PutUint32(buf[12:], uint32(v.ArriveOffset))
	binary.BigEndian.PutUint32(buf[16:], uint32(v.LeaveOffset))
}

func (TrainLiteCodec) Decode(buf []byte) TrainLite {
	return TrainLite{
		TrainIndex:   int64(binary.BigEndian.Uint64(buf[0:])),
		StationPos:   int32(binary.BigEndian.Uint32(buf[8:])),
		ArriveOffset: int32(binary.BigEndian.Uint32(buf[12:])),
		LeaveOffset:  int32(binary.BigEndian.Uint32(buf[16:])),
	}
}

// StationKey indexes stationsMap by (station, train) so every train
// calling at a station sorts together.
type StationKey struct {
	StationHash uint64
	TrainIndex  int64
}

type StationKeyCodec struct{}

func (StationKeyCodec) Size() int { return 16 }
func (StationKeyCodec) Encode(v StationKey, buf []byte) {
	binary.BigEndian.PutUint64(buf[0:], v.StationHash)
	binary.BigEndian.PutUint64(buf[8:], uint64(v.TrainIndex))
}
func (StationKeyCodec) Decode(buf []byte) StationKey {
	return StationKey{
		StationHash: binary.BigEndian.Uint64(buf[0:]),
		TrainIndex:  int64(binary.BigEndian.Uint64(buf[8:])),
	}
}

func stationKeyLess(a, b StationKey) bool {
	if a.StationHash != b.StationHash {
		return a.StationHash < b.StationHash
	}
	return a.TrainIndex < b.TrainIndex
}

// PendingKey orders a train+date's pending-refund waiters FIFO by
// OrderIndex.
type PendingKey struct {
	TrainIndex int64
	Date       int32
	OrderIndex int64
}

type PendingKeyCodec struct{}

func (PendingKeyCodec) Size() int { return 8 + 4 + 8 }
func (PendingKeyCodec) Encode(v PendingKey, buf []byte) {
	binary.BigEndian.PutUint64(buf[0:], uint64(v.TrainIndex))
	binary.BigEndian.PutUint32(buf[8:], uint32(v.Date))
	binary.BigEndian.PutUint64(buf[12:], uint64(v.OrderIndex))
}
func (PendingKeyCodec) Decode(buf []byte) PendingKey {
	return PendingKey{
		TrainIndex: int64(binary.BigEndian.Uint64(buf[0:])),
		Date:       int32(binary.BigEndian.Uint32(buf[8:])),
		OrderIndex: int64(binary.BigEndian.Uint64(buf[12:])),
	}
}

func pendingKeyLess(a, b PendingKey) bool {
	if a.TrainIndex != b.TrainIndex {
		return a.TrainIndex < b.TrainIndex
	}
	if a.Date != b.Date {
		return a.Date < b.Date
	}
	return a.OrderIndex < b.OrderIndex
}

// UserOrderKey indexes a user's orders by insertion order so QueryOrder
// can scan ascending and reverse for display.
type UserOrderKey struct {
	UserHash   uint64
	OrderIndex int64
}

type UserOrderKeyCodec struct{}

func (UserOrderKeyCodec) Size() int { return 16 }
func (UserOrderKeyCodec) Encode(v UserOrderKey, buf []byte) {
	binary.BigEndian.PutUint64(buf[0:], v.UserHash)
	binary.BigEndian.PutUint64(buf[8:], uint64(v.OrderIndex))
}
func (UserOrderKeyCodec) Decode(buf []byte) UserOrderKey {
	return UserOrderKey{
		UserHash:   binary.BigEndian.Uint64(buf[0:]),
		OrderIndex: int64(binary.BigEndian.Uint64(buf[8:])),
	}
}

func userOrderKeyLess(a, b UserOrderKey) bool {
	if a.UserHash != b.UserHash {
		return a.UserHash < b.UserHash
	}
	return a.OrderIndex < b.OrderIndex
}

// OrderStatus is the lifecycle state of one order.
type OrderStatus int8

const (
	StatusSuccess OrderStatus = iota
	StatusPending
	StatusRefunded
)

// OrderRecord is one purchase (or queued purchase) of seats on a train.
// OrderIndex is the key this order was filed under in userOrders, carried
// here so a pending-queue entry can be removed without a reverse lookup.
type OrderRecord struct {
	UserHash   uint64
	OrderIndex int64
	TrainIndex int64
	TrainID    types.TrainID
	From       int32
	To         int32
	Date       int32 // day offset, 0 = June 1
	Seats      int32
	Price      int64
	Status     OrderStatus
	Time       types.Datetime
}

type OrderRecordCodec struct{}

func (OrderRecordCodec) Size() int {
	return 8 + 8 + 8 + types.TrainIDCodec{}.Size() + 4 + 4 + 4 + 4 + 8 + 1 + 4
}

func (OrderRecordCodec) Encode(v OrderRecord, buf []byte) {
	off := 0
	binary.BigEndian.PutUint64(buf[off:], v.UserHash)
	off += 8
	binary.BigEndian.PutUint64(buf[off:], uint64(v.OrderIndex))
	off += 8
	binary.BigEndian.PutUint64(buf[off:], uint64(v.TrainIndex))
	off += 8
	types.TrainIDCodec{}.Encode(v.TrainID, buf[off:])
	off += types.TrainIDCodec{}.Size()
	binary.BigEndian.PutUint32(buf[off:], uint32(v.From))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], uint32(v.To))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], uint32(v.Date))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], uint32(v.Seats))
	off += 4
	binary.BigEndian.PutUint64(buf[off:], uint64(v.Price))
	off += 8
	buf[off] = byte(v.Status)
	off++
	binary.BigEndian.PutUint32(buf[off:], uint32(v.Time))
}

func (OrderRecordCodec) Decode(buf []byte) OrderRecord {
	var v OrderRecord
	off := 0
	v.UserHash = binary.BigEndian.Uint64(buf[off:])
	off += 8
	v.OrderIndex = int64(binary.BigEndian.Uint64(buf[off:]))
	off += 8
	v.TrainIndex = int64(binary.BigEndian.Uint64(buf[off:]))
	off += 8
	v.TrainID = types.TrainIDCodec{}.Decode(buf[off:])
	off += types.TrainIDCodec{}.Size()
	v.From = int32(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	v.To = int32(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	v.Date = int32(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	v.Seats = int32(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	v.Price = int64(binary.BigEndian.Uint64(buf[off:]))
	off += 8
	v.Status = OrderStatus(buf[off])
	off++
	v.Time = types.Datetime(binary.BigEndian.Uint32(buf[off:]))
	return v
}

// UserRecord is one registered account.
type UserRecord struct {
	Username  types.Username
	Password  types.Password
	Name      types.Name
	Mail      types.MailAddr
	Privilege int32
}

type UserRecordCodec struct{}

func (UserRecordCodec) Size() int {
	return types.UsernameCodec{}.Size() + types.PasswordCodec{}.Size() +
		types.NameCodec{}.Size() + types.MailAddrCodec{}.Size() + 4
}

func (UserRecordCodec) Encode(v UserRecord, buf []byte) {
	off := 0
	types.UsernameCodec{}.Encode(v.Username, buf[off:])
	off += types.UsernameCodec{}.Size()
	types.PasswordCodec{}.Encode(v.Password, buf[off:])
	off += types.PasswordCodec{}.Size()
	types.NameCodec{}.Encode(v.Name, buf[off:])
	off += types.NameCodec{}.Size()
	types.MailAddrCodec{}.Encode(v.Mail, buf[off:])
	off += types.MailAddrCodec{}.Size()
	binary.BigEndian.PutUint32(buf[off:], uint32(v.Privilege))
}

func (UserRecordCodec) Decode(buf []byte) UserRecord {
	var v UserRecord
	off := 0
	v.Username = types.UsernameCodec{}.Decode(buf[off:])
	off += types.UsernameCodec{}.Size()
	v.Password = types.PasswordCodec{}.Decode(buf[off:])
	off += types.PasswordCodec{}.Size()
	v.Name = types.NameCodec{}.Decode(buf[off:])
	off += types.NameCodec{}.Size()
	v.Mail = types.MailAddrCodec{}.Decode(buf[off:])
	off += types.MailAddrCodec{}.Size()
	v.Privilege = int32(binary.BigEndian.Uint32(buf[off:]))
	return v
}

// Transfer describes a one-interchange itinerary through a shared
// station.
type Transfer struct {
	TrainID1, TrainID2       types.TrainID
	From, Mid, To            types.StationName
	LeaveTime1, ArriveTime1  types.Datetime
	LeaveTime2, ArriveTime2  types.Datetime
	Price1, Price2           int64
	Seats1, Seats2           int32
}
