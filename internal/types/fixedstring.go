package types

// Fixed-size string value types, one per bounded domain field: usernames
// ≤20, passwords ≤30, names ≤15, mail ≤31, train IDs ≤20, station names
// ≤30. Each is a plain fixed-size byte array rather than a
// single generic FixedString[N] — Go has no const-generic array length, and
// a runtime-capped slice type would defeat the "deterministic binary
// layout" requirement these exist for (a B+-tree page's fan-out must be
// computable from a compile-time sizeof(K)/sizeof(V)).
//
// Every type here trims trailing NUL bytes on String() and truncates (never
// panics) on construction from an over-long string, since validating input
// length is a domain-layer (internal/railway) concern, not a storage one.

func packFixed(s string, out []byte) {
	clear(out)
	copy(out, s)
}

func unpackFixed(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}

// Username holds a login name of at most 20 bytes.
type Username [20]byte

func NewUsername(s string) Username {
	var u Username
	packFixed(s, u[:])
	return u
}

func (u Username) String() string { return unpackFixed(u[:]) }

type UsernameCodec struct{}

func (UsernameCodec) Size() int                    { return len(Username{}) }
func (UsernameCodec) Encode(v Username, buf []byte) { copy(buf, v[:]) }
func (UsernameCodec) Decode(buf []byte) Username {
	var u Username
	copy(u[:], buf)
	return u
}

// Password holds a login password of at most 30 bytes.
type Password [30]byte

func NewPassword(s string) Password {
	var p Password
	packFixed(s, p[:])
	return p
}

func (p Password) String() string { return unpackFixed(p[:]) }

type PasswordCodec struct{}

func (PasswordCodec) Size() int                    { return len(Password{}) }
func (PasswordCodec) Encode(v Password, buf []byte) { copy(buf, v[:]) }
func (PasswordCodec) Decode(buf []byte) Password {
	var p Password
	copy(p[:], buf)
	return p
}

// Name holds a display name of at most 15 bytes.
type Name [15]byte

func NewName(s string) Name {
	var n Name
	packFixed(s, n[:])
	return n
}

func (n Name) String() string { return unpackFixed(n[:]) }

type NameCodec struct{}

func (NameCodec) Size() int                { return len(Name{}) }
func (NameCodec) Encode(v Name, buf []byte) { copy(buf, v[:]) }
func (NameCodec) Decode(buf []byte) Name {
	var n Name
	copy(n[:], buf)
	return n
}

// MailAddr holds an e-mail address of at most 31 bytes.
type MailAddr [31]byte

func NewMailAddr(s string) MailAddr {
	var m MailAddr
	packFixed(s, m[:])
	return m
}

func (m MailAddr) String() string { return unpackFixed(m[:]) }

type MailAddrCodec struct{}

func (MailAddrCodec) Size() int                    { return len(MailAddr{}) }
func (MailAddrCodec) Encode(v MailAddr, buf []byte) { copy(buf, v[:]) }
func (MailAddrCodec) Decode(buf []byte) MailAddr {
	var m MailAddr
	copy(m[:], buf)
	return m
}

// TrainID holds a train identifier of at most 20 bytes.
type TrainID [20]byte

func NewTrainID(s string) TrainID {
	var t TrainID
	packFixed(s, t[:])
	return t
}

func (t TrainID) String() string { return unpackFixed(t[:]) }

type TrainIDCodec struct{}

func (TrainIDCodec) Size() int                    { return len(TrainID{}) }
func (TrainIDCodec) Encode(v TrainID, buf []byte) { copy(buf, v[:]) }
func (TrainIDCodec) Decode(buf []byte) TrainID {
	var t TrainID
	copy(t[:], buf)
	return t
}

// StationName holds a station name of at most 30 bytes.
type StationName [30]byte

func NewStationName(s string) StationName {
	var st StationName
	packFixed(s, st[:])
	return st
}

func (st StationName) String() string { return unpackFixed(st[:]) }

type StationNameCodec struct{}

func (StationNameCodec) Size() int                       { return len(StationName{}) }
func (StationNameCodec) Encode(v StationName, buf []byte) { copy(buf, v[:]) }
func (StationNameCodec) Decode(buf []byte) StationName {
	var st StationName
	copy(st[:], buf)
	return st
}
