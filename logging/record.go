package logging

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Severity classifies a log record.
type Severity uint8

const (
	SeverityVerbose Severity = iota
	SeverityDebug
	SeverityInfo
	SeverityNotice
	SeverityWarn
	SeverityError
	SeverityAlert

	numSeverities
)

func (s Severity) String() string {
	switch s {
	case SeverityVerbose:
		return "VERBOSE"
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityNotice:
		return "NOTICE"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	case SeverityAlert:
		return "ALERT"
	}
	return "UNKNOWN"
}

const (
	// MessageMaxLen bounds the inline message bytes of a record.
	MessageMaxLen = 80

	// HeaderSize is the fixed portion of an encoded record:
	// timestamp(8) + pc(8) + lr(8) + magic(2) + severity(1) + length(1).
	HeaderSize = 8 + 8 + 8 + 2 + 1 + 1

	// RecordMaxSize is the largest encoded record.
	RecordMaxSize = HeaderSize + MessageMaxLen

	magicSeed = 0xA5A5
)

var ErrCorruptRecord = errors.New("corrupt log record")

// Record is a decoded log record. All fields are stored little-endian
// on the wire; the byte layout never depends on host struct padding.
type Record struct {
	Timestamp int64
	PC        uint64
	LR        uint64
	Magic     uint16
	Severity  Severity
	Message   []byte
}

func computeMagic(pc, lr uint64) uint16 {
	return uint16(pc ^ lr ^ magicSeed)
}

// Valid reports whether the magic matches the pc/lr fields and the
// inline lengths are in range.
func (r *Record) Valid() bool {
	return r.Magic == computeMagic(r.PC, r.LR) &&
		r.Severity < numSeverities &&
		len(r.Message) <= MessageMaxLen
}

// Size returns the encoded size of the record.
func (r *Record) Size() int {
	return HeaderSize + len(r.Message)
}

// encodeRecord writes the record into buf and returns the encoded
// size. buf must hold at least r.Size() bytes.
func encodeRecord(buf []byte, r *Record) int {
	binary.LittleEndian.PutUint64(buf[0:], uint64(r.Timestamp))
	binary.LittleEndian.PutUint64(buf[8:], r.PC)
	binary.LittleEndian.PutUint64(buf[16:], r.LR)
	binary.LittleEndian.PutUint16(buf[24:], r.Magic)
	buf[26] = byte(r.Severity)
	buf[27] = byte(len(r.Message))
	copy(buf[HeaderSize:], r.Message)
	return HeaderSize + len(r.Message)
}

// DecodeRecord parses an encoded record. The returned record shares no
// storage with b.
func DecodeRecord(b []byte) (Record, error) {
	if len(b) < HeaderSize {
		return Record{}, ErrCorruptRecord
	}
	r := Record{
		Timestamp: int64(binary.LittleEndian.Uint64(b[0:])),
		PC:        binary.LittleEndian.Uint64(b[8:]),
		LR:        binary.LittleEndian.Uint64(b[16:]),
		Magic:     binary.LittleEndian.Uint16(b[24:]),
		Severity:  Severity(b[26]),
	}
	msglen := int(b[27])
	if msglen > MessageMaxLen || len(b) < HeaderSize+msglen {
		return Record{}, ErrCorruptRecord
	}
	r.Message = append([]byte(nil), b[HeaderSize:HeaderSize+msglen]...)
	if !r.Valid() {
		return Record{}, ErrCorruptRecord
	}
	return r, nil
}

// Stringify renders an encoded record as human-readable text.
func Stringify(rec []byte) (string, error) {
	r, err := DecodeRecord(rec)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d: [%s] <%#x,%#x> %s",
		r.Timestamp, r.Severity, r.PC, r.LR, r.Message), nil
}
