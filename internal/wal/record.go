package wal

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// RecordType identifies the type of WAL record.
type RecordType uint8

const (
	// RecordTypeCommit holds one encoded commit.
	RecordTypeCommit RecordType = 1
	// RecordTypeCommitZstd holds one zstd-compressed encoded commit.
	RecordTypeCommitZstd RecordType = 2
)

// MaxRecordSize bounds the payload of a single record.
const MaxRecordSize = 64 << 20

const recordHeaderSize = 4 + 1 + 8 + 4

var (
	ErrInvalidCRC     = errors.New("invalid WAL record checksum")
	ErrInvalidType    = errors.New("invalid WAL record type")
	ErrRecordTooLarge = errors.New("WAL record too large")
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Record is a single entry of the WAL.
type Record struct {
	Type    RecordType
	LSN     uint64
	Payload []byte
}

// Size returns the encoded size of the record.
func (r *Record) Size() int {
	return recordHeaderSize + len(r.Payload)
}

// Encode writes the record to w.
//
// Format:
// [CRC32-C: 4 bytes] [Type: 1 byte] [LSN: 8 bytes] [Length: 4 bytes] [Payload: Length bytes]
//
// The checksum covers everything after itself.
func (r *Record) Encode(w io.Writer) error {
	if len(r.Payload) > MaxRecordSize {
		return ErrRecordTooLarge
	}
	buf := make([]byte, r.Size())
	buf[4] = byte(r.Type)
	binary.LittleEndian.PutUint64(buf[5:], r.LSN)
	binary.LittleEndian.PutUint32(buf[13:], uint32(len(r.Payload)))
	copy(buf[recordHeaderSize:], r.Payload)
	binary.LittleEndian.PutUint32(buf[0:], crc32.Checksum(buf[4:], crcTable))

	_, err := w.Write(buf)
	return err
}

// Decode reads a record from r and returns it with the number of bytes
// consumed. A clean end of input is io.EOF; a record cut short is
// io.ErrUnexpectedEOF.
func Decode(r io.Reader) (*Record, int64, error) {
	var header [recordHeaderSize]byte
	n, err := io.ReadFull(r, header[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return nil, 0, io.EOF
		}
		return nil, int64(n), io.ErrUnexpectedEOF
	}

	checksum := binary.LittleEndian.Uint32(header[0:])
	rec := &Record{
		Type: RecordType(header[4]),
		LSN:  binary.LittleEndian.Uint64(header[5:]),
	}
	length := binary.LittleEndian.Uint32(header[13:])
	if length > MaxRecordSize {
		return nil, recordHeaderSize, ErrRecordTooLarge
	}

	rec.Payload = make([]byte, length)
	if m, err := io.ReadFull(r, rec.Payload); err != nil {
		return nil, recordHeaderSize + int64(m), io.ErrUnexpectedEOF
	}

	crc := crc32.Update(0, crcTable, header[4:])
	crc = crc32.Update(crc, crcTable, rec.Payload)
	if crc != checksum {
		return nil, recordHeaderSize + int64(length), ErrInvalidCRC
	}

	switch rec.Type {
	case RecordTypeCommit, RecordTypeCommitZstd:
	default:
		return nil, recordHeaderSize + int64(length), ErrInvalidType
	}
	return rec, recordHeaderSize + int64(length), nil
}
