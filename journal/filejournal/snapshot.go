package filejournal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/vtable/docstore"
	"github.com/hupe1980/vtable/journal"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/xxh3"
)

// Snapshot layout:
//
//	[Magic: 8 bytes] [Format: 4 bytes] [Version: 8 bytes]
//	[CodecLen: 1 byte] [Codec: CodecLen bytes]
//	[Checksum: 8 bytes, xxh3 of Body] [Body: lz4 frame of the encoded commit]
const (
	snapshotMagic  = "VTBLSNAP"
	snapshotFormat = 1
)

var (
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrCodecMismatch   = errors.New("snapshot codec mismatch")
)

func encodeSnapshot(base *docstore.Commit, codecName string) ([]byte, error) {
	if len(codecName) > 255 {
		return nil, fmt.Errorf("codec name too long: %q", codecName)
	}

	var body bytes.Buffer
	zw := lz4.NewWriter(&body)
	if _, err := zw.Write(journal.EncodeCommit(nil, base)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, 29+len(codecName)+body.Len())
	out = append(out, snapshotMagic...)
	out = binary.LittleEndian.AppendUint32(out, snapshotFormat)
	out = binary.LittleEndian.AppendUint64(out, base.Version)
	out = append(out, byte(len(codecName)))
	out = append(out, codecName...)
	out = binary.LittleEndian.AppendUint64(out, xxh3.Hash(body.Bytes()))
	out = append(out, body.Bytes()...)
	return out, nil
}

func decodeSnapshot(data []byte, codecName string) (*docstore.Commit, error) {
	if len(data) < 21 || string(data[:8]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidSnapshot)
	}
	if f := binary.LittleEndian.Uint32(data[8:12]); f != snapshotFormat {
		return nil, fmt.Errorf("%w: format %d", ErrInvalidSnapshot, f)
	}
	version := binary.LittleEndian.Uint64(data[12:20])

	n := int(data[20])
	rest := data[21:]
	if len(rest) < n+8 {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidSnapshot)
	}
	if name := string(rest[:n]); name != codecName {
		return nil, fmt.Errorf("%w: written with %q, opened with %q", ErrCodecMismatch, name, codecName)
	}
	sum := binary.LittleEndian.Uint64(rest[n : n+8])
	body := rest[n+8:]
	if xxh3.Hash(body) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSnapshot)
	}

	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	c, err := journal.DecodeCommit(raw)
	if err != nil {
		return nil, err
	}
	if c.Version != version {
		return nil, fmt.Errorf("%w: header version %d, body version %d", ErrInvalidSnapshot, version, c.Version)
	}
	return c, nil
}
