package journal

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vtable/docstore"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedCommit is returned when a commit cannot be decoded.
var ErrMalformedCommit = errors.New("malformed commit")

// Commit wire format (protobuf encoding, no generated code):
//
//	message Commit {
//	  uint64 version = 1;
//	  repeated Mutation mutations = 2;
//	}
//	message Mutation {
//	  uint32 op = 1;
//	  string collection = 2;
//	  string id = 3;
//	  bytes data = 4;
//	}
const (
	fieldCommitVersion   protowire.Number = 1
	fieldCommitMutations protowire.Number = 2

	fieldMutationOp         protowire.Number = 1
	fieldMutationCollection protowire.Number = 2
	fieldMutationID         protowire.Number = 3
	fieldMutationData       protowire.Number = 4
)

// EncodeCommit appends the wire encoding of c to dst.
func EncodeCommit(dst []byte, c *docstore.Commit) []byte {
	dst = protowire.AppendTag(dst, fieldCommitVersion, protowire.VarintType)
	dst = protowire.AppendVarint(dst, c.Version)

	var m []byte
	for _, mut := range c.Mutations {
		m = m[:0]
		m = protowire.AppendTag(m, fieldMutationOp, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(mut.Op))
		m = protowire.AppendTag(m, fieldMutationCollection, protowire.BytesType)
		m = protowire.AppendString(m, mut.Collection)
		m = protowire.AppendTag(m, fieldMutationID, protowire.BytesType)
		m = protowire.AppendString(m, mut.ID)
		if mut.Data != nil {
			m = protowire.AppendTag(m, fieldMutationData, protowire.BytesType)
			m = protowire.AppendBytes(m, mut.Data)
		}
		dst = protowire.AppendTag(dst, fieldCommitMutations, protowire.BytesType)
		dst = protowire.AppendBytes(dst, m)
	}
	return dst
}

// DecodeCommit decodes a commit. Unknown fields are skipped.
func DecodeCommit(b []byte) (*docstore.Commit, error) {
	c := &docstore.Commit{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed(protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldCommitVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			c.Version = v
			b = b[n:]
		case num == fieldCommitMutations && typ == protowire.BytesType:
			raw, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			m, err := decodeMutation(raw)
			if err != nil {
				return nil, err
			}
			c.Mutations = append(c.Mutations, m)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return c, nil
}

func decodeMutation(b []byte) (docstore.Mutation, error) {
	var m docstore.Mutation
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, malformed(protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldMutationOp && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return m, malformed(protowire.ParseError(n))
			}
			m.Op = docstore.Op(v)
			b = b[n:]
		case num == fieldMutationCollection && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return m, malformed(protowire.ParseError(n))
			}
			m.Collection = v
			b = b[n:]
		case num == fieldMutationID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return m, malformed(protowire.ParseError(n))
			}
			m.ID = v
			b = b[n:]
		case num == fieldMutationData && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return m, malformed(protowire.ParseError(n))
			}
			m.Data = append([]byte{}, v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return m, malformed(protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	switch m.Op {
	case docstore.OpPut, docstore.OpDelete:
	default:
		return m, fmt.Errorf("%w: unknown op %d", ErrMalformedCommit, m.Op)
	}
	return m, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedCommit, err)
}
