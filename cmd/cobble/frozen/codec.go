package frozen

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// GobEncode gives Value a deterministic wire form so that gob.Encoder can be
// used (as cmd/cobble/env's digest does) to feed a stable byte stream into a
// hash. The default reflection-based gob encoding of an unexported-field
// struct like Value would refuse to run at all, so we hand-encode: a kind
// tag byte followed by the shape-specific payload, with every length
// varint-prefixed so concatenation can never be ambiguous between elements.
func (v Value) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	v.encode(&buf)
	return buf.Bytes(), nil
}

// GobDecode exists only so Value satisfies the matched GobEncoder/GobDecoder
// pair gob requires to accept the custom encoding; cobble never needs to
// decode a digested environment back into a Value, so this is unused in
// practice but kept correct for completeness and testability.
func (v *Value) GobDecode(data []byte) error {
	buf := bytes.NewBuffer(data)
	dec, err := decode(buf)
	if err != nil {
		return err
	}
	*v = dec
	return nil
}

func (v Value) encode(buf *bytes.Buffer) {
	buf.WriteByte(byte(v.kind))
	switch v.kind {
	case KindNull:
		// no payload
	case KindBool:
		if v.b {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindString:
		writeUvarint(buf, uint64(len(v.str)))
		buf.WriteString(v.str)
	case KindTuple, KindSet:
		writeUvarint(buf, uint64(len(v.elts)))
		for _, e := range v.elts {
			e.encode(buf)
		}
	}
}

func decode(buf *bytes.Buffer) (Value, error) {
	kindByte, err := buf.ReadByte()
	if err != nil {
		return Null, err
	}
	kind := Kind(kindByte)
	switch kind {
	case KindNull:
		return Null, nil
	case KindBool:
		b, err := buf.ReadByte()
		if err != nil {
			return Null, err
		}
		return Bool(b != 0), nil
	case KindString:
		n, err := binary.ReadUvarint(buf)
		if err != nil {
			return Null, err
		}
		s := make([]byte, n)
		if _, err := buf.Read(s); err != nil {
			return Null, err
		}
		return String(string(s)), nil
	case KindTuple, KindSet:
		n, err := binary.ReadUvarint(buf)
		if err != nil {
			return Null, err
		}
		elts := make([]Value, n)
		for i := range elts {
			e, err := decode(buf)
			if err != nil {
				return Null, err
			}
			elts[i] = e
		}
		if kind == KindSet {
			return Set(elts...), nil
		}
		return Tuple(elts...), nil
	default:
		return Null, fmt.Errorf("frozen: unknown kind tag %d", kindByte)
	}
}

func writeUvarint(buf *bytes.Buffer, n uint64) {
	var tmp [binary.MaxVarintLen64]byte
	l := binary.PutUvarint(tmp[:], n)
	buf.Write(tmp[:l])
}
