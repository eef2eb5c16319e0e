// Package codec implements the fixed-width little-endian primitive packing
// every SGA record serializer is built on (layer 1 of the decoder).
//
// There is no reflection here on purpose: every on-disk record has a small,
// literal, version-specific shape, so a Layout is just the ordered list of
// field widths a serializer reads in turn, in the same spirit as the
// teacher's own direct binary.LittleEndian.UintNN field parsing.
package codec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Kind identifies the wire width/shape of one field in a Layout.
type Kind int

const (
	U8 Kind = iota
	U16
	U32
	U64
	Bytes // fixed-length raw byte string; width carries the length
)

// Field describes one positional field of a record.
type Field struct {
	Kind  Kind
	Width int // only meaningful for Bytes
}

// Layout is an ordered list of fields unpacked/packed together, standing in
// for the Python original's serialization_tools.structx.Struct.
type Layout []Field

func U8Field() Field          { return Field{Kind: U8} }
func U16Field() Field         { return Field{Kind: U16} }
func U32Field() Field         { return Field{Kind: U32} }
func U64Field() Field         { return Field{Kind: U64} }
func BytesField(n int) Field  { return Field{Kind: Bytes, Width: n} }

// Size returns the on-disk byte width of the layout.
func (l Layout) Size() int {
	n := 0
	for _, f := range l {
		switch f.Kind {
		case U8:
			n++
		case U16:
			n += 2
		case U32:
			n += 4
		case U64:
			n += 8
		case Bytes:
			n += f.Width
		}
	}
	return n
}

// Values holds one decoded record: a parallel slice of uint64 (for scalar
// fields) and []byte (for Bytes fields), addressed positionally.
type Values struct {
	scalars []uint64
	blobs   [][]byte
	kinds   []Kind
}

func newValues(l Layout) *Values {
	return &Values{
		scalars: make([]uint64, len(l)),
		blobs:   make([][]byte, len(l)),
		kinds:   make([]Kind, len(l)),
	}
}

// U returns field i as a scalar.
func (v *Values) U(i int) uint64 { return v.scalars[i] }

// B returns field i as a byte buffer (only valid for Bytes fields).
func (v *Values) B(i int) []byte { return v.blobs[i] }

// Unpack reads one record described by l from r.
func Unpack(r io.Reader, l Layout) (*Values, error) {
	buf := make([]byte, l.Size())
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("codec: short read: %w", err)
	}
	v := newValues(l)
	off := 0
	for i, f := range l {
		v.kinds[i] = f.Kind
		switch f.Kind {
		case U8:
			v.scalars[i] = uint64(buf[off])
			off++
		case U16:
			v.scalars[i] = uint64(binary.LittleEndian.Uint16(buf[off:]))
			off += 2
		case U32:
			v.scalars[i] = uint64(binary.LittleEndian.Uint32(buf[off:]))
			off += 4
		case U64:
			v.scalars[i] = binary.LittleEndian.Uint64(buf[off:])
			off += 8
		case Bytes:
			v.blobs[i] = append([]byte(nil), buf[off:off+f.Width]...)
			off += f.Width
		}
	}
	return v, nil
}

// Pack writes one record described by l to w, reading field i from
// scalars[i] or blobs[i] according to l[i].Kind.
func Pack(w io.Writer, l Layout, scalars []uint64, blobs [][]byte) (int, error) {
	buf := make([]byte, l.Size())
	off := 0
	for i, f := range l {
		switch f.Kind {
		case U8:
			buf[off] = byte(scalars[i])
			off++
		case U16:
			binary.LittleEndian.PutUint16(buf[off:], uint16(scalars[i]))
			off += 2
		case U32:
			binary.LittleEndian.PutUint32(buf[off:], uint32(scalars[i]))
			off += 4
		case U64:
			binary.LittleEndian.PutUint64(buf[off:], scalars[i])
			off += 8
		case Bytes:
			copy(buf[off:off+f.Width], blobs[i])
			off += f.Width
		}
	}
	n, err := w.Write(buf)
	if err != nil {
		return n, fmt.Errorf("codec: short write: %w", err)
	}
	return n, nil
}
