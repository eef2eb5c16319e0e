// Package records implements the on-disk TOC/Drive/Folder record
// serializers shared by every SGA version (spec.md §4.2, layer 2),
// parameterized by field width so the same unpack logic serves both the
// 16-bit-count versions (V2, V5) and the 32-bit-count versions (V7, V9).
package records

import (
	"io"
	"unicode/utf16"

	"github.com/mak-relic-tool/go-sga/internal/codec"
)

// Range is a half-open [Start, End) interval into one of the archive's
// flat definition arrays.
type Range struct {
	Start, End int64
}

// Len reports the number of elements the range covers.
func (r Range) Len() int64 { return r.End - r.Start }

// CountWidth selects the on-disk width of TOC/range counters.
type CountWidth int

const (
	// Counts16 is used by V2 and V5 (16-bit counts).
	Counts16 CountWidth = iota
	// Counts32 is used by V7 and V9 (32-bit counts).
	Counts32
)

func countField(w CountWidth) codec.Field {
	if w == Counts16 {
		return codec.U16Field()
	}
	return codec.U32Field()
}

// TocHeader unpacks the archive's four (offset, count) pairs, in the fixed
// order drives, folders, files, names. Offsets are always u32; counts
// follow CountWidth.
type TocHeader struct {
	DrivePos, DriveCount   int64
	FolderPos, FolderCount int64
	FilePos, FileCount     int64
	NamePos, NameCount     int64
}

func tocLayout(w CountWidth) codec.Layout {
	c := countField(w)
	return codec.Layout{
		codec.U32Field(), c,
		codec.U32Field(), c,
		codec.U32Field(), c,
		codec.U32Field(), c,
	}
}

// UnpackTocHeader reads one TocHeader from stream.
func UnpackTocHeader(stream io.Reader, w CountWidth) (TocHeader, error) {
	v, err := codec.Unpack(stream, tocLayout(w))
	if err != nil {
		return TocHeader{}, err
	}
	return TocHeader{
		DrivePos: int64(v.U(0)), DriveCount: int64(v.U(1)),
		FolderPos: int64(v.U(2)), FolderCount: int64(v.U(3)),
		FilePos: int64(v.U(4)), FileCount: int64(v.U(5)),
		NamePos: int64(v.U(6)), NameCount: int64(v.U(7)),
	}, nil
}

// DriveDef is the raw on-disk drive record: a 64-byte alias, a 64-byte
// name, and folder/file ranges plus a root folder index, all width-W
// counters.
type DriveDef struct {
	Alias, Name string
	FolderRange Range
	FileRange   Range
	RootFolder  int64
}

func driveLayout(w CountWidth) codec.Layout {
	c := countField(w)
	return codec.Layout{
		codec.BytesField(64), codec.BytesField(64),
		c, c, c, c, c,
	}
}

// UnpackDriveDef reads one DriveDef from stream.
func UnpackDriveDef(stream io.Reader, w CountWidth) (DriveDef, error) {
	v, err := codec.Unpack(stream, driveLayout(w))
	if err != nil {
		return DriveDef{}, err
	}
	return DriveDef{
		Alias:       trimASCII(v.B(0)),
		Name:        trimASCII(v.B(1)),
		FolderRange: Range{Start: int64(v.U(2)), End: int64(v.U(3))},
		FileRange:   Range{Start: int64(v.U(4)), End: int64(v.U(5))},
		RootFolder:  int64(v.U(6)),
	}, nil
}

// FolderDef is the raw on-disk folder record.
type FolderDef struct {
	NamePos     int64
	FolderRange Range
	FileRange   Range
}

func folderLayout(w CountWidth) codec.Layout {
	c := countField(w)
	return codec.Layout{codec.U32Field(), c, c, c, c}
}

// UnpackFolderDef reads one FolderDef from stream.
func UnpackFolderDef(stream io.Reader, w CountWidth) (FolderDef, error) {
	v, err := codec.Unpack(stream, folderLayout(w))
	if err != nil {
		return FolderDef{}, err
	}
	return FolderDef{
		NamePos:     int64(v.U(0)),
		FolderRange: Range{Start: int64(v.U(1)), End: int64(v.U(2))},
		FileRange:   Range{Start: int64(v.U(3)), End: int64(v.U(4))},
	}, nil
}

// trimASCII NUL-trims a fixed-length padded ASCII field.
func trimASCII(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}

// DecodeUTF16LE decodes a NUL-padded UTF-16LE field (archive names), right
// trimming at the first NUL code unit.
func DecodeUTF16LE(b []byte) string {
	n := len(b) / 2
	units := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		u := uint16(b[2*i]) | uint16(b[2*i+1])<<8
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}
