package archive

import "fmt"

// MagicWordMismatchError is returned when a stream does not begin with the
// 8-byte ASCII magic word "_ARCHIVE".
type MagicWordMismatchError struct {
	Got [8]byte
}

func (e *MagicWordMismatchError) Error() string {
	return fmt.Sprintf("sga: magic word mismatch: got %q, want %q", e.Got[:], MagicWord)
}

// VersionMismatchError is returned when the stream's version tag does not
// match the driver that was invoked to read it.
type VersionMismatchError struct {
	Got, Want Version
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("sga: version mismatch: got %s, want %s", e.Got, e.Want)
}

// UnsupportedVersionError is returned by the dispatching Read when no driver
// is registered for the stream's version tag.
type UnsupportedVersionError struct {
	Got Version
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("sga: unsupported version: %s", e.Got)
}

// ReservedFieldMismatchError is returned when a header field declared
// constant on disk (e.g. V5's (rsv1, rsv0) == (1, 0)) has another value.
type ReservedFieldMismatchError struct {
	Field      string
	Got, Want  any
}

func (e *ReservedFieldMismatchError) Error() string {
	return fmt.Sprintf("sga: reserved field %q mismatch: got %v, want %v", e.Field, e.Got, e.Want)
}

// DecompressedSizeMismatchError is returned when an inflated payload's
// length does not equal the declared unpacked (length_on_disk) size.
type DecompressedSizeMismatchError struct {
	Got, Want int
}

func (e *DecompressedSizeMismatchError) Error() string {
	return fmt.Sprintf("sga: decompressed size mismatch: got %d bytes, want %d", e.Got, e.Want)
}

// NameTableTruncatedError is returned when the name table ends before the
// declared count of names has been reached.
type NameTableTruncatedError struct {
	Got, Want int
}

func (e *NameTableTruncatedError) Error() string {
	return fmt.Sprintf("sga: name table truncated: read %d of %d declared names", e.Got, e.Want)
}

// IndexOutOfRangeError is returned when a name_pos, root_folder, or range
// endpoint falls outside the bounds it must index into.
type IndexOutOfRangeError struct {
	What string
	Got  int
	Low  int
	High int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("sga: %s index %d out of range [%d, %d)", e.What, e.Got, e.Low, e.High)
}
