// Package archive holds the version-independent pieces of an SGA archive:
// the magic word and version tag, the generic Drive/Folder/File tree
// (spec.md §3), and the shared error and enum types every version driver
// (go-sga/v2, /v5, /v7, /v9) builds on. The root go-sga package re-exports
// the parts callers need and adds the version-sniffing dispatcher; it
// can't live here because it imports the version drivers, which in turn
// import this package.
package archive

import (
	"fmt"
	"io"
)

// MagicWord is the 8-byte ASCII marker every SGA archive begins with.
const MagicWord = "_ARCHIVE"

// ReadMagicWord consumes and validates the magic word from stream.
func ReadMagicWord(stream io.Reader) error {
	var buf [8]byte
	if _, err := io.ReadFull(stream, buf[:]); err != nil {
		return fmt.Errorf("sga: reading magic word: %w", err)
	}
	if string(buf[:]) != MagicWord {
		return &MagicWordMismatchError{Got: buf}
	}
	return nil
}

// Version is the archive's major.minor version tag, two little-endian
// uint16 fields immediately following the magic word.
type Version struct {
	Major, Minor uint16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Well-known supported versions.
var (
	VersionV2 = Version{Major: 2}
	VersionV5 = Version{Major: 5}
	VersionV7 = Version{Major: 7}
	VersionV9 = Version{Major: 9}
)

// ReadVersion reads the two-uint16 version tag from stream.
func ReadVersion(stream io.Reader) (Version, error) {
	var buf [4]byte
	if _, err := io.ReadFull(stream, buf[:]); err != nil {
		return Version{}, fmt.Errorf("sga: reading version: %w", err)
	}
	return Version{
		Major: uint16(buf[0]) | uint16(buf[1])<<8,
		Minor: uint16(buf[2]) | uint16(buf[3])<<8,
	}, nil
}

// TocHeader is the fixed-offset directory of drives, folders, files, and
// name bytes inside the archive header. Offsets are relative to
// ArchivePtrs.HeaderPos.
type TocHeader struct {
	DrivePos, DriveCount   int64
	FolderPos, FolderCount int64
	FilePos, FileCount     int64
	NamePos, NameCount     int64
}

// ArchivePtrs locates the header and data sections within the stream.
type ArchivePtrs struct {
	HeaderPos  int64
	HeaderSize int64
	DataPos    int64
	DataSize   int64 // 0 means "not carried by this version" (V9 only)
}
