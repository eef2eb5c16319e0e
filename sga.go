// Package sga decodes Relic Entertainment's SGA archive container: a
// packed filesystem of drives, folders, and files, optionally compressed
// per file, checksummed over its header and payload, shipped in four
// on-disk variants (V2, V5, V7, V9).
//
// Read sniffs the magic word and version tag and dispatches to the
// matching version driver (go-sga/v2, /v5, /v7, /v9); each driver also
// exposes its own typed Read with the same signature for callers that
// already know the version (spec.md §6). The tree shape (Archive, Drive,
// Folder, File) and the shared enums and errors live in go-sga/archive
// and are re-exported here so callers never need to import it directly.
package sga

import (
	"io"

	"github.com/mak-relic-tool/go-sga/archive"
	"github.com/mak-relic-tool/go-sga/internal/archivecache"
	"github.com/mak-relic-tool/go-sga/v2"
	"github.com/mak-relic-tool/go-sga/v5"
	"github.com/mak-relic-tool/go-sga/v7"
	"github.com/mak-relic-tool/go-sga/v9"
)

// MagicWord is the 8-byte ASCII marker every SGA archive begins with.
const MagicWord = archive.MagicWord

// Version is the archive's major.minor version tag.
type Version = archive.Version

// Well-known supported versions.
var (
	VersionV2 = archive.VersionV2
	VersionV5 = archive.VersionV5
	VersionV7 = archive.VersionV7
	VersionV9 = archive.VersionV9
)

// ReadMagicWord consumes and validates the magic word from stream.
func ReadMagicWord(stream io.Reader) error { return archive.ReadMagicWord(stream) }

// ReadVersion reads the two-uint16 version tag from stream.
func ReadVersion(stream io.Reader) (Version, error) { return archive.ReadVersion(stream) }

// StorageType is the canonical, version-independent compression scheme a
// file's payload is stored under.
type StorageType = archive.StorageType

// Well-known storage types.
const (
	StorageStore          = archive.StorageStore
	StorageBufferCompress = archive.StorageBufferCompress
	StorageStreamCompress = archive.StorageStreamCompress
)

// VerificationType is the file-level integrity-check mode V5+ FileDef
// records carry.
type VerificationType = archive.VerificationType

// ArchivePtrs locates the header and data sections within the stream.
type ArchivePtrs = archive.ArchivePtrs

// TocHeader is the fixed-offset directory of drives, folders, files, and
// name bytes inside the archive header.
type TocHeader = archive.TocHeader

// Node, Archive, Drive, Folder, and File are the generic decoded tree
// every version instantiates with its own archive/file metadata types
// (spec.md §3).
type (
	Node               = archive.Node
	Archive[M, FM any] = archive.Archive[M, FM]
	WalkEntry[FM any]  = archive.WalkEntry[FM]
	Drive[FM any]      = archive.Drive[FM]
	Folder[FM any]     = archive.Folder[FM]
	File[FM any]       = archive.File[FM]
)

// Error types surfaced while decoding (spec.md §7).
type (
	MagicWordMismatchError        = archive.MagicWordMismatchError
	VersionMismatchError          = archive.VersionMismatchError
	UnsupportedVersionError       = archive.UnsupportedVersionError
	ReservedFieldMismatchError    = archive.ReservedFieldMismatchError
	DecompressedSizeMismatchError = archive.DecompressedSizeMismatchError
	NameTableTruncatedError       = archive.NameTableTruncatedError
	IndexOutOfRangeError          = archive.IndexOutOfRangeError
)

// ArchiveWriter is declared for every format but implemented by none;
// archive writing remains out of scope (spec.md §1's Non-goals,
// SPEC_FULL.md §E).
type ArchiveWriter[M, FM any] = archive.ArchiveWriter[M, FM]

// Cache is an optional cross-call cache of parsed TOC definitions
// (SPEC_FULL.md §A/§C): open one with NewCache and pass it to a version
// driver's ReadCached (or to ReadCached here) to skip layers 2-4 of the
// decoder on repeated opens of the same archive.
type Cache = archivecache.Cache

// CacheOptions configures NewCache.
type CacheOptions = archivecache.Options

// NewCache opens a Cache. An empty opts.Dir keeps the cache in-process
// only; a non-empty one also persists parsed TOCs to a pebble store on
// disk for reuse across process restarts.
func NewCache(opts CacheOptions) (*Cache, error) { return archivecache.New(opts) }

// Read sniffs stream's magic word and version tag, seeks back to where it
// found them, and dispatches to the matching version driver. The
// concrete return type is one of *v2.Archive, *v5.Archive, *v7.Archive,
// or *v9.Archive; callers that know the version ahead of time should call
// that version's Read directly instead of type-switching on this one.
func Read(stream io.ReadSeeker, lazy bool, decompress bool) (any, error) {
	ver, err := sniffVersion(stream)
	if err != nil {
		return nil, err
	}
	switch ver {
	case archive.VersionV2:
		return v2.Read(stream, lazy, decompress)
	case archive.VersionV5:
		return v5.Read(stream, lazy, decompress)
	case archive.VersionV7:
		return v7.Read(stream, lazy, decompress)
	case archive.VersionV9:
		return v9.Read(stream, lazy, decompress)
	default:
		return nil, &archive.UnsupportedVersionError{Got: ver}
	}
}

// ReadCached behaves like Read, but routes the decode through cache so
// that reopening a previously-seen archive (matched by a fingerprint
// over its header region) skips the record-serializer and name-table
// layers entirely.
func ReadCached(stream io.ReadSeeker, lazy, decompress bool, cache *Cache) (any, error) {
	ver, err := sniffVersion(stream)
	if err != nil {
		return nil, err
	}
	switch ver {
	case archive.VersionV2:
		return v2.ReadCached(stream, lazy, decompress, cache)
	case archive.VersionV5:
		return v5.ReadCached(stream, lazy, decompress, cache)
	case archive.VersionV7:
		return v7.ReadCached(stream, lazy, decompress, cache)
	case archive.VersionV9:
		return v9.ReadCached(stream, lazy, decompress, cache)
	default:
		return nil, &archive.UnsupportedVersionError{Got: ver}
	}
}

// sniffVersion reads the magic word and version tag starting at stream's
// current position, then restores that position so a version driver's
// own Read can parse the header from the beginning.
func sniffVersion(stream io.ReadSeeker) (Version, error) {
	start, err := stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return Version{}, err
	}
	defer func() { _, _ = stream.Seek(start, io.SeekStart) }()

	if err := archive.ReadMagicWord(stream); err != nil {
		return Version{}, err
	}
	return archive.ReadVersion(stream)
}
