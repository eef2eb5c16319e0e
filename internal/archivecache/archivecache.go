// Package archivecache is a domain-stack addition (SPEC_FULL.md §A/§C): an
// optional cache of a parsed archive's flat TOC definitions (drive, folder,
// and file definitions plus the name table), keyed by a content fingerprint
// of the archive's header region. A long-lived process that reopens the
// same archive repeatedly (a game-asset indexer, a build tool watching a
// pack directory) can skip layers 2-3 of the decoder (record serializers
// and name table) on a cache hit, re-running only the cheap tree-assembly
// pass (layer 4) against the cached definitions.
//
// Two tiers are kept, mirroring the teacher's own decompressioncache
// checkpoint-cache idea (internal/decompressioncache in the teacher repo)
// restructured around this module's real go.mod dependencies: an
// in-process tinylfu-admitted hot tier for same-process reuse, and an
// optional on-disk pebble store for cross-process/process-restart reuse.
package archivecache

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"hash/maphash"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble/v2"
	"github.com/dgryski/go-tinylfu"

	sga "github.com/mak-relic-tool/go-sga/archive"
	"github.com/mak-relic-tool/go-sga/internal/assemble"
	"github.com/mak-relic-tool/go-sga/internal/records"
)

// Key identifies one cached TOC by the fingerprint of the archive bytes
// that produced it.
type Key string

// Fingerprint hashes the headerSize bytes at headerPos within stream (the
// whole TOC region: drive/folder/file defs and the name table live inside
// this window for every version, spec.md §4.7's HEADER_PARSED state) into
// a cache Key, then restores stream's cursor.
func Fingerprint(stream io.ReadSeeker, headerPos, headerSize int64) (Key, error) {
	saved, err := stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", fmt.Errorf("archivecache: saving cursor: %w", err)
	}
	defer func() { _, _ = stream.Seek(saved, io.SeekStart) }()

	if _, err := stream.Seek(headerPos, io.SeekStart); err != nil {
		return "", fmt.Errorf("archivecache: seeking to header: %w", err)
	}
	h := xxhash.New()
	fmt.Fprintf(h, "%d:%d:", headerPos, headerSize)
	if _, err := io.CopyN(h, stream, headerSize); err != nil {
		return "", fmt.Errorf("archivecache: hashing header: %w", err)
	}
	return Key(fmt.Sprintf("%016x", h.Sum64())), nil
}

// TOCData is the version-generic payload cached for one archive: the flat
// definition arrays layer 2 produces, plus the name table layer 3 produces,
// ready for the tree assembler (layer 4) to consume without re-reading the
// stream.
type TOCData[FM any] struct {
	DriveDefs  []DriveDef
	FolderDefs []FolderDef
	FileDefs   []FileDef[FM]
	Names      map[int64]string
}

// DriveDef, FolderDef, and FileDef are cache-portable copies of
// internal/records' and internal/assemble's shapes; the From*/To*
// functions below convert between the two, and the version drivers call
// them around a cache Put/Get.
type DriveDef struct {
	Alias, Name            string
	FolderStart, FolderEnd int64
	FileStart, FileEnd     int64
	RootFolder             int64
}

type FolderDef struct {
	NamePos                int64
	FolderStart, FolderEnd int64
	FileStart, FileEnd     int64
}

type FileDef[FM any] struct {
	NamePos         int64
	DataPos         int64
	LengthOnDisk    int64
	LengthInArchive int64
	StorageType     int
	Metadata        FM
}

// hotSeed is the process-wide seed for hashing Keys into the hot tier.
// Keys are already content-addressed xxhash digests (see Fingerprint), so
// this second hash only needs to distribute them across tinylfu's internal
// buckets, the same role bhasher/rhasher play in the teacher's own
// tinylfu.New call sites (internal/spinner/concurrent.go).
var hotSeed = maphash.MakeSeed()

func hashKey(k Key) uint64 { return maphash.Comparable(hotSeed, k) }

// Cache is the two-tier store: an in-process hot tier (always present) and
// an optional on-disk tier (present when opened with a directory). The hot
// tier holds gob-encoded TOCData blobs rather than a decoded value, since
// one Cache is shared across every version driver's distinct FM type
// (sga.Archive's generic parameter) and tinylfu.T can only be instantiated
// with one concrete value type.
type Cache struct {
	hot  *tinylfu.T[Key, []byte]
	disk *pebble.DB
}

// Options configures New.
type Options struct {
	// HotSize bounds the number of archives kept warm in-process. Zero
	// selects a small default suitable for a CLI-scale tool.
	HotSize int
	// Dir, if non-empty, opens (or creates) a pebble store at this path
	// for cross-process reuse. Empty means hot-tier-only.
	Dir string
}

// New opens a Cache. With an empty Dir, only the in-process hot tier is
// used and Close is a no-op.
func New(opts Options) (*Cache, error) {
	hotSize := opts.HotSize
	if hotSize <= 0 {
		hotSize = 128
	}
	c := &Cache{hot: tinylfu.New[Key, []byte](hotSize, hotSize*10, hashKey)}
	if opts.Dir != "" {
		db, err := pebble.Open(opts.Dir, &pebble.Options{})
		if err != nil {
			return nil, fmt.Errorf("archivecache: opening pebble store at %s: %w", opts.Dir, err)
		}
		c.disk = db
	}
	return c, nil
}

// Close releases the on-disk store, if one is open.
func (c *Cache) Close() error {
	if c.disk == nil {
		return nil
	}
	return c.disk.Close()
}

// Get looks up key, trying the hot tier first and falling back to the disk
// tier (promoting the result to hot on a disk hit). Both tiers store a
// gob-encoded blob, decoded into FM's concrete TOCData shape on return.
func Get[FM any](c *Cache, key Key) (TOCData[FM], bool) {
	if blob, ok := c.hot.Get(key); ok {
		var data TOCData[FM]
		if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&data); err == nil {
			return data, true
		}
	}
	if c.disk == nil {
		return TOCData[FM]{}, false
	}
	blob, closer, err := c.disk.Get([]byte(key))
	if err != nil {
		return TOCData[FM]{}, false
	}
	defer closer.Close()

	var data TOCData[FM]
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&data); err != nil {
		return TOCData[FM]{}, false
	}
	c.hot.Add(key, append([]byte(nil), blob...))
	return data, true
}

// FromRecordDrives converts layer-2 DriveDefs to their cache-portable shape.
func FromRecordDrives(defs []records.DriveDef) []DriveDef {
	out := make([]DriveDef, len(defs))
	for i, d := range defs {
		out[i] = DriveDef{
			Alias: d.Alias, Name: d.Name,
			FolderStart: d.FolderRange.Start, FolderEnd: d.FolderRange.End,
			FileStart: d.FileRange.Start, FileEnd: d.FileRange.End,
			RootFolder: d.RootFolder,
		}
	}
	return out
}

// ToRecordDrives converts cached DriveDefs back to layer-2's shape.
func ToRecordDrives(defs []DriveDef) []records.DriveDef {
	out := make([]records.DriveDef, len(defs))
	for i, d := range defs {
		out[i] = records.DriveDef{
			Alias: d.Alias, Name: d.Name,
			FolderRange: records.Range{Start: d.FolderStart, End: d.FolderEnd},
			FileRange:   records.Range{Start: d.FileStart, End: d.FileEnd},
			RootFolder:  d.RootFolder,
		}
	}
	return out
}

// FromRecordFolders converts layer-2 FolderDefs to their cache-portable
// shape.
func FromRecordFolders(defs []records.FolderDef) []FolderDef {
	out := make([]FolderDef, len(defs))
	for i, f := range defs {
		out[i] = FolderDef{
			NamePos:     f.NamePos,
			FolderStart: f.FolderRange.Start, FolderEnd: f.FolderRange.End,
			FileStart: f.FileRange.Start, FileEnd: f.FileRange.End,
		}
	}
	return out
}

// ToRecordFolders converts cached FolderDefs back to layer-2's shape.
func ToRecordFolders(defs []FolderDef) []records.FolderDef {
	out := make([]records.FolderDef, len(defs))
	for i, f := range defs {
		out[i] = records.FolderDef{
			NamePos:     f.NamePos,
			FolderRange: records.Range{Start: f.FolderStart, End: f.FolderEnd},
			FileRange:   records.Range{Start: f.FileStart, End: f.FileEnd},
		}
	}
	return out
}

// FromFileInputs converts layer-4-ready FileInputs to their cache-portable
// shape.
func FromFileInputs[FM any](in []assemble.FileInput[FM]) []FileDef[FM] {
	out := make([]FileDef[FM], len(in))
	for i, f := range in {
		out[i] = FileDef[FM]{
			NamePos: f.NamePos, DataPos: f.DataPos,
			LengthOnDisk: f.LengthOnDisk, LengthInArchive: f.LengthInArchive,
			StorageType: int(f.StorageType), Metadata: f.Metadata,
		}
	}
	return out
}

// ToFileInputs converts cached FileDefs back to layer-4's FileInput shape.
func ToFileInputs[FM any](in []FileDef[FM]) []assemble.FileInput[FM] {
	out := make([]assemble.FileInput[FM], len(in))
	for i, f := range in {
		out[i] = assemble.FileInput[FM]{
			NamePos: f.NamePos, DataPos: f.DataPos,
			LengthOnDisk: f.LengthOnDisk, LengthInArchive: f.LengthInArchive,
			StorageType: sga.StorageType(f.StorageType), Metadata: f.Metadata,
		}
	}
	return out
}

// Resolve is the get-or-decode entry point version drivers call from their
// TOC-reading step: a cache hit returns the cached TOCData directly,
// skipping decode entirely; a miss calls decode, stores its result (when c
// is non-nil), and returns it. c may be nil, in which case Resolve always
// decodes — the zero-configuration path every version's plain Read uses.
func Resolve[FM any](c *Cache, key Key, decode func() (TOCData[FM], error)) (TOCData[FM], error) {
	if c != nil {
		if data, ok := Get[FM](c, key); ok {
			return data, nil
		}
	}
	data, err := decode()
	if err != nil {
		return TOCData[FM]{}, err
	}
	if c != nil {
		_ = Put(c, key, data)
	}
	return data, nil
}

// Put stores data under key in both tiers (the disk tier only if open).
func Put[FM any](c *Cache, key Key, data TOCData[FM]) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("archivecache: encoding toc: %w", err)
	}
	c.hot.Add(key, buf.Bytes())
	if c.disk == nil {
		return nil
	}
	if err := c.disk.Set([]byte(key), buf.Bytes(), pebble.Sync); err != nil {
		return fmt.Errorf("archivecache: writing disk cache entry: %w", err)
	}
	return nil
}
