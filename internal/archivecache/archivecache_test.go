package archivecache

import (
	"bytes"
	"path/filepath"
	"testing"

	sga "github.com/mak-relic-tool/go-sga/archive"
	"github.com/mak-relic-tool/go-sga/internal/assemble"
)

type meta struct {
	Verified bool
}

func sampleTOC() TOCData[meta] {
	return TOCData[meta]{
		DriveDefs:  []DriveDef{{Alias: "data", Name: "Data", FolderEnd: 1, FileEnd: 1}},
		FolderDefs: []FolderDef{{NamePos: 0, FileEnd: 1}},
		FileDefs: []FileDef[meta]{
			{NamePos: 5, DataPos: 0, LengthOnDisk: 4, LengthInArchive: 4,
				StorageType: int(sga.StorageStore), Metadata: meta{Verified: true}},
		},
		Names: map[int64]string{0: "root", 5: "a.txt"},
	}
}

func TestHotTierRoundTrip(t *testing.T) {
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	key := Key("fingerprint-1")
	want := sampleTOC()
	if err := Put(c, key, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := Get[meta](c, key)
	if !ok {
		t.Fatal("expected a hot-tier hit")
	}
	if got.Names[5] != "a.txt" || !got.FileDefs[0].Metadata.Verified {
		t.Errorf("got %+v, want a round-tripped copy of %+v", got, want)
	}
}

func TestGetMissReturnsFalse(t *testing.T) {
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, ok := Get[meta](c, Key("nope")); ok {
		t.Fatal("expected a miss on an empty cache")
	}
}

func TestDiskTierRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "toc-cache")
	c, err := New(Options{Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	key := Key("fingerprint-2")
	want := sampleTOC()
	if err := Put(c, key, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Reopen against the same directory to force a disk-tier read, since a
	// fresh Cache's hot tier starts empty.
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	c2, err := New(Options{Dir: dir})
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer c2.Close()

	got, ok := Get[meta](c2, key)
	if !ok {
		t.Fatal("expected a disk-tier hit after reopening")
	}
	if got.DriveDefs[0].Alias != "data" {
		t.Errorf("got %+v, want drive alias %q", got, "data")
	}
}

func TestResolveSkipsDecodeOnHit(t *testing.T) {
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	key := Key("fingerprint-3")
	want := sampleTOC()
	calls := 0
	decode := func() (TOCData[meta], error) {
		calls++
		return want, nil
	}

	first, err := Resolve(c, key, decode)
	if err != nil {
		t.Fatalf("Resolve (cold): %v", err)
	}
	second, err := Resolve(c, key, decode)
	if err != nil {
		t.Fatalf("Resolve (warm): %v", err)
	}
	if calls != 1 {
		t.Errorf("decode called %d times, want 1", calls)
	}
	if first.Names[5] != second.Names[5] {
		t.Errorf("cold and warm results diverge: %+v vs %+v", first, second)
	}
}

func TestResolveWithNilCacheAlwaysDecodes(t *testing.T) {
	calls := 0
	decode := func() (TOCData[meta], error) {
		calls++
		return sampleTOC(), nil
	}
	if _, err := Resolve[meta](nil, Key("x"), decode); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := Resolve[meta](nil, Key("x"), decode); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if calls != 2 {
		t.Errorf("decode called %d times, want 2 with no cache", calls)
	}
}

func TestFingerprintIsStableAndRestoresCursor(t *testing.T) {
	header := []byte("toc-bytes-of-some-length")
	stream := bytes.NewReader(append([]byte("--prefix--"), header...))
	const prefixLen = 10

	if _, err := stream.Seek(3, 0); err != nil {
		t.Fatalf("seek: %v", err)
	}
	fp1, err := Fingerprint(stream, prefixLen, int64(len(header)))
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	cursor, err := stream.Seek(0, 1)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	if cursor != 3 {
		t.Errorf("Fingerprint left cursor at %d, want 3", cursor)
	}

	fp2, err := Fingerprint(stream, prefixLen, int64(len(header)))
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fp1 != fp2 {
		t.Errorf("Fingerprint is not stable: %s vs %s", fp1, fp2)
	}
}

func TestFromToFileInputsRoundTrip(t *testing.T) {
	in := []assemble.FileInput[meta]{
		{NamePos: 1, DataPos: 2, LengthOnDisk: 3, LengthInArchive: 4,
			StorageType: sga.StorageBufferCompress, Metadata: meta{Verified: true}},
	}
	cached := FromFileInputs(in)
	out := ToFileInputs(cached)
	if len(out) != 1 || out[0].StorageType != sga.StorageBufferCompress || !out[0].Metadata.Verified {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}
