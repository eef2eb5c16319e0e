package fsadapter

import (
	"errors"
	"io"
	"io/fs"
	"testing"

	sga "github.com/mak-relic-tool/go-sga/archive"
)

// buildArchive assembles a small two-drive tree directly through the
// archive package's exported constructors, the way archive/tree_test.go
// builds trees without going through a byte-level decode.
func buildArchive() *sga.Archive[struct{}, struct{}] {
	readme := sga.NewMaterializedFile("readme.txt", sga.StorageStore, struct{}{}, []byte("hello"), false)
	docFolder := &sga.Folder[struct{}]{Name: "docs"}
	nested := sga.NewMaterializedFile("notes.txt", sga.StorageStore, struct{}{}, []byte("notes"), false)

	dataDrive := &sga.Drive[struct{}]{
		Alias:      "data",
		Name:       "Data",
		SubFolders: []*sga.Folder[struct{}]{docFolder},
		Files:      []*sga.File[struct{}]{readme},
	}
	readme.Parent = dataDrive
	docFolder.Parent = dataDrive
	docFolder.Files = []*sga.File[struct{}]{nested}
	nested.Parent = docFolder

	archiveDrive := &sga.Drive[struct{}]{Alias: "archive", Name: "Archive"}

	return &sga.Archive[struct{}, struct{}]{
		Name:   "test.sga",
		Drives: []*sga.Drive[struct{}]{dataDrive, archiveDrive},
	}
}

func TestOpenRoot(t *testing.T) {
	fsys := New(buildArchive())
	entries, err := fsys.ReadDir(".")
	if err != nil {
		t.Fatalf("ReadDir(.): %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d root entries, want 2", len(entries))
	}
	if entries[0].Name() != "archive:" || entries[1].Name() != "data:" {
		t.Errorf("root entries = %v, want sorted [archive: data:]", []string{entries[0].Name(), entries[1].Name()})
	}
}

func TestOpenAndReadFile(t *testing.T) {
	fsys := New(buildArchive())
	f, err := fsys.Open("data:/readme.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("contents = %q, want %q", got, "hello")
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Size() = %d, want 5", info.Size())
	}
	if info.IsDir() {
		t.Error("a file entry reported IsDir() == true")
	}
}

func TestReadDirNested(t *testing.T) {
	fsys := New(buildArchive())
	entries, err := fsys.ReadDir("data:/docs")
	if err != nil {
		t.Fatalf("ReadDir(data:/docs): %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "notes.txt" {
		t.Fatalf("got %+v, want a single notes.txt entry", entries)
	}
}

func TestOpenMissingPath(t *testing.T) {
	fsys := New(buildArchive())
	_, err := fsys.Open("data:/nope.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Open of a missing path: got %v, want fs.ErrNotExist", err)
	}
}

func TestReadDirOnAFileIsInvalid(t *testing.T) {
	fsys := New(buildArchive())
	if _, err := fsys.ReadDir("data:/readme.txt"); err == nil {
		t.Fatal("expected ReadDir on a file path to fail")
	}
}

func TestWalkFS(t *testing.T) {
	fsys := New(buildArchive())
	var names []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir: %v", err)
	}
	want := map[string]bool{"data:/readme.txt": true, "data:/docs/notes.txt": true}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected path in walk: %s", n)
		}
	}
}
