package archive

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mak-relic-tool/go-sga/internal/payload"
)

type noMeta = struct{}

func buildTestTree() *Archive[noMeta, noMeta] {
	root := &Folder[noMeta]{Name: "root"}
	sub := &Folder[noMeta]{Name: "sub", Parent: root}
	root.SubFolders = []*Folder[noMeta]{sub}

	f1 := NewMaterializedFile[noMeta]("a.txt", StorageStore, noMeta{}, []byte("A"), false)
	f1.Parent = root
	root.Files = []*File[noMeta]{f1}

	f2 := NewMaterializedFile[noMeta]("b.txt", StorageStore, noMeta{}, []byte("B"), false)
	f2.Parent = sub
	sub.Files = []*File[noMeta]{f2}

	d := &Drive[noMeta]{Alias: "data", Name: "test", SubFolders: []*Folder[noMeta]{root}}
	root.Parent = d

	return &Archive[noMeta, noMeta]{Name: "test", Drives: []*Drive[noMeta]{d}}
}

func TestPathIdentity(t *testing.T) {
	a := buildTestTree()
	d := a.Drives[0]
	root := d.SubFolders[0]
	sub := root.SubFolders[0]

	if got, want := d.Path(), "data:"; got != want {
		t.Errorf("drive path = %q, want %q", got, want)
	}
	if got, want := root.Path(), "data:/root"; got != want {
		t.Errorf("root path = %q, want %q", got, want)
	}
	if got, want := sub.Path(), "data:/root/sub"; got != want {
		t.Errorf("sub path = %q, want %q", got, want)
	}
	if got, want := root.Files[0].Path(), "data:/root/a.txt"; got != want {
		t.Errorf("file path = %q, want %q", got, want)
	}
	if got, want := sub.Files[0].Path(), "data:/root/sub/b.txt"; got != want {
		t.Errorf("nested file path = %q, want %q", got, want)
	}
}

func TestWalkVisitsEveryFolder(t *testing.T) {
	a := buildTestTree()
	var paths []string
	for e := range a.Walk() {
		paths = append(paths, e.Parent.Path())
	}
	want := []string{"data:", "data:/root", "data:/root/sub"}
	if len(paths) != len(want) {
		t.Fatalf("got %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestWalkParentClosureTerminatesAtDrive(t *testing.T) {
	a := buildTestTree()
	for e := range a.Walk() {
		for _, f := range e.Files {
			node := f.Parent
			for {
				if _, ok := node.(*Drive[noMeta]); ok {
					break
				}
				folder, ok := node.(*Folder[noMeta])
				if !ok {
					t.Fatalf("parent chain did not terminate at a drive for %s", f.Path())
				}
				node = folder.Parent
			}
		}
	}
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	raw := []byte("round trip me")
	f := NewMaterializedFile[noMeta]("x", StorageStore, noMeta{}, raw, false)

	if err := f.Compress(); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !f.IsCompressed() {
		t.Fatal("expected IsCompressed after Compress")
	}
	if err := f.Decompress(); err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	got, err := f.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("got %q, want %q", got, raw)
	}
}

func TestLazyResolveDropsHandle(t *testing.T) {
	stream := bytes.NewReader([]byte("payload"))
	lazy := &payload.LazyHandle{JumpTo: 0, PackedSize: 7, UnpackedSize: 7, Stream: stream}
	f := NewLazyFile[noMeta]("x", StorageStore, noMeta{}, lazy)

	if err := f.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f.lazy != nil {
		t.Error("lazy handle still set after Resolve")
	}
	data, err := f.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("got %q", data)
	}
}

func TestDataWrapsSizeMismatchAsDecompressedSizeMismatchError(t *testing.T) {
	packed, _ := payload_testDeflate([]byte("abc"))
	stream := bytes.NewReader(packed)
	lazy := &payload.LazyHandle{JumpTo: 0, PackedSize: int64(len(packed)), UnpackedSize: 999, Stream: stream, Decompress: true}
	f := NewLazyFile[noMeta]("x", StorageBufferCompress, noMeta{}, lazy)

	_, err := f.Data()
	if err == nil {
		t.Fatal("expected a decompressed size mismatch error")
	}
	var mismatch *DecompressedSizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *DecompressedSizeMismatchError, got %T: %v", err, err)
	}
	if mismatch.Want != 999 {
		t.Errorf("got %+v", mismatch)
	}
}

func payload_testDeflate(raw []byte) ([]byte, error) {
	return payload.Deflate(raw)
}
