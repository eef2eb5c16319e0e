package archive

import (
	"errors"
	"fmt"
	"iter"
	"path"

	"github.com/mak-relic-tool/go-sga/internal/payload"
)

// Node is satisfied by anything that can anchor a path: a Drive or a
// Folder. Parent back-references are non-owning — used only to
// reconstruct paths — the tree itself owns folders and files top-down
// (spec.md §3, §5).
type Node interface {
	Path() string
}

// Archive is the root of a decoded SGA container: a name, version-specific
// metadata, and an ordered list of drives. It is immutable once returned
// by a driver's Read.
type Archive[M any, FM any] struct {
	Name     string
	Metadata M
	Drives   []*Drive[FM]
}

// WalkEntry mirrors the Python original's generator protocol: one (parent,
// sub-folders, files) tuple per container visited.
type WalkEntry[FM any] struct {
	Parent     Node
	SubFolders []*Folder[FM]
	Files      []*File[FM]
}

// Walk yields every drive and folder in the archive, depth-first,
// preserving on-disk order.
func (a *Archive[M, FM]) Walk() iter.Seq[WalkEntry[FM]] {
	return func(yield func(WalkEntry[FM]) bool) {
		for _, d := range a.Drives {
			for e := range d.Walk() {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// Drive is a top-level logical partition of the archive, identified by a
// short alias and a name. It has no parent.
type Drive[FM any] struct {
	Alias      string
	Name       string
	SubFolders []*Folder[FM]
	Files      []*File[FM]
}

// Path returns the drive's root path, e.g. "data:".
func (d *Drive[FM]) Path() string { return d.Alias + ":" }

// Walk yields this drive and every folder beneath it, depth-first.
func (d *Drive[FM]) Walk() iter.Seq[WalkEntry[FM]] {
	return func(yield func(WalkEntry[FM]) bool) {
		if !yield(WalkEntry[FM]{Parent: d, SubFolders: d.SubFolders, Files: d.Files}) {
			return
		}
		for _, f := range d.SubFolders {
			for e := range f.Walk() {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// Folder is owned by a drive's subtree; Parent is a non-owning back
// reference (a *Drive[FM] or *Folder[FM]) used only for path
// reconstruction.
type Folder[FM any] struct {
	Name       string
	SubFolders []*Folder[FM]
	Files      []*File[FM]
	Parent     Node
}

// Path joins this folder's ancestor chain, drive alias to folder name.
func (f *Folder[FM]) Path() string {
	if f.Parent == nil {
		return f.Name
	}
	return path.Join(f.Parent.Path(), f.Name)
}

// Walk yields this folder and every folder beneath it, depth-first.
func (f *Folder[FM]) Walk() iter.Seq[WalkEntry[FM]] {
	return func(yield func(WalkEntry[FM]) bool) {
		if !yield(WalkEntry[FM]{Parent: f, SubFolders: f.SubFolders, Files: f.Files}) {
			return
		}
		for _, sub := range f.SubFolders {
			for e := range sub.Walk() {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// File is a leaf of the tree. Its payload is either materialized bytes or
// a pending lazy handle. The first read transitions it to materialized
// and drops the handle (spec.md §9).
type File[FM any] struct {
	Name         string
	StorageType  StorageType
	Metadata     FM
	Parent       Node
	data         []byte
	hasData      bool
	isCompressed bool
	lazy         *payload.LazyHandle
}

// NewLazyFile constructs a File whose bytes are not yet resolved.
func NewLazyFile[FM any](name string, storageType StorageType, metadata FM, lazy *payload.LazyHandle) *File[FM] {
	return &File[FM]{
		Name:         name,
		StorageType:  storageType,
		Metadata:     metadata,
		isCompressed: storageType != StorageStore,
		lazy:         lazy,
	}
}

// NewMaterializedFile constructs a File whose bytes are already known.
func NewMaterializedFile[FM any](name string, storageType StorageType, metadata FM, data []byte, isCompressed bool) *File[FM] {
	return &File[FM]{
		Name:         name,
		StorageType:  storageType,
		Metadata:     metadata,
		data:         data,
		hasData:      true,
		isCompressed: isCompressed,
	}
}

// Path joins this file's ancestor chain, drive alias to file name.
func (f *File[FM]) Path() string {
	if f.Parent == nil {
		return f.Name
	}
	return path.Join(f.Parent.Path(), f.Name)
}

// Data resolves and returns the file's bytes, reading through the lazy
// handle (and caching the result) on first call.
func (f *File[FM]) Data() ([]byte, error) {
	if !f.hasData {
		if f.lazy == nil {
			return nil, fmt.Errorf("sga: %s: data was not loaded", f.Path())
		}
		buf, err := f.lazy.Read()
		if err != nil {
			var mismatch *payload.SizeMismatchError
			if errors.As(err, &mismatch) {
				err = &DecompressedSizeMismatchError{Got: mismatch.Got, Want: mismatch.Want}
			}
			return nil, fmt.Errorf("sga: %s: %w", f.Path(), err)
		}
		f.data = buf
		f.hasData = true
		f.lazy = nil
	}
	return f.data, nil
}

// SetData overwrites the file's materialized bytes directly.
func (f *File[FM]) SetData(data []byte) {
	f.data = data
	f.hasData = true
	f.lazy = nil
}

// Resolve forces the file's lazy handle to resolve now, the same effect a
// non-lazy Read has on every file (spec.md §4.5's "load all" pass).
func (f *File[FM]) Resolve() error {
	_, err := f.Data()
	return err
}

// IsCompressed reports whether the file's current in-memory bytes are
// compressed.
func (f *File[FM]) IsCompressed() bool { return f.isCompressed }

// Compress deflates the file's materialized bytes in place. A no-op if
// already compressed.
func (f *File[FM]) Compress() error {
	data, err := f.Data()
	if err != nil {
		return err
	}
	if f.isCompressed {
		return nil
	}
	packed, err := payload.Deflate(data)
	if err != nil {
		return err
	}
	f.data = packed
	f.isCompressed = true
	return nil
}

// Decompress inflates the file's materialized bytes in place. A no-op if
// already decompressed.
func (f *File[FM]) Decompress() error {
	data, err := f.Data()
	if err != nil {
		return err
	}
	if !f.isCompressed {
		return nil
	}
	raw, err := payload.Inflate(data)
	if err != nil {
		return err
	}
	f.data = raw
	f.isCompressed = false
	return nil
}
