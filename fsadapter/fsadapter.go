// Package fsadapter exposes a decoded SGA archive as an io/fs.FS, the
// Go-idiomatic shape for spec.md §2's "in-memory walkable structure"
// (SPEC_FULL.md §A). It is grounded on the teacher's own small
// fs.File/fs.DirEntry adapter types (wrapfile.go, wrapdirentry.go,
// plaindirentry.go, internal/singlefilefs) rather than on its VFS/WebDAV
// surface, which is out of scope here.
package fsadapter

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"sort"
	"time"

	sga "github.com/mak-relic-tool/go-sga/archive"
)

// FS adapts a decoded *sga.Archive[M, FM] to io/fs.FS. The tree is
// indexed once, at construction, into flat path -> entry maps; Archive
// trees are immutable once Read returns, so the index never goes stale.
type FS[M any, FM any] struct {
	root  *sga.Archive[M, FM]
	dirs  map[string][]fs.DirEntry
	files map[string]*sga.File[FM]
}

// New indexes archive into a browsable filesystem rooted at ".", with
// each drive's alias (e.g. "data:") as a direct child of the root.
func New[M any, FM any](archive *sga.Archive[M, FM]) *FS[M, FM] {
	fsys := &FS[M, FM]{
		root:  archive,
		dirs:  make(map[string][]fs.DirEntry),
		files: make(map[string]*sga.File[FM]),
	}

	var rootEntries []fs.DirEntry
	for _, d := range archive.Drives {
		rootEntries = append(rootEntries, driveDirEntry{alias: d.Alias})
		fsys.indexDrive(d)
	}
	sortEntries(rootEntries)
	fsys.dirs["."] = rootEntries

	return fsys
}

func (fsys *FS[M, FM]) indexDrive(d *sga.Drive[FM]) {
	for e := range d.Walk() {
		dirPath := e.Parent.Path()

		entries := make([]fs.DirEntry, 0, len(e.SubFolders)+len(e.Files))
		for _, sub := range e.SubFolders {
			entries = append(entries, folderDirEntry{name: sub.Name})
		}
		for _, f := range e.Files {
			entries = append(entries, fileDirEntry[FM]{file: f})
			fsys.files[f.Path()] = f
		}
		sortEntries(entries)
		fsys.dirs[dirPath] = entries
	}
}

func sortEntries(entries []fs.DirEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
}

// Open implements fs.FS.
func (fsys *FS[M, FM]) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if entries, ok := fsys.dirs[name]; ok {
		return &openDir{name: name, entries: entries}, nil
	}
	if f, ok := fsys.files[name]; ok {
		return newOpenFile(name, f), nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// ReadDir implements fs.ReadDirFS directly off the prebuilt index rather
// than opening a directory file, the way the teacher's own ReadDirFS
// implementations (internal/fskeleton) shortcut the generic fs.ReadDir
// helper.
func (fsys *FS[M, FM]) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	entries, ok := fsys.dirs[name]
	if !ok {
		if _, ok := fsys.files[name]; ok {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
		}
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	out := make([]fs.DirEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// driveDirEntry represents one drive's root as a synthetic directory,
// the way the teacher's plaindirentry.go fabricates a DirEntry with no
// backing fs.FileInfo.
type driveDirEntry struct {
	alias string
}

func (e driveDirEntry) Name() string               { return e.alias + ":" }
func (e driveDirEntry) IsDir() bool                { return true }
func (e driveDirEntry) Type() fs.FileMode          { return fs.ModeDir }
func (e driveDirEntry) Info() (fs.FileInfo, error) { return dirInfo{name: e.Name()}, nil }

// folderDirEntry represents a sub-folder; SGA folders carry no mtime, so
// Info reports the zero time, same as the teacher's dirEntry for
// synthetic directories with no real FileInfo behind them.
type folderDirEntry struct {
	name string
}

func (e folderDirEntry) Name() string               { return e.name }
func (e folderDirEntry) IsDir() bool                { return true }
func (e folderDirEntry) Type() fs.FileMode          { return fs.ModeDir }
func (e folderDirEntry) Info() (fs.FileInfo, error) { return dirInfo{name: e.name}, nil }

type dirInfo struct {
	name string
}

func (i dirInfo) Name() string       { return i.name }
func (i dirInfo) Size() int64        { return 0 }
func (i dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (i dirInfo) ModTime() time.Time { return time.Time{} }
func (i dirInfo) IsDir() bool        { return true }
func (i dirInfo) Sys() any           { return nil }

// fileDirEntry wraps an *sga.File[FM] to satisfy fs.DirEntry without
// forcing its lazy payload to resolve.
type fileDirEntry[FM any] struct {
	file *sga.File[FM]
}

func (e fileDirEntry[FM]) Name() string      { return e.file.Name }
func (e fileDirEntry[FM]) IsDir() bool       { return false }
func (e fileDirEntry[FM]) Type() fs.FileMode { return 0 }
func (e fileDirEntry[FM]) Info() (fs.FileInfo, error) {
	return fileInfo[FM]{file: e.file}, nil
}

// fileInfo reports a file's size by resolving its data, mirroring the
// teacher's internal/singlefilefs.File.Size, which reads the whole
// backing reader once (via sync.Once) purely to learn a length it has no
// cheaper way to know.
type fileInfo[FM any] struct {
	file *sga.File[FM]
}

func (i fileInfo[FM]) Name() string { return i.file.Name }
func (i fileInfo[FM]) Size() int64 {
	data, err := i.file.Data()
	if err != nil {
		return 0
	}
	return int64(len(data))
}
func (i fileInfo[FM]) Mode() fs.FileMode  { return 0o444 }
func (i fileInfo[FM]) ModTime() time.Time { return time.Time{} }
func (i fileInfo[FM]) IsDir() bool        { return false }
func (i fileInfo[FM]) Sys() any           { return i.file }

// openDir is the fs.ReadDirFile returned by Open for a directory path.
type openDir struct {
	name    string
	entries []fs.DirEntry
	offset  int
}

func (d *openDir) Stat() (fs.FileInfo, error) { return dirInfo{name: path.Base(d.name)}, nil }
func (d *openDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}
func (d *openDir) Close() error { return nil }
func (d *openDir) ReadDir(count int) ([]fs.DirEntry, error) {
	n := len(d.entries) - d.offset
	if n == 0 {
		if count <= 0 {
			return nil, nil
		}
		return nil, io.EOF
	}
	if count > 0 && n > count {
		n = count
	}
	list := make([]fs.DirEntry, n)
	copy(list, d.entries[d.offset:d.offset+n])
	d.offset += n
	return list, nil
}

// openFile is the fs.File returned by Open for a file path; it resolves
// the underlying lazy payload on first Read, then serves the rest from
// an in-memory reader.
type openFile[FM any] struct {
	name string
	file *sga.File[FM]
	r    io.Reader
}

func newOpenFile[FM any](name string, f *sga.File[FM]) *openFile[FM] {
	return &openFile[FM]{name: name, file: f}
}

func (f *openFile[FM]) Stat() (fs.FileInfo, error) { return fileInfo[FM]{file: f.file}, nil }
func (f *openFile[FM]) Close() error               { return nil }
func (f *openFile[FM]) Read(p []byte) (int, error) {
	if f.r == nil {
		data, err := f.file.Data()
		if err != nil {
			return 0, err
		}
		f.r = bytes.NewReader(data)
	}
	return f.r.Read(p)
}
