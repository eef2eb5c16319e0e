// Package assemble builds the owned Drive/Folder/File tree (spec.md §3)
// out of the flat definition arrays and name table layer 2 and 3 produce
// (spec.md §4.4), grounded on the original's assemble_files /
// assemble_folders / assemble_io_from_defs / _apply_self_as_parent.
package assemble

import (
	"io"

	sga "github.com/mak-relic-tool/go-sga/archive"
	"github.com/mak-relic-tool/go-sga/internal/payload"
	"github.com/mak-relic-tool/go-sga/internal/records"
)

// FileInput is one flat file definition, already carrying version-specific
// metadata, ready to be resolved against the name table and turned into a
// lazy File.
type FileInput[FM any] struct {
	NamePos         int64
	DataPos         int64
	LengthOnDisk    int64 // packed size on disk
	LengthInArchive int64 // unpacked size
	StorageType     sga.StorageType
	Metadata        FM
}

// Files resolves a slice of FileInput into lazy Files sharing the archive's
// backing stream. dataPos is the archive-relative start of the data block;
// each file's absolute offset is dataPos+DataPos. A FileInput whose NamePos
// is absent from names is a fatal decode error (spec.md §4.4: "do not
// silently substitute").
func Files[FM any](inputs []FileInput[FM], names map[int64]string, dataPos int64, stream io.ReadSeeker, decompress bool) ([]*sga.File[FM], error) {
	files := make([]*sga.File[FM], len(inputs))
	for i, in := range inputs {
		name, ok := names[in.NamePos]
		if !ok {
			return nil, &sga.IndexOutOfRangeError{What: "file name_pos", Got: int(in.NamePos)}
		}
		lazy := &payload.LazyHandle{
			JumpTo:       dataPos + in.DataPos,
			PackedSize:   in.LengthOnDisk,
			UnpackedSize: in.LengthInArchive,
			Stream:       stream,
			Decompress:   decompress,
		}
		files[i] = sga.NewLazyFile(name, in.StorageType, in.Metadata, lazy)
	}
	return files, nil
}

// Folders assembles a flat slice of FolderDefs (already resolved to the
// Files that belong under this same drive) into a Folder tree. fileOffset
// and folderOffset re-base each def's absolute flat-array indices onto the
// local files/folders slices, the way a drive's own sub-range is re-based
// before assembly (spec.md §4.4).
func Folders[FM any](defs []records.FolderDef, names map[int64]string, files []*sga.File[FM], fileOffset, folderOffset int64) ([]*sga.Folder[FM], error) {
	folders := make([]*sga.Folder[FM], len(defs))
	for i, fd := range defs {
		name, ok := names[fd.NamePos]
		if !ok {
			return nil, &sga.IndexOutOfRangeError{What: "folder name_pos", Got: int(fd.NamePos)}
		}
		fileSlice, err := rebaseSlice(len(files), fd.FileRange.Start, fd.FileRange.End, fileOffset, "folder file_range")
		if err != nil {
			return nil, err
		}
		folders[i] = &sga.Folder[FM]{
			Name:  name,
			Files: files[fileSlice.Start:fileSlice.End],
		}
	}
	for i, fd := range defs {
		folderSlice, err := rebaseSlice(len(folders), fd.FolderRange.Start, fd.FolderRange.End, folderOffset, "folder folder_range")
		if err != nil {
			return nil, err
		}
		folders[i].SubFolders = folders[folderSlice.Start:folderSlice.End]
	}
	for _, f := range folders {
		applyFolderParent(f)
	}
	return folders, nil
}

// rebaseSlice re-bases a global [start, end) range by offset and checks the
// result indexes within [0, length] — out of range is fatal (spec.md §4.4,
// §7 IndexOutOfRange).
func rebaseSlice(length int, start, end, offset int64, what string) (records.Range, error) {
	rs, re := start-offset, end-offset
	if rs < 0 || re < rs || re > int64(length) {
		return records.Range{}, &sga.IndexOutOfRangeError{What: what, Got: int(start), Low: int(offset), High: int(offset) + length}
	}
	return records.Range{Start: rs, End: re}, nil
}

func applyFolderParent[FM any](f *sga.Folder[FM]) {
	for _, sub := range f.SubFolders {
		sub.Parent = f
	}
	for _, file := range f.Files {
		file.Parent = f
	}
}

func applyDriveParent[FM any](d *sga.Drive[FM]) {
	for _, sub := range d.SubFolders {
		sub.Parent = d
	}
	for _, file := range d.Files {
		file.Parent = d
	}
}

// Drives assembles the full set of drives (and, alongside them, the flat
// list of every File in the archive, in on-disk order) out of the three
// flat definition arrays and the name table, per drive_def.file_range /
// folder_range re-basing (spec.md §4.4). A drive whose ranges fall outside
// the global definition arrays, or whose root_folder falls outside its own
// folder range, is a fatal decode error.
func Drives[FM any](
	driveDefs []records.DriveDef,
	folderDefs []records.FolderDef,
	fileInputs []FileInput[FM],
	names map[int64]string,
	dataPos int64,
	stream io.ReadSeeker,
	decompress bool,
) ([]*sga.Drive[FM], []*sga.File[FM], error) {
	var allFiles []*sga.File[FM]
	drives := make([]*sga.Drive[FM], len(driveDefs))

	for i, dd := range driveDefs {
		fileSlice, err := rebaseSlice(len(fileInputs), dd.FileRange.Start, dd.FileRange.End, 0, "drive file_range")
		if err != nil {
			return nil, nil, err
		}
		localFileInputs := fileInputs[fileSlice.Start:fileSlice.End]
		localFiles, err := Files(localFileInputs, names, dataPos, stream, decompress)
		if err != nil {
			return nil, nil, err
		}

		folderSlice, err := rebaseSlice(len(folderDefs), dd.FolderRange.Start, dd.FolderRange.End, 0, "drive folder_range")
		if err != nil {
			return nil, nil, err
		}
		localFolderDefs := folderDefs[folderSlice.Start:folderSlice.End]
		localFolders, err := Folders(localFolderDefs, names, localFiles, dd.FileRange.Start, dd.FolderRange.Start)
		if err != nil {
			return nil, nil, err
		}

		rootFolder := dd.RootFolder - dd.FolderRange.Start
		if rootFolder < 0 || rootFolder >= int64(len(localFolders)) {
			return nil, nil, &sga.IndexOutOfRangeError{
				What: "root_folder", Got: int(dd.RootFolder),
				Low: int(dd.FolderRange.Start), High: int(dd.FolderRange.End),
			}
		}
		driveFolder := localFolders[rootFolder]

		drive := &sga.Drive[FM]{
			Alias:      dd.Alias,
			Name:       dd.Name,
			SubFolders: driveFolder.SubFolders,
			Files:      driveFolder.Files,
		}
		applyDriveParent(drive)

		allFiles = append(allFiles, localFiles...)
		drives[i] = drive
	}
	return drives, allFiles, nil
}
