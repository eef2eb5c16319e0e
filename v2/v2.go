// Package v2 implements Relic's SGA-V2 container format, used by Dawn of
// War I, grounded on the original v2/_core.py and v2/_serializers.py
// (spec.md §4, §6).
package v2

import (
	"fmt"
	"io"

	sga "github.com/mak-relic-tool/go-sga/archive"
	"github.com/mak-relic-tool/go-sga/checksum"
	"github.com/mak-relic-tool/go-sga/internal/archivecache"
	"github.com/mak-relic-tool/go-sga/internal/assemble"
	"github.com/mak-relic-tool/go-sga/internal/codec"
	"github.com/mak-relic-tool/go-sga/internal/nametable"
	"github.com/mak-relic-tool/go-sga/internal/records"
)

// Version identifies this driver's on-disk version tag.
var Version = sga.VersionV2

// FileMetadata is empty for V2: the format carries no per-file metadata
// beyond the fields every version has (name, storage type, sizes).
type FileMetadata = struct{}

// ArchiveMetadata holds the two checksum helpers a V2 archive carries: the
// file MD5 (whole-archive-from-header-to-EOF) and the header MD5 (just the
// TOC region). Both are lazily validated — constructing an Archive never
// hashes anything; call Validate to check them.
type ArchiveMetadata struct {
	FileMD5   *checksum.Helper
	HeaderMD5 *checksum.Helper
}

// Validate runs both checksum helpers, returning the first failure.
func (m ArchiveMetadata) Validate() error {
	if err := m.FileMD5.Validate(); err != nil {
		return fmt.Errorf("v2: file md5: %w", err)
	}
	if err := m.HeaderMD5.Validate(); err != nil {
		return fmt.Errorf("v2: header md5: %w", err)
	}
	return nil
}

// Archive, Drive, Folder, File are V2's instantiations of the generic tree
// (spec.md §3); V2 has no archive-wide or per-file metadata beyond
// ArchiveMetadata's checksums.
type (
	Archive = sga.Archive[ArchiveMetadata, FileMetadata]
	Drive   = sga.Drive[FileMetadata]
	Folder  = sga.Folder[FileMetadata]
	File    = sga.File[FileMetadata]
)

var (
	fileMD5Eigen   = checksum.FileMD5Eigen
	headerMD5Eigen = checksum.HeaderMD5Eigen
)

var archiveHeaderLayout = codec.Layout{
	codec.BytesField(16),  // file_md5
	codec.BytesField(128), // name, utf-16-le
	codec.BytesField(16),  // header_md5
	codec.U32Field(),      // header_size
	codec.U32Field(),      // data_pos
}

var fileDefLayout = codec.Layout{
	codec.U32Field(), // name_pos
	codec.U32Field(), // storage_type (wire: 0/16/32)
	codec.U32Field(), // data_pos
	codec.U32Field(), // length_on_disk
	codec.U32Field(), // length_in_archive
}

func unpackFileDef(stream io.Reader) (assemble.FileInput[FileMetadata], error) {
	v, err := codec.Unpack(stream, fileDefLayout)
	if err != nil {
		return assemble.FileInput[FileMetadata]{}, err
	}
	st, err := sga.StorageTypeV2FromWire(int(v.U(1)))
	if err != nil {
		return assemble.FileInput[FileMetadata]{}, err
	}
	return assemble.FileInput[FileMetadata]{
		NamePos:         int64(v.U(0)),
		DataPos:         int64(v.U(2)),
		LengthOnDisk:    int64(v.U(3)),
		LengthInArchive: int64(v.U(4)),
		StorageType:     st,
	}, nil
}

// Read decodes a V2 archive from stream. When lazy is false, every file's
// data is resolved eagerly before Read returns.
func Read(stream io.ReadSeeker, lazy bool, decompress bool) (*Archive, error) {
	return read(stream, lazy, decompress, nil)
}

// ReadCached behaves like Read, but consults cache for this archive's
// parsed TOC (keyed by a fingerprint over the header region) before
// re-running the record-serializer and name-table layers, and populates
// the cache after a cold decode (SPEC_FULL.md §A/§C).
func ReadCached(stream io.ReadSeeker, lazy, decompress bool, cache *archivecache.Cache) (*Archive, error) {
	return read(stream, lazy, decompress, cache)
}

func read(stream io.ReadSeeker, lazy bool, decompress bool, cache *archivecache.Cache) (*Archive, error) {
	if err := sga.ReadMagicWord(stream); err != nil {
		return nil, err
	}
	ver, err := sga.ReadVersion(stream)
	if err != nil {
		return nil, err
	}
	if ver != Version {
		return nil, &sga.VersionMismatchError{Got: ver, Want: Version}
	}

	hv, err := codec.Unpack(stream, archiveHeaderLayout)
	if err != nil {
		return nil, fmt.Errorf("v2: reading archive header: %w", err)
	}
	fileMD5 := append([]byte(nil), hv.B(0)...)
	name := records.DecodeUTF16LE(hv.B(1))
	headerMD5 := append([]byte(nil), hv.B(2)...)
	headerSize := int64(hv.U(3))
	dataPos := int64(hv.U(4))

	headerPos, err := stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("v2: locating header: %w", err)
	}
	ptrs := sga.ArchivePtrs{HeaderPos: headerPos, HeaderSize: headerSize, DataPos: dataPos}

	toc, err := records.UnpackTocHeader(stream, records.Counts16)
	if err != nil {
		return nil, fmt.Errorf("v2: reading toc header: %w", err)
	}

	drives, files, err := readTree(stream, toc, ptrs, decompress, cache)
	if err != nil {
		return nil, err
	}
	if !lazy {
		for _, f := range files {
			if err := f.Resolve(); err != nil {
				return nil, err
			}
		}
	}

	size := headerSize
	metadata := ArchiveMetadata{
		FileMD5:   checksum.NewMD5(fileMD5, stream, headerPos, nil, fileMD5Eigen),
		HeaderMD5: checksum.NewMD5(headerMD5, stream, headerPos, &size, headerMD5Eigen),
	}

	return &Archive{Name: name, Metadata: metadata, Drives: drives}, nil
}

func readTree(stream io.ReadSeeker, toc records.TocHeader, ptrs sga.ArchivePtrs, decompress bool, cache *archivecache.Cache) ([]*Drive, []*File, error) {
	var fp archivecache.Key
	if cache != nil {
		var err error
		fp, err = archivecache.Fingerprint(stream, ptrs.HeaderPos, ptrs.HeaderSize)
		if err != nil {
			return nil, nil, err
		}
	}

	data, err := archivecache.Resolve(cache, fp, func() (archivecache.TOCData[FileMetadata], error) {
		return decodeTOC(stream, toc, ptrs)
	})
	if err != nil {
		return nil, nil, err
	}

	driveDefs := archivecache.ToRecordDrives(data.DriveDefs)
	folderDefs := archivecache.ToRecordFolders(data.FolderDefs)
	fileInputs := archivecache.ToFileInputs(data.FileDefs)

	drives, files, err := assemble.Drives(driveDefs, folderDefs, fileInputs, data.Names, ptrs.DataPos, stream, decompress)
	if err != nil {
		return nil, nil, fmt.Errorf("v2: assembling tree: %w", err)
	}
	return drives, files, nil
}

// decodeTOC runs layers 2-3 (record serializers, name table) against
// stream: the part of a V2 decode that archivecache can skip on a hit.
func decodeTOC(stream io.ReadSeeker, toc records.TocHeader, ptrs sga.ArchivePtrs) (archivecache.TOCData[FileMetadata], error) {
	if _, err := stream.Seek(ptrs.HeaderPos+toc.DrivePos, io.SeekStart); err != nil {
		return archivecache.TOCData[FileMetadata]{}, err
	}
	driveDefs := make([]records.DriveDef, toc.DriveCount)
	for i := range driveDefs {
		dd, err := records.UnpackDriveDef(stream, records.Counts16)
		if err != nil {
			return archivecache.TOCData[FileMetadata]{}, fmt.Errorf("v2: reading drive %d: %w", i, err)
		}
		driveDefs[i] = dd
	}

	if _, err := stream.Seek(ptrs.HeaderPos+toc.FolderPos, io.SeekStart); err != nil {
		return archivecache.TOCData[FileMetadata]{}, err
	}
	folderDefs := make([]records.FolderDef, toc.FolderCount)
	for i := range folderDefs {
		fd, err := records.UnpackFolderDef(stream, records.Counts16)
		if err != nil {
			return archivecache.TOCData[FileMetadata]{}, fmt.Errorf("v2: reading folder %d: %w", i, err)
		}
		folderDefs[i] = fd
	}

	if _, err := stream.Seek(ptrs.HeaderPos+toc.FilePos, io.SeekStart); err != nil {
		return archivecache.TOCData[FileMetadata]{}, err
	}
	fileInputs := make([]assemble.FileInput[FileMetadata], toc.FileCount)
	for i := range fileInputs {
		in, err := unpackFileDef(stream)
		if err != nil {
			return archivecache.TOCData[FileMetadata]{}, fmt.Errorf("v2: reading file %d: %w", i, err)
		}
		fileInputs[i] = in
	}

	if _, err := stream.Seek(ptrs.HeaderPos+toc.NamePos, io.SeekStart); err != nil {
		return archivecache.TOCData[FileMetadata]{}, err
	}
	names, err := nametable.ReadCount(stream, int(toc.NameCount), 256)
	if err != nil {
		return archivecache.TOCData[FileMetadata]{}, fmt.Errorf("v2: reading name table: %w", err)
	}

	return archivecache.TOCData[FileMetadata]{
		DriveDefs:  archivecache.FromRecordDrives(driveDefs),
		FolderDefs: archivecache.FromRecordFolders(folderDefs),
		FileDefs:   archivecache.FromFileInputs(fileInputs),
		Names:      names,
	}, nil
}
