// Package v7 implements Relic's SGA-V7 container format, grounded on the
// original v7/_core.py and v7/_serializers.py (spec.md §4, §6).
//
// V7 drops the archive-level MD5 checksums V2/V5 carry in favor of a
// per-file CRC and hash position, and widens every count/offset to 32
// bits; it adds a small footer (unk_a, block_size) read right after the
// TOC header.
package v7

import (
	"fmt"
	"io"
	"time"

	sga "github.com/mak-relic-tool/go-sga/archive"
	"github.com/mak-relic-tool/go-sga/internal/archivecache"
	"github.com/mak-relic-tool/go-sga/internal/assemble"
	"github.com/mak-relic-tool/go-sga/internal/codec"
	"github.com/mak-relic-tool/go-sga/internal/nametable"
	"github.com/mak-relic-tool/go-sga/internal/records"
)

// Version identifies this driver's on-disk version tag.
var Version = sga.VersionV7

// FileMetadata carries the per-file attributes V7 stores: modification
// time, verification mode, CRC, and the footer-relative hash position
// used to locate a per-file integrity hash.
type FileMetadata struct {
	Modified     time.Time
	Verification sga.VerificationType
	CRC          uint32
	HashPos      int64
}

// ArchiveMetadata holds V7's footer scalars. There is no archive-level
// checksum in this version.
type ArchiveMetadata struct {
	UnkA      uint32
	BlockSize uint32
}

type (
	Archive = sga.Archive[ArchiveMetadata, FileMetadata]
	Drive   = sga.Drive[FileMetadata]
	Folder  = sga.Folder[FileMetadata]
	File    = sga.File[FileMetadata]
)

var archiveHeaderLayout = codec.Layout{
	codec.BytesField(128), // name, utf-16-le
	codec.U32Field(),      // header_size
	codec.U32Field(),      // data_pos
	codec.U32Field(),      // rsv_1, must == 1
}

var footerLayout = codec.Layout{
	codec.U32Field(), // unk_a
	codec.U32Field(), // block_size
}

var fileDefLayout = codec.Layout{
	codec.U32Field(), // name_pos
	codec.U32Field(), // data_pos
	codec.U32Field(), // length_on_disk
	codec.U32Field(), // length_in_archive
	codec.U32Field(), // modified (unix seconds)
	codec.U8Field(),  // verification_type
	codec.U8Field(),  // storage_type
	codec.U32Field(), // crc
	codec.U32Field(), // hash_pos
}

func unpackFileDef(stream io.Reader) (assemble.FileInput[FileMetadata], error) {
	v, err := codec.Unpack(stream, fileDefLayout)
	if err != nil {
		return assemble.FileInput[FileMetadata]{}, err
	}
	st, err := sga.StorageTypeFromWire(int(v.U(6)))
	if err != nil {
		return assemble.FileInput[FileMetadata]{}, err
	}
	return assemble.FileInput[FileMetadata]{
		NamePos:         int64(v.U(0)),
		DataPos:         int64(v.U(1)),
		LengthOnDisk:    int64(v.U(2)),
		LengthInArchive: int64(v.U(3)),
		StorageType:     st,
		Metadata: FileMetadata{
			Modified:     time.Unix(int64(v.U(4)), 0).UTC(),
			Verification: sga.VerificationType(v.U(5)),
			CRC:          uint32(v.U(7)),
			HashPos:      int64(v.U(8)),
		},
	}, nil
}

// Read decodes a V7 archive from stream.
func Read(stream io.ReadSeeker, lazy bool, decompress bool) (*Archive, error) {
	return read(stream, lazy, decompress, nil)
}

// ReadCached behaves like Read, consulting cache for this archive's parsed
// TOC before re-running the record-serializer and name-table layers
// (SPEC_FULL.md §A/§C).
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
		return nil, fmt.Errorf("v7: reading archive header: %w", err)
	}
	name := records.DecodeUTF16LE(hv.B(0))
	headerSize := int64(hv.U(1))
	dataPos := int64(hv.U(2))
	rsv1 := hv.U(3)
	if rsv1 != 1 {
		return nil, &sga.ReservedFieldMismatchError{Field: "rsv_1", Got: rsv1, Want: uint64(1)}
	}

	headerPos, err := stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("v7: locating header: %w", err)
	}
	ptrs := sga.ArchivePtrs{HeaderPos: headerPos, HeaderSize: headerSize, DataPos: dataPos}

	toc, err := records.UnpackTocHeader(stream, records.Counts32)
	if err != nil {
		return nil, fmt.Errorf("v7: reading toc header: %w", err)
	}

	fv, err := codec.Unpack(stream, footerLayout)
	if err != nil {
		return nil, fmt.Errorf("v7: reading footer: %w", err)
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

	metadata := ArchiveMetadata{UnkA: uint32(fv.U(0)), BlockSize: uint32(fv.U(1))}
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
		return nil, nil, fmt.Errorf("v7: assembling tree: %w", err)
	}
	return drives, files, nil
}

func decodeTOC(stream io.ReadSeeker, toc records.TocHeader, ptrs sga.ArchivePtrs) (archivecache.TOCData[FileMetadata], error) {
	if _, err := stream.Seek(ptrs.HeaderPos+toc.DrivePos, io.SeekStart); err != nil {
		return archivecache.TOCData[FileMetadata]{}, err
	}
	driveDefs := make([]records.DriveDef, toc.DriveCount)
	for i := range driveDefs {
		dd, err := records.UnpackDriveDef(stream, records.Counts32)
		if err != nil {
			return archivecache.TOCData[FileMetadata]{}, fmt.Errorf("v7: reading drive %d: %w", i, err)
		}
		driveDefs[i] = dd
	}

	if _, err := stream.Seek(ptrs.HeaderPos+toc.FolderPos, io.SeekStart); err != nil {
		return archivecache.TOCData[FileMetadata]{}, err
	}
	folderDefs := make([]records.FolderDef, toc.FolderCount)
	for i := range folderDefs {
		fd, err := records.UnpackFolderDef(stream, records.Counts32)
		if err != nil {
			return archivecache.TOCData[FileMetadata]{}, fmt.Errorf("v7: reading folder %d: %w", i, err)
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
			return archivecache.TOCData[FileMetadata]{}, fmt.Errorf("v7: reading file %d: %w", i, err)
		}
		fileInputs[i] = in
	}

	if _, err := stream.Seek(ptrs.HeaderPos+toc.NamePos, io.SeekStart); err != nil {
		return archivecache.TOCData[FileMetadata]{}, err
	}
	names, err := nametable.ReadCount(stream, int(toc.NameCount), 256)
	if err != nil {
		return archivecache.TOCData[FileMetadata]{}, fmt.Errorf("v7: reading name table: %w", err)
	}

	return archivecache.TOCData[FileMetadata]{
		DriveDefs:  archivecache.FromRecordDrives(driveDefs),
		FolderDefs: archivecache.FromRecordFolders(folderDefs),
		FileDefs:   archivecache.FromFileInputs(fileInputs),
		Names:      names,
	}, nil
}
