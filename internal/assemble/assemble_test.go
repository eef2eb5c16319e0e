package assemble

import (
	"bytes"
	"errors"
	"testing"

	sga "github.com/mak-relic-tool/go-sga/archive"
	"github.com/mak-relic-tool/go-sga/internal/records"
)

type noMetadata = struct{}

func TestDrivesSingleFolderTree(t *testing.T) {
	stream := bytes.NewReader([]byte("Hello"))
	names := map[int64]string{0: "test", 5: "root", 10: "hello.txt"}

	driveDefs := []records.DriveDef{
		{Alias: "data", Name: "test", FolderRange: records.Range{0, 1}, FileRange: records.Range{0, 1}, RootFolder: 0},
	}
	folderDefs := []records.FolderDef{
		{NamePos: 5, FolderRange: records.Range{0, 0}, FileRange: records.Range{0, 1}},
	}
	fileInputs := []FileInput[noMetadata]{
		{NamePos: 10, DataPos: 0, LengthOnDisk: 5, LengthInArchive: 5, StorageType: sga.StorageStore},
	}

	drives, files, err := Drives(driveDefs, folderDefs, fileInputs, names, 0, stream, false)
	if err != nil {
		t.Fatalf("Drives: %v", err)
	}
	if len(drives) != 1 || len(files) != 1 {
		t.Fatalf("got %d drives, %d files", len(drives), len(files))
	}
	d := drives[0]
	if d.Alias != "data" || len(d.Files) != 1 || d.Files[0].Name != "hello.txt" {
		t.Fatalf("unexpected drive shape: %+v", d)
	}
	if d.Files[0].Parent != d {
		t.Errorf("file parent not set to drive")
	}
	data, err := d.Files[0].Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if string(data) != "Hello" {
		t.Errorf("got %q, want %q", data, "Hello")
	}
}

func TestFilesUnknownNamePos(t *testing.T) {
	stream := bytes.NewReader(nil)
	inputs := []FileInput[noMetadata]{{NamePos: 99}}
	_, err := Files(inputs, map[int64]string{}, 0, stream, false)
	if err == nil {
		t.Fatal("expected an error for unknown name_pos")
	}
	var oor *sga.IndexOutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("expected *sga.IndexOutOfRangeError, got %T: %v", err, err)
	}
}

func TestFoldersUnknownNamePos(t *testing.T) {
	defs := []records.FolderDef{{NamePos: 42}}
	_, err := Folders[noMetadata](defs, map[int64]string{}, nil, 0, 0)
	if err == nil {
		t.Fatal("expected an error for unknown folder name_pos")
	}
	var oor *sga.IndexOutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("expected *sga.IndexOutOfRangeError, got %T: %v", err, err)
	}
}

func TestFoldersFileRangeOutOfBounds(t *testing.T) {
	defs := []records.FolderDef{
		{NamePos: 0, FileRange: records.Range{Start: 0, End: 5}},
	}
	names := map[int64]string{0: "root"}
	_, err := Folders[noMetadata](defs, names, nil, 0, 0)
	if err == nil {
		t.Fatal("expected an out-of-range error")
	}
	var oor *sga.IndexOutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("expected *sga.IndexOutOfRangeError, got %T: %v", err, err)
	}
}

func TestDrivesRootFolderOutOfRange(t *testing.T) {
	stream := bytes.NewReader(nil)
	names := map[int64]string{0: "test", 5: "root"}
	driveDefs := []records.DriveDef{
		{Alias: "data", Name: "test", FolderRange: records.Range{0, 1}, FileRange: records.Range{0, 0}, RootFolder: 5},
	}
	folderDefs := []records.FolderDef{
		{NamePos: 5, FolderRange: records.Range{0, 0}, FileRange: records.Range{0, 0}},
	}
	_, _, err := Drives[noMetadata](driveDefs, folderDefs, nil, names, 0, stream, false)
	if err == nil {
		t.Fatal("expected a root_folder out-of-range error")
	}
	var oor *sga.IndexOutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("expected *sga.IndexOutOfRangeError, got %T: %v", err, err)
	}
}

func TestDrivesTwoDrivesDisjointRanges(t *testing.T) {
	stream := bytes.NewReader([]byte("AB"))
	names := map[int64]string{
		0: "alpha", 10: "a.txt",
		20: "beta", 30: "b.txt",
		40: "root",
	}
	driveDefs := []records.DriveDef{
		{Alias: "a", Name: "alpha", FolderRange: records.Range{0, 1}, FileRange: records.Range{0, 1}, RootFolder: 0},
		{Alias: "b", Name: "beta", FolderRange: records.Range{1, 2}, FileRange: records.Range{1, 2}, RootFolder: 1},
	}
	folderDefs := []records.FolderDef{
		{NamePos: 40, FolderRange: records.Range{0, 0}, FileRange: records.Range{0, 1}},
		{NamePos: 40, FolderRange: records.Range{1, 1}, FileRange: records.Range{1, 2}},
	}
	fileInputs := []FileInput[noMetadata]{
		{NamePos: 10, DataPos: 0, LengthOnDisk: 1, LengthInArchive: 1},
		{NamePos: 30, DataPos: 1, LengthOnDisk: 1, LengthInArchive: 1},
	}
	drives, files, err := Drives(driveDefs, folderDefs, fileInputs, names, 0, stream, false)
	if err != nil {
		t.Fatalf("Drives: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if len(drives[0].Files) != 1 || drives[0].Files[0].Name != "a.txt" {
		t.Errorf("drive a: unexpected files %+v", drives[0].Files)
	}
	if len(drives[1].Files) != 1 || drives[1].Files[0].Name != "b.txt" {
		t.Errorf("drive b: unexpected files %+v", drives[1].Files)
	}
	if drives[1].Files[0].Parent != drives[1] {
		t.Errorf("drive b's file parent should be drive b, not drive a")
	}
}
