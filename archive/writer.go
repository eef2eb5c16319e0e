package archive

import "io"

// ArchiveWriter is the mirror image of a version driver's Read: given a
// tree, it would serialize a valid SGA container for one format version.
// Per spec.md's explicit Non-goals, archive writing is out of scope for
// this repository — no version implements this interface. It is
// declared so a future writer has a spot to slot into, the same way the
// original Python project documents writing as a possible future
// extension without attempting it here.
type ArchiveWriter[M any, FM any] interface {
	// Write serializes archive to w in this driver's on-disk format.
	Write(w io.WriteSeeker, archive *Archive[M, FM]) error
}
