// Package checksum implements the salted digest verification the V2/V5
// (MD5) and V9 (SHA-256) archive headers carry, grounded on the
// original's Md5ChecksumHelper (spec.md §4.6).
package checksum

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// chunkSize matches the original's 256KiB streaming read, so validating a
// large archive window never has to hold the whole region in memory.
const chunkSize = 256 * 1024

// MismatchError is returned when a computed digest does not match the
// value recorded in the archive.
type MismatchError struct {
	Got, Want []byte
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum: mismatch: got %x, want %x", e.Got, e.Want)
}

// Well-known salts the original readers prepend to the hash state before
// hashing the windowed region. Both are fixed GUID-shaped byte strings
// baked into the format; see spec.md §4.6 and §9.
var (
	// FileMD5Eigen salts the archive's file MD5 digest (V2, V5), taken
	// over header_pos to end of stream, and, per a
	// quirk in the original reader preserved here, the V5 header digest
	// too (spec.md §9).
	FileMD5Eigen = []byte("E01519D6-2DB7-4640-AF54-0A23319C56C3")
	// HeaderMD5Eigen salts the V2 archive header MD5 digest.
	HeaderMD5Eigen = []byte("DFC9AF62-FC1B-4180-BC27-11CCE87D3EFF")
)

// Helper streams a windowed region of stream through a hash, optionally
// salting the hash state first, and compares the result against Expected.
type Helper struct {
	Expected []byte
	Stream   io.ReadSeeker
	Start    int64
	Size     *int64 // nil means "read to EOF"
	Salt     []byte // nil means unsalted
	NewHash  func() hash.Hash
}

// NewMD5 builds a Helper that computes a (possibly salted) MD5 digest.
func NewMD5(expected []byte, stream io.ReadSeeker, start int64, size *int64, salt []byte) *Helper {
	return &Helper{Expected: expected, Stream: stream, Start: start, Size: size, Salt: salt, NewHash: md5.New}
}

// NewSHA256 builds a Helper that computes a (possibly salted) SHA-256
// digest, the V9 header's checksum algorithm.
func NewSHA256(expected []byte, stream io.ReadSeeker, start int64, size *int64, salt []byte) *Helper {
	return &Helper{Expected: expected, Stream: stream, Start: start, Size: size, Salt: salt, NewHash: sha256.New}
}

// Digest computes the digest without comparing it to Expected.
func (h *Helper) Digest() ([]byte, error) {
	if _, err := h.Stream.Seek(h.Start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("checksum: seeking to window start: %w", err)
	}
	sum := h.NewHash()
	if h.Salt != nil {
		sum.Write(h.Salt)
	}

	var r io.Reader = h.Stream
	if h.Size != nil {
		r = io.LimitReader(h.Stream, *h.Size)
	}
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(sum, r, buf); err != nil {
		return nil, fmt.Errorf("checksum: hashing window: %w", err)
	}
	return sum.Sum(nil), nil
}

// Validate computes the digest and compares it against Expected.
func (h *Helper) Validate() error {
	got, err := h.Digest()
	if err != nil {
		return err
	}
	if !equalBytes(got, h.Expected) {
		return &MismatchError{Got: got, Want: h.Expected}
	}
	return nil
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HexDigest is a convenience for logging/debugging: the digest computed by
// a Helper, hex-encoded.
func HexDigest(h *Helper) (string, error) {
	sum, err := h.Digest()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}
