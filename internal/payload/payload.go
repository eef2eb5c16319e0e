// Package payload implements the lazy file-data reference and in-place
// compress/decompress toggling described in spec.md §4.5: a deferred
// {offset, packed size, unpacked size} handle into the shared archive
// stream, resolved to bytes on first read and then discarded.
package payload

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// SizeMismatchError is returned when an inflated payload's length does not
// equal the declared unpacked size.
type SizeMismatchError struct {
	Got, Want int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("payload: decompressed size mismatch: got %d bytes, want %d", e.Got, e.Want)
}

// LazyHandle is a deferred reference to a byte range in the backing
// stream. It is consumed and discarded on first Read.
type LazyHandle struct {
	JumpTo       int64
	PackedSize   int64
	UnpackedSize int64
	Stream       io.ReadSeeker
	Decompress   bool
}

// Read resolves the handle to bytes: it saves the stream's cursor, seeks to
// JumpTo, reads PackedSize bytes, optionally inflates them, and restores the
// cursor before returning — the "stream-cursor neutrality" invariant from
// spec.md §8.
func (h *LazyHandle) Read() ([]byte, error) {
	jumpBack, err := h.Stream.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("payload: saving stream cursor: %w", err)
	}
	defer func() {
		_, _ = h.Stream.Seek(jumpBack, io.SeekStart)
	}()

	if _, err := h.Stream.Seek(h.JumpTo, io.SeekStart); err != nil {
		return nil, fmt.Errorf("payload: seeking to data: %w", err)
	}
	buf := make([]byte, h.PackedSize)
	if _, err := io.ReadFull(h.Stream, buf); err != nil {
		return nil, fmt.Errorf("payload: reading packed bytes: %w", err)
	}

	// Equal packed/unpacked sizes mean "stored"; no inflate is attempted
	// even if the caller asked for decompression.
	if !h.Decompress || h.PackedSize == h.UnpackedSize {
		return buf, nil
	}

	out, err := Inflate(buf)
	if err != nil {
		return nil, err
	}
	if int64(len(out)) != h.UnpackedSize {
		return nil, &SizeMismatchError{Got: len(out), Want: int(h.UnpackedSize)}
	}
	return out, nil
}

// Inflate decompresses a zlib/DEFLATE-wrapped buffer.
func Inflate(packed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("payload: opening zlib stream: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("payload: inflating: %w", err)
	}
	return out, nil
}

// Deflate compresses a buffer with the same zlib/DEFLATE framing Inflate
// expects back.
func Deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("payload: deflating: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("payload: closing deflate stream: %w", err)
	}
	return buf.Bytes(), nil
}
