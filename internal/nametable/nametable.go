// Package nametable decodes the SGA name table: a contiguous run of
// NUL-terminated ASCII strings, read in bounded chunks with a residual
// buffer carrying partial strings across chunk boundaries (spec.md §4.3).
package nametable

import (
	"fmt"
	"io"

	"github.com/mak-relic-tool/go-sga/archive"
)

const defaultChunkSize = 256

// ReadCount reads exactly count NUL-terminated names from stream (which
// must already be positioned at the start of the name table), returning a
// map from each name's byte offset *within the table* to its string.
//
// This is the count-terminated form used by all four shipping SGA
// versions (spec.md §4.3, §9); the size-terminated form lives in
// ReadSize for forward compatibility.
func ReadCount(stream io.Reader, count int, chunkSize int) (map[int64]string, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	names := make(map[int64]string, count)
	var residual []byte
	var offset int64
	chunk := make([]byte, chunkSize)

	for int64(len(names)) < int64(count) {
		n, err := stream.Read(chunk)
		if n == 0 {
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("nametable: reading chunk: %w", err)
			}
			return nil, &archive.NameTableTruncatedError{Got: len(names), Want: count}
		}
		buf := chunk[:n]

		terminalNull := buf[len(buf)-1] == 0
		parts := splitNull(buf)

		var complete [][]byte
		if len(parts) > 1 {
			parts[0] = append(append([]byte(nil), residual...), parts[0]...)
			residual = residual[:0]
			if !terminalNull {
				residual = append(residual, parts[len(parts)-1]...)
			}
			complete = parts[:len(parts)-1]
		} else {
			if !terminalNull {
				residual = append(residual, parts[0]...)
				continue
			}
			complete = parts
		}

		remaining := int64(count) - int64(len(names))
		available := int64(len(complete))
		if available > remaining {
			available = remaining
		}
		for i := int64(0); i < available; i++ {
			name := complete[i]
			names[offset] = string(name)
			offset += int64(len(name)) + 1
		}
	}
	return names, nil
}

// ReadSize reads names from a name table whose length in bytes (rather than
// count of names) is declared, splitting the whole blob on NUL.
func ReadSize(stream io.Reader, size int64) (map[int64]string, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(stream, buf); err != nil {
		return nil, fmt.Errorf("nametable: reading name blob: %w", err)
	}
	names := make(map[int64]string)
	var offset int64
	for _, part := range splitNull(buf) {
		names[offset] = string(part)
		offset += int64(len(part)) + 1
	}
	return names, nil
}

// splitNull splits buf on NUL bytes, the way bytes.Split(buf, []byte{0})
// would, kept local to make the residual-carry logic above explicit about
// what it's doing with the trailing (possibly partial) fragment.
func splitNull(buf []byte) [][]byte {
	var parts [][]byte
	start := 0
	for i, b := range buf {
		if b == 0 {
			parts = append(parts, buf[start:i])
			start = i + 1
		}
	}
	parts = append(parts, buf[start:])
	return parts
}
