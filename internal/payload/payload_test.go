package payload

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeflateInflateRoundTrip(t *testing.T) {
	want := []byte("Hello, World! Hello, World! Hello, World!")
	packed, err := Deflate(want)
	if err != nil {
		t.Fatalf("Deflate: %v", err)
	}
	got, err := Inflate(packed)
	if err != nil {
		t.Fatalf("Inflate: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLazyHandleStoredPassthrough(t *testing.T) {
	stream := bytes.NewReader([]byte("xxxHelloxxx"))
	h := &LazyHandle{JumpTo: 3, PackedSize: 5, UnpackedSize: 5, Stream: stream, Decompress: true}
	got, err := h.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "Hello" {
		t.Errorf("got %q, want %q", got, "Hello")
	}
}

func TestLazyHandleCompressed(t *testing.T) {
	raw := []byte("Hello, World!")
	packed, err := Deflate(raw)
	if err != nil {
		t.Fatalf("Deflate: %v", err)
	}
	stream := bytes.NewReader(packed)
	h := &LazyHandle{JumpTo: 0, PackedSize: int64(len(packed)), UnpackedSize: int64(len(raw)), Stream: stream, Decompress: true}
	got, err := h.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("got %q, want %q", got, raw)
	}
}

func TestLazyHandleSizeMismatch(t *testing.T) {
	raw := []byte("short")
	packed, err := Deflate(raw)
	if err != nil {
		t.Fatalf("Deflate: %v", err)
	}
	stream := bytes.NewReader(packed)
	h := &LazyHandle{JumpTo: 0, PackedSize: int64(len(packed)), UnpackedSize: 999, Stream: stream, Decompress: true}
	_, err = h.Read()
	if err == nil {
		t.Fatal("expected a size mismatch error, got nil")
	}
	var mismatch *SizeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *SizeMismatchError, got %T: %v", err, err)
	}
	if mismatch.Want != 999 {
		t.Errorf("got %+v", mismatch)
	}
}

func TestLazyHandleCursorNeutrality(t *testing.T) {
	raw := []byte("Hello")
	stream := bytes.NewReader(append(append([]byte("PREFIX"), raw...), []byte("SUFFIX")...))
	if _, err := stream.Seek(2, 0); err != nil {
		t.Fatal(err)
	}
	before, _ := stream.Seek(0, 1)

	h := &LazyHandle{JumpTo: 6, PackedSize: int64(len(raw)), UnpackedSize: int64(len(raw)), Stream: stream, Decompress: false}
	if _, err := h.Read(); err != nil {
		t.Fatalf("Read: %v", err)
	}

	after, _ := stream.Seek(0, 1)
	if before != after {
		t.Errorf("cursor moved: before=%d after=%d", before, after)
	}
}
