package checksum

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"errors"
	"testing"
)

func TestHelperValidateMD5(t *testing.T) {
	salt := []byte("salt")
	window := []byte("the window bytes")
	stream := bytes.NewReader(window)

	sum := md5.New()
	sum.Write(salt)
	sum.Write(window)
	expected := sum.Sum(nil)

	size := int64(len(window))
	h := NewMD5(expected, stream, 0, &size, salt)
	if err := h.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestHelperValidateSHA256Mismatch(t *testing.T) {
	window := []byte("the real header bytes")
	stream := bytes.NewReader(window)
	size := int64(len(window))

	wrong := sha256.Sum256([]byte("not the header bytes"))
	h := NewSHA256(wrong[:], stream, 0, &size, nil)

	err := h.Validate()
	if err == nil {
		t.Fatal("expected a mismatch error, got nil")
	}
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *MismatchError, got %T: %v", err, err)
	}
}

func TestHelperWindowStartOffset(t *testing.T) {
	stream := bytes.NewReader([]byte("PREFIXtarget data"))
	window := []byte("target data")
	sum := md5.Sum(window)

	h := NewMD5(sum[:], stream, 6, nil, nil)
	if err := h.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestHexDigest(t *testing.T) {
	stream := bytes.NewReader([]byte("data"))
	h := NewMD5(nil, stream, 0, nil, nil)
	hex, err := HexDigest(h)
	if err != nil {
		t.Fatalf("HexDigest: %v", err)
	}
	want := md5.Sum([]byte("data"))
	if hex != (fmtHex(want[:])) {
		t.Errorf("got %q", hex)
	}
}

func fmtHex(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0xf]
	}
	return string(out)
}
