package codec

import (
	"bytes"
	"testing"
)

func TestUnpackRoundTrip(t *testing.T) {
	layout := Layout{U8Field(), U16Field(), U32Field(), U64Field(), BytesField(4)}

	var buf bytes.Buffer
	scalars := []uint64{0xAB, 0x1234, 0xDEADBEEF, 0x0102030405060708}
	blobs := [][]byte{nil, nil, nil, nil, []byte("name")}
	if _, err := Pack(&buf, layout, scalars, blobs); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	v, err := Unpack(&buf, layout)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if got := v.U(0); got != 0xAB {
		t.Errorf("field 0: got %x, want 0xAB", got)
	}
	if got := v.U(1); got != 0x1234 {
		t.Errorf("field 1: got %x, want 0x1234", got)
	}
	if got := v.U(2); got != 0xDEADBEEF {
		t.Errorf("field 2: got %x, want 0xDEADBEEF", got)
	}
	if got := v.U(3); got != 0x0102030405060708 {
		t.Errorf("field 3: got %x, want 0x0102030405060708", got)
	}
	if got := string(v.B(4)); got != "name" {
		t.Errorf("field 4: got %q, want %q", got, "name")
	}
}

func TestLayoutSize(t *testing.T) {
	l := Layout{U8Field(), U16Field(), U32Field(), U64Field(), BytesField(16)}
	if got, want := l.Size(), 1+2+4+8+16; got != want {
		t.Errorf("Size() = %d, want %d", got, want)
	}
}

func TestUnpackShortRead(t *testing.T) {
	layout := Layout{U32Field()}
	_, err := Unpack(bytes.NewReader([]byte{1, 2}), layout)
	if err == nil {
		t.Fatal("expected a short-read error, got nil")
	}
}
