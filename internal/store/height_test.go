package store

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/cwbudde/impasto/internal/raster"
)

func rampHeight(w, h int) *raster.Gray {
	g := raster.NewGray(w, h)
	for i := range g.Pix {
		g.Pix[i] = float64(i)*0.125 - 1
	}
	return g
}

func TestHeightRoundTrip(t *testing.T) {
	original := rampHeight(7, 5)

	var buf bytes.Buffer
	if err := EncodeHeight(&buf, original); err != nil {
		t.Fatalf("EncodeHeight failed: %v", err)
	}
	decoded, err := DecodeHeight(&buf)
	if err != nil {
		t.Fatalf("DecodeHeight failed: %v", err)
	}

	if decoded.Width != 7 || decoded.Height != 5 {
		t.Fatalf("size = %dx%d, want 7x5", decoded.Width, decoded.Height)
	}
	// Values are multiples of 1/8 and survive float32 exactly.
	for i := range original.Pix {
		if decoded.Pix[i] != original.Pix[i] {
			t.Errorf("value %d = %f, want %f", i, decoded.Pix[i], original.Pix[i])
		}
	}
}

func TestHeightFloat32Precision(t *testing.T) {
	g := raster.NewGray(1, 1)
	g.Pix[0] = 1.0 / 3

	var buf bytes.Buffer
	if err := EncodeHeight(&buf, g); err != nil {
		t.Fatalf("EncodeHeight failed: %v", err)
	}
	decoded, err := DecodeHeight(&buf)
	if err != nil {
		t.Fatalf("DecodeHeight failed: %v", err)
	}
	if math.Abs(decoded.Pix[0]-1.0/3) > 1e-7 {
		t.Errorf("value = %v, want ~1/3", decoded.Pix[0])
	}
}

func compressed(t *testing.T, raw []byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd.NewWriter failed: %v", err)
	}
	zw.Write(raw)
	zw.Close()
	return &buf
}

func TestDecodeHeightCorrupt(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"short header", []byte("IMP")},
		{"bad magic", []byte{'X', 'X', 'X', 'X', 1, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}},
		{"zero size", []byte{'I', 'M', 'P', 'H', 0, 0, 0, 0, 1, 0, 0, 0}},
		{"truncated", []byte{'I', 'M', 'P', 'H', 2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeHeight(compressed(t, tt.raw))
			if !errors.Is(err, ErrCorruptHeight) {
				t.Errorf("expected ErrCorruptHeight, got %v", err)
			}
		})
	}
}

func TestStoreHeight(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.SaveHeight("job", rampHeight(4, 4)); err != nil {
		t.Fatalf("SaveHeight failed: %v", err)
	}
	g, err := store.LoadHeight("job")
	if err != nil {
		t.Fatalf("LoadHeight failed: %v", err)
	}
	if g.Width != 4 || g.Pix[15] != rampHeight(4, 4).Pix[15] {
		t.Errorf("height field not preserved")
	}

	if _, err := store.LoadHeight("other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
