package store

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/cwbudde/impasto/internal/raster"
)

// HeightFile is the artifact holding the height field.
const HeightFile = "height.zst"

var heightMagic = [4]byte{'I', 'M', 'P', 'H'}

// maxHeightPixels bounds the allocation made for a decoded header.
const maxHeightPixels = 1 << 28

// ErrCorruptHeight is returned for height files with a bad header.
var ErrCorruptHeight = errors.New("corrupt height field")

// EncodeHeight writes a zstd stream holding the magic, width and height as
// little-endian uint32 and then every value as little-endian float32.
func EncodeHeight(w io.Writer, g *raster.Gray) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	bw := bufio.NewWriter(zw)
	header := make([]byte, 12)
	copy(header, heightMagic[:])
	binary.LittleEndian.PutUint32(header[4:], uint32(g.Width))
	binary.LittleEndian.PutUint32(header[8:], uint32(g.Height))
	if _, err := bw.Write(header); err != nil {
		zw.Close()
		return fmt.Errorf("failed to write height header: %w", err)
	}

	var buf [4]byte
	for _, v := range g.Pix {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(v)))
		if _, err := bw.Write(buf[:]); err != nil {
			zw.Close()
			return fmt.Errorf("failed to write height values: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		zw.Close()
		return fmt.Errorf("failed to flush height values: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return nil
}

// DecodeHeight reads a stream written by EncodeHeight.
func DecodeHeight(r io.Reader) (*raster.Gray, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	br := bufio.NewReader(zr)
	header := make([]byte, 12)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHeight, err)
	}
	if [4]byte(header[:4]) != heightMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptHeight)
	}

	w := int(binary.LittleEndian.Uint32(header[4:]))
	h := int(binary.LittleEndian.Uint32(header[8:]))
	if w <= 0 || h <= 0 || w*h > maxHeightPixels {
		return nil, fmt.Errorf("%w: size %dx%d", ErrCorruptHeight, w, h)
	}

	g := raster.NewGray(w, h)
	var buf [4]byte
	for i := range g.Pix {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: truncated values: %v", ErrCorruptHeight, err)
		}
		g.Pix[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[:])))
	}
	return g, nil
}

// SaveHeight stores the height field of a job.
func (fs *FSStore) SaveHeight(jobID string, height *raster.Gray) error {
	if err := validJobID(jobID); err != nil {
		return err
	}
	return fs.writeAtomic(jobID, HeightFile, func(f *os.File) error {
		return EncodeHeight(f, height)
	})
}

// LoadHeight reads the height field of a job.
func (fs *FSStore) LoadHeight(jobID string) (*raster.Gray, error) {
	f, err := fs.openArtifact(jobID, HeightFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DecodeHeight(f)
}
