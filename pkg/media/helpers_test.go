package media

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// encodeTestJPEG returns the bytes of a small valid JPEG.
func encodeTestJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

// exifAPP1Segment builds a minimal but valid APP1 segment carrying a TIFF
// EXIF payload with a single Make tag.
func exifAPP1Segment(t *testing.T) []byte {
	t.Helper()

	var tiff bytes.Buffer
	tiff.WriteString("II")                             // little-endian byte order
	binary.Write(&tiff, binary.LittleEndian, uint16(0x2A)) // TIFF magic
	binary.Write(&tiff, binary.LittleEndian, uint32(8))    // IFD0 offset
	binary.Write(&tiff, binary.LittleEndian, uint16(1))    // entry count
	binary.Write(&tiff, binary.LittleEndian, uint16(0x010F)) // Make
	binary.Write(&tiff, binary.LittleEndian, uint16(2))    // ASCII
	binary.Write(&tiff, binary.LittleEndian, uint32(3))    // count (incl. NUL)
	tiff.Write([]byte{'g', 'o', 0, 0})                     // inline value, padded
	binary.Write(&tiff, binary.LittleEndian, uint32(0))    // no next IFD

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)

	var seg bytes.Buffer
	seg.Write([]byte{0xFF, 0xE1})
	binary.Write(&seg, binary.BigEndian, uint16(len(payload)+2))
	seg.Write(payload)
	return seg.Bytes()
}

// encodeTestJPEGWithEXIF splices an EXIF APP1 segment right after the SOI
// marker of a valid JPEG.
func encodeTestJPEGWithEXIF(t *testing.T) []byte {
	t.Helper()

	plain := encodeTestJPEG(t)
	if len(plain) < 2 || plain[0] != 0xFF || plain[1] != 0xD8 {
		t.Fatal("test JPEG does not start with SOI")
	}

	out := make([]byte, 0, len(plain)+64)
	out = append(out, plain[:2]...)
	out = append(out, exifAPP1Segment(t)...)
	out = append(out, plain[2:]...)
	return out
}

// writeFile writes data to name under a temp dir and returns the path.
func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// encodeTestPNG returns the bytes of a small valid PNG.
func encodeTestPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return data
}
