// Package imaging normalizes image data for the recognition engine.
// dlib only accepts JPEG, so PNG/GIF/BMP inputs are re-encoded.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
)

var jpegMagic = []byte{0xFF, 0xD8}

// IsJPEG reports whether the data starts with the JPEG magic bytes.
func IsJPEG(data []byte) bool {
	return bytes.HasPrefix(data, jpegMagic)
}

// EnsureJPEG returns JPEG-encoded image data. JPEG input is passed
// through untouched; PNG, GIF and BMP are decoded and re-encoded.
func EnsureJPEG(data []byte) ([]byte, error) {
	if IsJPEG(data) {
		return data, nil
	}

	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (image.Image, error) {
	// BMP first: its "BM" signature is not registered with image.Decode
	// by default and the stdlib sniffer would reject it.
	if bytes.HasPrefix(data, []byte("BM")) {
		img, err := bmp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("bmp decode: %w", err)
		}
		return img, nil
	}

	if img, err := png.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := gif.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("unsupported or corrupt image data")
}
