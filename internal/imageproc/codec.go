// Package imageproc provides image codec operations: decoding uploads, encoding results,
// preview resizing and thumbnail generation.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // регистрируем декодер webp для image.DecodeConfig
)

// DefaultQuality is the JPEG quality used when the caller passes 0.
const DefaultQuality = 90

// Decode reads a whole image, applies EXIF orientation and reports the format it was
// stored in. WebP sources decode fine but are reported as PNG, since they cannot be re-encoded.
func Decode(r io.Reader) (image.Image, imaging.Format, error) {
	if r == nil {
		return nil, -1, fmt.Errorf("%w: nil-reader provided", model.ErrDecodeFailure)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, -1, model.ErrEmptySource
	}

	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, -1, fmt.Errorf("%w: %v", model.ErrDecodeFailure, err)
	}

	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		format = imaging.PNG // webp
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, -1, fmt.Errorf("%w: %v", model.ErrDecodeFailure, err)
	}
	return img, format, nil
}

// Encode writes img in format. quality only affects JPEG.
func Encode(img image.Image, format imaging.Format, quality int) (io.Reader, int64, error) {
	if img == nil {
		return nil, 0, errors.New("nil image provided to Encode")
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(quality)); err != nil {
		return nil, 0, fmt.Errorf("failed to ENcode image: %w", err)
	}
	return &buf, int64(buf.Len()), nil
}

// FormatFromName accepts an extension ("jpg", ".png"), a file name or a content type ("image/bmp").
func FormatFromName(name string) (imaging.Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "image/")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return -1, model.ErrUnsupportedFormat
	}

	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		return -1, fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, name)
	}
	return format, nil
}

// Open decodes an image file, honouring EXIF orientation.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDecodeFailure, err)
	}
	return img, nil
}

// Save writes img to path in the format its extension names.
func Save(img image.Image, path string, quality int) error {
	if _, err := FormatFromName(path); err != nil {
		return err
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return imaging.Save(img, path, imaging.JPEGQuality(quality))
}
