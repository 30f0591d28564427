package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// Thumbnail decodes r and returns a size×size center-cropped thumbnail encoded in format.
func Thumbnail(r io.Reader, size int, format imaging.Format) (io.Reader, int64, error) {
	if r == nil {
		return nil, -1, errors.New("nil-reader provided to Thumbnail")
	}
	if size <= 0 {
		return nil, -1, fmt.Errorf("thumbnail size must be positive, got %d", size)
	}
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to DEcode render in Thumbnail: %w", err)
	}
	thumb := imaging.Thumbnail(img, size, size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return nil, 0, fmt.Errorf("failed to ENcode thumbnail: %w", err)
	}
	return &buf, int64(buf.Len()), nil
}
