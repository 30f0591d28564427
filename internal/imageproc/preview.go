package imageproc

import (
	"fmt"
	"image"
	"math"

	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/disintegration/imaging"
)

// Fit resizes img for display in a w×h box:
// ModeNormal returns it unchanged, ModeZoom keeps the aspect ratio and fills the box
// along one side, ModeStretch resizes to exactly w×h. Boxes over MaxPreviewSide are rejected.
func Fit(img image.Image, mode model.PreviewMode, w, h int) (image.Image, error) {
	if mode == "" {
		mode = model.ModeNormal
	}
	if !model.PreviewModeMap[mode] {
		return nil, fmt.Errorf("%w: mode %q", model.ErrIncorrectMode, mode)
	}
	if mode == model.ModeNormal {
		return img, nil
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: box %dx%d", model.ErrIncorrectMode, w, h)
	}
	if w > model.MaxPreviewSide || h > model.MaxPreviewSide {
		return nil, fmt.Errorf("%w: box %dx%d is over %dpx", model.ErrIncorrectMode, w, h, model.MaxPreviewSide)
	}

	b := img.Bounds()
	if mode == model.ModeStretch {
		return imaging.Resize(img, w, h, imaging.Lanczos), nil
	}

	// zoom: масштаб по меньшей из сторон, чтобы картинка целиком влезла в рамку
	ratio := math.Min(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	zw := max(1, int(math.Round(float64(b.Dx())*ratio)))
	zh := max(1, int(math.Round(float64(b.Dy())*ratio)))
	return imaging.Resize(img, zw, zh, imaging.Lanczos), nil
}
