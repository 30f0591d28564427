// Package compositor overlays image and text watermarks onto a working copy of a source bitmap.
//
// A Compositor owns two independent bitmaps: the pristine original and the
// working image that every Apply call draws on. Reset throws the working image
// away and copies the original again. Watermark preparation runs in a fixed order:
// colour key, scale, margin padding, rotate/flip, anchor, then a clipped
// source-over blit with the configured opacity.
//
// A Compositor is not safe for concurrent use.
package compositor

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrInvalidArgument is wrapped by every caller-input error of this package.
var ErrInvalidArgument = errors.New("invalid argument")

// Compositor holds the original and working bitmaps of one source image.
type Compositor struct {
	original *image.NRGBA
	working  *image.NRGBA
}

// New copies src into a fresh original and working image.
func New(src image.Image) (*Compositor, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source image is nil", ErrInvalidArgument)
	}
	if src.Bounds().Empty() {
		return nil, fmt.Errorf("%w: source image is %dx%d", ErrInvalidArgument, src.Bounds().Dx(), src.Bounds().Dy())
	}
	c := &Compositor{original: imaging.Clone(src)}
	c.Reset()
	return c, nil
}

// Reset replaces the working image with a new copy of the original.
func (c *Compositor) Reset() {
	c.working = imaging.Clone(c.original)
}

// Image returns the working image. It is drawn on in place by later Apply calls.
func (c *Compositor) Image() *image.NRGBA {
	return c.working
}

// Original returns the untouched source. Callers must not modify it.
func (c *Compositor) Original() *image.NRGBA {
	return c.original
}

// Bounds returns the working image bounds.
func (c *Compositor) Bounds() image.Rectangle {
	return c.working.Bounds()
}

// ApplyImage composites wm onto the working image. On error the working image
// is left as it was.
func (c *Compositor) ApplyImage(wm image.Image, cfg Config) error {
	return c.apply(wm, cfg)
}

// ApplyText renders text with cfg.Font and cfg.FontColor and composites it like ApplyImage.
func (c *Compositor) ApplyText(text string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	mark, err := RenderText(text, cfg.Font, cfg.FontColor)
	if err != nil {
		return err
	}
	return c.apply(mark, cfg)
}

func (c *Compositor) apply(wm image.Image, cfg Config) error {
	mark, err := Prepare(wm, cfg)
	if err != nil {
		return err
	}
	b := c.working.Bounds()
	at := Anchor(b.Dx(), b.Dy(), mark.Bounds().Dx(), mark.Bounds().Dy(), cfg)
	Blit(c.working, mark, at, cfg.Opacity)
	return nil
}

// Prepare validates cfg and returns the watermark after colour key, scaling,
// padding and rotate/flip, ready to be anchored.
func Prepare(wm image.Image, cfg Config) (*image.NRGBA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if wm == nil {
		return nil, fmt.Errorf("%w: watermark image is nil", ErrInvalidArgument)
	}
	b := wm.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: watermark image is %dx%d", ErrInvalidArgument, b.Dx(), b.Dy())
	}
	w, h, err := ScaledSize(b.Dx(), b.Dy(), cfg.ScaleRatio)
	if err != nil {
		return nil, err
	}
	// стороны отступа уже ограничены в Validate, сумма не переполнится
	m := cfg.Margin
	if w+m.Left+m.Right > maxSide || h+m.Top+m.Bottom > maxSide {
		return nil, fmt.Errorf("%w: margin %+v grows the watermark past %dpx", ErrInvalidArgument, m, maxSide)
	}

	src := wm
	if cfg.TransparentColor != nil {
		src = ColorKey(src, *cfg.TransparentColor)
	}
	mark := Scale(src, w, h)
	mark = Pad(mark, m)
	return ApplyRotateFlip(mark, cfg.RotateFlip), nil
}
