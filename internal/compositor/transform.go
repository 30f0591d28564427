package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// maxSide bounds every side of an intermediate watermark bitmap.
const maxSide = 1 << 15

// ScaledSize rounds w×h scaled by ratio to the nearest pixel, never below 1px.
func ScaledSize(w, h int, ratio float64) (int, int, error) {
	sw := math.Round(float64(w) * ratio)
	sh := math.Round(float64(h) * ratio)
	if sw > maxSide || sh > maxSide {
		return 0, 0, fmt.Errorf("%w: scaled watermark %.0fx%.0f exceeds %dpx", ErrInvalidArgument, sw, sh, maxSide)
	}
	return max(1, int(sw)), max(1, int(sh)), nil
}

// Scale resamples img to w×h with a Lanczos filter. Same-size input is copied as is.
func Scale(img image.Image, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// Pad places img at (m.Left, m.Top) on a transparent canvas grown by the margin.
func Pad(img image.Image, m Margin) *image.NRGBA {
	b := img.Bounds()
	if m == (Margin{}) {
		return imaging.Clone(img)
	}
	canvas := imaging.New(b.Dx()+m.Left+m.Right, b.Dy()+m.Top+m.Bottom, color.NRGBA{})
	return imaging.Paste(canvas, img, image.Pt(m.Left, m.Top))
}

// ApplyRotateFlip rotates img clockwise and then mirrors it horizontally as rf says.
// imaging rotates counter-clockwise, hence the 90/270 swap.
func ApplyRotateFlip(img image.Image, rf RotateFlip) *image.NRGBA {
	switch rf {
	case Rotate90FlipNone:
		return imaging.Rotate270(img)
	case Rotate180FlipNone:
		return imaging.Rotate180(img)
	case Rotate270FlipNone:
		return imaging.Rotate90(img)
	case RotateNoneFlipX:
		return imaging.FlipH(img)
	case Rotate90FlipX:
		return imaging.Transpose(img)
	case Rotate180FlipX:
		return imaging.FlipV(img)
	case Rotate270FlipX:
		return imaging.Transverse(img)
	default:
		return imaging.Clone(img)
	}
}

// ColorKey returns a copy of img where every pixel whose RGB equals key has zero alpha.
// The alpha component of key is ignored.
func ColorKey(img image.Image, key color.NRGBA) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		p := dst.Pix[i : i+4 : i+4]
		if p[3] != 0 && p[0] == key.R && p[1] == key.G && p[2] == key.B {
			p[3] = 0
		}
	}
	return dst
}
