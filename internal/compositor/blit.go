package compositor

import (
	"image"
	"math"
)

// Blit composites src over dst with its top-left corner at `at`, scaling source
// alpha by opacity. The part of src outside dst is clipped. Destination pixels
// under a fully transparent source pixel are left byte-for-byte untouched.
// It returns the destination rectangle that was actually visited.
func Blit(dst *image.NRGBA, src *image.NRGBA, at image.Point, opacity float64) image.Rectangle {
	sb := src.Bounds()
	paste := image.Rectangle{Min: at, Max: at.Add(sb.Size())}.Add(dst.Rect.Min)
	clip := paste.Intersect(dst.Rect)
	if clip.Empty() || opacity <= 0 {
		return image.Rectangle{}
	}

	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		di := dst.PixOffset(clip.Min.X, y)
		si := src.PixOffset(sb.Min.X+clip.Min.X-paste.Min.X, sb.Min.Y+y-paste.Min.Y)
		for x := clip.Min.X; x < clip.Max.X; x++ {
			s := src.Pix[si : si+4 : si+4]
			d := dst.Pix[di : di+4 : di+4]
			di += 4
			si += 4

			sa := opacity * float64(s[3]) / 255
			if sa == 0 {
				continue
			}
			da := float64(d[3]) / 255
			keep := da * (1 - sa)
			outA := sa + keep

			d[0] = channel((float64(s[0])*sa + float64(d[0])*keep) / outA)
			d[1] = channel((float64(s[1])*sa + float64(d[1])*keep) / outA)
			d[2] = channel((float64(s[2])*sa + float64(d[2])*keep) / outA)
			d[3] = channel(outA * 255)
		}
	}
	return clip
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
