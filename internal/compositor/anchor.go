package compositor

import "image"

// Anchor returns the top-left corner of a w×h watermark on a W×H image.
// The result may be negative or outside the image; Blit clips it.
func Anchor(W, H, w, h int, cfg Config) image.Point {
	right := W - w
	bottom := H - h
	midX := right / 2
	midY := bottom / 2

	switch cfg.Position {
	case Absolute:
		return image.Pt(cfg.X, cfg.Y)
	case TopLeft:
		return image.Pt(0, 0)
	case TopRight:
		return image.Pt(right, 0)
	case TopMiddle:
		return image.Pt(midX, 0)
	case BottomLeft:
		return image.Pt(0, bottom)
	case BottomRight:
		return image.Pt(right, bottom)
	case BottomMiddle:
		return image.Pt(midX, bottom)
	case MiddleLeft:
		return image.Pt(0, midY)
	case MiddleRight:
		return image.Pt(right, midY)
	case Center:
		return image.Pt(midX, midY)
	default:
		return image.Pt(0, 0)
	}
}
