package compositor

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Position is the anchor policy used to place a watermark on the working image.
type Position int

const (
	Absolute Position = iota
	TopLeft
	TopRight
	TopMiddle
	BottomLeft
	BottomRight
	BottomMiddle
	MiddleLeft
	MiddleRight
	Center
)

var positionNames = map[Position]string{
	Absolute:     "absolute",
	TopLeft:      "top-left",
	TopRight:     "top-right",
	TopMiddle:    "top-middle",
	BottomLeft:   "bottom-left",
	BottomRight:  "bottom-right",
	BottomMiddle: "bottom-middle",
	MiddleLeft:   "middle-left",
	MiddleRight:  "middle-right",
	Center:       "center",
}

func (p Position) String() string {
	if s, ok := positionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("position(%d)", int(p))
}

// ParsePosition accepts "bottom-right", "bottom_right", "BottomRight" and "bottomright".
func ParsePosition(s string) (Position, error) {
	key := normalizeName(s)
	for p, name := range positionNames {
		if normalizeName(name) == key {
			return p, nil
		}
	}
	if key == "centre" || key == "middle" {
		return Center, nil
	}
	return Absolute, fmt.Errorf("%w: unknown position %q", ErrInvalidArgument, s)
}

// RotateFlip is a clockwise rotation by a multiple of 90 degrees followed by an
// optional horizontal mirror. The eight values cover every rotate/flip combination.
type RotateFlip int

const (
	RotateNoneFlipNone RotateFlip = iota
	Rotate90FlipNone
	Rotate180FlipNone
	Rotate270FlipNone
	RotateNoneFlipX
	Rotate90FlipX
	Rotate180FlipX
	Rotate270FlipX
)

// Vertical-mirror spellings of the same eight transforms.
const (
	RotateNoneFlipY  = Rotate180FlipX
	Rotate90FlipY    = Rotate270FlipX
	Rotate180FlipY   = RotateNoneFlipX
	Rotate270FlipY   = Rotate90FlipX
	RotateNoneFlipXY = Rotate180FlipNone
	Rotate90FlipXY   = Rotate270FlipNone
	Rotate180FlipXY  = RotateNoneFlipNone
	Rotate270FlipXY  = Rotate90FlipNone
)

var rotateFlipNames = map[string]RotateFlip{
	"rotatenoneflipnone": RotateNoneFlipNone,
	"rotate90flipnone":   Rotate90FlipNone,
	"rotate180flipnone":  Rotate180FlipNone,
	"rotate270flipnone":  Rotate270FlipNone,
	"rotatenoneflipx":    RotateNoneFlipX,
	"rotate90flipx":      Rotate90FlipX,
	"rotate180flipx":     Rotate180FlipX,
	"rotate270flipx":     Rotate270FlipX,
	"rotatenoneflipy":    RotateNoneFlipY,
	"rotate90flipy":      Rotate90FlipY,
	"rotate180flipy":     Rotate180FlipY,
	"rotate270flipy":     Rotate270FlipY,
	"rotatenoneflipxy":   RotateNoneFlipXY,
	"rotate90flipxy":     Rotate90FlipXY,
	"rotate180flipxy":    Rotate180FlipXY,
	"rotate270flipxy":    Rotate270FlipXY,
	"none":               RotateNoneFlipNone,
}

var rotateFlipStrings = [...]string{
	"RotateNoneFlipNone",
	"Rotate90FlipNone",
	"Rotate180FlipNone",
	"Rotate270FlipNone",
	"RotateNoneFlipX",
	"Rotate90FlipX",
	"Rotate180FlipX",
	"Rotate270FlipX",
}

func (r RotateFlip) String() string {
	if r.valid() {
		return rotateFlipStrings[r]
	}
	return fmt.Sprintf("rotateflip(%d)", int(r))
}

func (r RotateFlip) valid() bool {
	return r >= RotateNoneFlipNone && r <= Rotate270FlipX
}

// ParseRotateFlip accepts the names above in any case, with or without separators.
func ParseRotateFlip(s string) (RotateFlip, error) {
	if r, ok := rotateFlipNames[normalizeName(s)]; ok {
		return r, nil
	}
	return RotateNoneFlipNone, fmt.Errorf("%w: unknown rotate/flip %q", ErrInvalidArgument, s)
}

// Margin is transparent padding added around the scaled watermark.
type Margin struct {
	Left, Top, Right, Bottom int
}

// Uniform returns a margin with the same padding on every side.
func Uniform(px int) Margin {
	return Margin{Left: px, Top: px, Right: px, Bottom: px}
}

// Config describes one watermark application.
type Config struct {
	Position Position
	// X and Y are used only with Absolute.
	X, Y       int
	Opacity    float64
	RotateFlip RotateFlip
	ScaleRatio float64
	Margin     Margin
	// TransparentColor, when set, keys out watermark pixels with exactly this RGB.
	TransparentColor *color.NRGBA
	Font             Font
	FontColor        color.NRGBA
}

// DefaultConfig returns an opaque, unscaled, unrotated watermark at (0,0)
// with 10pt black sans-serif text.
func DefaultConfig() Config {
	return Config{
		Position:   Absolute,
		Opacity:    1.0,
		RotateFlip: RotateNoneFlipNone,
		ScaleRatio: 1.0,
		Font:       DefaultFont(),
		FontColor:  color.NRGBA{A: 255},
	}
}

// Validate reports the first invalid field wrapped in ErrInvalidArgument.
func (c Config) Validate() error {
	if !(c.Opacity >= 0 && c.Opacity <= 1) {
		return fmt.Errorf("%w: opacity %v is outside [0,1]", ErrInvalidArgument, c.Opacity)
	}
	if !(c.ScaleRatio > 0) || math.IsInf(c.ScaleRatio, 0) {
		return fmt.Errorf("%w: scale ratio %v must be a positive number", ErrInvalidArgument, c.ScaleRatio)
	}
	m := c.Margin
	if m.Left < 0 || m.Top < 0 || m.Right < 0 || m.Bottom < 0 {
		return fmt.Errorf("%w: margin %+v has a negative side", ErrInvalidArgument, m)
	}
	if m.Left > maxSide || m.Top > maxSide || m.Right > maxSide || m.Bottom > maxSide {
		return fmt.Errorf("%w: margin %+v has a side over %dpx", ErrInvalidArgument, m, maxSide)
	}
	if _, ok := positionNames[c.Position]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, c.Position)
	}
	if !c.RotateFlip.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, c.RotateFlip)
	}
	return nil
}

// ParseColor accepts RGB, RRGGBB and RRGGBBAA hex with an optional leading '#'.
func ParseColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	b, err := hex.DecodeString(h)
	if err != nil || len(b) != 4 {
		return color.NRGBA{}, fmt.Errorf("%w: %q is not a hex colour", ErrInvalidArgument, s)
	}
	return color.NRGBA{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}
