package compositor

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// FontStyle selects a face within a family.
type FontStyle int

const (
	Regular FontStyle = iota
	Bold
	Italic
	BoldItalic
)

var fontStyleNames = [...]string{"regular", "bold", "italic", "bold-italic"}

func (s FontStyle) String() string {
	if s >= Regular && s <= BoldItalic {
		return fontStyleNames[s]
	}
	return fmt.Sprintf("fontstyle(%d)", int(s))
}

// ParseFontStyle accepts "regular", "bold", "italic" and "bold-italic".
func ParseFontStyle(s string) (FontStyle, error) {
	key := normalizeName(s)
	for i, name := range fontStyleNames {
		if normalizeName(name) == key {
			return FontStyle(i), nil
		}
	}
	if key == "" || key == "normal" {
		return Regular, nil
	}
	return Regular, fmt.Errorf("%w: unknown font style %q", ErrInvalidArgument, s)
}

// Font describes how text watermarks are rendered. Size is in points.
type Font struct {
	Family string
	Size   float64
	Style  FontStyle
	DPI    float64
}

const (
	SansSerif = "sans-serif"
	Monospace = "monospace"
)

// DefaultFont is 10pt regular sans-serif at 96 DPI.
func DefaultFont() Font {
	return Font{Family: SansSerif, Size: 10, Style: Regular, DPI: 96}
}

var builtinFamilies = map[string][4][]byte{
	"sansserif": {goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF},
	"go":        {goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF},
	"monospace": {gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF},
	"gomono":    {gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF},
}

// parsed fonts keyed by "family/style"
var fontCache sync.Map

// RegisterFont makes a TrueType font available under name for every style.
func RegisterFont(name string, ttf []byte) error {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("%w: font %q: %v", ErrInvalidArgument, name, err)
	}
	for s := Regular; s <= BoldItalic; s++ {
		fontCache.Store(fontKey(name, s), f)
	}
	return nil
}

// LoadFontFile reads a .ttf file and registers it under its path, so the path
// itself can be used as Font.Family.
func LoadFontFile(path string) error {
	ttf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font file: %w", err)
	}
	return RegisterFont(path, ttf)
}

func fontKey(family string, style FontStyle) string {
	return normalizeName(family) + "/" + style.String()
}

func lookupFont(family string, style FontStyle) (*truetype.Font, error) {
	if family == "" {
		family = SansSerif
	}
	key := fontKey(family, style)
	if f, ok := fontCache.Load(key); ok {
		return f.(*truetype.Font), nil
	}

	faces, ok := builtinFamilies[normalizeName(family)]
	if !ok {
		return nil, fmt.Errorf("%w: font family %q is not registered", ErrInvalidArgument, family)
	}
	f, err := truetype.Parse(faces[style])
	if err != nil {
		return nil, fmt.Errorf("parse built-in font %q: %w", family, err)
	}
	fontCache.Store(key, f)
	return f, nil
}

func (f Font) face() (font.Face, error) {
	if !(f.Size > 0) {
		return nil, fmt.Errorf("%w: font size %v must be positive", ErrInvalidArgument, f.Size)
	}
	if f.Style < Regular || f.Style > BoldItalic {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, f.Style)
	}
	dpi := f.DPI
	if dpi <= 0 {
		dpi = 96
	}
	ttf, err := lookupFont(f.Family, f.Style)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(ttf, &truetype.Options{
		Size:    f.Size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	}), nil
}

// RenderText draws text on a transparent canvas sized to its measured box:
// the union of every line's ink bounds and advance, by the stacked line heights.
func RenderText(text string, f Font, c color.NRGBA) (*image.NRGBA, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrInvalidArgument)
	}
	face, err := f.face()
	if err != nil {
		return nil, err
	}
	defer face.Close()

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	m := face.Metrics()

	// левый выступ (отрицательный bearing) сдвигает все строки вправо
	var left, right int
	for _, line := range lines {
		bounds, advance := font.BoundString(face, line)
		if !bounds.Empty() {
			left = min(left, bounds.Min.X.Floor())
			right = max(right, bounds.Max.X.Ceil())
		}
		right = max(right, advance.Ceil())
	}
	height := m.Height*fixed.Int26_6(len(lines)-1) + m.Ascent + m.Descent

	w, h := right-left, height.Ceil()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: text %q measures %dx%d", ErrInvalidArgument, text, w, h)
	}
	if w > maxSide || h > maxSide {
		return nil, fmt.Errorf("%w: text measures %dx%d, over %dpx", ErrInvalidArgument, w, h, maxSide)
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(c),
		Face: face,
	}
	for i, line := range lines {
		d.Dot = fixed.Point26_6{X: fixed.I(-left), Y: m.Ascent + m.Height*fixed.Int26_6(i)}
		d.DrawString(line)
	}
	return canvas, nil
}
