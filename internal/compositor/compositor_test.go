package compositor

import (
	"crypto/sha256"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	gray   = color.NRGBA{R: 120, G: 120, B: 120, A: 255}
	red    = color.NRGBA{R: 255, A: 255}
	blue   = color.NRGBA{B: 255, A: 255}
	purple = color.NRGBA{R: 255, B: 255, A: 255}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func pixHash(img *image.NRGBA) [32]byte {
	return sha256.Sum256(img.Pix)
}

func cfgWith(mod func(*Config)) Config {
	cfg := DefaultConfig()
	mod(&cfg)
	return cfg
}

func newCompositor(t *testing.T, w, h int) *Compositor {
	t.Helper()

	c, err := New(solid(w, h, gray))
	require.NoError(t, err)
	return c
}

func TestAnchor(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
		want image.Point
	}{
		{"absolute", Absolute, image.Pt(5, 7)},
		{"top left", TopLeft, image.Pt(0, 0)},
		{"top right", TopRight, image.Pt(80, 0)},
		{"top middle", TopMiddle, image.Pt(40, 0)},
		{"bottom left", BottomLeft, image.Pt(0, 90)},
		{"bottom right", BottomRight, image.Pt(80, 90)},
		{"bottom middle", BottomMiddle, image.Pt(40, 90)},
		{"middle left", MiddleLeft, image.Pt(0, 45)},
		{"middle right", MiddleRight, image.Pt(80, 45)},
		{"center", Center, image.Pt(40, 45)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := cfgWith(func(c *Config) {
				c.Position = tt.pos
				c.X, c.Y = 5, 7
			})
			require.Equal(t, tt.want, Anchor(100, 100, 20, 10, cfg))
		})
	}
}

func TestAnchor_LargerWatermarkTruncatesTowardZero(t *testing.T) {
	cfg := cfgWith(func(c *Config) { c.Position = Center })

	// (10-21)/2 and (10-13)/2 truncate to -5 and -1
	require.Equal(t, image.Pt(-5, -1), Anchor(10, 10, 21, 13, cfg))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		src     image.Image
		wantErr bool
	}{
		{"OK", solid(4, 3, gray), false},
		{"nil source", nil, true},
		{"empty source", image.NewNRGBA(image.Rect(0, 0, 0, 5)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.src)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidArgument)
				require.Nil(t, c)
				return
			}
			require.NoError(t, err)
			require.Equal(t, image.Rect(0, 0, 4, 3), c.Bounds())
		})
	}
}

func TestNew_IndependentStorage(t *testing.T) {
	src := solid(3, 3, gray)
	c, err := New(src)
	require.NoError(t, err)

	src.SetNRGBA(0, 0, red)
	require.Equal(t, gray, c.Original().NRGBAAt(0, 0))
	require.Equal(t, gray, c.Image().NRGBAAt(0, 0))

	c.Image().SetNRGBA(1, 1, blue)
	require.Equal(t, gray, c.Original().NRGBAAt(1, 1))
}

func TestApplyImage_InvalidArgumentLeavesWorkingUntouched(t *testing.T) {
	tests := []struct {
		name string
		wm   image.Image
		cfg  Config
	}{
		{"negative opacity", solid(2, 2, red), cfgWith(func(c *Config) { c.Opacity = -0.01 })},
		{"opacity above one", solid(2, 2, red), cfgWith(func(c *Config) { c.Opacity = 1.01 })},
		{"NaN opacity", solid(2, 2, red), cfgWith(func(c *Config) { c.Opacity = math.NaN() })},
		{"zero scale", solid(2, 2, red), cfgWith(func(c *Config) { c.ScaleRatio = 0 })},
		{"negative scale", solid(2, 2, red), cfgWith(func(c *Config) { c.ScaleRatio = -2 })},
		{"infinite scale", solid(2, 2, red), cfgWith(func(c *Config) { c.ScaleRatio = math.Inf(1) })},
		{"huge scale", solid(2, 2, red), cfgWith(func(c *Config) { c.ScaleRatio = 1e9 })},
		{"negative margin", solid(2, 2, red), cfgWith(func(c *Config) { c.Margin.Right = -1 })},
		{"overflowing margin", solid(10, 10, red), cfgWith(func(c *Config) { c.Margin.Left = math.MaxInt })},
		{"margins over the side limit together", solid(10, 10, red), cfgWith(func(c *Config) { c.Margin = Margin{Left: maxSide, Right: maxSide} })},
		{"unknown position", solid(2, 2, red), cfgWith(func(c *Config) { c.Position = Position(42) })},
		{"unknown rotate flip", solid(2, 2, red), cfgWith(func(c *Config) { c.RotateFlip = RotateFlip(-1) })},
		{"nil watermark", nil, DefaultConfig()},
		{"empty watermark", image.NewNRGBA(image.Rect(0, 0, 3, 0)), DefaultConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCompositor(t, 10, 10)
			before := pixHash(c.Image())

			err := c.ApplyImage(tt.wm, tt.cfg)
			require.ErrorIs(t, err, ErrInvalidArgument)
			require.Equal(t, before, pixHash(c.Image()))
		})
	}
}

func TestApplyImage_OnlyDestinationRectangleChanges(t *testing.T) {
	c := newCompositor(t, 100, 100)
	before := imageCopy(c.Image())

	cfg := cfgWith(func(c *Config) {
		c.Position = Center
		c.Opacity = 0.5
	})
	require.NoError(t, c.ApplyImage(solid(20, 10, red), cfg))

	rect := image.Rect(40, 45, 60, 55)
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			got := c.Image().NRGBAAt(x, y)
			if image.Pt(x, y).In(rect) {
				require.Equal(t, color.NRGBA{R: 188, G: 60, B: 60, A: 255}, got, "inside at %d,%d", x, y)
				continue
			}
			require.Equal(t, before.NRGBAAt(x, y), got, "outside at %d,%d", x, y)
		}
	}
}

func TestApplyImage_OpacityExtremes(t *testing.T) {
	t.Run("zero opacity is a no-op", func(t *testing.T) {
		c := newCompositor(t, 30, 30)
		before := pixHash(c.Image())

		cfg := cfgWith(func(c *Config) {
			c.Position = Center
			c.Opacity = 0
		})
		require.NoError(t, c.ApplyImage(solid(10, 10, red), cfg))
		require.Equal(t, before, pixHash(c.Image()))
	})

	t.Run("full opacity replaces destination", func(t *testing.T) {
		c := newCompositor(t, 30, 30)

		cfg := cfgWith(func(c *Config) { c.Position = BottomRight })
		require.NoError(t, c.ApplyImage(solid(10, 10, blue), cfg))

		for y := 20; y < 30; y++ {
			for x := 20; x < 30; x++ {
				require.Equal(t, blue, c.Image().NRGBAAt(x, y))
			}
		}
		require.Equal(t, gray, c.Image().NRGBAAt(19, 19))
	})
}

func TestApplyImage_Clipping(t *testing.T) {
	t.Run("fully outside succeeds unchanged", func(t *testing.T) {
		for _, at := range []image.Point{{200, 0}, {0, 200}, {-20, 3}, {3, -10}} {
			c := newCompositor(t, 50, 50)
			before := pixHash(c.Image())

			cfg := cfgWith(func(c *Config) { c.X, c.Y = at.X, at.Y })
			require.NoError(t, c.ApplyImage(solid(20, 10, red), cfg))
			require.Equal(t, before, pixHash(c.Image()), "at %v", at)
		}
	})

	t.Run("partially outside is clipped", func(t *testing.T) {
		c := newCompositor(t, 50, 50)

		cfg := cfgWith(func(c *Config) { c.X, c.Y = -5, -5 })
		require.NoError(t, c.ApplyImage(solid(20, 10, red), cfg))

		require.Equal(t, red, c.Image().NRGBAAt(0, 0))
		require.Equal(t, red, c.Image().NRGBAAt(14, 4))
		require.Equal(t, gray, c.Image().NRGBAAt(15, 4))
		require.Equal(t, gray, c.Image().NRGBAAt(14, 5))
	})

	t.Run("watermark larger than image", func(t *testing.T) {
		c := newCompositor(t, 8, 8)

		cfg := cfgWith(func(c *Config) { c.Position = Center })
		require.NoError(t, c.ApplyImage(solid(40, 40, blue), cfg))
		require.Equal(t, pixHash(solid(8, 8, blue)), pixHash(c.Image()))
	})
}

func TestApplyImage_ColorKey(t *testing.T) {
	c := newCompositor(t, 4, 1)

	wm := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	wm.SetNRGBA(0, 0, purple)
	wm.SetNRGBA(1, 0, blue)

	key := color.NRGBA{R: 255, B: 255}
	cfg := cfgWith(func(c *Config) { c.TransparentColor = &key })
	require.NoError(t, c.ApplyImage(wm, cfg))

	require.Equal(t, gray, c.Image().NRGBAAt(0, 0))
	require.Equal(t, blue, c.Image().NRGBAAt(1, 0))
	require.Equal(t, gray, c.Image().NRGBAAt(2, 0))
}

func TestApplyImage_ScaleMarginRotate(t *testing.T) {
	c := newCompositor(t, 40, 40)

	cfg := cfgWith(func(c *Config) {
		c.ScaleRatio = 2
		c.Margin = Margin{Left: 1, Top: 2, Right: 3, Bottom: 4}
		c.RotateFlip = Rotate90FlipNone
		c.Position = TopLeft
	})
	require.NoError(t, c.ApplyImage(solid(5, 3, red), cfg))

	// 10x6 scaled, 14x12 padded, 12x14 after a clockwise quarter turn:
	// the bottom margin ends up on the left and the left margin on top.
	require.Equal(t, gray, c.Image().NRGBAAt(3, 5))
	require.Equal(t, gray, c.Image().NRGBAAt(4, 0))
	require.Equal(t, red, c.Image().NRGBAAt(4, 1))
	require.Equal(t, red, c.Image().NRGBAAt(9, 10))
	require.Equal(t, gray, c.Image().NRGBAAt(9, 11))
	require.Equal(t, gray, c.Image().NRGBAAt(10, 3))
}

func TestReset(t *testing.T) {
	c := newCompositor(t, 30, 20)
	original := pixHash(c.Original())

	require.NoError(t, c.ApplyImage(solid(5, 5, red), DefaultConfig()))
	require.NoError(t, c.ApplyImage(solid(5, 5, blue), cfgWith(func(c *Config) { c.Position = Center })))
	require.NoError(t, c.ApplyText("wm", cfgWith(func(c *Config) { c.Position = BottomRight })))
	require.NotEqual(t, original, pixHash(c.Image()))

	c.Reset()
	require.Equal(t, original, pixHash(c.Image()))
	require.Equal(t, original, pixHash(c.Original()))

	c.Reset()
	require.Equal(t, original, pixHash(c.Image()))

	c.Image().SetNRGBA(0, 0, red)
	require.Equal(t, original, pixHash(c.Original()))
}

func TestApplyText(t *testing.T) {
	t.Run("empty text rejected", func(t *testing.T) {
		c := newCompositor(t, 50, 50)
		before := pixHash(c.Image())

		err := c.ApplyText("", DefaultConfig())
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.Equal(t, before, pixHash(c.Image()))
	})

	t.Run("invalid config rejected before rendering", func(t *testing.T) {
		c := newCompositor(t, 50, 50)
		before := pixHash(c.Image())

		err := c.ApplyText("hello", cfgWith(func(c *Config) { c.Opacity = 2 }))
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.Equal(t, before, pixHash(c.Image()))
	})

	t.Run("renders inside anchored box", func(t *testing.T) {
		c := newCompositor(t, 200, 100)
		before := imageCopy(c.Image())

		cfg := cfgWith(func(c *Config) {
			c.Position = Center
			c.Font.Size = 20
			c.FontColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		})
		mark, err := RenderText("Hello", cfg.Font, cfg.FontColor)
		require.NoError(t, err)
		at := Anchor(200, 100, mark.Bounds().Dx(), mark.Bounds().Dy(), cfg)
		rect := image.Rectangle{Min: at, Max: at.Add(mark.Bounds().Size())}

		require.NoError(t, c.ApplyText("Hello", cfg))

		changed := 0
		for y := 0; y < 100; y++ {
			for x := 0; x < 200; x++ {
				if c.Image().NRGBAAt(x, y) == before.NRGBAAt(x, y) {
					continue
				}
				require.True(t, image.Pt(x, y).In(rect), "pixel %d,%d outside %v", x, y, rect)
				changed++
			}
		}
		require.Positive(t, changed)
	})
}

func imageCopy(img *image.NRGBA) *image.NRGBA {
	cp := image.NewNRGBA(img.Rect)
	copy(cp.Pix, img.Pix)
	return cp
}
