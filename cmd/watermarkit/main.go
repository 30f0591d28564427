// Package main (in watermarkit-subfolder) is a one-shot CLI: open an image, apply one
// watermark, save the result
package main

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/UnendingLoop/WatermarkIt/internal/compositor"
	"github.com/UnendingLoop/WatermarkIt/internal/imageproc"
	"github.com/alexflint/go-arg"
	"github.com/wb-go/wbf/zlog"
)

// Args defines the command line arguments
type Args struct {
	Source    string `arg:"-s,--source,required" help:"path to source image"`
	Out       string `arg:"-o,--out,required" help:"path to output image, its extension selects the format"`
	Watermark string `arg:"-w,--watermark" help:"path to watermark image"`
	Text      string `arg:"-t,--text" help:"text to render as watermark"`

	Position     string  `arg:"-p,--position" default:"absolute" help:"absolute, top-left, top-middle, top-right, middle-left, center, middle-right, bottom-left, bottom-middle, bottom-right"`
	X            int     `arg:"-x" help:"left offset for absolute position"`
	Y            int     `arg:"-y" help:"top offset for absolute position"`
	Opacity      float64 `arg:"--opacity" default:"1" help:"watermark opacity in [0,1]"`
	RotateFlip   string  `arg:"--rotate-flip" default:"RotateNoneFlipNone" help:"e.g. Rotate90FlipNone, Rotate180FlipX"`
	Scale        float64 `arg:"--scale" default:"1" help:"watermark scale ratio"`
	MarginLeft   int     `arg:"--margin-left" help:"transparent padding left of the watermark"`
	MarginTop    int     `arg:"--margin-top" help:"transparent padding above the watermark"`
	MarginRight  int     `arg:"--margin-right" help:"transparent padding right of the watermark"`
	MarginBottom int     `arg:"--margin-bottom" help:"transparent padding below the watermark"`
	Transparent  string  `arg:"--transparent-color" help:"hex colour keyed out of the watermark image"`

	FontFamily string  `arg:"--font-family" default:"sans-serif" help:"sans-serif, monospace or a path to a .ttf file"`
	FontSize   float64 `arg:"--font-size" default:"10" help:"font size in points"`
	FontStyle  string  `arg:"--font-style" default:"regular" help:"regular, bold, italic, bold-italic"`
	FontColor  string  `arg:"--font-color" default:"#000000" help:"hex text colour, alpha allowed"`

	Quality  int    `arg:"-q,--quality" default:"90" help:"JPEG quality"`
	LogLevel string `arg:"-l,--log-level" default:"info" help:"log level (debug, info, warn, error)"`
}

func (Args) Description() string {
	return "watermarkit applies one image or text watermark to a picture"
}

func main() {
	var args Args
	p := arg.MustParse(&args)

	zlog.InitConsole()
	if err := zlog.SetLevel(args.LogLevel); err != nil {
		p.Fail(fmt.Sprintf("bad log level: %v", err))
	}

	if err := run(args); err != nil {
		zlog.Logger.Error().Err(err).Msg("watermarkit failed")
		os.Exit(1)
	}
}

func run(args Args) error {
	start := time.Now()
	if (args.Watermark == "") == (args.Text == "") {
		return errors.New("exactly one of --watermark and --text is required")
	}

	cfg, err := args.config()
	if err != nil {
		return err
	}

	src, err := imageproc.Open(args.Source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	comp, err := compositor.New(src)
	if err != nil {
		return err
	}

	if args.Text != "" {
		err = comp.ApplyText(args.Text, cfg)
	} else {
		var wm image.Image
		if wm, err = imageproc.Open(args.Watermark); err != nil {
			return fmt.Errorf("open watermark: %w", err)
		}
		err = comp.ApplyImage(wm, cfg)
	}
	if err != nil {
		return err
	}

	if err := imageproc.Save(comp.Image(), args.Out, args.Quality); err != nil {
		return fmt.Errorf("save result: %w", err)
	}

	zlog.Logger.Info().
		Str("source", args.Source).
		Str("out", args.Out).
		Dur("took", time.Since(start)).
		Msg("Watermark applied")
	return nil
}

func (a Args) config() (compositor.Config, error) {
	cfg := compositor.DefaultConfig()

	var err error
	if cfg.Position, err = compositor.ParsePosition(a.Position); err != nil {
		return cfg, err
	}
	if cfg.RotateFlip, err = compositor.ParseRotateFlip(a.RotateFlip); err != nil {
		return cfg, err
	}
	if cfg.Font.Style, err = compositor.ParseFontStyle(a.FontStyle); err != nil {
		return cfg, err
	}
	if cfg.FontColor, err = compositor.ParseColor(a.FontColor); err != nil {
		return cfg, err
	}
	if a.Transparent != "" {
		c, err := compositor.ParseColor(a.Transparent)
		if err != nil {
			return cfg, err
		}
		cfg.TransparentColor = &c
	}

	cfg.X, cfg.Y = a.X, a.Y
	cfg.Opacity = a.Opacity
	cfg.ScaleRatio = a.Scale
	cfg.Margin = compositor.Margin{Left: a.MarginLeft, Top: a.MarginTop, Right: a.MarginRight, Bottom: a.MarginBottom}
	cfg.Font.Family = a.FontFamily
	cfg.Font.Size = a.FontSize

	// семейство, заданное путем к файлу, регистрируем под этим путем
	if strings.HasSuffix(strings.ToLower(a.FontFamily), ".ttf") {
		if err := compositor.LoadFontFile(a.FontFamily); err != nil {
			return cfg, err
		}
	}

	return cfg, cfg.Validate()
}
