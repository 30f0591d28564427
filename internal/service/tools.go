package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/UnendingLoop/WatermarkIt/internal/compositor"
	"github.com/UnendingLoop/WatermarkIt/internal/model"
)

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валидируем поле типа сортировки
	req.Sort = strings.TrimSpace(strings.ToLower(req.Sort))
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = "render_uid"
	default:
		req.Sort = "created_at" // по дефолту ставим сортировку по времени создания
	}

	// Валидируем порядок
	req.Order = strings.TrimSpace(strings.ToLower(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

// buildConfig overlays the non-empty request fields on compositor.DefaultConfig.
func buildConfig(req *model.WatermarkRequest) (compositor.Config, error) {
	cfg := compositor.DefaultConfig()
	if req == nil {
		return cfg, nil
	}

	var err error
	if req.Position != "" {
		if cfg.Position, err = compositor.ParsePosition(req.Position); err != nil {
			return cfg, err
		}
	}
	if req.RotateFlip != "" {
		if cfg.RotateFlip, err = compositor.ParseRotateFlip(req.RotateFlip); err != nil {
			return cfg, err
		}
	}
	if req.FontStyle != "" {
		if cfg.Font.Style, err = compositor.ParseFontStyle(req.FontStyle); err != nil {
			return cfg, err
		}
	}
	if req.FontFamily != "" {
		cfg.Font.Family = req.FontFamily
	}

	ints := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"x", req.X, &cfg.X},
		{"y", req.Y, &cfg.Y},
		{"margin_left", req.MarginLeft, &cfg.Margin.Left},
		{"margin_top", req.MarginTop, &cfg.Margin.Top},
		{"margin_right", req.MarginRight, &cfg.Margin.Right},
		{"margin_bottom", req.MarginBottom, &cfg.Margin.Bottom},
	}
	for _, f := range ints {
		if err := parseInt(f.name, f.raw, f.dst); err != nil {
			return cfg, err
		}
	}

	floats := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"opacity", req.Opacity, &cfg.Opacity},
		{"scale", req.Scale, &cfg.ScaleRatio},
		{"font_size", req.FontSize, &cfg.Font.Size},
	}
	for _, f := range floats {
		if err := parseFloat(f.name, f.raw, f.dst); err != nil {
			return cfg, err
		}
	}

	if req.TransparentColor != "" {
		c, err := compositor.ParseColor(req.TransparentColor)
		if err != nil {
			return cfg, fmt.Errorf("%w: transparent_color: %v", model.ErrIncorrectParam, err)
		}
		cfg.TransparentColor = &c
	}
	if req.FontColor != "" {
		if cfg.FontColor, err = compositor.ParseColor(req.FontColor); err != nil {
			return cfg, fmt.Errorf("%w: font_color: %v", model.ErrIncorrectParam, err)
		}
	}

	return cfg, cfg.Validate()
}

func parseInt(name, raw string, dst *int) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", model.ErrIncorrectParam, name, raw)
	}
	*dst = v
	return nil
}

func parseFloat(name, raw string, dst *float64) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", model.ErrIncorrectParam, name, raw)
	}
	*dst = v
	return nil
}

// describeStep is what a session records for one applied watermark.
func describeStep(kind string, cfg compositor.Config, text string) string {
	var sb strings.Builder
	sb.WriteString(kind)
	if text != "" {
		fmt.Fprintf(&sb, " %q %s %gpt", text, cfg.Font.Family, cfg.Font.Size)
	}
	if cfg.Position == compositor.Absolute {
		fmt.Fprintf(&sb, " at %d,%d", cfg.X, cfg.Y)
	} else {
		fmt.Fprintf(&sb, " %s", cfg.Position)
	}
	fmt.Fprintf(&sb, " opacity=%g scale=%g %s", cfg.Opacity, cfg.ScaleRatio, cfg.RotateFlip)
	return sb.String()
}
