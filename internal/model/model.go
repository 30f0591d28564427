// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// SessionInfo describes a live editing session.
type SessionInfo struct {
	ID        string      `json:"id"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Format    string      `json:"format"`
	Revision  int         `json:"revision"`
	Steps     StringSlice `json:"steps"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// WatermarkRequest carries raw watermark parameters as they arrive from a form.
// Empty fields keep compositor defaults.
type WatermarkRequest struct {
	Position         string `form:"position"`
	X                string `form:"x"`
	Y                string `form:"y"`
	Opacity          string `form:"opacity"`
	RotateFlip       string `form:"rotate_flip"`
	Scale            string `form:"scale"`
	MarginLeft       string `form:"margin_left"`
	MarginTop        string `form:"margin_top"`
	MarginRight      string `form:"margin_right"`
	MarginBottom     string `form:"margin_bottom"`
	TransparentColor string `form:"transparent_color"`
	FontFamily       string `form:"font_family"`
	FontSize         string `form:"font_size"`
	FontStyle        string `form:"font_style"`
	FontColor        string `form:"font_color"`
	ResetFirst       bool   `form:"reset"`
}

type PreviewMode string

const (
	ModeNormal  PreviewMode = "normal"
	ModeZoom    PreviewMode = "zoom"
	ModeStretch PreviewMode = "stretch"
)

var PreviewModeMap = map[PreviewMode]bool{
	ModeNormal:  true,
	ModeZoom:    true,
	ModeStretch: true,
}

// MaxPreviewSide bounds both sides of a zoom or stretch preview box.
const MaxPreviewSide = 4096

type PreviewRequest struct {
	Format string      `form:"format"`
	Mode   PreviewMode `form:"mode"`
	Width  int         `form:"width"`
	Height int         `form:"height"`
}

//---------------------

type Render struct {
	UID         uuid.UUID   `json:"uid"`
	SessionID   string      `json:"session_id"`
	ResultKey   string      `json:"-"`
	ThumbKey    *string     `json:"-"`
	HasThumb    bool        `json:"has_thumbnail"`
	ContentType string      `json:"content_type"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Steps       StringSlice `json:"steps"`
	CreatedAt   *time.Time  `json:"created_at,omitempty"`
}

const EventRenderSaved = "render.saved"

// RenderEvent is published to Kafka after a render is stored.
type RenderEvent struct {
	Event       string    `json:"event"`
	RenderUID   uuid.UUID `json:"render_uid"`
	SessionID   string    `json:"session_id"`
	ResultKey   string    `json:"result_key"`
	ContentType string    `json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	CreatedAt   time.Time `json:"created_at"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// ------------------

var (
	ErrCommon500         error = errors.New("something went wrong. Try again later")          // 500
	ErrIncorrectQuery    error = errors.New("incorrect query parameters")                     // 400
	ErrIncorrectID       error = errors.New("incorrect UUID")                                 // 400
	ErrIncorrectParam    error = errors.New("incorrect watermark parameter")                  // 400
	ErrSessionNotFound   error = errors.New("session doesn't exist or has expired")           // 404
	ErrRenderNotFound    error = errors.New("specified render UUID doesn't exist")            // 404
	ErrThumbNotReady     error = errors.New("thumbnail is not generated yet")                 // 404
	ErrTooManySessions   error = errors.New("too many live sessions. Try again later")        // 429
	ErrTooLarge          error = errors.New("uploaded file is too large")                     // 413
	ErrEmptySource       error = errors.New("empty/incorrect source image provided")          // 400
	ErrEmptyWMark        error = errors.New("empty/incorrect watermark provided")             // 400
	ErrEmptyText         error = errors.New("watermark text is empty")                        // 400
	ErrDecodeFailure     error = errors.New("failed to decode image")                         // 400
	ErrUnsupportedFormat error = errors.New("unsupported image format")                       // 400
	ErrIncorrectMode     error = errors.New("incorrect preview mode or preview box provided") // 400
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	BMP  = "image/bmp"
	TIFF = "image/tiff"
	WEBP = "image/webp"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
	BMP:  ".bmp",
	TIFF: ".tiff",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	GIF:  true,
	BMP:  true,
	TIFF: true,
	WEBP: true,
}

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.PNG:  PNG,
	imaging.GIF:  GIF,
	imaging.BMP:  BMP,
	imaging.TIFF: TIFF,
}

//--------------------

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("invalid type for StringSlice")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to []StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 || s == nil {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal []StringSlice to JSONB: %w", err)
	}

	return res, nil
}
