// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/UnendingLoop/WatermarkIt/internal/mwlogger"
	"github.com/wb-go/wbf/ginext"
)

type EditorHandler struct {
	service   EditorService
	metrics   http.Handler
	maxUpload int64
}

type EditorService interface {
	Open(ctx context.Context, src io.Reader) (*model.SessionInfo, error)
	Info(ctx context.Context, id string) (*model.SessionInfo, error)
	ApplyImage(ctx context.Context, id string, wm io.Reader, req *model.WatermarkRequest) (*model.SessionInfo, error)
	ApplyText(ctx context.Context, id string, text string, req *model.WatermarkRequest) (*model.SessionInfo, error)
	Reset(ctx context.Context, id string) (*model.SessionInfo, error)
	Preview(ctx context.Context, id string, req *model.PreviewRequest) (io.Reader, int64, string, error)
	Save(ctx context.Context, id string, format string) (*model.Render, error)
	Close(ctx context.Context, id string) error

	GetRenders(ctx context.Context, req *model.ListRequest) ([]model.Render, error) // получить список
	LoadRender(ctx context.Context, id string) (io.ReadCloser, string, error)       // прям скачать результат
	LoadThumbnail(ctx context.Context, id string) (io.ReadCloser, string, error)
	DeleteRender(ctx context.Context, id string) error // удалить как в базе, так и в minio
}

// NewEditorHandler wires svc to HTTP. Uploads larger than maxUpload bytes are rejected with 413;
// metrics may be nil.
func NewEditorHandler(svc EditorService, metrics http.Handler, maxUpload int64) *EditorHandler {
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}
	return &EditorHandler{
		service:   svc,
		metrics:   metrics,
		maxUpload: maxUpload,
	}
}

func (h EditorHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

func (h EditorHandler) Metrics(ctx *ginext.Context) {
	h.metrics.ServeHTTP(ctx.Writer, ctx.Request)
}

// SESSIONS

func (h EditorHandler) OpenSession(ctx *ginext.Context) {
	h.limitBody(ctx)

	// парсинг исходника
	imageFile, _, err := ctx.Request.FormFile("image")
	if err != nil {
		h.uploadError(ctx, err, "image is required")
		return
	}
	defer closeFileFlow(imageFile)

	res, err := h.service.Open(ctx.Request.Context(), imageFile)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h EditorHandler) SessionInfo(ctx *ginext.Context) {
	res, err := h.service.Info(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h EditorHandler) ApplyImage(ctx *ginext.Context) {
	h.limitBody(ctx)

	wmFile, _, err := ctx.Request.FormFile("watermark")
	if err != nil {
		h.uploadError(ctx, err, "watermark is required")
		return
	}
	defer closeFileFlow(wmFile)

	var req model.WatermarkRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse watermark parameters"})
		return
	}

	res, err := h.service.ApplyImage(ctx.Request.Context(), ctx.Param("id"), wmFile, &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h EditorHandler) ApplyText(ctx *ginext.Context) {
	h.limitBody(ctx)

	var req model.WatermarkRequest
	if err := ctx.ShouldBind(&req); err != nil {
		h.uploadError(ctx, err, "failed to parse watermark parameters")
		return
	}
	text := ctx.PostForm("text")
	if text == "" {
		ctx.JSON(400, map[string]string{"error": model.ErrEmptyText.Error()})
		return
	}

	res, err := h.service.ApplyText(ctx.Request.Context(), ctx.Param("id"), text, &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h EditorHandler) Reset(ctx *ginext.Context) {
	res, err := h.service.Reset(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h EditorHandler) Preview(ctx *ginext.Context) {
	id := ctx.Param("id")

	var req model.PreviewRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}
	// огромную рамку отсекаем до похода в сервис
	if req.Width > model.MaxPreviewSide || req.Height > model.MaxPreviewSide {
		ctx.JSON(400, map[string]string{"error": model.ErrIncorrectMode.Error()})
		return
	}

	res, size, cType, err := h.service.Preview(ctx.Request.Context(), id, &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Writer.Header().Set("Cache-Control", "no-store")
	ctx.DataFromReader(200, size, cType, res, nil)
}

func (h EditorHandler) Save(ctx *ginext.Context) {
	res, err := h.service.Save(ctx.Request.Context(), ctx.Param("id"), ctx.Query("format"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h EditorHandler) CloseSession(ctx *ginext.Context) {
	if err := h.service.Close(ctx.Request.Context(), ctx.Param("id")); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}

// RENDERS

func (h EditorHandler) GetRenders(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetRenders(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h EditorHandler) LoadRender(ctx *ginext.Context) {
	id := ctx.Param("id")
	res, cType, err := h.service.LoadRender(ctx.Request.Context(), id)
	h.stream(ctx, id, res, cType, err)
}

func (h EditorHandler) LoadThumbnail(ctx *ginext.Context) {
	id := ctx.Param("id")
	res, cType, err := h.service.LoadThumbnail(ctx.Request.Context(), id)
	h.stream(ctx, id, res, cType, err)
}

func (h EditorHandler) DeleteRender(ctx *ginext.Context) {
	if err := h.service.DeleteRender(ctx.Request.Context(), ctx.Param("id")); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}

func (h EditorHandler) stream(ctx *ginext.Context, id string, res io.ReadCloser, cType string, err error) {
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	defer closeFileFlow(res)

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to write response at byte %d for render %q", n, id))
	}
}

func (h EditorHandler) limitBody(ctx *ginext.Context) {
	if h.maxUpload > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxUpload)
	}
}

// uploadError answers 413 when the body limit was hit and 400 with msg otherwise.
func (h EditorHandler) uploadError(ctx *ginext.Context, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		ctx.JSON(413, map[string]string{"error": model.ErrTooLarge.Error()})
		return
	}
	if errors.Is(err, multipart.ErrMessageTooLarge) {
		ctx.JSON(413, map[string]string{"error": model.ErrTooLarge.Error()})
		return
	}
	ctx.JSON(400, map[string]string{"error": msg})
}
