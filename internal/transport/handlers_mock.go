package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/gin-gonic/gin"
)

type mockEditorService struct {
	openFn          func(ctx context.Context, src io.Reader) (*model.SessionInfo, error)
	infoFn          func(ctx context.Context, id string) (*model.SessionInfo, error)
	applyImageFn    func(ctx context.Context, id string, wm io.Reader, req *model.WatermarkRequest) (*model.SessionInfo, error)
	applyTextFn     func(ctx context.Context, id string, text string, req *model.WatermarkRequest) (*model.SessionInfo, error)
	resetFn         func(ctx context.Context, id string) (*model.SessionInfo, error)
	previewFn       func(ctx context.Context, id string, req *model.PreviewRequest) (io.Reader, int64, string, error)
	saveFn          func(ctx context.Context, id string, format string) (*model.Render, error)
	closeFn         func(ctx context.Context, id string) error
	getRendersFn    func(ctx context.Context, req *model.ListRequest) ([]model.Render, error)
	loadRenderFn    func(ctx context.Context, id string) (io.ReadCloser, string, error)
	loadThumbnailFn func(ctx context.Context, id string) (io.ReadCloser, string, error)
	deleteRenderFn  func(ctx context.Context, id string) error
}

func (m *mockEditorService) Open(ctx context.Context, src io.Reader) (*model.SessionInfo, error) {
	return m.openFn(ctx, src)
}

func (m *mockEditorService) Info(ctx context.Context, id string) (*model.SessionInfo, error) {
	return m.infoFn(ctx, id)
}

func (m *mockEditorService) ApplyImage(ctx context.Context, id string, wm io.Reader, req *model.WatermarkRequest) (*model.SessionInfo, error) {
	return m.applyImageFn(ctx, id, wm, req)
}

func (m *mockEditorService) ApplyText(ctx context.Context, id string, text string, req *model.WatermarkRequest) (*model.SessionInfo, error) {
	return m.applyTextFn(ctx, id, text, req)
}

func (m *mockEditorService) Reset(ctx context.Context, id string) (*model.SessionInfo, error) {
	return m.resetFn(ctx, id)
}

func (m *mockEditorService) Preview(ctx context.Context, id string, req *model.PreviewRequest) (io.Reader, int64, string, error) {
	return m.previewFn(ctx, id, req)
}

func (m *mockEditorService) Save(ctx context.Context, id string, format string) (*model.Render, error) {
	return m.saveFn(ctx, id, format)
}

func (m *mockEditorService) Close(ctx context.Context, id string) error {
	return m.closeFn(ctx, id)
}

func (m *mockEditorService) GetRenders(ctx context.Context, req *model.ListRequest) ([]model.Render, error) {
	return m.getRendersFn(ctx, req)
}

func (m *mockEditorService) LoadRender(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return m.loadRenderFn(ctx, id)
}

func (m *mockEditorService) LoadThumbnail(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return m.loadThumbnailFn(ctx, id)
}

func (m *mockEditorService) DeleteRender(ctx context.Context, id string) error {
	return m.deleteRenderFn(ctx, id)
}

func init() {
	gin.SetMode(gin.TestMode)
}
