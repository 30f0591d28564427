package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/UnendingLoop/WatermarkIt/internal/appconfig"
	"github.com/UnendingLoop/WatermarkIt/internal/compositor"
	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/UnendingLoop/WatermarkIt/internal/session"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
)

var (
	gray = color.NRGBA{R: 120, G: 120, B: 120, A: 255}
	red  = color.NRGBA{R: 255, A: 255}
)

func ptr[T any](v T) *T {
	return &v
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, c), imaging.PNG))
	return buf.Bytes()
}

func decode(t *testing.T, r io.Reader) *image.NRGBA {
	t.Helper()

	img, err := imaging.Decode(r)
	require.NoError(t, err)
	return imaging.Clone(img)
}

type deps struct {
	repo     *mockRepo
	storage  *mockStorage
	pub      *mockPublisher
	observer *mockObserver
}

func newTestService(t *testing.T, limit int, d deps) *EditorService {
	t.Helper()

	if d.repo == nil {
		d.repo = &mockRepo{}
	}
	if d.storage == nil {
		d.storage = &mockStorage{}
	}
	if d.pub == nil {
		d.pub = &mockPublisher{}
	}
	if d.observer == nil {
		d.observer = &mockObserver{}
	}
	return NewEditorService(
		appconfig.Settings{ResultPrefix: "renders/"},
		session.NewStore(time.Minute, limit, nil),
		d.repo, d.pub, d.storage, d.observer,
	)
}

func openGray(t *testing.T, svc *EditorService, w, h int) *model.SessionInfo {
	t.Helper()

	info, err := svc.Open(context.Background(), bytes.NewReader(pngBytes(t, w, h, gray)))
	require.NoError(t, err)
	return info
}

// OPEN - SUCCESS
func TestEditorService_Open_OK(t *testing.T) {
	svc := newTestService(t, 4, deps{})

	info := openGray(t, svc, 20, 10)
	require.NoError(t, uuid.Validate(info.ID))
	require.Equal(t, 20, info.Width)
	require.Equal(t, 10, info.Height)
	require.Equal(t, "PNG", info.Format)
	require.Zero(t, info.Revision)
	require.True(t, info.ExpiresAt.After(time.Now()))
}

// OPEN - FAIL
func TestEditorService_Open_Errors(t *testing.T) {
	svc := newTestService(t, 1, deps{})
	ctx := context.Background()

	_, err := svc.Open(ctx, strings.NewReader("not-an-image"))
	require.ErrorIs(t, err, model.ErrDecodeFailure)

	_, err = svc.Open(ctx, bytes.NewReader(nil))
	require.ErrorIs(t, err, model.ErrEmptySource)

	openGray(t, svc, 4, 4)
	_, err = svc.Open(ctx, bytes.NewReader(pngBytes(t, 4, 4, gray)))
	require.ErrorIs(t, err, model.ErrTooManySessions)
}

// UNKNOWN SESSION
func TestEditorService_SessionLookup(t *testing.T) {
	svc := newTestService(t, 4, deps{})
	ctx := context.Background()

	_, err := svc.Info(ctx, "bad-id")
	require.ErrorIs(t, err, model.ErrIncorrectID)

	_, err = svc.Info(ctx, uuid.NewString())
	require.ErrorIs(t, err, model.ErrSessionNotFound)

	_, err = svc.ApplyText(ctx, uuid.NewString(), "x", nil)
	require.ErrorIs(t, err, model.ErrSessionNotFound)
}

// APPLYIMAGE - SUCCESS
func TestEditorService_ApplyImage_OK(t *testing.T) {
	obs := &mockObserver{}
	svc := newTestService(t, 4, deps{observer: obs})
	ctx := context.Background()
	info := openGray(t, svc, 20, 10)

	res, err := svc.ApplyImage(ctx, info.ID, bytes.NewReader(pngBytes(t, 4, 4, red)), &model.WatermarkRequest{
		Position: "bottom-right",
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Revision)
	require.Len(t, res.Steps, 1)
	require.True(t, strings.HasPrefix(res.Steps[0], "image bottom-right"))
	require.Equal(t, []string{"image/ok"}, obs.seen())

	r, _, ctype, err := svc.Preview(ctx, info.ID, nil)
	require.NoError(t, err)
	require.Equal(t, model.PNG, ctype)

	img := decode(t, r)
	require.Equal(t, red, img.NRGBAAt(19, 9))
	require.Equal(t, red, img.NRGBAAt(16, 6))
	require.Equal(t, gray, img.NRGBAAt(15, 9))
	require.Equal(t, gray, img.NRGBAAt(0, 0))
}

// APPLYIMAGE - FAIL
func TestEditorService_ApplyImage_Rejected(t *testing.T) {
	obs := &mockObserver{}
	svc := newTestService(t, 4, deps{observer: obs})
	ctx := context.Background()
	info := openGray(t, svc, 20, 10)
	wm := pngBytes(t, 4, 4, red)

	tests := []struct {
		name    string
		wm      io.Reader
		req     *model.WatermarkRequest
		wantErr error
	}{
		{"opacity out of range", bytes.NewReader(wm), &model.WatermarkRequest{Opacity: "2"}, compositor.ErrInvalidArgument},
		{"not a number", bytes.NewReader(wm), &model.WatermarkRequest{X: "abc"}, model.ErrIncorrectParam},
		{"unknown position", bytes.NewReader(wm), &model.WatermarkRequest{Position: "upstairs"}, compositor.ErrInvalidArgument},
		{"bad colour", bytes.NewReader(wm), &model.WatermarkRequest{TransparentColor: "#zz0000"}, model.ErrIncorrectParam},
		{"broken watermark", strings.NewReader("broken"), nil, model.ErrEmptyWMark},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyImage(ctx, info.ID, tt.wm, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	after, err := svc.Info(ctx, info.ID)
	require.NoError(t, err)
	require.Zero(t, after.Revision)
	for _, o := range obs.seen() {
		require.Equal(t, "image/rejected", o)
	}
}

// APPLYTEXT
func TestEditorService_ApplyText(t *testing.T) {
	obs := &mockObserver{}
	svc := newTestService(t, 4, deps{observer: obs})
	ctx := context.Background()
	info := openGray(t, svc, 120, 60)

	res, err := svc.ApplyText(ctx, info.ID, "Hi", &model.WatermarkRequest{
		Position:  "center",
		FontColor: "#ffffff",
		FontSize:  "20",
		FontStyle: "bold",
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Revision)
	require.Contains(t, res.Steps[0], `text "Hi"`)

	_, err = svc.ApplyText(ctx, info.ID, "", nil)
	require.ErrorIs(t, err, compositor.ErrInvalidArgument)

	_, err = svc.ApplyText(ctx, info.ID, "Hi", &model.WatermarkRequest{FontFamily: "Comic Sans"})
	require.ErrorIs(t, err, compositor.ErrInvalidArgument)

	require.Equal(t, []string{"text/ok", "text/rejected", "text/rejected"}, obs.seen())
}

// RESET FIRST + RESET
func TestEditorService_ResetFlow(t *testing.T) {
	svc := newTestService(t, 4, deps{})
	ctx := context.Background()
	info := openGray(t, svc, 20, 10)
	wm := pngBytes(t, 4, 4, red)

	_, err := svc.ApplyImage(ctx, info.ID, bytes.NewReader(wm), nil)
	require.NoError(t, err)
	res, err := svc.ApplyImage(ctx, info.ID, bytes.NewReader(wm), &model.WatermarkRequest{Position: "bottom-right", ResetFirst: true})
	require.NoError(t, err)
	require.Len(t, res.Steps, 1)

	r, _, _, err := svc.Preview(ctx, info.ID, nil)
	require.NoError(t, err)
	img := decode(t, r)
	require.Equal(t, gray, img.NRGBAAt(0, 0), "reset dropped the first watermark")
	require.Equal(t, red, img.NRGBAAt(19, 9))

	res, err = svc.Reset(ctx, info.ID)
	require.NoError(t, err)
	require.Empty(t, res.Steps)
	require.Equal(t, 3, res.Revision)

	r, _, _, err = svc.Preview(ctx, info.ID, nil)
	require.NoError(t, err)
	require.Equal(t, gray, decode(t, r).NRGBAAt(19, 9))
}

// PREVIEW
func TestEditorService_Preview(t *testing.T) {
	svc := newTestService(t, 4, deps{})
	ctx := context.Background()
	info := openGray(t, svc, 40, 20)

	r, size, ctype, err := svc.Preview(ctx, info.ID, &model.PreviewRequest{Format: "jpg", Mode: model.ModeZoom, Width: 10, Height: 10})
	require.NoError(t, err)
	require.Equal(t, model.JPEG, ctype)
	require.Greater(t, size, int64(0))
	require.Equal(t, image.Pt(10, 5), decode(t, r).Bounds().Size())

	_, _, _, err = svc.Preview(ctx, info.ID, &model.PreviewRequest{Format: "jpg", Mode: model.ModeZoom, Width: 10, Height: 10})
	require.NoError(t, err)
	require.Equal(t, 1, svc.previews.Len())

	_, _, _, err = svc.Preview(ctx, info.ID, &model.PreviewRequest{Format: "svg"})
	require.ErrorIs(t, err, model.ErrUnsupportedFormat)

	_, _, _, err = svc.Preview(ctx, info.ID, &model.PreviewRequest{Mode: "tile"})
	require.ErrorIs(t, err, model.ErrIncorrectMode)

	_, _, _, err = svc.Preview(ctx, info.ID, &model.PreviewRequest{Mode: model.ModeStretch, Width: 20000, Height: 20000})
	require.ErrorIs(t, err, model.ErrIncorrectMode)
}

// SAVE - SUCCESS
func TestEditorService_Save_OK(t *testing.T) {
	var putKey, putCType string
	var created *model.Render
	var sentKey []byte
	var sentEvent model.RenderEvent

	d := deps{
		storage: &mockStorage{
			putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
				putKey, putCType = key, ct
				data, err := io.ReadAll(r)
				require.NoError(t, err)
				require.Equal(t, size, int64(len(data)))
				return nil
			},
		},
		repo: &mockRepo{
			createFn: func(ctx context.Context, r *model.Render) error {
				created = r
				return nil
			},
		},
		pub: &mockPublisher{
			sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
				sentKey = key
				return json.Unmarshal(v, &sentEvent)
			},
		},
	}
	svc := newTestService(t, 4, d)
	ctx := context.Background()
	info := openGray(t, svc, 20, 10)
	_, err := svc.ApplyText(ctx, info.ID, "x", nil)
	require.NoError(t, err)

	render, err := svc.Save(ctx, info.ID, "jpg")
	require.NoError(t, err)
	require.Equal(t, info.ID, render.SessionID)
	require.Equal(t, model.JPEG, render.ContentType)
	require.Equal(t, 20, render.Width)
	require.Equal(t, 10, render.Height)
	require.Len(t, render.Steps, 1)
	require.NotNil(t, render.CreatedAt)

	require.Equal(t, "renders/"+render.UID.String()+".jpg", putKey)
	require.Equal(t, model.JPEG, putCType)
	require.Same(t, render, created)
	require.Equal(t, render.UID.String(), string(sentKey))
	require.Equal(t, model.EventRenderSaved, sentEvent.Event)
	require.Equal(t, putKey, sentEvent.ResultKey)
}

// SAVE - PUBLISH FAIL IS NOT FATAL
func TestEditorService_Save_PublishFailure(t *testing.T) {
	d := deps{
		storage: &mockStorage{putFn: func(context.Context, string, int64, string, io.Reader) error { return nil }},
		repo:    &mockRepo{createFn: func(context.Context, *model.Render) error { return nil }},
		pub: &mockPublisher{sendFn: func(context.Context, retry.Strategy, []byte, []byte) error {
			return errors.New("kafka is down")
		}},
	}
	svc := newTestService(t, 4, d)
	info := openGray(t, svc, 4, 4)

	render, err := svc.Save(context.Background(), info.ID, "")
	require.NoError(t, err)
	require.Equal(t, model.PNG, render.ContentType)
}

// SAVE - FAIL
func TestEditorService_Save_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("storage error", func(t *testing.T) {
		svc := newTestService(t, 4, deps{storage: &mockStorage{
			putFn: func(context.Context, string, int64, string, io.Reader) error { return errors.New("storage is down") },
		}})
		info := openGray(t, svc, 4, 4)

		_, err := svc.Save(ctx, info.ID, "png")
		require.ErrorIs(t, err, model.ErrCommon500)
	})

	t.Run("db error cleans storage", func(t *testing.T) {
		var deleted string
		svc := newTestService(t, 4, deps{
			storage: &mockStorage{
				putFn: func(context.Context, string, int64, string, io.Reader) error { return nil },
				deleteFn: func(ctx context.Context, key string) error {
					deleted = key
					return nil
				},
			},
			repo: &mockRepo{createFn: func(context.Context, *model.Render) error { return errors.New("db is down") }},
		})
		info := openGray(t, svc, 4, 4)

		_, err := svc.Save(ctx, info.ID, "png")
		require.ErrorIs(t, err, model.ErrCommon500)
		require.True(t, strings.HasPrefix(deleted, "renders/"))
	})

	t.Run("unsupported format", func(t *testing.T) {
		svc := newTestService(t, 4, deps{})
		info := openGray(t, svc, 4, 4)

		_, err := svc.Save(ctx, info.ID, "webp")
		require.ErrorIs(t, err, model.ErrUnsupportedFormat)
	})
}

// CLOSE
func TestEditorService_Close(t *testing.T) {
	svc := newTestService(t, 1, deps{})
	ctx := context.Background()
	info := openGray(t, svc, 4, 4)

	require.NoError(t, svc.Close(ctx, info.ID))
	require.ErrorIs(t, svc.Close(ctx, info.ID), model.ErrSessionNotFound)

	_, err := svc.Info(ctx, info.ID)
	require.ErrorIs(t, err, model.ErrSessionNotFound)

	// место освободилось
	openGray(t, svc, 4, 4)
}

// GETRENDERS
func TestEditorService_GetRenders(t *testing.T) {
	repo := &mockRepo{
		getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.Render, error) {
			require.Equal(t, &model.ListRequest{Page: 1, Limit: 30, Sort: "created_at", Order: "DESC"}, req)
			return []model.Render{{UID: uuid.New()}}, nil
		},
	}
	svc := newTestService(t, 4, deps{repo: repo})

	res, err := svc.GetRenders(context.Background(), &model.ListRequest{})
	require.NoError(t, err)
	require.Len(t, res, 1)

	repo.getListFn = func(context.Context, *model.ListRequest) ([]model.Render, error) {
		return nil, errors.New("db is down")
	}
	_, err = svc.GetRenders(context.Background(), &model.ListRequest{})
	require.ErrorIs(t, err, model.ErrCommon500)
}

// LOADRENDER / LOADTHUMBNAIL
func TestEditorService_LoadRender(t *testing.T) {
	id := uuid.NewString()
	repo := &mockRepo{
		getFn: func(ctx context.Context, uid string) (*model.Render, error) {
			if uid != id {
				return nil, model.ErrRenderNotFound
			}
			return &model.Render{ResultKey: "renders/a.png"}, nil
		},
	}
	strg := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			require.Equal(t, "renders/a.png", key)
			return io.NopCloser(strings.NewReader("data")), model.PNG, nil
		},
	}
	svc := newTestService(t, 4, deps{repo: repo, storage: strg})
	ctx := context.Background()

	rc, ctype, err := svc.LoadRender(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.PNG, ctype)
	require.NoError(t, rc.Close())

	_, _, err = svc.LoadThumbnail(ctx, id)
	require.ErrorIs(t, err, model.ErrThumbNotReady)

	_, _, err = svc.LoadRender(ctx, uuid.NewString())
	require.ErrorIs(t, err, model.ErrRenderNotFound)

	_, _, err = svc.LoadRender(ctx, "bad-id")
	require.ErrorIs(t, err, model.ErrIncorrectID)
}

// DELETERENDER
func TestEditorService_DeleteRender(t *testing.T) {
	id := uuid.NewString()
	var deletedKeys []string
	repo := &mockRepo{
		getFn: func(ctx context.Context, uid string) (*model.Render, error) {
			return &model.Render{ResultKey: "renders/a.png", ThumbKey: ptr("thumbs/a.png")}, nil
		},
		deleteFn: func(ctx context.Context, uid string) error {
			require.Equal(t, id, uid)
			return nil
		},
	}
	strg := &mockStorage{
		deleteFn: func(ctx context.Context, key string) error {
			deletedKeys = append(deletedKeys, key)
			return nil
		},
	}
	svc := newTestService(t, 4, deps{repo: repo, storage: strg})

	require.NoError(t, svc.DeleteRender(context.Background(), id))
	require.Equal(t, []string{"renders/a.png", "thumbs/a.png"}, deletedKeys)

	repo.getFn = func(context.Context, string) (*model.Render, error) { return nil, model.ErrRenderNotFound }
	require.ErrorIs(t, svc.DeleteRender(context.Background(), id), model.ErrRenderNotFound)
}

// SAVETHUMBNAIL
func TestEditorService_SaveThumbnail(t *testing.T) {
	repo := &mockRepo{
		saveThumbFn: func(ctx context.Context, id string, key string) error {
			if id == "gone" {
				return model.ErrRenderNotFound
			}
			if id == "broken" {
				return errors.New("db is down")
			}
			return nil
		},
	}
	svc := newTestService(t, 4, deps{repo: repo})
	ctx := context.Background()

	require.NoError(t, svc.SaveThumbnail(ctx, "ok", "thumbs/ok.png"))
	require.ErrorIs(t, svc.SaveThumbnail(ctx, "gone", "k"), model.ErrRenderNotFound)
	require.ErrorIs(t, svc.SaveThumbnail(ctx, "broken", "k"), model.ErrCommon500)
}
