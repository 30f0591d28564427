// Package service provides business-logic for the app: editing sessions and saved renders
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/UnendingLoop/WatermarkIt/internal/appconfig"
	"github.com/UnendingLoop/WatermarkIt/internal/compositor"
	"github.com/UnendingLoop/WatermarkIt/internal/imageproc"
	"github.com/UnendingLoop/WatermarkIt/internal/kafka"
	"github.com/UnendingLoop/WatermarkIt/internal/metrics"
	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/UnendingLoop/WatermarkIt/internal/mwlogger"
	"github.com/UnendingLoop/WatermarkIt/internal/repository"
	"github.com/UnendingLoop/WatermarkIt/internal/session"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/wb-go/wbf/retry"
)

const previewCacheSize = 64

type EditorService struct {
	sessions     SessionStore
	repo         repository.RenderRepo
	publisher    EventPublisher
	storage      RenderStorage
	observer     ApplyObserver
	previews     *lru.Cache[string, []byte]
	resultPrefix string
	quality      int
}

func NewEditorService(settings appconfig.Settings, sessions SessionStore, repo repository.RenderRepo, pub EventPublisher, strg RenderStorage, obs ApplyObserver) *EditorService {
	previews, err := lru.New[string, []byte](previewCacheSize)
	if err != nil {
		panic(err) // размер кэша константный и положительный
	}
	if obs == nil {
		obs = noopObserver{}
	}
	return &EditorService{
		sessions:     sessions,
		repo:         repo,
		publisher:    pub,
		storage:      strg,
		observer:     obs,
		previews:     previews,
		resultPrefix: settings.ResultPrefix,
		quality:      imageproc.DefaultQuality,
	}
}

// SessionStore - контракт хранилища живых сессий
type SessionStore interface {
	Add(comp *compositor.Compositor, format imaging.Format) (*session.Session, error)
	Get(id string) (*session.Session, error)
	Delete(id string) error
}

// EventPublisher - контракт для работы с очередью
type EventPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// RenderStorage - контракт для работы с хранилищем
type RenderStorage interface {
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// ApplyObserver - контракт для метрик наложения
type ApplyObserver interface {
	ObserveApply(kind, outcome string, start time.Time)
}

type noopObserver struct{}

func (noopObserver) ObserveApply(string, string, time.Time) {}

// Стратегия ретрая отправки в очередь
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

func (s EditorService) Open(ctx context.Context, src io.Reader) (*model.SessionInfo, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	img, format, err := imageproc.Decode(src)
	if err != nil {
		if errors.Is(err, model.ErrDecodeFailure) || errors.Is(err, model.ErrEmptySource) {
			return nil, err
		}
		logger.Error().Err(err).Msg("Failed to read source image")
		return nil, model.ErrCommon500
	}

	comp, err := compositor.New(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrEmptySource, err)
	}

	sess, err := s.sessions.Add(comp, format)
	if err != nil {
		if errors.Is(err, model.ErrTooManySessions) {
			return nil, err
		}
		logger.Error().Err(err).Msg("Failed to store new session")
		return nil, model.ErrCommon500
	}

	sessLogger := mwlogger.LoggerFromContext(mwlogger.WithSession(ctx, sess.ID))
	sessLogger.Info().
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("Session opened")
	return sess.Info(), nil
}

func (s EditorService) Info(ctx context.Context, id string) (*model.SessionInfo, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.Info(), nil
}

func (s EditorService) ApplyImage(ctx context.Context, id string, wm io.Reader, req *model.WatermarkRequest) (*model.SessionInfo, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	ctx = mwlogger.WithSession(ctx, id)

	cfg, err := buildConfig(req)
	if err != nil {
		s.observer.ObserveApply(metrics.KindImage, metrics.OutcomeRejected, time.Now())
		return nil, err
	}

	mark, _, err := imageproc.Decode(wm)
	if err != nil {
		s.observer.ObserveApply(metrics.KindImage, metrics.OutcomeRejected, time.Now())
		return nil, fmt.Errorf("%w: %v", model.ErrEmptyWMark, err)
	}

	err = s.apply(ctx, sess, metrics.KindImage, describeStep(metrics.KindImage, cfg, ""), resetFirst(req), func(c *compositor.Compositor) error {
		return c.ApplyImage(mark, cfg)
	})
	if err != nil {
		return nil, err
	}
	return sess.Info(), nil
}

func (s EditorService) ApplyText(ctx context.Context, id string, text string, req *model.WatermarkRequest) (*model.SessionInfo, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	ctx = mwlogger.WithSession(ctx, id)

	cfg, err := buildConfig(req)
	if err != nil {
		s.observer.ObserveApply(metrics.KindText, metrics.OutcomeRejected, time.Now())
		return nil, err
	}

	err = s.apply(ctx, sess, metrics.KindText, describeStep(metrics.KindText, cfg, text), resetFirst(req), func(c *compositor.Compositor) error {
		return c.ApplyText(text, cfg)
	})
	if err != nil {
		return nil, err
	}
	return sess.Info(), nil
}

func (s EditorService) apply(ctx context.Context, sess *session.Session, kind, step string, reset bool, fn func(c *compositor.Compositor) error) error {
	logger := mwlogger.LoggerFromContext(ctx)
	start := time.Now()

	err := sess.Apply(step, reset, fn)
	switch {
	case err == nil:
		s.observer.ObserveApply(kind, metrics.OutcomeOK, start)
		logger.Info().Str("step", step).Msg("Watermark applied")
		return nil
	case errors.Is(err, compositor.ErrInvalidArgument):
		s.observer.ObserveApply(kind, metrics.OutcomeRejected, start)
		return err
	default:
		s.observer.ObserveApply(kind, metrics.OutcomeFailed, start)
		logger.Error().Err(err).Msg("Failed to apply watermark")
		return model.ErrCommon500
	}
}

func (s EditorService) Reset(ctx context.Context, id string) (*model.SessionInfo, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	sess.Reset()
	return sess.Info(), nil
}

// Preview encodes the working image, resized for display as req.Mode says.
func (s EditorService) Preview(ctx context.Context, id string, req *model.PreviewRequest) (io.Reader, int64, string, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, 0, "", err
	}
	if req == nil {
		req = &model.PreviewRequest{}
	}
	format, err := s.outputFormat(sess, req.Format)
	if err != nil {
		return nil, 0, "", err
	}
	if req.Mode == "" {
		req.Mode = model.ModeNormal
	}

	var data []byte
	err = sess.View(func(img *image.NRGBA, st session.State) error {
		key := fmt.Sprintf("%s/%d/%s/%s/%dx%d", id, st.Revision, format, req.Mode, req.Width, req.Height)
		if cached, ok := s.previews.Get(key); ok {
			data = cached
			return nil
		}

		fitted, err := imageproc.Fit(img, req.Mode, req.Width, req.Height)
		if err != nil {
			return err
		}
		if data, err = s.encode(fitted, format); err != nil {
			return err
		}
		s.previews.Add(key, data)
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrIncorrectMode) {
			return nil, 0, "", err
		}
		sessLogger := mwlogger.LoggerFromContext(mwlogger.WithSession(ctx, id))
		sessLogger.Error().Err(err).Msg("Failed to encode preview")
		return nil, 0, "", model.ErrCommon500
	}

	return bytes.NewReader(data), int64(len(data)), model.GetCType[format], nil
}

// Save stores the working image as a new render and announces it on the queue.
func (s EditorService) Save(ctx context.Context, id string, formatName string) (*model.Render, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	ctx = mwlogger.WithSession(ctx, id)
	logger := mwlogger.LoggerFromContext(ctx)

	format, err := s.outputFormat(sess, formatName)
	if err != nil {
		return nil, err
	}

	render := &model.Render{
		UID:         uuid.New(),
		SessionID:   id,
		ContentType: model.GetCType[format],
	}
	var data []byte
	err = sess.View(func(img *image.NRGBA, st session.State) error {
		render.Width = img.Bounds().Dx()
		render.Height = img.Bounds().Dy()
		render.Steps = st.Steps
		data, err = s.encode(img, format)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode render")
		return nil, model.ErrCommon500
	}

	// кладем в хранилище результат
	render.ResultKey = s.resultPrefix + render.UID.String() + model.GetImageFileExt[render.ContentType]
	if err := s.storage.Put(ctx, render.ResultKey, int64(len(data)), render.ContentType, bytes.NewReader(data)); err != nil {
		logger.Error().Err(err).Msg("Failed to save render in Storage")
		return nil, model.ErrCommon500
	}

	// ставим таймстамп и шлем в базу
	now := time.Now().UTC()
	render.CreatedAt = &now
	if err := s.repo.Create(ctx, render); err != nil {
		logger.Error().Err(err).Msg("Failed to create render in DB")
		if dErr := s.storage.Delete(ctx, render.ResultKey); dErr != nil {
			logger.Error().Err(dErr).Msg("Failed to clean up orphan render in Storage")
		}
		return nil, model.ErrCommon500
	}

	// кладем событие в очередь - рендер уже сохранен, поэтому ошибку только логируем
	key, value, err := kafka.EncodeEvent(kafka.NewRenderSaved(render))
	if err == nil {
		err = s.publisher.SendWithRetry(ctx, retryStrategy, key, value)
	}
	if err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish render %q to event-queue", render.UID))
	}

	return render, nil
}

func (s EditorService) Close(ctx context.Context, id string) error {
	if err := s.sessions.Delete(id); err != nil {
		return err
	}
	sessLogger := mwlogger.LoggerFromContext(mwlogger.WithSession(ctx, id))
	sessLogger.Info().Msg("Session closed")
	return nil
}

func (s EditorService) GetRenders(ctx context.Context, req *model.ListRequest) ([]model.Render, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := s.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch renders list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (s EditorService) LoadRender(ctx context.Context, id string) (io.ReadCloser, string, error) {
	render, err := s.render(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return s.load(ctx, render.ResultKey)
}

func (s EditorService) LoadThumbnail(ctx context.Context, id string) (io.ReadCloser, string, error) {
	render, err := s.render(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if render.ThumbKey == nil {
		return nil, "", model.ErrThumbNotReady
	}
	return s.load(ctx, *render.ThumbKey)
}

func (s EditorService) DeleteRender(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)

	render, err := s.render(ctx, id)
	if err != nil {
		return err
	}

	// удаляем из базы
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrRenderNotFound) {
			return err
		}
		logger.Error().Err(err).Msg("Failed to delete render from DB")
		return model.ErrCommon500
	}

	// удаляем из хранилища результат и превью(если оно есть)
	if err := s.storage.Delete(ctx, render.ResultKey); err != nil {
		logger.Error().Err(err).Msg("Failed to delete render from Storage")
		return model.ErrCommon500
	}
	if render.ThumbKey != nil {
		if err := s.storage.Delete(ctx, *render.ThumbKey); err != nil {
			logger.Error().Err(err).Msg("Failed to delete thumbnail from Storage")
			return model.ErrCommon500
		}
	}

	return nil
}

// SaveThumbnail is called by the worker once a render's thumbnail is stored.
func (s EditorService) SaveThumbnail(ctx context.Context, id string, thumbKey string) error {
	logger := mwlogger.LoggerFromContext(ctx)

	if err := s.repo.SaveThumbnail(ctx, id, thumbKey); err != nil {
		if errors.Is(err, model.ErrRenderNotFound) {
			return err
		}
		logger.Error().Err(err).Msg("Failed to save thumbnail key in DB")
		return model.ErrCommon500
	}
	return nil
}

// GetRender returns render metadata.
func (s EditorService) GetRender(ctx context.Context, id string) (*model.Render, error) {
	return s.render(ctx, id)
}

func (s EditorService) session(id string) (*session.Session, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}
	return s.sessions.Get(id)
}

func (s EditorService) render(ctx context.Context, id string) (*model.Render, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrRenderNotFound) {
			return nil, err // 404
		}
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch render %q from DB", id))
		return nil, model.ErrCommon500
	}
	return res, nil
}

func (s EditorService) load(ctx context.Context, key string) (io.ReadCloser, string, error) {
	data, cType, err := s.storage.Get(ctx, key)
	if err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch %q from Storage", key))
		return nil, "", model.ErrCommon500
	}
	return data, cType, nil
}

// outputFormat resolves a requested format; empty means the session source format.
func (s EditorService) outputFormat(sess *session.Session, name string) (imaging.Format, error) {
	if name == "" {
		return sess.Format, nil
	}
	format, err := imageproc.FormatFromName(name)
	if err != nil {
		return -1, err
	}
	if _, ok := model.GetCType[format]; !ok {
		return -1, fmt.Errorf("%w: %s", model.ErrUnsupportedFormat, format)
	}
	return format, nil
}

func (s EditorService) encode(img image.Image, format imaging.Format) ([]byte, error) {
	r, _, err := imageproc.Encode(img, format, s.quality)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func resetFirst(req *model.WatermarkRequest) bool {
	return req != nil && req.ResetFirst
}
