// Package worker contains the thumbnail worker: it consumes render events and stores
// a thumbnail next to every saved render
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/UnendingLoop/WatermarkIt/internal/imageproc"
	"github.com/UnendingLoop/WatermarkIt/internal/kafka"
	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/UnendingLoop/WatermarkIt/internal/service"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"
)

var errBadEvent = errors.New("malformed render event")

type ThumbnailService interface {
	GetRender(ctx context.Context, id string) (*model.Render, error)
	SaveThumbnail(ctx context.Context, id string, thumbKey string) error
}

// Committer is the part of the kafka consumer the worker needs.
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

type Worker struct {
	storage     service.RenderStorage
	service     ThumbnailService
	queue       <-chan kafkago.Message
	consumer    Committer
	thumbPrefix string
	thumbSize   int
}

func NewWorkerInstance(strg service.RenderStorage, svc ThumbnailService, q <-chan kafkago.Message, cons Committer, thumbPrefix string, thumbSize int) *Worker {
	return &Worker{storage: strg, service: svc, queue: q, consumer: cons, thumbPrefix: thumbPrefix, thumbSize: thumbSize}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			err := w.initProcessor(ctx, msg)
			switch {
			case err == nil:
			case errors.Is(err, model.ErrRenderNotFound), errors.Is(err, errBadEvent):
				// повторять бессмысленно - коммитим и идем дальше
				zlog.Logger.Warn().Err(err).Str("render_uid", id).Msg("Skipping render event")
			default:
				zlog.Logger.Error().Err(err).Str("render_uid", id).Msg("Thumbnail task failed")
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				zlog.Logger.Error().Err(err).Msg("Failed to commit queue-message")
			}
		}
	}
}

func (w *Worker) initProcessor(ctx context.Context, msg kafkago.Message) error {
	ev, err := kafka.DecodeEvent(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadEvent, err)
	}
	id := ev.RenderUID.String()

	// считать из базы рендер
	render, err := w.service.GetRender(ctx, id)
	if err != nil {
		return fmt.Errorf("worker failed to fetch render %q from DB: %w", id, err)
	}
	// превью уже есть - событие пришло повторно
	if render.ThumbKey != nil {
		return nil
	}

	return w.processRender(ctx, render)
}

func (w *Worker) processRender(ctx context.Context, render *model.Render) error {
	// достать из storage результат
	src, _, err := w.storage.Get(ctx, render.ResultKey)
	if err != nil {
		return fmt.Errorf("worker failed to fetch render from storage: %w", err)
	}
	defer closeFileFlow(src)

	// превью в том же формате, что и рендер
	format, err := imageproc.FormatFromName(render.ContentType)
	if err != nil {
		return fmt.Errorf("%w: render content type %q", errBadEvent, render.ContentType)
	}

	thumb, size, err := imageproc.Thumbnail(src, w.thumbSize, format)
	if err != nil {
		return fmt.Errorf("worker failed to generate thumbnail: %w", err)
	}

	// положить превью в сторедж
	id := render.UID.String()
	thumbKey := w.thumbPrefix + id + model.GetImageFileExt[render.ContentType]
	if err := w.storage.Put(ctx, thumbKey, size, render.ContentType, thumb); err != nil {
		return fmt.Errorf("worker failed to put thumbnail to storage: %w", err)
	}

	// обновить запись в БД
	if err := w.service.SaveThumbnail(ctx, id, thumbKey); err != nil {
		if errors.Is(err, model.ErrRenderNotFound) {
			// рендер удалили, пока генерировали превью
			if dErr := w.storage.Delete(ctx, thumbKey); dErr != nil {
				zlog.Logger.Error().Err(dErr).Str("key", thumbKey).Msg("Failed to clean up orphan thumbnail")
			}
		}
		return fmt.Errorf("worker failed to save thumbnail key to DB: %w", err)
	}

	zlog.Logger.Info().Str("render_uid", id).Str("key", thumbKey).Msg("Thumbnail stored")
	return nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}

	if err := res.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Worker failed to close fileflow")
	}
}
