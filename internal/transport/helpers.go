package transport

import (
	"errors"
	"io"
	"log"

	"github.com/UnendingLoop/WatermarkIt/internal/compositor"
	"github.com/UnendingLoop/WatermarkIt/internal/model"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrSessionNotFound),
		errors.Is(err, model.ErrRenderNotFound),
		errors.Is(err, model.ErrThumbNotReady):
		return 404
	case errors.Is(err, model.ErrTooLarge):
		return 413
	case errors.Is(err, model.ErrTooManySessions):
		return 429
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrIncorrectParam),
		errors.Is(err, model.ErrIncorrectMode),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrEmptyWMark),
		errors.Is(err, model.ErrEmptyText),
		errors.Is(err, model.ErrDecodeFailure),
		errors.Is(err, model.ErrUnsupportedFormat),
		errors.Is(err, compositor.ErrInvalidArgument):
		return 400
	default:
		return 500
	}
}

func closeFileFlow(res io.Closer) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}
