package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/UnendingLoop/WatermarkIt/internal/model"
	kafkago "github.com/segmentio/kafka-go"
)

// NewRenderSaved builds the event published after r is stored.
func NewRenderSaved(r *model.Render) model.RenderEvent {
	ev := model.RenderEvent{
		Event:       model.EventRenderSaved,
		RenderUID:   r.UID,
		SessionID:   r.SessionID,
		ResultKey:   r.ResultKey,
		ContentType: r.ContentType,
		Width:       r.Width,
		Height:      r.Height,
	}
	if r.CreatedAt != nil {
		ev.CreatedAt = *r.CreatedAt
	}
	return ev
}

// EncodeEvent returns the message key (render uid) and JSON value for ev.
func EncodeEvent(ev model.RenderEvent) (key, value []byte, err error) {
	value, err = json.Marshal(ev)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal render event: %w", err)
	}
	return []byte(ev.RenderUID.String()), value, nil
}

// DecodeEvent parses a consumed message. Messages of other event types are rejected.
func DecodeEvent(msg kafkago.Message) (model.RenderEvent, error) {
	var ev model.RenderEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ev, fmt.Errorf("failed to unmarshal render event: %w", err)
	}
	if ev.Event != model.EventRenderSaved {
		return ev, fmt.Errorf("unexpected event type %q", ev.Event)
	}
	return ev, nil
}
