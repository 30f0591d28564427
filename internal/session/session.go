// Package session keeps live editing sessions in memory, one compositor per session
package session

import (
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/UnendingLoop/WatermarkIt/internal/compositor"
	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/disintegration/imaging"
)

// Session serialises every compositor call behind its own mutex.
type Session struct {
	ID        string
	Format    imaging.Format
	CreatedAt time.Time

	expires atomic.Int64 // unix nano, обновляется стором при каждом обращении

	mu       sync.Mutex
	comp     *compositor.Compositor
	steps    model.StringSlice
	revision int
}

func newSession(id string, comp *compositor.Compositor, format imaging.Format) *Session {
	return &Session{
		ID:        id,
		Format:    format,
		CreatedAt: time.Now().UTC(),
		comp:      comp,
		steps:     model.StringSlice{},
	}
}

// Apply runs fn on the session compositor and records step on success.
// With resetFirst fn runs on a fresh copy of the original, which replaces the
// working image only if fn succeeds.
func (s *Session) Apply(step string, resetFirst bool, fn func(c *compositor.Compositor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.comp
	if resetFirst {
		fresh, err := compositor.New(s.comp.Original())
		if err != nil {
			return err
		}
		target = fresh
	}

	if err := fn(target); err != nil {
		return err
	}

	if resetFirst {
		s.comp = target
		s.steps = model.StringSlice{}
	}
	s.steps = append(s.steps, step)
	s.revision++
	return nil
}

// Reset drops every applied watermark.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.comp.Reset()
	s.steps = model.StringSlice{}
	s.revision++
}

// State is the edit history matching a working image.
type State struct {
	Revision int
	Steps    model.StringSlice
}

// View gives fn read access to the working image and its state.
// fn must not keep img after returning.
func (s *Session) View(fn func(img *image.NRGBA, st State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.comp.Image(), State{
		Revision: s.revision,
		Steps:    append(model.StringSlice{}, s.steps...),
	})
}

func (s *Session) Info() *model.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.comp.Bounds()
	return &model.SessionInfo{
		ID:        s.ID,
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    s.Format.String(),
		Revision:  s.revision,
		Steps:     append(model.StringSlice{}, s.steps...),
		CreatedAt: s.CreatedAt,
		ExpiresAt: time.Unix(0, s.expires.Load()).UTC(),
	}
}
