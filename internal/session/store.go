package session

import (
	"sync"
	"time"

	"github.com/UnendingLoop/WatermarkIt/internal/compositor"
	"github.com/UnendingLoop/WatermarkIt/internal/model"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Tracker is notified when sessions appear and disappear, including on expiry.
type Tracker interface {
	SessionOpened()
	SessionClosed()
}

type noopTracker struct{}

func (noopTracker) SessionOpened() {}
func (noopTracker) SessionClosed() {}

// Store holds at most limit sessions; each expires ttl after its last use.
type Store struct {
	mu      sync.Mutex
	items   *gocache.Cache
	ttl     time.Duration
	limit   int
	tracker Tracker
}

func NewStore(ttl time.Duration, limit int, tracker Tracker) *Store {
	if tracker == nil {
		tracker = noopTracker{}
	}
	items := gocache.New(ttl, ttl)
	items.OnEvicted(func(string, any) {
		tracker.SessionClosed()
	})

	return &Store{
		items:   items,
		ttl:     ttl,
		limit:   limit,
		tracker: tracker,
	}
}

// Add stores a new session around comp.
func (s *Store) Add(comp *compositor.Compositor, format imaging.Format) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.items.ItemCount() >= s.limit {
		// просроченные, но еще не вычищенные сессии тоже занимают место
		s.items.DeleteExpired()
		if s.items.ItemCount() >= s.limit {
			return nil, model.ErrTooManySessions
		}
	}

	sess := newSession(uuid.NewString(), comp, format)
	if err := s.items.Add(sess.ID, sess, gocache.DefaultExpiration); err != nil {
		return nil, err
	}
	sess.expires.Store(time.Now().Add(s.ttl).UnixNano())
	s.tracker.SessionOpened()
	return sess, nil
}

// Get returns a live session and extends its lifetime.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.items.Get(id)
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	sess := v.(*Session)

	s.items.Set(id, sess, gocache.DefaultExpiration)
	sess.expires.Store(time.Now().Add(s.ttl).UnixNano())
	return sess, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items.Get(id); !ok {
		return model.ErrSessionNotFound
	}
	s.items.Delete(id)
	return nil
}

func (s *Store) Len() int {
	return s.items.ItemCount()
}
