package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultLoadTimeout = 30 * time.Second

// Sessions keeps one Mirror per signed-in user.
type Sessions struct {
	mu          sync.RWMutex
	src         Source
	mirrors     map[uuid.UUID]*Mirror
	lastSeen    map[uuid.UUID]time.Time
	loadTimeout time.Duration
	now         func() time.Time
}

func NewSessions(src Source) *Sessions {
	return &Sessions{
		src:         src,
		mirrors:     make(map[uuid.UUID]*Mirror),
		lastSeen:    make(map[uuid.UUID]time.Time),
		loadTimeout: defaultLoadTimeout,
		now:         time.Now,
	}
}

// Start registers the user's mirror and loads it in the background.
func (s *Sessions) Start(userID uuid.UUID) *Mirror {
	m := s.mirror(userID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.loadTimeout)
		defer cancel()
		if err := m.Load(ctx, s.src); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Error("failed to load session data")
		}
	}()
	return m
}

// End empties and forgets the user's mirror.
func (s *Sessions) End(userID uuid.UUID) {
	s.mu.Lock()
	m, ok := s.mirrors[userID]
	delete(s.mirrors, userID)
	delete(s.lastSeen, userID)
	s.mu.Unlock()
	if ok {
		m.Reset()
	}
}

// Ensure returns the user's mirror once it holds data. A load already in
// flight, such as the one Start kicks off at login, is waited for; an empty
// or stale mirror is loaded first.
func (s *Sessions) Ensure(ctx context.Context, userID uuid.UUID) (*Mirror, error) {
	m := s.mirror(userID)
	if err := m.Wait(ctx); err != nil {
		return m, err
	}
	switch m.State() {
	case StateEmpty, StateStale:
		if err := m.Load(ctx, s.src); err != nil {
			return m, err
		}
	}
	return m, nil
}

// Apply patches the actor's mirror and marks every other mirror stale so it
// reloads on its next read.
func (s *Sessions) Apply(actor uuid.UUID, ch Change) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, m := range s.mirrors {
		if id == actor {
			m.Apply(ch)
			continue
		}
		m.MarkStale()
	}
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mirrors)
}

// Sweep ends every session that has not been read for longer than idle and
// returns how many it ended.
func (s *Sessions) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)
	var expired []*Mirror

	s.mu.Lock()
	for id, seen := range s.lastSeen {
		if seen.Before(cutoff) {
			expired = append(expired, s.mirrors[id])
			delete(s.mirrors, id)
			delete(s.lastSeen, id)
		}
	}
	s.mu.Unlock()

	for _, m := range expired {
		m.Reset()
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(idle); n > 0 {
				logrus.WithField("sessions", n).Info("ended idle sessions")
			}
		}
	}
}

func (s *Sessions) mirror(userID uuid.UUID) *Mirror {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen[userID] = s.now()
	m, ok := s.mirrors[userID]
	if !ok {
		m = NewMirror()
		s.mirrors[userID] = m
	}
	return m
}
