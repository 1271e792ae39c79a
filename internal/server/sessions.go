package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-hitasforms/internal/subscription"
	"github.com/goliatone/go-hitasforms/pkg/form"
	"github.com/goliatone/go-hitasforms/pkg/logging"
	"github.com/goliatone/go-hitasforms/pkg/model"
)

// session is one form being edited in the browser. Its mutex serialises
// events; picker searches run outside it so a newer query can supersede the
// one in flight.
type session struct {
	mu       sync.Mutex
	id       string
	recordID string
	form     *form.Form
	changes  *subscription.Handle
	lastSeen time.Time
	edits    int
}

type store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
	logger   logging.Logger
}

func newStore(ttl time.Duration, now func() time.Time, logger logging.Logger) *store {
	return &store{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      now,
		logger:   logging.Or(logger),
	}
}

// open registers f under a fresh id and subscribes a change logger that is
// released when the session ends.
func (s *store) open(f *form.Form, recordID string) *session {
	sess := &session{
		id:       uuid.NewString(),
		recordID: recordID,
		form:     f,
	}
	logger := logging.WithFields(s.logger, map[string]any{"session": sess.id, "form": f.Name()})
	sess.changes = f.Subscribe(func(change model.FieldChange) {
		sess.edits++
		logger.Debug("field changed", "path", change.Path)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	sess.lastSeen = s.now()
	s.sessions[sess.id] = sess
	return sess
}

func (s *store) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	sess, ok := s.sessions[id]
	if ok {
		sess.lastSeen = s.now()
	}
	return sess, ok
}

func (s *store) close(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.changes.Close()
	}
	return ok
}

func (s *store) closeAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.changes.Close()
	}
}

func (s *store) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *store) sweepLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			sess.changes.Close()
			s.logger.Debug("session expired", "session", id)
		}
	}
}
