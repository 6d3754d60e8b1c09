package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"docinsight/internal/model"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrExpired          = errors.New("session expired")
	ErrCapacityExceeded = errors.New("session capacity exceeded")
)

// Limits bounds what a single upload and a whole session may hold.
type Limits struct {
	MaxFilesPerUpload int
	MaxFileSizeBytes  int64
	MaxDocsPerSession int
}

// Session is one user's document collection. The store owns it; all
// mutation goes through Store methods.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	lastAccess time.Time
	docs       []model.DocumentRecord
}

// View is a read-only snapshot of a session.
type View struct {
	ID         string                 `json:"session_id"`
	CreatedAt  time.Time              `json:"created_at"`
	LastAccess time.Time              `json:"last_access"`
	Documents  []model.DocumentRecord `json:"documents"`
}

// Store holds sessions with sliding-window expiry. The top-level map and
// each session's document slice are guarded independently so lookups of
// different sessions never contend.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	expiry time.Duration
	limits Limits
	now    func() time.Time
}

func NewStore(expiry time.Duration, limits Limits) *Store {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Store{
		sessions: make(map[string]*Session),
		expiry:   expiry,
		limits:   limits,
		now:      time.Now,
	}
}

// Limits exposes the configured bounds so callers can reject an oversized
// upload before doing any work on it.
func (s *Store) Limits() Limits {
	return s.limits
}

// Create registers a new session with a fresh opaque identifier.
func (s *Store) Create() *Session {
	now := s.now()
	sess := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		lastAccess: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session and slides its expiry horizon forward. An expired
// session is removed and reported as ErrExpired.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	now := s.now()
	sess.mu.Lock()
	if now.After(sess.lastAccess.Add(s.expiry)) {
		sess.mu.Unlock()
		s.Delete(id)
		return nil, ErrExpired
	}
	sess.lastAccess = now
	sess.mu.Unlock()
	return sess, nil
}

// AddDocuments appends records in upload order, enforcing the configured
// per-upload and per-session limits.
func (s *Store) AddDocuments(id string, records ...model.DocumentRecord) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}

	if s.limits.MaxFilesPerUpload > 0 && len(records) > s.limits.MaxFilesPerUpload {
		return ErrCapacityExceeded
	}
	if s.limits.MaxFileSizeBytes > 0 {
		for _, rec := range records {
			if rec.Size > s.limits.MaxFileSizeBytes {
				return ErrCapacityExceeded
			}
		}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if s.limits.MaxDocsPerSession > 0 && len(sess.docs)+len(records) > s.limits.MaxDocsPerSession {
		return ErrCapacityExceeded
	}
	sess.docs = append(sess.docs, records...)
	return nil
}

// Documents returns a copy of the session's records in upload order.
func (s *Store) Documents(id string) ([]model.DocumentRecord, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	docs := make([]model.DocumentRecord, len(sess.docs))
	copy(docs, sess.docs)
	return docs, nil
}

// Snapshot returns a read-only view of the session.
func (s *Store) Snapshot(id string) (View, error) {
	sess, err := s.Get(id)
	if err != nil {
		return View{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	docs := make([]model.DocumentRecord, len(sess.docs))
	copy(docs, sess.docs)
	return View{
		ID:         sess.ID,
		CreatedAt:  sess.CreatedAt,
		LastAccess: sess.lastAccess,
		Documents:  docs,
	}, nil
}

// Delete removes the session. Removing an unknown id is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// SweepExpired removes sessions past their expiry horizon and returns how
// many were dropped. Runs off the request path.
func (s *Store) SweepExpired() int {
	now := s.now()

	s.mu.RLock()
	var expired []string
	for id, sess := range s.sessions {
		sess.mu.Lock()
		if now.After(sess.lastAccess.Add(s.expiry)) {
			expired = append(expired, id)
		}
		sess.mu.Unlock()
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return 0
	}
	s.mu.Lock()
	for _, id := range expired {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	return len(expired)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
