package restapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"escrow_wallet/internal/app/service"
)

// SessionStore keeps open allowance prompts. Sessions expire after ttl without access.
type SessionStore struct {
	sessions *cache.Cache
}

// NewSessionStore creates a store whose sessions expire after ttl of inactivity.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{sessions: cache.New(ttl, ttl)}
}

// Create stores the workflow under a new random id.
func (s *SessionStore) Create(w *service.AllowanceWorkflow) string {
	id := uuid.NewString()
	s.sessions.SetDefault(id, w)
	return id
}

// Get returns the workflow and extends its lifetime.
func (s *SessionStore) Get(id string) (*service.AllowanceWorkflow, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, false
	}
	w := v.(*service.AllowanceWorkflow)
	// Replace fails once Delete got there first, so a cancelled session stays gone
	if err := s.sessions.Replace(id, w, cache.DefaultExpiration); err != nil {
		return nil, false
	}
	return w, true
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.sessions.Delete(id)
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	return s.sessions.ItemCount()
}
