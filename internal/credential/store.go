// Package credential stores the bearer token issued by the inspection API.
package credential

import (
	"net/http"
	"sync"

	"github.com/inspeksi/audit-dashboard/internal/shared"
)

// TokenKey is the fixed name the token is stored under.
const TokenKey = "authToken"

// Store keeps a single bearer token. An absent token is a normal state.
type Store interface {
	Save(token string) error
	Get() (string, bool)
	Remove() error
}

// AuthHeader returns an Authorization header for the stored token, or an
// empty header when no token is present.
func AuthHeader(s Store) http.Header {
	header := http.Header{}
	if s == nil {
		return header
	}
	if token, ok := s.Get(); ok {
		header.Set("Authorization", "Bearer "+token)
	}
	return header
}

// SessionStore keeps the token inside the browser's cookie session.
type SessionStore struct {
	sess *shared.Session
}

// FromSession binds a Store to the request session.
func FromSession(sess *shared.Session) *SessionStore {
	return &SessionStore{sess: sess}
}

// Save stores the token in the session.
func (s *SessionStore) Save(token string) error {
	if s.sess == nil {
		return shared.ErrNoCredential
	}
	s.sess.Set(TokenKey, token)
	return nil
}

// Get returns the session token.
func (s *SessionStore) Get() (string, bool) {
	if s.sess == nil {
		return "", false
	}
	token := s.sess.Get(TokenKey)
	return token, token != ""
}

// Remove deletes the session token.
func (s *SessionStore) Remove() error {
	if s.sess != nil {
		s.sess.Delete(TokenKey)
	}
	return nil
}

// MemoryStore keeps the token in memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns a store seeded with token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Get() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

func (m *MemoryStore) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
