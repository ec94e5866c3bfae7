package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "dashboard:session:"

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager keeps browser sessions in Redis behind an opaque cookie.
// Redis keys are derived from the cookie value with an HMAC, so a dump of
// the store does not hand out usable cookies.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session holds per-request session data. The bearer token, CSRF token and
// other small string values live in values.
type Session struct {
	ID string

	data      sessionData
	persisted bool
	dirty     bool
	destroyed bool
}

type sessionData struct {
	Values  map[string]string `json:"values,omitempty"`
	User    string            `json:"user,omitempty"`
	Flashes []FlashMessage    `json:"flashes,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load returns the session named by the request cookie. A missing, unknown
// or expired id yields a fresh session; client supplied ids are never adopted.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if errors.Is(err, http.ErrNoCookie) || (err == nil && cookie.Value == "") {
		return sm.fresh(), nil
	}
	if err != nil {
		return nil, err
	}

	raw, err := sm.client.Get(ctx, sm.key(cookie.Value)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sm.fresh(), nil
	}
	if err != nil {
		return nil, err
	}

	sess := &Session{ID: cookie.Value, persisted: true}
	if err := json.Unmarshal(raw, &sess.data); err != nil {
		return nil, err
	}
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed. Untouched
// sessions only get their expiry extended.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.key(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		sm.writeCookie(w, "", -1)
		return nil
	}

	if sess.ID == "" {
		sess.ID = newSessionID()
	}
	switch {
	case sess.dirty || !sess.persisted:
		raw, err := json.Marshal(sess.data)
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.key(sess.ID), raw, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty, sess.persisted = false, true
	default:
		if err := sm.client.Expire(ctx, sm.key(sess.ID), sm.ttl).Err(); err != nil {
			return err
		}
	}
	sm.writeCookie(w, sess.ID, int(sm.ttl/time.Second))
	return nil
}

// Destroy marks the session for deletion on the next Commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) writeCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (sm *SessionManager) key(id string) string {
	if len(sm.secret) == 0 {
		return sessionKeyPrefix + id
	}
	mac := hmac.New(sha256.New, sm.secret)
	mac.Write([]byte(id))
	return sessionKeyPrefix + hex.EncodeToString(mac.Sum(nil))
}

func (sm *SessionManager) fresh() *Session {
	return &Session{ID: newSessionID(), dirty: true}
}

func newSessionID() string {
	return uuid.NewString()
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.data.Values == nil {
		s.data.Values = make(map[string]string)
	}
	s.data.Values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.data.Values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.data.Values[key]; ok {
		delete(s.data.Values, key)
		s.dirty = true
	}
}

// SetUser records the display name of the signed-in user.
func (s *Session) SetUser(name string) {
	s.data.User = name
	s.dirty = true
}

// User returns the display name of the signed-in user.
func (s *Session) User() string {
	return s.data.User
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.data.Flashes = append(s.data.Flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.data.Flashes) == 0 {
		return nil
	}
	msg := s.data.Flashes[0]
	s.data.Flashes = s.data.Flashes[1:]
	s.dirty = true
	return &msg
}
