package session

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"basketboard/adapters/backend"
	"basketboard/internal/errors"
)

// Fixed file names under the state dir, mirroring the persisted keys the
// dashboard has always used.
const (
	tokenFile = "token"
	userFile  = "user"
)

// Session is the authenticated identity. At most one is active.
type Session struct {
	ID       int       `json:"id"`
	Username string    `json:"username"`
	Token    string    `json:"token"`
	Expiry   time.Time `json:"-"`
}

// AuthClient is the slice of the backend the store talks to.
type AuthClient interface {
	Login(ctx context.Context, username, password string) (*backend.LoginResponse, error)
	Register(ctx context.Context, username, email, password string) error
}

// Store owns the bearer credential and user identity, persisted across
// restarts in the state directory. Mutation happens through Login,
// Restore, Logout and Expire only; reads are safe from any goroutine.
type Store struct {
	mu       sync.RWMutex
	stateDir string
	auth     AuthClient
	current  *Session
	restored bool
}

// NewStore creates a session store persisting under stateDir.
func NewStore(stateDir string, auth AuthClient) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create session state directory")
	}
	return &Store{stateDir: stateDir, auth: auth}, nil
}

// Login authenticates against the backend and, on success, persists the
// token and identity and marks the session active. On failure the session
// stays empty.
func (s *Store) Login(ctx context.Context, username, password string) (*Session, error) {
	resp, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:       resp.UserID,
		Username: resp.Username,
		Token:    resp.AccessToken,
		Expiry:   tokenExpiry(resp.AccessToken),
	}

	s.mu.Lock()
	s.current = sess
	s.restored = true
	s.mu.Unlock()

	if err := s.persist(sess); err != nil {
		// The live session still works; it just won't survive a restart.
		log.Printf("[Session] Failed to persist session: %v", err)
	}

	return s.copyCurrent(), nil
}

// Register creates an account without establishing a session.
func (s *Store) Register(ctx context.Context, username, email, password string) error {
	return s.auth.Register(ctx, username, email, password)
}

// Logout clears the persisted credential and identity. It cannot fail.
func (s *Store) Logout() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	os.Remove(filepath.Join(s.stateDir, tokenFile))
	os.Remove(filepath.Join(s.stateDir, userFile))
	log.Printf("[Session] Logged out")
}

// Expire tears the session down after the backend rejected its token.
func (s *Store) Expire() {
	log.Printf("[Session] Session expired, clearing credentials")
	s.Logout()
}

// Restore re-establishes the session from disk. It runs synchronously at
// startup, before any protected route is served, so a restart never
// bounces an authenticated user through login. Returns nil when nothing
// usable is persisted.
func (s *Store) Restore() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restored = true

	token, err := os.ReadFile(filepath.Join(s.stateDir, tokenFile))
	if err != nil {
		return nil
	}
	raw, err := os.ReadFile(filepath.Join(s.stateDir, userFile))
	if err != nil {
		return nil
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		log.Printf("[Session] Persisted identity unreadable, discarding: %v", err)
		return nil
	}
	if sess.Token == "" {
		sess.Token = string(token)
	}

	sess.Expiry = tokenExpiry(sess.Token)
	if !sess.Expiry.IsZero() && time.Now().After(sess.Expiry) {
		log.Printf("[Session] Persisted token expired at %s, discarding", sess.Expiry.Format(time.RFC3339))
		return nil
	}

	s.current = &sess
	log.Printf("[Session] Restored session for %s", sess.Username)
	copied := sess
	return &copied
}

// Current returns a copy of the active session, nil when logged out.
func (s *Store) Current() *Session {
	return s.copyCurrent()
}

// Token returns the bearer token for outbound calls, empty when logged
// out. This is the token source wired into the backend client.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Active reports whether a session is established.
func (s *Store) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Restored reports whether startup restore has completed. Route guards
// render a loading state until it has, never a flash of the login page.
func (s *Store) Restored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

func (s *Store) copyCurrent() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

func (s *Store) persist(sess *Session) error {
	if err := os.WriteFile(filepath.Join(s.stateDir, tokenFile), []byte(sess.Token), 0o600); err != nil {
		return err
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.stateDir, userFile), raw, 0o600)
}

// tokenExpiry pulls the exp claim out of the JWT without verifying the
// signature; the token is otherwise opaque to this client. Zero time when
// the token isn't a JWT or carries no exp.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
