// Package auth guards the moderation routes.
//
// There is a single operator credential. A successful login issues an opaque
// session token; a statically configured token is accepted as well.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/newsdesk/internal/domain"
)

const (
	DefaultSessionTTL    = 12 * time.Hour
	DefaultMaxFailures   = 5
	DefaultFailureWindow = 5 * time.Minute
)

// ErrBlocked is returned while a client is locked out after repeated failures.
var ErrBlocked = errors.New("too many failed login attempts")

type Config struct {
	Username    string
	Password    string
	StaticToken string

	SessionTTL    time.Duration
	MaxFailures   int
	FailureWindow time.Duration

	Now func() time.Time
}

// Session is what the client receives after logging in.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Guard struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]Session
	failures map[string][]time.Time
}

func New(cfg Config) *Guard {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = DefaultFailureWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Guard{
		cfg:      cfg,
		sessions: make(map[string]Session),
		failures: make(map[string][]time.Time),
	}
}

// Login checks the operator credential for a client identified by ip.
// It returns ErrBlocked once ip has MaxFailures failures inside FailureWindow.
func (g *Guard) Login(ip, username, password string) (Session, error) {
	now := g.cfg.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.sweepLocked(now)
	if len(g.failures[ip]) >= g.cfg.MaxFailures {
		return Session{}, ErrBlocked
	}

	if !g.credentialsMatch(username, password) {
		g.failures[ip] = append(g.failures[ip], now)
		return Session{}, domain.Unauthorized("invalid credentials")
	}
	delete(g.failures, ip)

	token, err := newToken()
	if err != nil {
		return Session{}, err
	}
	s := Session{Token: token, Username: g.cfg.Username, ExpiresAt: now.Add(g.cfg.SessionTTL)}
	g.sessions[token] = s
	return s, nil
}

// Authenticate resolves a bearer token to the operator identity.
func (g *Guard) Authenticate(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	if g.cfg.StaticToken != "" && equal(token, g.cfg.StaticToken) {
		if g.cfg.Username != "" {
			return g.cfg.Username, true
		}
		return "operator", true
	}

	now := g.cfg.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[token]
	if !ok {
		return "", false
	}
	if !now.Before(s.ExpiresAt) {
		delete(g.sessions, token)
		return "", false
	}
	return s.Username, true
}

// Logout drops a session token. Unknown tokens are ignored.
func (g *Guard) Logout(token string) {
	g.mu.Lock()
	delete(g.sessions, token)
	g.mu.Unlock()
}

// Sessions returns the number of live sessions
func (g *Guard) Sessions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweepLocked(g.cfg.Now())
	return len(g.sessions)
}

func (g *Guard) credentialsMatch(username, password string) bool {
	if g.cfg.Username == "" || g.cfg.Password == "" {
		return false
	}
	// evaluate both to keep timing independent of which field is wrong
	u := equal(username, g.cfg.Username)
	p := equal(password, g.cfg.Password)
	return u && p
}

func (g *Guard) sweepLocked(now time.Time) {
	for token, s := range g.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(g.sessions, token)
		}
	}
	cutoff := now.Add(-g.cfg.FailureWindow)
	for ip, times := range g.failures {
		kept := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(g.failures, ip)
		} else {
			g.failures[ip] = kept
		}
	}
}

// equal compares digests so the comparison does not leak the secret length.
func equal(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

type operatorKey struct{}

// WithOperator stores the authenticated operator in ctx
func WithOperator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operatorKey{}, name)
}

// OperatorFrom returns the operator stored by WithOperator
func OperatorFrom(ctx context.Context) string {
	name, _ := ctx.Value(operatorKey{}).(string)
	return name
}
