// Package session owns the session cookie: issuing it, reading it back,
// sliding its expiry and clearing it.
package session

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/internal/token"
)

// Outcome classifies what a presented cookie turned out to be.
type Outcome int

const (
	// Absent means no session cookie was presented.
	Absent Outcome = iota
	// Invalid means a cookie was presented but failed verification.
	Invalid
	// Active means the cookie carried a valid session.
	Active
)

func (o Outcome) String() string {
	switch o {
	case Active:
		return "active"
	case Invalid:
		return "invalid"
	default:
		return "absent"
	}
}

// Codec is the subset of token.Codec the manager relies on.
type Codec interface {
	Sign(claims domain.Claims) (string, error)
	Verify(raw string) (*token.Verified, error)
}

// Config controls the sliding horizon and cookie attributes.
type Config struct {
	TTL    time.Duration
	Cookie CookiePolicy
}

// Manager is the only component reading or writing the session cookie.
type Manager struct {
	codec  Codec
	ttl    time.Duration
	cookie CookiePolicy
	now    func() time.Time
	logger *zap.Logger
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the time source used to compute expiries.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager wires a manager around the codec.
func NewManager(codec Codec, cfg Config, logger *zap.Logger, opts ...Option) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		codec:  codec,
		ttl:    cfg.TTL,
		cookie: cfg.Cookie.normalize(),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the sliding horizon applied on establish and refresh.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Establish signs a new session for the identity and writes it as the cookie.
func (m *Manager) Establish(ex Exchange, identity domain.Identity) (*domain.Claims, error) {
	if identity.Username == "" {
		return nil, domain.ErrInvalidPayload
	}
	claims := &domain.Claims{
		User:    identity,
		Expires: domain.WholeSecond(m.now().Add(m.ttl)),
	}
	if err := m.write(ex, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Lookup reads and verifies the session cookie without touching the response.
func (m *Manager) Lookup(ex Exchange) (*domain.Claims, Outcome) {
	raw := ex.Cookie(CookieName)
	if raw == "" {
		return nil, Absent
	}
	verified, err := m.codec.Verify(raw)
	if err != nil {
		m.logger.Debug("session cookie rejected", zap.Error(err))
		return nil, Invalid
	}
	claims := verified.Claims
	return &claims, Active
}

// Current returns the active session, if any. Invalid cookies read as no session.
func (m *Manager) Current(ex Exchange) (*domain.Claims, bool) {
	claims, outcome := m.Lookup(ex)
	return claims, outcome == Active
}

// Destroy overwrites the cookie with an empty, already expired value.
func (m *Manager) Destroy(ex Exchange) {
	cookie := m.cookie.build("", m.now().Add(-time.Second))
	defer fasthttp.ReleaseCookie(cookie)
	ex.SetCookie(cookie)
}

// Refresh slides the expiry of a valid session and replaces the cookie.
// Absent and invalid cookies are left untouched.
func (m *Manager) Refresh(ex Exchange) Outcome {
	claims, outcome := m.Lookup(ex)
	if outcome != Active {
		return outcome
	}

	next := domain.WholeSecond(m.now().Add(m.ttl))
	if !next.After(claims.Expires) {
		// keep expiries strictly increasing even under a coarse clock
		next = claims.Expires.Add(time.Second)
	}
	claims.Expires = next

	if err := m.write(ex, claims); err != nil {
		m.logger.Warn("session refresh failed", zap.Error(err))
	}
	return Active
}

func (m *Manager) write(ex Exchange, claims *domain.Claims) error {
	signed, err := m.codec.Sign(*claims)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "failed to sign session", err)
	}
	cookie := m.cookie.build(signed, claims.Expires)
	defer fasthttp.ReleaseCookie(cookie)
	ex.SetCookie(cookie)
	return nil
}
