// Package token signs session claims into compact HS256 JWTs and verifies them back.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/fastygo/mudai/domain"
)

// Algorithm is the only signing algorithm the codec issues or accepts.
const Algorithm = "HS256"

var (
	errEmptyToken     = errors.New("empty token")
	errTokenExpired   = errors.New("token expired")
	errMissingExpires = errors.New("claims carry no expiry")
	errIssuerMismatch = errors.New("issuer mismatch")
)

// Config holds the codec settings. Secret is required.
type Config struct {
	Secret  string
	Horizon time.Duration
	Issuer  string
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// Codec is the only component holding the signing secret.
type Codec struct {
	key     []byte
	horizon time.Duration
	issuer  string
	now     func() time.Time
	parser  *jwt.Parser
}

// Verified is the result of a successful Verify: the signed claims plus the
// metadata the codec added at signing time.
type Verified struct {
	Claims    domain.Claims
	Algorithm string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionClaims struct {
	domain.Claims
	jwt.RegisteredClaims
}

// NewCodec builds a codec around an injected secret.
func NewCodec(cfg Config, opts ...Option) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token: secret is required")
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = time.Hour
	}
	c := &Codec{
		key:     []byte(cfg.Secret),
		horizon: cfg.Horizon,
		issuer:  cfg.Issuer,
		now:     time.Now,
		parser:  jwt.NewParser(jwt.WithValidMethods([]string{Algorithm}), jwt.WithoutClaimsValidation()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sign embeds the claims together with iat, exp, iss and a random jti.
// A zero Expires is filled with now+horizon so every token carries one.
func (c *Codec) Sign(claims domain.Claims) (string, error) {
	now := c.now()
	if claims.Expires.IsZero() {
		claims.Expires = now.Add(c.horizon)
	}
	// exp has second precision; keep expires on the same instant
	claims.Expires = domain.WholeSecond(claims.Expires)

	payload := sessionClaims{
		Claims: claims,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(claims.Expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify decodes a token produced by Sign. Every failure is reported as
// domain.ErrInvalidToken with the cause wrapped.
func (c *Codec) Verify(raw string) (*Verified, error) {
	if raw == "" {
		return nil, invalid(errEmptyToken)
	}

	var payload sessionClaims
	parsed, err := c.parser.ParseWithClaims(raw, &payload, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, invalid(err)
	}

	now := c.now()
	if payload.Claims.Expires.IsZero() {
		return nil, invalid(errMissingExpires)
	}
	if !payload.VerifyExpiresAt(now, true) || payload.Claims.IsExpired(now) {
		return nil, invalid(errTokenExpired)
	}
	if c.issuer != "" && !payload.VerifyIssuer(c.issuer, true) {
		return nil, invalid(errIssuerMismatch)
	}

	verified := &Verified{
		Claims:    payload.Claims,
		Algorithm: parsed.Method.Alg(),
		ID:        payload.ID,
	}
	if payload.IssuedAt != nil {
		verified.IssuedAt = payload.IssuedAt.Time
	}
	if payload.ExpiresAt != nil {
		verified.ExpiresAt = payload.ExpiresAt.Time
	}
	return verified, nil
}

func invalid(cause error) error {
	return domain.WrapError(domain.ErrCodeUnauthorized, domain.ErrInvalidToken.Message, cause)
}
