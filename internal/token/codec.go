// Package token issues and verifies signed, time-bounded identity tokens (HS256 JWT).
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/talentgate/internal/model"
)

var (
	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned for bad signatures, structure or claims.
	ErrTokenMalformed = errors.New("token malformed")
)

// Codec signs and verifies tokens with a process-wide secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// Option customizes a Codec.
type Option func(*Codec)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithIssuer sets and enforces the iss claim.
func WithIssuer(iss string) Option {
	return func(c *Codec) { c.issuer = iss }
}

// NewCodec constructs a Codec. ttl is the fixed horizon from issuance.
func NewCodec(secret []byte, ttl time.Duration, opts ...Option) *Codec {
	c := &Codec{secret: secret, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate issues a new token for the identity.
func (c *Codec) Generate(id model.Identity) (string, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("token: new id: %w", err)
	}
	// JWT times have second precision; truncate so exp-iat is exactly ttl.
	now := c.now().Truncate(time.Second)
	claims := model.Claims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the claims.
// Failures are ErrTokenExpired or ErrTokenMalformed.
func (c *Codec) Verify(tok string) (*model.Claims, error) {
	var claims model.Claims
	parsed, err := jwt.ParseWithClaims(tok, &claims, c.keyFunc, c.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.UserID == 0 || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing identity claims", ErrTokenMalformed)
	}
	return &claims, nil
}

// Decode parses claims without verifying the signature or expiry.
// Diagnostic only: never authorize anything with its result.
func Decode(tok string) (*model.Claims, bool) {
	var claims model.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return nil, false
	}
	return &claims, true
}

// Refresh verifies old and issues a new token carrying the same identity
// with a fresh issued-at and a full horizon.
func (c *Codec) Refresh(old string) (string, error) {
	claims, err := c.Verify(old)
	if err != nil {
		return "", err
	}
	return c.Generate(claims.Identity)
}

// ExpiresAt returns the unverified expiry of tok, if present.
func ExpiresAt(tok string) (time.Time, bool) {
	claims, ok := Decode(tok)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, errors.New("unexpected signing method")
	}
	return c.secret, nil
}

func (c *Codec) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	return opts
}
