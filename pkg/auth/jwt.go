// Package auth validates scribe tokens and rate-limits callers. Tokens are
// issued elsewhere; only their signature and claims are checked here.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrMissingToken  = errors.New("missing authentication token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Claims identifies the scribe making a request
type Claims struct {
	ScribeID       string `json:"sub"`
	OrganizationID string `json:"org,omitempty"`
	jwt.RegisteredClaims
}

// Config configures HS256 validation
type Config struct {
	Secret   string
	Issuer   string
	Audience string
}

// Validator checks HS256-signed scribe tokens
type Validator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewValidator creates a validator. The secret is required.
func NewValidator(cfg Config) (*Validator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("secret key required for HS256")
	}
	return &Validator{secret: []byte(cfg.Secret), issuer: cfg.Issuer, audience: cfg.Audience}, nil
}

// Validate parses token and returns its claims
func (v *Validator) Validate(token string) (*Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.ScribeID == "" {
		return nil, fmt.Errorf("%w: missing scribe id", ErrInvalidClaims)
	}
	return claims, nil
}

// Issue signs a token for scribeID. It is used by the CLI and by tests.
func (v *Validator) Issue(scribeID, organizationID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ScribeID:       scribeID,
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// HasAudience reports whether claims name aud
func (c *Claims) HasAudience(aud string) bool {
	return slices.Contains(c.Audience, aud)
}
