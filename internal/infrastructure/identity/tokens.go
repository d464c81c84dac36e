package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/docbook/booking-system/internal/core/domain"
)

const (
	defaultTokenTTL = 24 * time.Hour
	tokenIssuer     = "docbook"
)

// TokenIssuer signs the HS256 session tokens handed out at sign-in. The
// auth middleware verifies them with the same secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for raw and its expiry.
func (t *TokenIssuer) Issue(raw domain.RawIdentity) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := jwt.MapClaims{
		"iss":      tokenIssuer,
		"sub":      raw.ID,
		"email":    raw.Email,
		"name":     raw.DisplayName,
		"picture":  raw.PhotoURL,
		"provider": raw.Provider,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a session token and returns its claims.
func (t *TokenIssuer) Parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
