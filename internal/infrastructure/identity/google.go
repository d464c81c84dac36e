package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errGoogleDisabled = errors.New("google sign-in is not configured")

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// GoogleConfig holds what is needed to verify Google ID tokens offline.
// Keys maps a key id to its PEM encoded RSA public key.
type GoogleConfig struct {
	ClientID string
	Keys     map[string]string
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

type googleVerifier struct {
	clientID string
	keys     map[string]*rsa.PublicKey
}

func newGoogleVerifier(cfg GoogleConfig) (*googleVerifier, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("google: client id is required")
	}
	if len(cfg.Keys) == 0 {
		return nil, errors.New("google: at least one signing key is required")
	}
	keys := make(map[string]*rsa.PublicKey, len(cfg.Keys))
	for kid, pem := range cfg.Keys {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("google: key %s: %w", kid, err)
		}
		keys[kid] = key
	}
	return &googleVerifier{clientID: cfg.ClientID, keys: keys}, nil
}

func (g *googleVerifier) verify(idToken string, now time.Time) (*googleClaims, error) {
	claims := &googleClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, g.keyFor,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(g.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("google id token: %w", err)
	}

	if !validIssuer(claims.Issuer) {
		return nil, fmt.Errorf("google id token: unexpected issuer %q", claims.Issuer)
	}
	if !claims.EmailVerified {
		return nil, errors.New("google id token: email not verified")
	}
	return claims, nil
}

func (g *googleVerifier) keyFor(t *jwt.Token) (interface{}, error) {
	kid, _ := t.Header["kid"].(string)
	if key, ok := g.keys[kid]; ok {
		return key, nil
	}
	// A single configured key is used regardless of kid.
	if len(g.keys) == 1 {
		for _, key := range g.keys {
			return key, nil
		}
	}
	return nil, fmt.Errorf("unknown key id %q", kid)
}

func validIssuer(iss string) bool {
	for _, want := range googleIssuers {
		if iss == want {
			return true
		}
	}
	return false
}
