// Package auth verifies bearer tokens issued by the external auth service and
// extracts the participant identity from them.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken         = errors.New("auth: no token")
	ErrInvalidToken    = errors.New("auth: invalid token")
	ErrInvalidSubject  = errors.New("auth: token has no subject")
	ErrVerifierMissing = errors.New("auth: no key configured")
)

type Config struct {
	Secret    []byte         // HS256
	PublicKey *rsa.PublicKey // RS256, takes precedence over Secret
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates access tokens. Both HS256 and RS256 issuers are supported.
type Verifier struct {
	key     any
	methods []string
	opts    []jwt.ParserOption
}

func NewVerifier(cfg Config) (*Verifier, error) {
	v := &Verifier{}
	switch {
	case cfg.PublicKey != nil:
		v.key = cfg.PublicKey
		v.methods = []string{jwt.SigningMethodRS256.Alg()}
	case len(cfg.Secret) > 0:
		v.key = cfg.Secret
		v.methods = []string{jwt.SigningMethodHS256.Alg()}
	default:
		return nil, ErrVerifierMissing
	}

	v.opts = []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.ClockSkew),
	}
	if cfg.Issuer != "" {
		v.opts = append(v.opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		v.opts = append(v.opts, jwt.WithAudience(cfg.Audience))
	}
	return v, nil
}

func (v *Verifier) Parse(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrNoToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, v.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Participant returns the display identity carried by the token: the
// username claim when present, otherwise the subject.
func (v *Verifier) Participant(tokenStr string) (string, error) {
	claims, err := v.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	if claims.Username != "" {
		return claims.Username, nil
	}
	if claims.Subject == "" {
		return "", ErrInvalidSubject
	}
	return claims.Subject, nil
}

// TokenFromRequest reads a bearer token from the Authorization header or,
// for browser websocket upgrades, from the access_token query parameter.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func LoadRSAPublicKeyFromPEM(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(b)
}
