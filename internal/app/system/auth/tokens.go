package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired, or mis-signed tokens.
var ErrInvalidToken = errors.New("invalid token")

const socketAudience = "volunteerhub-socket"

// SocketClaims identify a user on the websocket handshake. Browsers cannot
// set headers on a websocket upgrade, so a short-lived token travels in the
// query string instead of the session cookie when the socket is cross-origin.
type SocketClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies socket tokens with HS256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer. ttl <= 0 defaults to 5 minutes.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for u and returns it with its expiry.
func (ti *TokenIssuer) Issue(u SessionUser) (string, time.Time, error) {
	now := ti.now()
	exp := now.Add(ti.ttl)
	claims := SocketClaims{
		UserID: u.ID,
		Email:  u.Email,
		Type:   u.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Audience:  jwt.ClaimStrings{socketAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign socket token: %w", err)
	}
	return tok, exp, nil
}

// Parse verifies token and returns the user it names.
func (ti *TokenIssuer) Parse(token string) (*SessionUser, error) {
	parsed, err := jwt.ParseWithClaims(token, &SocketClaims{}, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(socketAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := parsed.Claims.(*SocketClaims)
	if !ok || !parsed.Valid || c.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &SessionUser{ID: c.UserID, Email: c.Email, Type: c.Type}, nil
}
