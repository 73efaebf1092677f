package stub

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"huntlab.org/internal/session"
)

const issuer = "huntlab-stub"

const (
	kindAccess  = "access"
	kindRefresh = "refresh"

	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("stub: invalid token")

type claims struct {
	Role session.Role `json:"role"`
	Kind string       `json:"kind"`
	jwt.RegisteredClaims
}

// issueToken signs an HS256 token of the given kind for username.
func issueToken(secret []byte, username string, role session.Role, kind string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	c := claims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// parseToken verifies signature, expiry, issuer and kind.
func parseToken(secret []byte, token, kind string) (*claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Kind != kind || strings.TrimSpace(c.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
