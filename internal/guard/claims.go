package guard

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken indicates the access token could not be decoded or
// carries no expiry claim.
var ErrMalformedToken = errors.New("guard: malformed access token")

var parser = jwt.NewParser()

// accessExpiry decodes the token's claims without contacting the network
// and returns the embedded expiry. The signature is deliberately not
// verified: the client holds no signing secret, and enforcement belongs to
// the backend. A token without an exp claim is malformed.
func accessExpiry(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, ErrMalformedToken
	}
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, ErrMalformedToken
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrMalformedToken
	}
	return exp.Time, nil
}
