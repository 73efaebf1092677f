package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"huntlab.org/internal/session"
)

// TokenPair is the credential grant issued on login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Registration is the sign-up payload. Role defaults to hunter when
// left empty.
type Registration struct {
	Username    string       `json:"username"`
	Email       string       `json:"email"`
	Password    string       `json:"password"`
	PhoneNumber string       `json:"phone_number,omitempty"`
	Role        session.Role `json:"role,omitempty"`
}

// Login exchanges credentials for a token pair. Rejected credentials
// surface as ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, username, password string) (TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, fmt.Errorf("api: login: %w", ErrInvalidCredentials)
	}

	var out TokenPair
	in := map[string]string{"username": username, "password": password}
	if err := c.postJSON(ctx, "login", "/api/v1/token/", in, &out, false); err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusBadRequest) {
			return TokenPair{}, fmt.Errorf("api: login: %w", ErrInvalidCredentials)
		}
		return TokenPair{}, err
	}
	if out.Access == "" || out.Refresh == "" {
		return TokenPair{}, &StatusError{Op: "login", StatusCode: http.StatusOK, Message: "incomplete token pair"}
	}
	return out, nil
}

// Refresh trades a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var out struct {
		Access string `json:"access"`
	}
	in := map[string]string{"refresh": refreshToken}
	if err := c.postJSON(ctx, "refresh", "/api/v1/token/refresh/", in, &out, false); err != nil {
		return "", err
	}
	return out.Access, nil
}

// Register creates an account and returns the profile the backend
// stored for it.
func (c *Client) Register(ctx context.Context, reg Registration) (session.UserProfile, error) {
	if reg.Role == "" {
		reg.Role = session.RoleHunter
	}
	var out session.UserProfile
	if err := c.postJSON(ctx, "register", "/api/v1/auth/register/", reg, &out, false); err != nil {
		return session.UserProfile{}, err
	}
	return out, nil
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (session.UserProfile, error) {
	var out session.UserProfile
	if err := c.get(ctx, "me", "/api/v1/auth/me/", &out); err != nil {
		return session.UserProfile{}, err
	}
	return out, nil
}

// Logout invalidates the server-side session. Local state is the
// caller's to clear.
func (c *Client) Logout(ctx context.Context) error {
	return c.postJSON(ctx, "logout", "/api/v1/auth/logout/", nil, nil, true)
}
