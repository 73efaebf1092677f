package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized marks any 401 from the backend.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrInvalidCredentials marks a rejected login attempt.
	ErrInvalidCredentials = errors.New("api: invalid credentials")
)

// StatusError is a non-2xx response that did not decode into a field
// validation map.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %s: backend returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("api: %s: backend returned %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// ValidationError carries the backend's per-field rejection messages,
// e.g. {"title": ["This field is required."]}.
type ValidationError struct {
	Op     string
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], "; "))
	}
	return fmt.Sprintf("api: %s: validation failed: %s", e.Op, strings.Join(parts, ", "))
}

// decodeError turns a non-2xx response into the package taxonomy. The
// backend answers either {"detail": "..."} or a field-to-messages map;
// anything else is reported verbatim.
func decodeError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err == nil && len(raw) > 0 {
		if detail, ok := raw["detail"]; ok {
			var msg string
			if json.Unmarshal(detail, &msg) == nil {
				return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: msg}
			}
		}
		if fields := fieldMessages(raw); len(fields) > 0 {
			return &ValidationError{Op: op, Fields: fields}
		}
	}
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

func fieldMessages(raw map[string]json.RawMessage) map[string][]string {
	fields := make(map[string][]string, len(raw))
	for name, val := range raw {
		var many []string
		if json.Unmarshal(val, &many) == nil {
			fields[name] = many
			continue
		}
		var one string
		if json.Unmarshal(val, &one) == nil {
			fields[name] = []string{one}
			continue
		}
		return nil
	}
	return fields
}
