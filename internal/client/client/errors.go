package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Error kinds. Every error returned by this package matches exactly one of
// them with errors.Is.
var (
	ErrAuthentication = errors.New("authentication required")
	ErrValidation     = errors.New("invalid input")
	ErrNetwork        = errors.New("server unavailable")
	ErrServer         = errors.New("request failed")

	ErrNoRefreshToken = errors.New("no refresh token")
)

// APIError is the normalized form of a failed call.
type APIError struct {
	Kind   error
	Status int
	// Message is the server-provided (or client-side validation) message;
	// empty when there was none.
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string][]string
	Err    error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Is(target error) bool { return target == e.Kind }

func (e *APIError) Unwrap() error { return e.Err }

// FieldError returns the first message for field, or "".
func (e *APIError) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// NewValidationError builds an ErrValidation from per-field messages.
func NewValidationError(fields map[string][]string) *APIError {
	return &APIError{Kind: ErrValidation, Message: firstFieldMessage(fields), Fields: fields}
}

func networkError(err error) *APIError {
	return &APIError{Kind: ErrNetwork, Err: err}
}

const maxErrorBody = 64 << 10

// mapResponse turns an error response into an *APIError. The body is
// consumed but not closed.
func mapResponse(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message, fields := parseErrorBody(body)

	e := &APIError{Status: resp.StatusCode, Message: message, Fields: fields}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		e.Kind = ErrAuthentication
	case resp.StatusCode == http.StatusBadRequest && len(fields) > 0 && message == firstFieldMessage(fields):
		e.Kind = ErrValidation
	default:
		e.Kind = ErrServer
	}
	return e
}

// parseErrorBody understands the backend's error shapes:
// {"detail": "..."}, {"message": "..."}, {"error": "..."} and DRF
// field errors {"field": ["msg", ...], "non_field_errors": [...]}.
func parseErrorBody(body []byte) (string, map[string][]string) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", nil
	}

	for _, key := range []string{"detail", "message", "error"} {
		if v, ok := raw[key]; ok {
			var s string
			if json.Unmarshal(v, &s) == nil && s != "" {
				return s, nil
			}
		}
	}

	fields := make(map[string][]string)
	for key, v := range raw {
		var list []string
		if json.Unmarshal(v, &list) == nil && len(list) > 0 {
			fields[key] = list
			continue
		}
		var s string
		if json.Unmarshal(v, &s) == nil && s != "" {
			fields[key] = []string{s}
		}
	}
	if len(fields) == 0 {
		return "", nil
	}
	return firstFieldMessage(fields), fields
}

func firstFieldMessage(fields map[string][]string) string {
	if msgs := fields["non_field_errors"]; len(msgs) > 0 {
		return msgs[0]
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(fields[k]) > 0 {
			return fields[k][0]
		}
	}
	return ""
}
