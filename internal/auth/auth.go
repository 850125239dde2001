// Package auth implements the bearer-token Auth Filter gating every POST
// endpoint.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/slashless/slashless/internal/encoding"
)

// ErrMalformed is returned when the Authorization header is absent or does
// not have the "Bearer <token>" shape.
var ErrMalformed = errors.New("invalid authorization header format. Expected 'Bearer <token>'")

// ErrUnauthorized is returned when the extracted token does not match the
// configured secret.
var ErrUnauthorized = errors.New("invalid token")

const bearerPrefix = "Bearer "

// ExtractToken pulls the bearer token out of the Authorization header. It
// fails with ErrMalformed unless the header is present and has the exact
// shape "Bearer <token>" with a single space.
func ExtractToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrMalformed
	}
	token, ok := strings.CutPrefix(h, bearerPrefix)
	if !ok || token == "" || strings.Contains(token, " ") {
		return "", ErrMalformed
	}
	return token, nil
}

// Validate checks the extracted token against the configured secret in
// constant time, returning ErrUnauthorized on mismatch.
func Validate(token, secret string) error {
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// EncodingEnabled reports whether the request asked for base64-encoded
// string leaves via the upstash-encoding header.
func EncodingEnabled(r *http.Request) bool {
	return encoding.Enabled(r.Header.Get(encoding.Header))
}
