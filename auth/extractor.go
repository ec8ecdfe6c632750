package auth

import (
	"errors"
	"net/http"
	"strings"
)

// ErrMalformedAuthHeader is returned when the Authorization header is not of
// the form "Bearer <token>".
var ErrMalformedAuthHeader = errors.New("authorization header format must be Bearer {token}")

// TokenExtractor pulls a raw token from a request. A request without a token
// yields an empty string and no error; an error means a token was sent but
// could not be read.
type TokenExtractor func(r *http.Request) (string, error)

// AuthHeaderTokenExtractor reads a bearer token from the Authorization header.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMalformedAuthHeader
	}
	return parts[1], nil
}

// CookieTokenExtractor reads the token from the named cookie.
func CookieTokenExtractor(name string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(name)
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return cookie.Value, nil
	}
}

// ParameterTokenExtractor reads the token from a query parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return r.URL.Query().Get(param), nil
	}
}

// MultiTokenExtractor returns the first non-empty token found by extractors.
// The first error stops the search.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
