// Package errcode holds the closed table of API response codes shared by every
// service. Each code has a human description and exactly one HTTP status.
//
// Codes are a public contract: consumers branch on the code string, and the
// strings may be persisted or shipped to log pipelines. Existing codes are
// never renumbered. Services may append business codes with Register.
package errcode

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// Code is one entry of the response code table. The zero Code is invalid; a
// Code can only be obtained from the predefined values, Register or Lookup.
type Code struct {
	value       string
	description string
}

type entry struct {
	code   Code
	status int
}

var (
	mu       sync.RWMutex
	registry = map[string]entry{}
)

// Predefined codes.
var (
	Success            = mustRegister("0000", "Operation successful", http.StatusOK)
	ValidationFailed   = mustRegister("4000", "Validation failed", http.StatusBadRequest)
	BadRequest         = mustRegister("4001", "Bad request", http.StatusBadRequest)
	Unauthorized       = mustRegister("4003", "Unauthorized access", http.StatusUnauthorized)
	ResourceNotFound   = mustRegister("4004", "Resource not found", http.StatusNotFound)
	Conflict           = mustRegister("4009", "Resource conflict", http.StatusConflict)
	InternalError      = mustRegister("5000", "An unexpected internal error occurred", http.StatusInternalServerError)
	ServiceUnavailable = mustRegister("5003", "Service unavailable", http.StatusServiceUnavailable)
)

var (
	// ErrCodeTaken is returned by Register when the code value is already in use.
	ErrCodeTaken = errors.New("errcode: code already registered")

	// ErrInvalidCode is returned by Register for an empty value or an
	// out-of-range HTTP status.
	ErrInvalidCode = errors.New("errcode: invalid code")
)

// Register appends a business code to the table.
func Register(value, description string, status int) (Code, error) {
	if value == "" || status < 100 || status > 599 {
		return Code{}, fmt.Errorf("%w: value=%q status=%d", ErrInvalidCode, value, status)
	}

	mu.Lock()
	defer mu.Unlock()

	if _, ok := registry[value]; ok {
		return Code{}, fmt.Errorf("%w: %s", ErrCodeTaken, value)
	}

	c := Code{value: value, description: description}
	registry[value] = entry{code: c, status: status}
	return c, nil
}

func mustRegister(value, description string, status int) Code {
	c, err := Register(value, description, status)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the registered Code for value.
func Lookup(value string) (Code, bool) {
	mu.RLock()
	defer mu.RUnlock()

	e, ok := registry[value]
	return e.code, ok
}

// MustLookup is like Lookup but panics when value is not registered.
func MustLookup(value string) Code {
	c, ok := Lookup(value)
	if !ok {
		panic(fmt.Sprintf("errcode: unknown code %q", value))
	}
	return c
}

// Codes returns every registered code ordered by value.
func Codes() []Code {
	mu.RLock()
	out := make([]Code, 0, len(registry))
	for _, e := range registry {
		out = append(out, e.code)
	}
	mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].value < out[j].value })
	return out
}

// String returns the wire value, e.g. "4004".
func (c Code) String() string { return c.value }

// Description returns the human readable description.
func (c Code) Description() string { return c.description }

// IsZero reports whether c is the invalid zero Code.
func (c Code) IsZero() bool { return c.value == "" }

// HTTPStatus returns the status mapped to c. ok is false for the zero Code.
func (c Code) HTTPStatus() (status int, ok bool) {
	if c.IsZero() {
		return 0, false
	}

	mu.RLock()
	defer mu.RUnlock()

	e, ok := registry[c.value]
	return e.status, ok
}

// MarshalText encodes the wire value.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.value), nil
}

// UnmarshalText resolves a wire value against the table.
func (c *Code) UnmarshalText(text []byte) error {
	found, ok := Lookup(string(text))
	if !ok {
		return fmt.Errorf("errcode: unknown code %q", string(text))
	}
	*c = found
	return nil
}
