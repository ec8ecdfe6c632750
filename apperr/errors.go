// Package apperr is the error taxonomy shared by every service.
//
// All known failures are represented by a single tagged type, *Error, whose
// Kind tells the boundary translator how to render it and whose Code is the
// public response code. Use the named constructors; the sentinels below match
// an *Error of the same kind through errors.Is:
//
//	err := apperr.NotFound("User", "id", 42)
//	errors.Is(err, apperr.ErrNotFound) // true
package apperr

import (
	"errors"
	"fmt"

	"github.com/omnipulse/go-shared-kernel/errcode"
	"github.com/omnipulse/go-shared-kernel/response"
)

// Kind tags an *Error.
type Kind int

const (
	// KindApplication is a plain application error with an explicit code.
	KindApplication Kind = iota
	KindBusinessRule
	KindNotFound
	KindDuplicate
	KindUnauthorized
	KindValidation
	KindMalformedInput
	KindMissingParameter
	KindRouteNotFound
	KindMethodNotAllowed
)

var kindNames = [...]string{
	KindApplication:      "application",
	KindBusinessRule:     "business_rule",
	KindNotFound:         "not_found",
	KindDuplicate:        "duplicate",
	KindUnauthorized:     "unauthorized",
	KindValidation:       "validation",
	KindMalformedInput:   "malformed_input",
	KindMissingParameter: "missing_parameter",
	KindRouteNotFound:    "route_not_found",
	KindMethodNotAllowed: "method_not_allowed",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Sentinel errors, one per kind.
var (
	ErrApplication      = &kindError{KindApplication}
	ErrBusinessRule     = &kindError{KindBusinessRule}
	ErrNotFound         = &kindError{KindNotFound}
	ErrDuplicate        = &kindError{KindDuplicate}
	ErrUnauthorized     = &kindError{KindUnauthorized}
	ErrValidation       = &kindError{KindValidation}
	ErrMalformedInput   = &kindError{KindMalformedInput}
	ErrMissingParameter = &kindError{KindMissingParameter}
	ErrRouteNotFound    = &kindError{KindRouteNotFound}
	ErrMethodNotAllowed = &kindError{KindMethodNotAllowed}
)

type kindError struct {
	kind Kind
}

func (e *kindError) Error() string { return "apperr: " + e.kind.String() }

// Error is an application error. Message is safe to return to callers.
type Error struct {
	Kind    Kind
	Code    errcode.Code
	Message string

	// Fields lists the rejected fields of a validation error.
	Fields []response.FieldError

	// Parameter is the missing parameter name.
	Parameter string

	// Method and Path describe the request that matched no route.
	Method string
	Path   string

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Message, e.Code, e.Kind, e.cause)
	}
	return fmt.Sprintf("%s [%s]", e.Message, e.Code)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(*kindError)
	return ok && k.kind == e.Kind
}

// New builds an application error with an explicit code. It panics on the
// zero Code.
func New(message string, code errcode.Code) *Error {
	return build(KindApplication, message, code, nil)
}

// Wrap is like New but records cause for server-side logging.
func Wrap(cause error, message string, code errcode.Code) *Error {
	return build(KindApplication, message, code, cause)
}

// BusinessRule reports a violated business rule.
func BusinessRule(message string) *Error {
	return build(KindBusinessRule, message, errcode.BadRequest, nil)
}

// BusinessRuleWithCode reports a violated business rule with a service
// specific code.
func BusinessRuleWithCode(message string, code errcode.Code) *Error {
	return build(KindBusinessRule, message, code, nil)
}

// NotFound reports a missing resource looked up by field.
func NotFound(resource, field string, value any) *Error {
	msg := fmt.Sprintf("%s not found with %s: '%v'", resource, field, value)
	return build(KindNotFound, msg, errcode.ResourceNotFound, nil)
}

// Duplicate reports a resource that already exists with the given field
// value.
func Duplicate(resource, field string, value any) *Error {
	msg := fmt.Sprintf("%s already exists with %s: '%v'", resource, field, value)
	return build(KindDuplicate, msg, errcode.Conflict, nil)
}

// DuplicateWithCode reports a conflict with a caller supplied message and code.
func DuplicateWithCode(message string, code errcode.Code) *Error {
	return build(KindDuplicate, message, code, nil)
}

// Unauthorized reports a missing or rejected credential.
func Unauthorized(message string, cause error) *Error {
	if message == "" {
		message = errcode.Unauthorized.Description()
	}
	return build(KindUnauthorized, message, errcode.Unauthorized, cause)
}

// Validation reports rejected input fields.
func Validation(fields ...response.FieldError) *Error {
	e := build(KindValidation, errcode.ValidationFailed.Description(), errcode.ValidationFailed, nil)
	e.Fields = fields
	return e
}

// MalformedInput reports a request body that could not be decoded.
func MalformedInput(cause error) *Error {
	return build(KindMalformedInput, "Malformed JSON request", errcode.BadRequest, cause)
}

// MissingParameter reports a required request parameter that was not sent.
func MissingParameter(name string) *Error {
	e := build(KindMissingParameter, "Missing parameter: "+name, errcode.BadRequest, nil)
	e.Parameter = name
	return e
}

// RouteNotFound reports a request that matched no route.
func RouteNotFound(method, path string) *Error {
	e := build(KindRouteNotFound, "Endpoint not found", errcode.ResourceNotFound, nil)
	e.Method = method
	e.Path = path
	return e
}

// MethodNotAllowed reports a route that does not accept method.
func MethodNotAllowed(method, path string) *Error {
	e := build(KindMethodNotAllowed, fmt.Sprintf("Method %s not allowed", method), errcode.BadRequest, nil)
	e.Method = method
	e.Path = path
	return e
}

func build(kind Kind, message string, code errcode.Code, cause error) *Error {
	if code.IsZero() {
		panic("apperr: zero error code")
	}
	return &Error{Kind: kind, Code: code, Message: message, cause: cause}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	e, ok := As(err)
	if !ok {
		return 0, false
	}
	return e.Kind, true
}
