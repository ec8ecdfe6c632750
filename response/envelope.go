// Package response defines the uniform JSON envelope every service returns.
//
// A success envelope carries a payload; a failure envelope carries an error
// code and, for validation failures, the list of rejected fields:
//
//	{"success":true,"message":"Created","data":{...},"timestamp":"..."}
//	{"success":false,"message":"Validation failed","errorCode":"4000",
//	 "subErrors":[{"field":"email","message":"is required","rejectedValue":null}],
//	 "timestamp":"..."}
package response

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/omnipulse/go-shared-kernel/errcode"
)

// now is replaced in tests.
var now = time.Now

// FieldError describes one rejected input field.
type FieldError struct {
	Field         string `json:"field"`
	Message       string `json:"message"`
	RejectedValue any    `json:"rejectedValue"`
}

// Envelope is the response wrapper. Build it with Success, Error,
// ValidationFailure or SuccessPaged; the fields are not meant to be mutated
// afterwards.
type Envelope[T any] struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message,omitempty"`
	Data      T            `json:"data,omitempty"`
	ErrorCode string       `json:"errorCode,omitempty"`
	SubErrors []FieldError `json:"subErrors,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Success builds a success envelope around data.
func Success[T any](data T, message string) Envelope[T] {
	return Envelope[T]{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: now(),
	}
}

// Error builds a failure envelope without payload.
func Error[T any](message, code string) Envelope[T] {
	return Envelope[T]{
		Success:   false,
		Message:   message,
		ErrorCode: code,
		Timestamp: now(),
	}
}

// ValidationFailure builds a failure envelope carrying the rejected fields.
// The error code is always errcode.ValidationFailed.
func ValidationFailure[T any](fields []FieldError, message string) Envelope[T] {
	return Envelope[T]{
		Success:   false,
		Message:   message,
		ErrorCode: errcode.ValidationFailed.String(),
		SubErrors: fields,
		Timestamp: now(),
	}
}

// MarshalJSON emits data only for success envelopes and error details only
// for failures. A nil payload is omitted.
func (e Envelope[T]) MarshalJSON() ([]byte, error) {
	type wire struct {
		Success   bool         `json:"success"`
		Message   string       `json:"message,omitempty"`
		Data      any          `json:"data,omitempty"`
		ErrorCode string       `json:"errorCode,omitempty"`
		SubErrors []FieldError `json:"subErrors,omitempty"`
		Timestamp time.Time    `json:"timestamp"`
	}

	w := wire{
		Success:   e.Success,
		Message:   e.Message,
		Timestamp: e.Timestamp,
	}
	if e.Success {
		if !isNil(e.Data) {
			w.Data = e.Data
		}
	} else {
		w.ErrorCode = e.ErrorCode
		w.SubErrors = e.SubErrors
	}

	return json.Marshal(w)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
