// Package result provides Result, the outcome of a call chain that either
// produced data or failed with a message and an error code.
package result

import (
	"errors"

	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/errcode"
)

// Result is either a success carrying data or a failure carrying a message and
// a code. The zero Result is a failure with empty message and code.
type Result[T any] struct {
	data    T
	message string
	code    string
	ok      bool
}

// Success builds a successful result.
func Success[T any](data T) Result[T] {
	return Result[T]{data: data, ok: true}
}

// Failure builds a failed result.
func Failure[T any](message, code string) Result[T] {
	return Result[T]{message: message, code: code}
}

// FromError converts err into a failure. Application errors keep their
// message and code; any other error becomes an internal error so that its
// text does not travel further.
func FromError[T any](err error) Result[T] {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return Failure[T](appErr.Message, appErr.Code.String())
	}
	return Failure[T](errcode.InternalError.Description(), errcode.InternalError.String())
}

// IsSuccess reports whether r is a success.
func (r Result[T]) IsSuccess() bool { return r.ok }

// Data returns the payload of a success.
func (r Result[T]) Data() (T, bool) { return r.data, r.ok }

// Failure returns the message and code of a failure.
func (r Result[T]) Failure() (message, code string, ok bool) {
	return r.message, r.code, !r.ok
}

// Map transforms the payload of a success and passes failures through.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if !r.ok {
		return Failure[U](r.message, r.code)
	}
	return Success(fn(r.data))
}

// FlatMap chains a result-returning step onto a success.
func FlatMap[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	if !r.ok {
		return Failure[U](r.message, r.code)
	}
	return fn(r.data)
}

// Match folds r into a single value.
func Match[T, U any](r Result[T], onSuccess func(T) U, onFailure func(message, code string) U) U {
	if r.ok {
		return onSuccess(r.data)
	}
	return onFailure(r.message, r.code)
}
