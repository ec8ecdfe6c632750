package sharedkernel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/errcode"
	"github.com/omnipulse/go-shared-kernel/reqctx"
	"github.com/omnipulse/go-shared-kernel/response"
)

// Messages returned for errors that carry no message of their own.
const (
	MessageValidationFailed = "Validation failed"
	MessageMalformedInput   = "Malformed JSON request"
)

// ErrorTranslator maps any error raised while handling a request to an HTTP
// status and a failure envelope. Known errors keep their code and message;
// anything else becomes a generic internal error so that no internal detail
// reaches the caller.
type ErrorTranslator struct {
	logger        Logger
	metrics       Metrics
	fieldMessages map[string]string
}

// NewErrorTranslator constructs an ErrorTranslator.
func NewErrorTranslator(opts ...TranslatorOption) (*ErrorTranslator, error) {
	t := &ErrorTranslator{
		metrics: NoopMetrics{},
		fieldMessages: map[string]string{
			"required": "must not be null",
			"email":    "must be a well-formed email address",
			"uuid":     "must be a valid UUID",
			"url":      "must be a valid URL",
		},
	}

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return t, nil
}

// Handle writes the translated error as JSON.
func (t *ErrorTranslator) Handle(w http.ResponseWriter, r *http.Request, err error) {
	status, body := t.Translate(r, err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil && t.logger != nil {
		t.logger.Error("failed to write error response", "error", encErr)
	}
}

// Translate returns the status and envelope for err. r may be nil; it is only
// used for logging.
func (t *ErrorTranslator) Translate(r *http.Request, err error) (int, response.Envelope[any]) {
	var args []any
	if r != nil {
		args = append([]any{"method", r.Method, "path", r.URL.Path}, reqctx.LogArgs(r.Context())...)
	}
	return t.translate(err, args)
}

// TranslateContext is Translate for transports without an *http.Request.
// route names the called operation, such as a gRPC full method, and the
// request ids are read from ctx.
func (t *ErrorTranslator) TranslateContext(ctx context.Context, route string, err error) (int, response.Envelope[any]) {
	var args []any
	if route != "" {
		args = append(args, "path", route)
	}
	return t.translate(err, append(args, reqctx.LogArgs(ctx)...))
}

func (t *ErrorTranslator) translate(err error, requestArgs []any) (int, response.Envelope[any]) {
	status, body, internal := t.classify(err)

	t.metrics.IncCounter(MetricErrorsTranslated, map[string]string{
		"code":   body.ErrorCode,
		"status": strconv.Itoa(status),
	})

	if t.logger != nil {
		args := append([]any{"code", body.ErrorCode, "status", status}, requestArgs...)
		if internal {
			t.logger.Error("unexpected error", append(args, "error", fmt.Sprintf("%+v", err))...)
		} else {
			t.logger.Warn("application error", append(args, "message", body.Message)...)
		}
	}

	return status, body
}

func (t *ErrorTranslator) classify(err error) (int, response.Envelope[any], bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, response.ValidationFailure[any](t.fieldErrors(verrs), MessageValidationFailed), false
	}

	if e, ok := apperr.As(err); ok {
		switch e.Kind {
		case apperr.KindValidation:
			return http.StatusBadRequest, response.ValidationFailure[any](e.Fields, MessageValidationFailed), false
		case apperr.KindMalformedInput:
			return http.StatusBadRequest, response.Error[any](MessageMalformedInput, errcode.BadRequest.String()), false
		case apperr.KindMissingParameter:
			return http.StatusBadRequest, response.Error[any](e.Message, errcode.BadRequest.String()), false
		case apperr.KindRouteNotFound:
			return http.StatusNotFound, response.Error[any](e.Message, errcode.ResourceNotFound.String()), false
		case apperr.KindMethodNotAllowed:
			return http.StatusMethodNotAllowed, response.Error[any](e.Message, errcode.BadRequest.String()), false
		case apperr.KindApplication, apperr.KindBusinessRule, apperr.KindNotFound,
			apperr.KindDuplicate, apperr.KindUnauthorized:
			status, ok := e.Code.HTTPStatus()
			if !ok {
				status = http.StatusInternalServerError
			}
			return status, response.Error[any](e.Message, e.Code.String()), false
		}
	}

	if isMalformedInput(err) {
		return http.StatusBadRequest, response.Error[any](MessageMalformedInput, errcode.BadRequest.String()), false
	}

	return http.StatusInternalServerError,
		response.Error[any](errcode.InternalError.Description(), errcode.InternalError.String()),
		true
}

func isMalformedInput(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF)
}

func (t *ErrorTranslator) fieldErrors(verrs validator.ValidationErrors) []response.FieldError {
	out := make([]response.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, response.FieldError{
			Field:         fe.Field(),
			Message:       t.fieldMessage(fe),
			RejectedValue: rejectedValue(fe),
		})
	}
	return out
}

func (t *ErrorTranslator) fieldMessage(fe validator.FieldError) string {
	if msg, ok := t.fieldMessages[fe.Tag()]; ok {
		return msg
	}

	switch fe.Tag() {
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

// rejectedValue reports a value that was never supplied as nil.
func rejectedValue(fe validator.FieldError) any {
	v := fe.Value()
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	if fe.Tag() == "required" && rv.IsZero() {
		return nil
	}
	return v
}
