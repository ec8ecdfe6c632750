package kernelgrpc

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/omnipulse/go-shared-kernel/response"
)

// ErrorDomain is the domain of the ErrorInfo detail attached to statuses.
const ErrorDomain = "omnipulse"

// CodeForHTTPStatus maps the HTTP status of a translated error to the
// matching gRPC code.
func CodeForHTTPStatus(httpStatus int) codes.Code {
	switch httpStatus {
	case http.StatusOK:
		return codes.OK
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusMethodNotAllowed:
		return codes.Unimplemented
	case http.StatusConflict:
		return codes.AlreadyExists
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusServiceUnavailable:
		return codes.Unavailable
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	}
	if httpStatus >= 400 && httpStatus < 500 {
		return codes.FailedPrecondition
	}
	return codes.Internal
}

// StatusFromEnvelope builds the status for a failure envelope. The error
// code travels as an ErrorInfo reason and field errors as BadRequest field
// violations.
func StatusFromEnvelope(httpStatus int, env response.Envelope[any]) *status.Status {
	st := status.New(CodeForHTTPStatus(httpStatus), env.Message)

	withInfo, err := st.WithDetails(&errdetails.ErrorInfo{Reason: env.ErrorCode, Domain: ErrorDomain})
	if err != nil {
		return st
	}
	st = withInfo

	if len(env.SubErrors) == 0 {
		return st
	}
	br := &errdetails.BadRequest{}
	for _, fe := range env.SubErrors {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       fe.Field,
			Description: fe.Message,
		})
	}
	if withFields, err := st.WithDetails(br); err == nil {
		st = withFields
	}
	return st
}

// passthrough returns the status of errors that already are gRPC statuses
// or context errors.
func passthrough(err error) (error, bool) {
	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		return se.GRPCStatus().Err(), true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err(), true
	}
	return nil, false
}
