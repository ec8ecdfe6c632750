package logging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/omnipulse/go-shared-kernel/logging"

// ErrIllegalArgument marks failures caused by the caller's arguments. Observe
// logs them with the offending arguments instead of the cause chain.
var ErrIllegalArgument = errors.New("illegal argument")

var (
	// ErrLoggerNil is returned when the aspect is given a nil logger.
	ErrLoggerNil = errors.New("logger cannot be nil")
	// ErrTracerProviderNil is returned by WithTracerProvider(nil).
	ErrTracerProviderNil = errors.New("tracer provider cannot be nil")
)

// Aspect logs and traces observed calls of repositories, services and
// handlers.
type Aspect struct {
	logger *logrus.Logger
	tracer trace.Tracer
}

// AspectOption configures an Aspect.
type AspectOption func(*Aspect) error

// WithTracerProvider sets the provider spans are started from. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) AspectOption {
	return func(a *Aspect) error {
		if tp == nil {
			return ErrTracerProviderNil
		}
		a.tracer = tp.Tracer(instrumentationName)
		return nil
	}
}

// NewAspect returns an Aspect logging to logger.
func NewAspect(logger *logrus.Logger, opts ...AspectOption) (*Aspect, error) {
	if logger == nil {
		return nil, ErrLoggerNil
	}

	a := &Aspect{
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return a, nil
}

// Observe runs fn inside a span named component.method. At debug level it
// logs the arguments on entry and the result with the elapsed time on exit.
// A returned error is logged at error level, recorded on the span and
// returned unchanged.
func Observe[T any](ctx context.Context, a *Aspect, component, method string, args []any, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := a.tracer.Start(ctx, component+"."+method, trace.WithAttributes(
		attribute.String("code.namespace", component),
		attribute.String("code.function", method),
	))
	defer span.End()

	entry := a.logger.WithContext(ctx).WithFields(logrus.Fields{
		"component": component,
		"method":    method,
	})
	debug := a.logger.IsLevelEnabled(logrus.DebugLevel)

	if debug {
		entry.Debugf("Enter: %s.%s() with argument[s] = %v", component, method, args)
	}

	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if errors.Is(err, ErrIllegalArgument) {
			entry.Errorf("Illegal argument: %v in %s.%s()", args, component, method)
			return result, err
		}

		var cause any = "NULL"
		if c := errors.Unwrap(err); c != nil {
			cause = c
		}
		entry.WithError(err).Errorf("Exception in %s.%s() with cause = '%v' and exception = '%s'",
			component, method, cause, err.Error())
		return result, err
	}

	if debug {
		entry.WithField("duration", elapsed).
			Debugf("Exit: %s.%s() with result = %v (Execution time: %d ms)", component, method, result, elapsed.Milliseconds())
	}
	return result, nil
}

// ObserveErr is Observe for calls without a result.
func ObserveErr(ctx context.Context, a *Aspect, component, method string, args []any, fn func(context.Context) error) error {
	_, err := Observe(ctx, a, component, method, args, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
