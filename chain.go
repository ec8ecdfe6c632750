package sharedkernel

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/omnipulse/go-shared-kernel/reqctx"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes stages so that the first stage is the outermost:
// Chain(a, b, c)(h) serves a(b(c(h))).
func Chain(stages ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(stages) - 1; i >= 0; i-- {
			next = stages[i](next)
		}
		return next
	}
}

// Recoverer turns a panic in next into the generic internal error response.
// http.ErrAbortHandler is re-raised so the server can abort the connection.
func Recoverer(t *ErrorTranslator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				t.Handle(w, r, fmt.Errorf("panic recovered: %w", err))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder remembers the status written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Flush forwards to the wrapped writer so that streaming handlers keep
// working behind RequestLogging.
func (s *statusRecorder) Flush() {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	_ = http.NewResponseController(s.ResponseWriter).Flush()
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(s.ResponseWriter).Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// RequestLogging logs one line per request and records request count and
// latency. Place it inside the tenant filter so the line carries the request
// ids.
func RequestLogging(logger Logger, metrics Metrics) Middleware {
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			tags := map[string]string{"method": r.Method, "status": strconv.Itoa(status)}
			metrics.IncCounter(MetricRequestsTotal, tags)
			metrics.ObserveHistogram(MetricRequestDuration, elapsed.Seconds(), map[string]string{"method": r.Method})

			if logger != nil {
				args := []any{"method", r.Method, "path", r.URL.Path, "status", status, "duration", elapsed}
				logger.Info("request completed", append(args, reqctx.LogArgs(r.Context())...)...)
			}
		})
	}
}
