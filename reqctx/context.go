// Package reqctx holds the per-request context store: the user, tenant and
// correlation ids of one inbound request, mirrored into a diagnostic field map
// that log output is tagged with.
//
// A Store belongs to exactly one request and travels with it inside a
// context.Context. There is no process-wide store, so two requests handled
// concurrently can never observe each other's values.
//
//	store := reqctx.New()
//	ctx := reqctx.NewContext(r.Context(), store)
//	defer store.Clear()
//
//	store.SetCorrelation(r.Header.Get("X-Correlation-ID"))
//	tenant, ok := reqctx.TenantID(ctx)
package reqctx

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// Diagnostic field keys, consumed by log shipping and correlation tooling.
const (
	UserKey        = "userId"
	TenantKey      = "tenantId"
	CorrelationKey = "correlationId"
)

type slot struct {
	value string
	set   bool
}

// Store is the context state of one request. The zero value is not usable;
// create one with New. A Store is safe for use by the goroutines serving the
// same request.
type Store struct {
	mu          sync.RWMutex
	user        slot
	tenant      slot
	correlation slot
	fields      map[string]any
}

// New returns an empty Store.
func New() *Store {
	return &Store{fields: make(map[string]any)}
}

// SetUser sets the user id. An empty id clears the slot.
func (s *Store) SetUser(id string) { s.setSlot(&s.user, UserKey, id) }

// SetTenant sets the tenant id. An empty id clears the slot.
func (s *Store) SetTenant(id string) { s.setSlot(&s.tenant, TenantKey, id) }

// SetCorrelation sets the correlation id. An empty id clears the slot.
func (s *Store) SetCorrelation(id string) { s.setSlot(&s.correlation, CorrelationKey, id) }

func (s *Store) setSlot(sl *slot, key, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		*sl = slot{}
		delete(s.fields, key)
		return
	}
	*sl = slot{value: id, set: true}
	s.fields[key] = id
}

// BindPrincipal records an authenticated principal. The subject follows the
// SetUser rules. The tenant is stored verbatim whenever hasTenant is true, so
// a tenant claim that is present but empty still counts as set.
func (s *Store) BindPrincipal(subject, tenant string, hasTenant bool) {
	s.SetUser(subject)
	if !hasTenant {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tenant = slot{value: tenant, set: true}
	s.fields[TenantKey] = tenant
}

// User returns the user id.
func (s *Store) User() (string, bool) { return s.get(&s.user) }

// Tenant returns the tenant id.
func (s *Store) Tenant() (string, bool) { return s.get(&s.tenant) }

// Correlation returns the correlation id.
func (s *Store) Correlation() (string, bool) { return s.get(&s.correlation) }

func (s *Store) get(sl *slot) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sl.value, sl.set
}

// PutField adds an arbitrary diagnostic field. A nil value removes it.
func (s *Store) PutField(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == nil {
		delete(s.fields, key)
		return
	}
	s.fields[key] = value
}

// Field returns one diagnostic field.
func (s *Store) Field(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.fields[key]
	return v, ok
}

// Fields returns a copy of the diagnostic fields.
func (s *Store) Fields() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.fields)
}

// Clear empties the three slots and removes every diagnostic field, including
// fields added with PutField.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = slot{}
	s.tenant = slot{}
	s.correlation = slot{}
	clear(s.fields)
}

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const storeKey contextKey = iota

// NewContext returns a copy of ctx carrying store.
func NewContext(ctx context.Context, store *Store) context.Context {
	return context.WithValue(ctx, storeKey, store)
}

// FromContext returns the Store carried by ctx.
func FromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(storeKey).(*Store)
	return s, ok && s != nil
}

// UserID returns the user id of the request ctx belongs to.
func UserID(ctx context.Context) (string, bool) {
	if s, ok := FromContext(ctx); ok {
		return s.User()
	}
	return "", false
}

// TenantID returns the tenant id of the request ctx belongs to.
func TenantID(ctx context.Context) (string, bool) {
	if s, ok := FromContext(ctx); ok {
		return s.Tenant()
	}
	return "", false
}

// CorrelationID returns the correlation id of the request ctx belongs to.
func CorrelationID(ctx context.Context) (string, bool) {
	if s, ok := FromContext(ctx); ok {
		return s.Correlation()
	}
	return "", false
}

// Fields returns the diagnostic fields of the request ctx belongs to, or nil.
func Fields(ctx context.Context) map[string]any {
	if s, ok := FromContext(ctx); ok {
		return s.Fields()
	}
	return nil
}

// LogArgs returns the diagnostic fields as alternating key/value pairs, the
// form accepted by slog style loggers.
func LogArgs(ctx context.Context) []any {
	fields := Fields(ctx)
	if len(fields) == 0 {
		return nil
	}

	args := make([]any, 0, len(fields)*2)
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, k, fields[k])
	}
	return args
}
