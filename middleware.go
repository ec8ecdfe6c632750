package sharedkernel

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/omnipulse/go-shared-kernel/auth"
	"github.com/omnipulse/go-shared-kernel/reqctx"
)

// DefaultCorrelationHeader is the inbound correlation header.
const DefaultCorrelationHeader = "X-Correlation-ID"

// DefaultTenantClaim is the claim the tenant id is read from.
const DefaultTenantClaim = "tenant_id"

// TenantFilter populates a reqctx.Store for every request and clears it when
// the request is done.
type TenantFilter struct {
	correlationHeader string
	echoCorrelation   bool
	newID             func() string
	principal         PrincipalExtractor
	tenantClaim       string
	logger            Logger
}

// NewTenantFilter constructs a TenantFilter.
//
//	filter, err := sharedkernel.NewTenantFilter(
//	    sharedkernel.WithEchoCorrelationHeader(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.Handle("/", authenticator.Handler(filter.Handler(api)))
func NewTenantFilter(opts ...FilterOption) (*TenantFilter, error) {
	f := &TenantFilter{
		correlationHeader: DefaultCorrelationHeader,
		newID:             uuid.NewString,
		principal:         principalFromContext,
		tenantClaim:       DefaultTenantClaim,
	}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return f, nil
}

func principalFromContext(r *http.Request) (*auth.Principal, bool) {
	return auth.FromContext(r.Context())
}

// CorrelationHeader returns the header the filter reads.
func (f *TenantFilter) CorrelationHeader() string { return f.correlationHeader }

// Handler wraps next. The store is cleared after next returns, whether it
// returns normally or panics.
func (f *TenantFilter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, store := f.Populate(r)
		defer f.Release(store)

		f.WriteCorrelationHeader(w.Header(), store)
		next.ServeHTTP(w, r)
	})
}

// WriteCorrelationHeader copies the correlation id of store onto h when the
// filter echoes it.
func (f *TenantFilter) WriteCorrelationHeader(h http.Header, store *reqctx.Store) {
	if !f.echoCorrelation {
		return
	}
	if id, ok := store.Correlation(); ok {
		h.Set(f.correlationHeader, id)
	}
}

// Populate builds the store for r and returns r with the store in its
// context. Framework adapters that cannot use Handler call Populate and must
// defer Release on the returned store.
func (f *TenantFilter) Populate(r *http.Request) (*http.Request, *reqctx.Store) {
	var p *auth.Principal
	if found, ok := f.principal(r); ok {
		p = found
	}

	ctx, store := f.Bind(r.Context(), r.Header.Get(f.correlationHeader), p)
	return r.WithContext(ctx), store
}

// Bind is the transport independent part of Populate. An empty correlationID
// is replaced by a generated one. The principal is bound only when it carries
// a token; the tenant is set whenever the tenant claim is present, even if it
// is empty.
func (f *TenantFilter) Bind(ctx context.Context, correlationID string, p *auth.Principal) (context.Context, *reqctx.Store) {
	store := reqctx.New()

	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		correlationID = f.newID()
	}
	store.SetCorrelation(correlationID)

	if p != nil && p.Token != "" {
		tenant, hasTenant := p.ClaimString(f.tenantClaim)
		store.BindPrincipal(p.Subject, tenant, hasTenant)
	}

	ctx = auth.WithBinder(reqctx.NewContext(ctx, store), f)
	annotateSpan(ctx, store)

	if f.logger != nil {
		f.logger.Debug("request context populated", reqctx.LogArgs(ctx)...)
	}
	return ctx, store
}

// BindPrincipal records p in the store carried by ctx. The authenticator
// calls it when a request is authenticated after the store was populated.
func (f *TenantFilter) BindPrincipal(ctx context.Context, p *auth.Principal) {
	store, ok := reqctx.FromContext(ctx)
	if !ok || p == nil || p.Token == "" {
		return
	}

	tenant, hasTenant := p.ClaimString(f.tenantClaim)
	store.BindPrincipal(p.Subject, tenant, hasTenant)
	annotateSpan(ctx, store)

	if f.logger != nil {
		f.logger.Debug("principal bound to request context", reqctx.LogArgs(ctx)...)
	}
}

// Release clears store. It is safe to call more than once.
func (f *TenantFilter) Release(store *reqctx.Store) {
	store.Clear()
	if f.logger != nil {
		f.logger.Debug("request context cleared")
	}
}
