/*
Package sharedkernel holds the request plumbing every OmniPulse service runs
behind: the tenant context filter, the global error translator and the
middleware stages that sit between them.

# Request flow

An inbound request passes through these stages, outermost first:

	auth.Authenticator   verifies the bearer token and stores the auth.Principal
	TenantFilter         fills a reqctx.Store with correlation, user and tenant ids
	Recoverer            turns panics into the internal error response
	RequestLogging       one log line and two metrics per request
	handler              the service's own code

Compose them with Chain:

	translator, _ := sharedkernel.NewErrorTranslator(
	    sharedkernel.WithTranslatorLogger(logger),
	)
	filter, _ := sharedkernel.NewTenantFilter()

	stack := sharedkernel.Chain(
	    authenticator.Handler,
	    filter.Handler,
	    sharedkernel.Recoverer(translator),
	    sharedkernel.RequestLogging(logger, nil),
	)
	http.Handle("/", stack(api))

# Request context

The filter creates one reqctx.Store per request, stores it in the request
context and clears it when the request is done, including when the handler
panics. Handlers read it with the reqctx helpers:

	tenant, ok := reqctx.TenantID(r.Context())

# Errors

Handlers return *apperr.Error values and pass them to ErrorTranslator.Handle.
The translator chooses the status from the errcode table and writes a
response.Envelope. Errors it does not recognise become a 500 with code 5000
and a generic message; the original error is only logged.

# Framework adapters

The gin, echo and gRPC adapters live in framework/gin, framework/echo and
integrations/grpc and reuse TenantFilter.Populate, TenantFilter.Bind and
ErrorTranslator.Translate.
*/
package sharedkernel
