package kernelgrpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/metadata"
)

// CorrelationMetadataKey is the metadata key of the correlation id.
const CorrelationMetadataKey = "x-correlation-id"

// TokenExtractor extracts a bearer token from the call context. An empty
// token with a nil error means the call carries no credentials.
type TokenExtractor func(ctx context.Context) (string, error)

var (
	// ErrMultipleAuthHeaders indicates multiple authorization metadata entries were provided.
	ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")

	// ErrInvalidAuthFormat indicates the authorization metadata format is invalid.
	ErrInvalidAuthFormat = errors.New("invalid authorization metadata format, expected: Bearer <token>")
)

// MetadataTokenExtractor reads "Bearer <token>" from the "authorization"
// metadata key. gRPC lowercases incoming keys.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get("authorization")
	switch len(values) {
	case 0:
		return "", nil
	case 1:
	default:
		return "", ErrMultipleAuthHeaders
	}

	parts := strings.Fields(values[0])
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrInvalidAuthFormat
	}
	return parts[1], nil
}

// correlationFromMetadata returns the first correlation id of the call, or
// "" when there is none.
func correlationFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(CorrelationMetadataKey); len(values) > 0 {
		return values[0]
	}
	return ""
}
