package kernelgrpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataTokenExtractor(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		wantToken string
		wantErr   error
	}{
		{name: "no metadata", ctx: context.Background()},
		{name: "no authorization", ctx: incoming("other", "value")},
		{name: "bearer", ctx: incoming("authorization", "Bearer abc.def.ghi"), wantToken: "abc.def.ghi"},
		{name: "case insensitive scheme", ctx: incoming("authorization", "bearer abc"), wantToken: "abc"},
		{name: "multiple", ctx: incoming("authorization", "Bearer a", "authorization", "Bearer b"), wantErr: ErrMultipleAuthHeaders},
		{name: "no scheme", ctx: incoming("authorization", "abc"), wantErr: ErrInvalidAuthFormat},
		{name: "basic", ctx: incoming("authorization", "Basic dXNlcg=="), wantErr: ErrInvalidAuthFormat},
		{name: "extra parts", ctx: incoming("authorization", "Bearer a b"), wantErr: ErrInvalidAuthFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := MetadataTokenExtractor(tt.ctx)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestCorrelationFromMetadata(t *testing.T) {
	assert.Equal(t, "", correlationFromMetadata(context.Background()))
	assert.Equal(t, "", correlationFromMetadata(incoming("other", "x")))
	assert.Equal(t, "c-1", correlationFromMetadata(incoming(CorrelationMetadataKey, "c-1", CorrelationMetadataKey, "c-2")))
	assert.Equal(t, "c-3", correlationFromMetadata(incoming("X-Correlation-ID", "c-3")), "metadata keys are lowercased")
}
