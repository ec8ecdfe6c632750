package jwtgo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("abcdefghijklmnopqrstuvwxyz012345")

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestNew(t *testing.T) {
	_, err := New(nil, "HS256")
	assert.EqualError(t, err, "keyFunc is required but was nil")

	_, err = New(HMACKey(secret), "")
	assert.Error(t, err)

	_, err = New(HMACKey(secret), "HS256", WithIssuer(""))
	assert.Error(t, err)

	_, err = New(HMACKey(secret), "HS256", WithLeeway(-time.Second))
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	now := time.Now()
	base := func(extra jwt.MapClaims) jwt.MapClaims {
		c := jwt.MapClaims{
			"sub": "idp|42",
			"iss": "https://issuer.example.com/",
			"aud": "omnipulse-api",
			"exp": now.Add(time.Hour).Unix(),
		}
		for k, v := range extra {
			c[k] = v
		}
		return c
	}

	tests := []struct {
		name        string
		token       func(t *testing.T) string
		keyFunc     jwt.Keyfunc
		wantErr     error
		wantSubject string
		wantTenant  any
	}{
		{
			name: "happy path",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, secret, base(jwt.MapClaims{"tenant_id": "acme"}))
			},
			wantSubject: "idp|42",
			wantTenant:  "acme",
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, secret, base(jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()}))
			},
			wantErr: jwt.ErrTokenExpired,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, secret, base(jwt.MapClaims{"iss": "https://evil.example.com/"}))
			},
			wantErr: jwt.ErrTokenInvalidIssuer,
		},
		{
			name: "wrong audience",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, secret, base(jwt.MapClaims{"aud": "other"}))
			},
			wantErr: jwt.ErrTokenInvalidAudience,
		},
		{
			name: "wrong algorithm",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS384, secret, base(nil))
			},
			wantErr: jwt.ErrTokenSignatureInvalid,
		},
		{
			name: "bad signature",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-00"), base(nil))
			},
			wantErr: jwt.ErrTokenSignatureInvalid,
		},
		{
			name:    "malformed",
			token:   func(*testing.T) string { return "not-a-jwt" },
			wantErr: jwt.ErrTokenMalformed,
		},
		{
			name: "key func error",
			token: func(t *testing.T) string {
				return sign(t, jwt.SigningMethodHS256, secret, base(nil))
			},
			keyFunc: func(*jwt.Token) (any, error) { return nil, errors.New("key func error message") },
			wantErr: jwt.ErrTokenUnverifiable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keyFunc := tt.keyFunc
			if keyFunc == nil {
				keyFunc = HMACKey(secret)
			}
			v, err := New(keyFunc, "HS256",
				WithIssuer("https://issuer.example.com/"),
				WithAudience("omnipulse-api"),
				WithLeeway(5*time.Second),
			)
			require.NoError(t, err)

			p, err := v.Verify(context.Background(), tt.token(t))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, p.Subject)
			assert.Equal(t, tt.wantTenant, p.Claims["tenant_id"])
		})
	}
}

func TestVerifyExpirationRequired(t *testing.T) {
	v, err := New(HMACKey(secret), "HS256", WithExpirationRequired())
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u"}))
	assert.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)
}
