package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
)

const wellKnownPath = ".well-known/openid-configuration"

var (
	ErrInvalidIssuer  = errors.New("issuer must be an absolute URL")
	ErrNoJWKSURI      = errors.New("provider metadata has no jwks_uri")
	ErrIssuerMismatch = errors.New("provider metadata issuer does not match")
)

// Metadata holds the provider metadata fields the kernel reads.
type Metadata struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// Discover fetches the provider metadata of issuer with client, or with
// http.DefaultClient when client is nil. The metadata must name a jwks_uri
// and, when it names an issuer, that issuer must match the requested one
// apart from a trailing slash.
func Discover(ctx context.Context, client *http.Client, issuer string) (*Metadata, error) {
	u, err := url.Parse(issuer)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIssuer, issuer)
	}
	u.Path = path.Join("/", u.Path, wellKnownPath)

	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get provider metadata: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch provider metadata from %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not fetch provider metadata from %s: unexpected status %d", u, resp.StatusCode)
	}

	var md Metadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("could not decode provider metadata: %w", err)
	}
	if md.JWKSURI == "" {
		return nil, ErrNoJWKSURI
	}
	if md.Issuer != "" && strings.TrimSuffix(md.Issuer, "/") != strings.TrimSuffix(issuer, "/") {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrIssuerMismatch, md.Issuer, issuer)
	}
	return &md, nil
}
