/*
Package oidc discovers the key set of an OpenID Connect provider.

Providers publish their metadata at a well-known location below the issuer:

	https://issuer.example.com/.well-known/openid-configuration

The document names, among others, the issuer identifier and the jwks_uri the
signing keys are served from. Discover reads those two values so that a
service configured with only an issuer can verify tokens against the
provider's keys.

	md, err := oidc.Discover(ctx, &http.Client{Timeout: 10 * time.Second}, "https://auth.example.com/")
	if err != nil {
	    return err
	}
	verifier, err := jwx.New(jwx.WithJWKSURL(ctx, md.JWKSURI, 15*time.Minute, nil))

See OpenID Connect Discovery 1.0:
https://openid.net/specs/openid-connect-discovery-1_0.html
*/
package oidc
