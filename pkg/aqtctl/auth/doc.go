// Package auth resolves access tokens for the ARNICA API. It runs the OAuth2
// device-code, client-credentials and refresh-token grants against an OIDC
// provider, verifies tokens against the provider's JWKS and caches them in a
// file or the OS keychain.
package auth
