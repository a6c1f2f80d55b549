package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/aqt/aqt-connector/pkg/aqtctl/errdefs"
)

// TokenVerifier checks that an access token is usable against the API.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) error
}

var signingMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}

// JWKSVerifier validates signature, issuer, audience and expiry of a JWT.
// The key set is fetched on first use and kept for the lifetime of the
// verifier.
type JWKSVerifier struct {
	jwksURL   string
	issuer    string
	audiences []string
	client    *http.Client
	log       *zap.SugaredLogger

	mu   sync.Mutex
	jwks *keyfunc.JWKS
}

func NewJWKSVerifier(jwksURL, issuer string, audiences []string, client *http.Client, log *zap.SugaredLogger) *JWKSVerifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &JWKSVerifier{
		jwksURL:   jwksURL,
		issuer:    issuer,
		audiences: audiences,
		client:    client,
		log:       log,
	}
}

func (v *JWKSVerifier) keySet() (*keyfunc.JWKS, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.jwks != nil {
		return v.jwks, nil
	}
	options := keyfunc.Options{
		Client:          v.client,
		RefreshInterval: time.Hour,
		RefreshTimeout:  time.Second * 10,
		RefreshErrorHandler: func(err error) {
			v.log.Warnf("failed to refresh JWKS: %v", err)
		},
	}
	jwks, err := keyfunc.Get(v.jwksURL, options)
	if err != nil {
		return nil, err
	}
	v.jwks = jwks
	return jwks, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: empty token", errdefs.ErrTokenValidation)
	}
	jwks, err := v.keySet()
	if err != nil {
		return fmt.Errorf("%w: could not get JWKS: %v", errdefs.ErrTokenValidation, err)
	}

	claims := &jwt.RegisteredClaims{}
	parse := func() error {
		_, err := jwt.ParseWithClaims(token, claims, jwks.Keyfunc, jwt.WithValidMethods(signingMethods))
		return err
	}
	err = parse()
	if err != nil && strings.Contains(err.Error(), "key ID") {
		// The provider may have rotated its keys since the set was cached.
		v.log.Debug("Unknown key ID, refreshing JWKS")
		if rErr := jwks.Refresh(ctx, keyfunc.RefreshOptions{IgnoreRateLimit: true}); rErr == nil {
			claims = &jwt.RegisteredClaims{}
			err = parse()
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errdefs.ErrTokenValidation, err)
	}
	return v.checkClaims(claims)
}

func (v *JWKSVerifier) checkClaims(claims *jwt.RegisteredClaims) error {
	if claims.ExpiresAt == nil {
		return fmt.Errorf("%w: token has no expiry", errdefs.ErrTokenValidation)
	}
	if !claims.VerifyIssuer(v.issuer, true) {
		return fmt.Errorf("%w: unexpected issuer %q", errdefs.ErrTokenValidation, claims.Issuer)
	}
	if !slices.ContainsFunc(claims.Audience, func(aud string) bool {
		return slices.Contains(v.audiences, aud)
	}) {
		return fmt.Errorf("%w: token audience %v not accepted", errdefs.ErrTokenValidation, []string(claims.Audience))
	}
	return nil
}

// Close stops the background JWKS refresh, if one was started.
func (v *JWKSVerifier) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

var _ TokenVerifier = (*JWKSVerifier)(nil)

// VerifierFunc adapts a function to TokenVerifier.
type VerifierFunc func(ctx context.Context, token string) error

func (f VerifierFunc) Verify(ctx context.Context, token string) error {
	return f(ctx, token)
}
