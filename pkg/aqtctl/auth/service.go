package auth

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/aqt/aqt-connector/pkg/metrics"
)

// Authenticator obtains fresh, verified tokens from the identity provider.
// OIDCService is the production implementation.
type Authenticator interface {
	AuthenticateDevice(ctx context.Context, out io.Writer) (*OfflineAccessTokens, error)
	AuthenticateWithClientCredentials(ctx context.Context, creds ClientCredentials) (string, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*OfflineAccessTokens, error)
}

// Service manages the cached access token and falls back to the identity
// provider when no valid one is stored.
type Service struct {
	verifier      TokenVerifier
	store         TokenStore
	refreshStore  TokenStore
	authenticator Authenticator
	credentials   *ClientCredentials
	out           io.Writer
	log           *zap.SugaredLogger
}

type ServiceOption func(*Service)

// WithRefreshStore enables silent renewal through a stored refresh token.
func WithRefreshStore(store TokenStore) ServiceOption {
	return func(s *Service) {
		s.refreshStore = store
	}
}

// WithClientCredentials makes the service use the client-credentials grant
// instead of the interactive device flow.
func WithClientCredentials(creds *ClientCredentials) ServiceOption {
	return func(s *Service) {
		s.credentials = creds
	}
}

// WithOutput sets where device flow instructions are written.
func WithOutput(out io.Writer) ServiceOption {
	return func(s *Service) {
		if out != nil {
			s.out = out
		}
	}
}

func WithServiceLogger(log *zap.SugaredLogger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(verifier TokenVerifier, store TokenStore, authenticator Authenticator, opts ...ServiceOption) *Service {
	s := &Service{
		verifier:      verifier,
		store:         store,
		authenticator: authenticator,
		out:           io.Discard,
		log:           zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAccessToken returns the stored token if it passes verification and ""
// otherwise. An invalid token is left in place. Only store failures are
// reported as errors.
func (s *Service) GetAccessToken(ctx context.Context) (string, error) {
	token, found, err := s.store.Load()
	if err != nil {
		return "", err
	}
	if !found {
		metrics.TokenCacheLookups.WithLabelValues("miss").Inc()
		return "", nil
	}
	if err := s.verifier.Verify(ctx, token); err != nil {
		metrics.TokenCacheLookups.WithLabelValues("invalid").Inc()
		s.log.Debugw("Stored access token rejected", "error", err)
		return "", nil
	}
	metrics.TokenCacheLookups.WithLabelValues("hit").Inc()
	return token, nil
}

// SaveAccessToken stores token without validating it.
func (s *Service) SaveAccessToken(token string) error {
	return s.store.Save(token)
}

// GetOrRefreshAccessToken returns the cached token when valid. Otherwise it
// tries a stored refresh token, then client credentials if configured, then
// the device flow. New tokens are persisted only when store is true.
func (s *Service) GetOrRefreshAccessToken(ctx context.Context, store bool) (string, error) {
	token, err := s.GetAccessToken(ctx)
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}

	if token, ok := s.tryRefresh(ctx, store); ok {
		return token, nil
	}

	if s.credentials != nil {
		s.log.Debugw("Authenticating with client credentials", "clientID", s.credentials.ClientID)
		token, err := s.authenticator.AuthenticateWithClientCredentials(ctx, *s.credentials)
		if err != nil {
			return "", err
		}
		if store {
			if err := s.store.Save(token); err != nil {
				return "", err
			}
		}
		return token, nil
	}

	s.log.Debug("Starting device authorization flow")
	tokens, err := s.authenticator.AuthenticateDevice(ctx, s.out)
	if err != nil {
		return "", err
	}
	if store {
		if err := s.persist(tokens); err != nil {
			return "", err
		}
	}
	return tokens.AccessToken, nil
}

// tryRefresh exchanges a stored refresh token. Failures are logged and
// reported as ok=false so that the caller falls back to a full login.
func (s *Service) tryRefresh(ctx context.Context, store bool) (string, bool) {
	if s.refreshStore == nil {
		return "", false
	}
	refreshToken, found, err := s.refreshStore.Load()
	if err != nil {
		s.log.Warnw("Could not read refresh token", "error", err)
		return "", false
	}
	if !found || refreshToken == "" {
		return "", false
	}
	tokens, err := s.authenticator.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		s.log.Infow("Refresh token rejected, falling back to login", "error", err)
		return "", false
	}
	if store {
		if err := s.persist(tokens); err != nil {
			s.log.Warnw("Could not store refreshed token", "error", err)
		}
	}
	return tokens.AccessToken, true
}

func (s *Service) persist(tokens *OfflineAccessTokens) error {
	if err := s.store.Save(tokens.AccessToken); err != nil {
		return err
	}
	if s.refreshStore != nil && tokens.RefreshToken != "" {
		return s.refreshStore.Save(tokens.RefreshToken)
	}
	return nil
}

// ClearAccessToken removes the stored access and refresh tokens.
func (s *Service) ClearAccessToken() error {
	if err := s.store.Delete(); err != nil {
		return err
	}
	if s.refreshStore != nil {
		return s.refreshStore.Delete()
	}
	return nil
}
