package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/aqt/aqt-connector/pkg/aqtctl/errdefs"
	"github.com/aqt/aqt-connector/pkg/metrics"
	"github.com/aqt/aqt-connector/pkg/utils"
)

// slowDownStep is the interval increase RFC 8628 mandates on slow_down.
const slowDownStep = 5 * time.Second

// OIDCService runs authentication flows and only hands out tokens that pass
// verification.
type OIDCService struct {
	provider IdentityProvider
	verifier TokenVerifier
	wait     utils.WaitFunc
	log      *zap.SugaredLogger
}

type OIDCOption func(*OIDCService)

// WithWait replaces the sleep used between device token polls.
func WithWait(wait utils.WaitFunc) OIDCOption {
	return func(s *OIDCService) {
		if wait != nil {
			s.wait = wait
		}
	}
}

func WithOIDCLogger(log *zap.SugaredLogger) OIDCOption {
	return func(s *OIDCService) {
		if log != nil {
			s.log = log
		}
	}
}

func NewOIDCService(provider IdentityProvider, verifier TokenVerifier, opts ...OIDCOption) *OIDCService {
	s := &OIDCService{
		provider: provider,
		verifier: verifier,
		wait:     utils.Sleep,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthenticateDevice runs the device authorization grant. The verification
// URI, the user code and a QR code of the URI are written to out; the token
// endpoint is then polled at the interval the provider asked for until the
// user completes the flow or the provider rejects it.
func (s *OIDCService) AuthenticateDevice(ctx context.Context, out io.Writer) (*OfflineAccessTokens, error) {
	if out == nil {
		out = io.Discard
	}
	code, err := s.provider.FetchDeviceCode(ctx)
	if err != nil {
		metrics.AuthFlows.WithLabelValues("device_code", "error").Inc()
		return nil, err
	}

	uri := code.VerificationURIComplete
	if uri == "" {
		uri = code.VerificationURI
	}
	_, _ = fmt.Fprintf(out, "To sign in, open %s and confirm the code %s.\n", uri, code.UserCode)
	_, _ = fmt.Fprintln(out, "Alternatively, scan this QR code:")
	if err := WriteQR(out, uri); err != nil {
		s.log.Warnw("Could not render QR code", "error", err)
	}
	_, _ = fmt.Fprintln(out)

	interval := code.Interval
	for {
		tokens, err := s.provider.FetchTokenWithDeviceCode(ctx, code.DeviceCode)
		switch {
		case errors.Is(err, ErrSlowDown):
			metrics.DevicePolls.WithLabelValues("slow_down").Inc()
			interval += slowDownStep
			s.log.Debugw("Provider asked to slow down", "interval", interval)
		case err != nil:
			metrics.DevicePolls.WithLabelValues("error").Inc()
			metrics.AuthFlows.WithLabelValues("device_code", "error").Inc()
			return nil, err
		case tokens == nil:
			metrics.DevicePolls.WithLabelValues("pending").Inc()
		default:
			metrics.DevicePolls.WithLabelValues("granted").Inc()
			if err := s.verifier.Verify(ctx, tokens.AccessToken); err != nil {
				metrics.AuthFlows.WithLabelValues("device_code", "invalid").Inc()
				return nil, err
			}
			metrics.AuthFlows.WithLabelValues("device_code", "success").Inc()
			return tokens, nil
		}
		if err := s.wait(ctx, interval); err != nil {
			return nil, err
		}
	}
}

// AuthenticateWithClientCredentials performs a single client-credentials
// exchange.
func (s *OIDCService) AuthenticateWithClientCredentials(ctx context.Context, creds ClientCredentials) (string, error) {
	token, err := s.provider.FetchTokenWithClientCredentials(ctx, creds)
	if err != nil {
		metrics.AuthFlows.WithLabelValues("client_credentials", "error").Inc()
		if !errors.Is(err, errdefs.ErrAuthentication) {
			err = fmt.Errorf("%w: %v", errdefs.ErrAuthentication, err)
		}
		return "", err
	}
	if err := s.verifier.Verify(ctx, token); err != nil {
		metrics.AuthFlows.WithLabelValues("client_credentials", "invalid").Inc()
		return "", err
	}
	metrics.AuthFlows.WithLabelValues("client_credentials", "success").Inc()
	return token, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (s *OIDCService) RefreshAccessToken(ctx context.Context, refreshToken string) (*OfflineAccessTokens, error) {
	tokens, err := s.provider.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		metrics.AuthFlows.WithLabelValues("refresh_token", "error").Inc()
		return nil, err
	}
	if err := s.verifier.Verify(ctx, tokens.AccessToken); err != nil {
		metrics.AuthFlows.WithLabelValues("refresh_token", "invalid").Inc()
		return nil, err
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	metrics.AuthFlows.WithLabelValues("refresh_token", "success").Inc()
	return tokens, nil
}
