package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/aqt/aqt-connector/pkg/aqtctl/errdefs"
)

const deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// ErrSlowDown is returned by FetchTokenWithDeviceCode when the provider asks
// the client to poll less often.
var ErrSlowDown = errors.New("slow down")

// DeviceCode is the answer of the device authorization endpoint.
type DeviceCode struct {
	DeviceCode              string
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	Interval                time.Duration
	Expiry                  time.Time
}

// OfflineAccessTokens is an access token with the refresh token issued
// alongside it, if any.
type OfflineAccessTokens struct {
	AccessToken  string
	RefreshToken string
}

// ClientCredentials identifies a machine client.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// IdentityProvider is the raw OAuth2 surface of the identity provider. It
// does not verify the tokens it hands out.
type IdentityProvider interface {
	FetchDeviceCode(ctx context.Context) (*DeviceCode, error)
	// FetchTokenWithDeviceCode returns nil tokens and a nil error while the
	// user has not yet completed the authorization.
	FetchTokenWithDeviceCode(ctx context.Context, deviceCode string) (*OfflineAccessTokens, error)
	FetchTokenWithClientCredentials(ctx context.Context, creds ClientCredentials) (string, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*OfflineAccessTokens, error)
}

type ProviderConfig struct {
	Issuer         string
	DeviceClientID string
	Audience       string
	Scopes         []string
}

// ProviderAdapter talks to an OIDC provider whose endpoints are discovered
// from the issuer's well-known configuration.
type ProviderAdapter struct {
	cfg    ProviderConfig
	client *http.Client

	mu       sync.Mutex
	endpoint *oauth2.Endpoint
}

func NewProviderAdapter(cfg ProviderConfig, client *http.Client) (*ProviderAdapter, error) {
	if cfg.Issuer == "" || cfg.DeviceClientID == "" {
		return nil, errors.New("issuer and device client id are required")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ProviderAdapter{cfg: cfg, client: client}, nil
}

func (p *ProviderAdapter) discover(ctx context.Context) (oauth2.Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.endpoint != nil {
		return *p.endpoint, nil
	}
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, p.client), p.cfg.Issuer)
	if err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	endpoint := provider.Endpoint()
	if endpoint.TokenURL == "" {
		return oauth2.Endpoint{}, errors.New("token endpoint not advertised")
	}
	p.endpoint = &endpoint
	return endpoint, nil
}

func (p *ProviderAdapter) oauthConfig(endpoint oauth2.Endpoint) *oauth2.Config {
	scopes := []string{oidc.ScopeOpenID, "profile", oidc.ScopeOfflineAccess}
	if len(p.cfg.Scopes) > 0 {
		scopes = p.cfg.Scopes
	}
	return &oauth2.Config{
		ClientID: p.cfg.DeviceClientID,
		Endpoint: endpoint,
		Scopes:   scopes,
	}
}

func (p *ProviderAdapter) FetchDeviceCode(ctx context.Context) (*DeviceCode, error) {
	endpoint, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}
	if endpoint.DeviceAuthURL == "" {
		return nil, errors.New("device authorization endpoint not advertised")
	}
	var opts []oauth2.AuthCodeOption
	if p.cfg.Audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", p.cfg.Audience))
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	resp, err := p.oauthConfig(endpoint).DeviceAuth(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: device authorization failed: %v", errdefs.ErrAuthentication, err)
	}
	interval := time.Duration(resp.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &DeviceCode{
		DeviceCode:              resp.DeviceCode,
		UserCode:                resp.UserCode,
		VerificationURI:         resp.VerificationURI,
		VerificationURIComplete: resp.VerificationURIComplete,
		Interval:                interval,
		Expiry:                  resp.Expiry,
	}, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

func (p *ProviderAdapter) FetchTokenWithDeviceCode(ctx context.Context, deviceCode string) (*OfflineAccessTokens, error) {
	endpoint, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("grant_type", deviceCodeGrantType)
	values.Set("device_code", deviceCode)
	values.Set("client_id", p.cfg.DeviceClientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.TokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errdefs.NewRequestError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errdefs.NewRequestError(err)
	}
	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: unexpected token response (%d)", errdefs.ErrAuthentication, resp.StatusCode)
	}
	switch payload.Error {
	case "":
	case "authorization_pending":
		return nil, nil
	case "slow_down":
		return nil, ErrSlowDown
	default:
		if payload.ErrorDesc != "" {
			return nil, fmt.Errorf("%w: %s: %s", errdefs.ErrAuthentication, payload.Error, payload.ErrorDesc)
		}
		return nil, fmt.Errorf("%w: %s", errdefs.ErrAuthentication, payload.Error)
	}
	if resp.StatusCode >= 400 || payload.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token in response (%d)", errdefs.ErrAuthentication, resp.StatusCode)
	}
	return &OfflineAccessTokens{AccessToken: payload.AccessToken, RefreshToken: payload.RefreshToken}, nil
}

func (p *ProviderAdapter) FetchTokenWithClientCredentials(ctx context.Context, creds ClientCredentials) (string, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return "", errors.New("client id and secret are required")
	}
	endpoint, err := p.discover(ctx)
	if err != nil {
		return "", err
	}
	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     endpoint.TokenURL,
	}
	if p.cfg.Audience != "" {
		cc.EndpointParams = url.Values{"audience": {p.cfg.Audience}}
	}
	token, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, p.client))
	if err != nil {
		return "", fmt.Errorf("%w: client credentials token failed: %v", errdefs.ErrAuthentication, err)
	}
	return token.AccessToken, nil
}

func (p *ProviderAdapter) RefreshAccessToken(ctx context.Context, refreshToken string) (*OfflineAccessTokens, error) {
	if refreshToken == "" {
		return nil, errors.New("refresh token is required")
	}
	endpoint, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	src := p.oauthConfig(endpoint).TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	refreshed, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to refresh token: %v", errdefs.ErrAuthentication, err)
	}
	return &OfflineAccessTokens{AccessToken: refreshed.AccessToken, RefreshToken: refreshed.RefreshToken}, nil
}

var _ IdentityProvider = (*ProviderAdapter)(nil)
