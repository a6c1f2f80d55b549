package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aqt/aqt-connector/pkg/aqtctl/auth"
	"github.com/aqt/aqt-connector/pkg/aqtctl/client"
	"github.com/aqt/aqt-connector/pkg/aqtctl/config"
	"github.com/aqt/aqt-connector/pkg/aqtctl/jobs"
	"github.com/aqt/aqt-connector/pkg/aqtctl/models"
	"github.com/aqt/aqt-connector/pkg/version"
)

const keyringService = "aqtctl"

// AuthService resolves access tokens. *auth.Service implements it.
type AuthService interface {
	GetAccessToken(ctx context.Context) (string, error)
	GetOrRefreshAccessToken(ctx context.Context, store bool) (string, error)
	ClearAccessToken() error
}

// JobService talks to the job API. *jobs.Service implements it.
type JobService interface {
	FetchJobState(ctx context.Context, token string, jobID uuid.UUID) (models.JobState, error)
	WaitForResult(ctx context.Context, token string, jobID uuid.UUID, opts jobs.WaitOptions) (models.JobState, error)
	SubmitJob(ctx context.Context, token, workspaceID, resourceID string, job models.JobSubmission) (*models.SubmitJobResponse, error)
	ListWorkspaces(ctx context.Context, token string) ([]models.Workspace, error)
	GetResource(ctx context.Context, token, resourceID string) (*models.ResourceDetails, error)
}

// App bundles the configuration with the services built from it. The
// services are exported so that tests and embedders can replace them.
type App struct {
	Config config.Config
	Auth   AuthService
	Jobs   JobService

	log     *zap.SugaredLogger
	closers []func()
}

type options struct {
	log        *zap.SugaredLogger
	out        io.Writer
	httpClient *http.Client
}

type Option func(*options)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithOutput sets where interactive login instructions are written.
func WithOutput(out io.Writer) Option {
	return func(o *options) {
		o.out = out
	}
}

// WithHTTPClient sets the client used for ARNICA, identity provider and
// JWKS requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// New validates cfg and wires the production services.
func New(cfg config.Config, opts ...Option) (*App, error) {
	o := options{
		log:        zap.NewNop().Sugar(),
		out:        io.Discard,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	accessStore, refreshStore := tokenStores(&cfg)
	verifier := auth.NewJWKSVerifier(cfg.OIDC.JWKSURL, cfg.OIDC.Issuer, cfg.AllowedAudiences(), o.httpClient, o.log.Named("verifier"))
	provider, err := auth.NewProviderAdapter(auth.ProviderConfig{
		Issuer:         cfg.OIDC.Issuer,
		DeviceClientID: cfg.OIDC.DeviceClientID,
		Audience:       cfg.OIDC.Audience,
		Scopes:         cfg.OIDC.Scopes,
	}, o.httpClient)
	if err != nil {
		return nil, err
	}
	oidcService := auth.NewOIDCService(provider, verifier, auth.WithOIDCLogger(o.log.Named("oidc")))

	serviceOpts := []auth.ServiceOption{
		auth.WithRefreshStore(refreshStore),
		auth.WithOutput(o.out),
		auth.WithServiceLogger(o.log.Named("auth")),
	}
	id, secret, ok, err := cfg.ClientCredentials()
	if err != nil {
		return nil, err
	}
	if ok {
		serviceOpts = append(serviceOpts, auth.WithClientCredentials(&auth.ClientCredentials{ClientID: id, ClientSecret: secret}))
	}
	authService := auth.NewService(verifier, accessStore, oidcService, serviceOpts...)

	apiClient, err := client.New(
		client.WithServer(cfg.ArnicaURL),
		client.WithHTTPClient(o.httpClient),
		client.WithUserAgent(version.UserAgent()),
		client.WithRateLimit(cfg.RequestsPerSecond),
		client.WithLogger(o.log.Named("client")),
	)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:  cfg,
		Auth:    authService,
		Jobs:    jobs.NewService(apiClient, o.log.Named("jobs")),
		log:     o.log,
		closers: []func(){verifier.Close},
	}, nil
}

func tokenStores(cfg *config.Config) (access, refresh auth.TokenStore) {
	if cfg.TokenStorage == config.TokenStorageKeychain {
		return &auth.KeyringStore{Service: keyringService, User: "access_token"},
			&auth.KeyringStore{Service: keyringService, User: "refresh_token"}
	}
	return &auth.FileStore{Path: cfg.AccessTokenPath()}, &auth.FileStore{Path: cfg.RefreshTokenPath()}
}

// Close releases background resources.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

func (a *App) logger() *zap.SugaredLogger {
	if a.log == nil {
		return zap.NewNop().Sugar()
	}
	return a.log
}
