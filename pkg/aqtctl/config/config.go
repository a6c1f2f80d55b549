package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	DefaultArnicaURL      = "https://arnica.aqt.eu/api"
	DefaultIssuer         = "https://auth.aqt.eu/"
	DefaultJWKSURL        = "https://auth.aqt.eu/.well-known/jwks.json"
	DefaultDeviceClientID = "aqt-connector"

	TokenStorageFile     = "file"
	TokenStorageKeychain = "keychain"
)

// Config is the aqtctl configuration. It is built once at the composition
// root and shared read-only afterwards.
type Config struct {
	ArnicaURL         string     `yaml:"arnica_url"`
	OIDC              OIDCConfig `yaml:"oidc_config"`
	ClientID          string     `yaml:"client_id,omitempty"`
	ClientSecret      string     `yaml:"client_secret,omitempty"`
	ClientSecretEnv   string     `yaml:"client_secret_env,omitempty"`
	ClientSecretFile  string     `yaml:"client_secret_file,omitempty"`
	AppDir            string     `yaml:"app_dir,omitempty"`
	StoreAccessToken  bool       `yaml:"store_access_token"`
	TokenStorage      string     `yaml:"token_storage,omitempty"`
	RequestsPerSecond float64    `yaml:"requests_per_second,omitempty"`
	Settings          Settings   `yaml:"settings,omitempty"`
}

// OIDCConfig holds the identity provider parameters.
type OIDCConfig struct {
	Issuer         string   `yaml:"issuer"`
	JWKSURL        string   `yaml:"jwks_url"`
	DeviceClientID string   `yaml:"device_client_id"`
	Audience       string   `yaml:"audience,omitempty"`
	Scopes         []string `yaml:"scopes,omitempty"`
}

type Settings struct {
	OutputFormat string `yaml:"output_format,omitempty"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	return Config{
		ArnicaURL: DefaultArnicaURL,
		OIDC: OIDCConfig{
			Issuer:         DefaultIssuer,
			JWKSURL:        DefaultJWKSURL,
			DeviceClientID: DefaultDeviceClientID,
			Audience:       DefaultArnicaURL,
			Scopes:         []string{"openid", "profile", "offline_access"},
		},
		AppDir:           DefaultAppDir(),
		StoreAccessToken: true,
		TokenStorage:     TokenStorageFile,
		Settings: Settings{
			OutputFormat: "table",
		},
	}
}

// Load reads the file at path on top of DefaultConfig. Fields absent from
// the file keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to DefaultConfig when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		def := DefaultConfig()
		return &def, nil
	}
	return nil, err
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

// ApplyEnv overrides fields from AQT_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("AQT_ARNICA_URL"); v != "" {
		c.ArnicaURL = v
	}
	if v := getenv("AQT_CLIENT_ID"); v != "" {
		c.ClientID = v
	}
	if v := getenv("AQT_CLIENT_SECRET"); v != "" {
		c.ClientSecret = v
	}
	if v := getenv("AQT_APP_DIR"); v != "" {
		c.AppDir = v
	}
	if v := getenv("AQT_TOKEN_STORAGE"); v != "" {
		c.TokenStorage = v
	}
	if v := getenv("AQT_STORE_ACCESS_TOKEN"); v != "" {
		store, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AQT_STORE_ACCESS_TOKEN %q: %w", v, err)
		}
		c.StoreAccessToken = store
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ArnicaURL) == "" {
		return errors.New("arnica_url is required")
	}
	if _, err := url.ParseRequestURI(c.ArnicaURL); err != nil {
		return fmt.Errorf("invalid arnica_url: %w", err)
	}
	if strings.TrimSpace(c.OIDC.Issuer) == "" {
		return errors.New("oidc_config.issuer is required")
	}
	if strings.TrimSpace(c.OIDC.JWKSURL) == "" {
		return errors.New("oidc_config.jwks_url is required")
	}
	if strings.TrimSpace(c.OIDC.DeviceClientID) == "" {
		return errors.New("oidc_config.device_client_id is required")
	}
	if c.ClientID != "" && c.ClientSecret == "" && c.ClientSecretEnv == "" && c.ClientSecretFile == "" {
		return errors.New("client_id is set but no client secret is configured")
	}
	switch c.TokenStorage {
	case "", TokenStorageFile, TokenStorageKeychain:
	default:
		return fmt.Errorf("unsupported token_storage: %s", c.TokenStorage)
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("requests_per_second must not be negative")
	}
	return nil
}

// AllowedAudiences lists the audiences an access token may be issued for.
func (c *Config) AllowedAudiences() []string {
	return []string{c.ArnicaURL, c.OIDC.DeviceClientID}
}

// ClientCredentials resolves the client id/secret pair. ok is false when the
// client-credentials flow is not configured.
func (c *Config) ClientCredentials() (id, secret string, ok bool, err error) {
	if c.ClientID == "" {
		return "", "", false, nil
	}
	secret, err = ResolveClientSecret(c.ClientSecret, c.ClientSecretEnv, c.ClientSecretFile)
	if err != nil {
		return "", "", false, err
	}
	if secret == "" {
		return "", "", false, nil
	}
	return c.ClientID, secret, true, nil
}

func ResolveClientSecret(secret, secretEnv, secretFile string) (string, error) {
	if secret != "" {
		return secret, nil
	}
	if secretEnv != "" {
		value := strings.TrimSpace(os.Getenv(secretEnv))
		if value == "" {
			return "", fmt.Errorf("client secret env var not set: %s", secretEnv)
		}
		return value, nil
	}
	if secretFile != "" {
		bytes, err := os.ReadFile(secretFile)
		if err != nil {
			return "", fmt.Errorf("failed to read client secret file: %w", err)
		}
		return strings.TrimSpace(string(bytes)), nil
	}
	return "", nil
}
