package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aqt/aqt-connector/pkg/aqtctl/errdefs"
	"github.com/aqt/aqt-connector/pkg/metrics"
	"github.com/aqt/aqt-connector/pkg/version"
)

type Client struct {
	baseURL   *url.URL
	token     string
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	log       *zap.SugaredLogger
}

type Option func(*Client) error

func New(opts ...Option) (*Client, error) {
	c := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: version.UserAgent(),
		log:       zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.baseURL == nil {
		return nil, errors.New("server is required")
	}
	return c, nil
}

func WithServer(server string) Option {
	return func(c *Client) error {
		if server == "" {
			return errors.New("server is required")
		}
		parsed, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("invalid server: %w", err)
		}
		c.baseURL = parsed
		return nil
	}
}

// WithToken sets the bearer token used when a call does not pass its own.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) error {
		c.userAgent = userAgent
		return nil
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		if httpClient == nil {
			return errors.New("http client is nil")
		}
		c.http = httpClient
		return nil
	}
}

func WithTLSConfig(caFile string, insecureSkipTLSVerify bool) Option {
	return func(c *Client) error {
		tlsConfig, err := loadTLSConfig(caFile, insecureSkipTLSVerify)
		if err != nil {
			return err
		}
		transport := &http.Transport{TLSClientConfig: tlsConfig}
		c.http = &http.Client{Transport: transport, Timeout: 30 * time.Second}
		return nil
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) error {
		if perSecond < 0 {
			return errors.New("rate limit must not be negative")
		}
		if perSecond == 0 {
			c.limiter = nil
			return nil
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		return nil
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) error {
		if log != nil {
			c.log = log
		}
		return nil
	}
}

func loadTLSConfig(caFile string, insecure bool) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: insecure}
	if caFile == "" {
		return tlsConfig, nil
	}
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(data); !ok {
		return nil, errors.New("failed to parse CA file")
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// statusMapper turns a failed response into a domain error. Endpoints
// override the default where a status code has endpoint specific meaning.
type statusMapper func(status int) error

func defaultStatusMapper(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return errdefs.ErrNotAuthenticated
	case status >= 500:
		return errdefs.ErrUnknownServer
	}
	return nil
}

func (c *Client) do(ctx context.Context, token, method, endpoint, metricName string, body any, out any, mapStatus statusMapper) error {
	fullURL := *c.baseURL
	parsedEndpoint, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	fullURL.Path = path.Join(fullURL.Path, parsedEndpoint.Path)
	if parsedEndpoint.RawQuery != "" {
		fullURL.RawQuery = parsedEndpoint.RawQuery
	}

	var payload io.Reader
	if body != nil {
		bytesBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(bytesBody)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debugw("Sending ARNICA request", "method", method, "url", fullURL.String())
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.APIRequests.WithLabelValues(metricName, "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errdefs.NewRequestError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	metrics.APIRequests.WithLabelValues(metricName, statusClass(resp.StatusCode)).Inc()

	data, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		// The status already says what went wrong; a truncated body only
		// loses the message.
		return decodeError(resp, data, mapStatus)
	}
	if readErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// The connection broke mid-body, which is a network failure like
		// any other.
		return errdefs.NewRequestError(fmt.Errorf("failed to read response: %w", readErr))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

func decodeError(resp *http.Response, body []byte, mapStatus statusMapper) error {
	var apiErr struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if len(body) > 0 {
		_ = json.Unmarshal(body, &apiErr)
	}
	msg := strings.TrimSpace(apiErr.Error)
	if msg == "" {
		if detail, ok := apiErr.Detail.(string); ok {
			msg = strings.TrimSpace(detail)
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}
	var kind error
	if mapStatus != nil {
		kind = mapStatus(resp.StatusCode)
	}
	if kind == nil {
		kind = defaultStatusMapper(resp.StatusCode)
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg, Kind: kind}
}

// HTTPError is a non-2xx response. Kind, when set, is the errdefs sentinel
// the status maps to.
type HTTPError struct {
	StatusCode int
	Message    string
	Kind       error
}

func (e *HTTPError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}
