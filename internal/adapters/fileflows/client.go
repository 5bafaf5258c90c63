package fileflows

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/frostdev-ops/fileflows-bridge/pkg/version"
)

const (
	// DefaultPort is the FileFlows web port.
	DefaultPort = 19200
	// DefaultTimeout bounds every single HTTP exchange.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 16 << 20
	loginPath    = "authorize"
)

// Config holds the already-validated connection settings.
type Config struct {
	Host string
	Port int
	SSL  bool
	// InsecureSkipVerify disables TLS certificate checks.
	InsecureSkipVerify bool
	// BaseURL overrides Host, Port and SSL when set.
	BaseURL string
	Auth    AuthMode
	Timeout time.Duration
	// HTTPClient replaces the default transport. Its own Timeout is kept.
	HTTPClient *http.Client
}

// Client issues requests against one FileFlows server. It never retries
// internally except for the single re-login after a 401 in Login mode.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	mode    AuthMode
	timeout time.Duration
	maxBody int64
	session *session
	logger  *logrus.Logger
}

type response struct {
	status int
	value  interface{}
}

// BaseURL builds scheme://host:port/ from the connection settings.
func BaseURL(host string, port int, ssl bool) string {
	scheme := "http"
	if ssl {
		scheme = "https"
	}
	if port <= 0 {
		port = DefaultPort
	}
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")
	return fmt.Sprintf("%s://%s:%d/", scheme, host, port)
}

// NewClient validates cfg and returns a ready client. No request is made.
func NewClient(cfg Config, logger *logrus.Logger) (*Client, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		if strings.TrimSpace(cfg.Host) == "" {
			return nil, fmt.Errorf("fileflows host is required")
		}
		raw = BaseURL(cfg.Host, cfg.Port, cfg.SSL)
	}
	base, err := parseBaseURL(raw)
	if err != nil {
		return nil, err
	}

	mode := normalizeMode(cfg.Auth)
	if err := validateMode(mode); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if base.Scheme == "https" && cfg.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in for self-signed servers
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	c := &Client{
		baseURL: base,
		http:    httpClient,
		mode:    mode,
		timeout: timeout,
		maxBody: maxBodyBytes,
		logger:  logger,
	}
	if login, ok := mode.(Login); ok {
		c.session = newSession(login, c.login)
	}
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid fileflows url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid fileflows url %q: unsupported scheme %q", raw, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid fileflows url %q: missing host", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func validateMode(mode AuthMode) error {
	switch m := mode.(type) {
	case HeaderToken:
		if strings.TrimSpace(m.Token) == "" {
			return fmt.Errorf("header token mode requires a token")
		}
	case BearerToken:
		if strings.TrimSpace(m.Token) == "" {
			return fmt.Errorf("bearer token mode requires a token")
		}
	case Login:
		if strings.TrimSpace(m.Username) == "" {
			return fmt.Errorf("login mode requires a username")
		}
	}
	return nil
}

// URL returns the server base URL.
func (c *Client) URL() string {
	return c.baseURL.String()
}

// Mode returns the configured authentication mode.
func (c *Client) Mode() AuthMode {
	return c.mode
}

// Resources returns the resources this client can fetch: the public subset
// without credentials, everything otherwise.
func (c *Client) Resources() []Resource {
	if Authenticated(c.mode) {
		return AllResources()
	}
	return PublicResources()
}

// Fetch retrieves the raw value of r. A 404 yields (nil, nil), which decodes
// to the resource default. The version resource falls back to its
// authenticated path when the public one is absent.
func (c *Client) Fetch(ctx context.Context, r Resource) (interface{}, error) {
	spec, ok := r.Spec()
	if !ok {
		return nil, newProtocolError(string(r), 0, "unknown resource")
	}

	res, err := c.call(ctx, string(r), http.MethodGet, spec.Path, nil, !spec.Public)
	if err != nil {
		return nil, err
	}
	if res.status == http.StatusNotFound && spec.Fallback != "" && Authenticated(c.mode) {
		c.logger.WithFields(logrus.Fields{
			"resource": r,
			"fallback": spec.Fallback,
		}).Debug("FileFlows resource absent, trying fallback")
		res, err = c.call(ctx, string(r), http.MethodGet, spec.Fallback, nil, true)
		if err != nil {
			return nil, err
		}
	}
	if res.status == http.StatusNotFound {
		return nil, nil
	}
	return res.value, nil
}

// Do performs an authenticated mutation. Unlike Fetch, a 404 is a protocol
// failure: a missing mutation endpoint must be reported to the caller.
func (c *Client) Do(ctx context.Context, op, method, path string, body interface{}) (interface{}, error) {
	res, err := c.call(ctx, op, method, path, body, true)
	if err != nil {
		return nil, err
	}
	if res.status == http.StatusNotFound {
		return nil, newProtocolError(op, res.status, "endpoint not found")
	}
	return res.value, nil
}

// TestConnection checks that the public status endpoint answers with a
// FileFlows status document.
func (c *Client) TestConnection(ctx context.Context) error {
	res, err := c.call(ctx, "test_connection", http.MethodGet, "remote/info/status", nil, false)
	if err != nil {
		return err
	}
	if res.status == http.StatusNotFound {
		return newProtocolError("test_connection", res.status, "status endpoint not found")
	}
	rec, ok := Normalize(res.value).(Record)
	if !ok || !(isNumeric(rec["Processed"]) || isNumeric(rec["Queue"])) {
		return newProtocolError("test_connection", res.status, "unexpected status document")
	}
	return nil
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32, json.Number:
		return true
	default:
		return false
	}
}

// call performs one logical operation: one exchange, or two when a cached
// session token is rejected with 401 and a fresh login succeeds.
func (c *Client) call(ctx context.Context, op, method, path string, body interface{}, authenticated bool) (*response, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, newProtocolError(op, 0, fmt.Sprintf("encode request body: %v", err))
		}
		payload = data
	}

	var tok *oauth2.Token
	if authenticated && c.session != nil {
		var err error
		if tok, err = c.session.token(ctx); err != nil {
			return nil, err
		}
	}

	status, data, err := c.exchange(ctx, op, method, path, payload, tok)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && tok != nil {
		c.logger.WithFields(logrus.Fields{
			"op":   op,
			"path": path,
		}).Debug("FileFlows session token rejected, logging in again")
		c.session.invalidate(tok)
		if tok, err = c.session.token(ctx); err != nil {
			return nil, err
		}
		if status, data, err = c.exchange(ctx, op, method, path, payload, tok); err != nil {
			return nil, err
		}
	}

	return classify(op, status, data)
}

func classify(op string, status int, data []byte) (*response, error) {
	switch {
	case status >= 200 && status < 300:
		return &response{status: status, value: parseBody(status, data)}, nil
	case status == http.StatusNotFound:
		return &response{status: status}, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, newAuthError(op, status, nil)
	default:
		return nil, newProtocolError(op, status, snippet(data))
	}
}

// parseBody returns nil for empty bodies, the decoded JSON value when the body
// parses, and the raw text otherwise.
func parseBody(status int, data []byte) interface{} {
	trimmed := bytes.TrimSpace(data)
	if status == http.StatusNoContent || len(trimmed) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err == nil {
		return v
	}
	return string(trimmed)
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func (c *Client) exchange(ctx context.Context, op, method, path string, payload []byte, tok *oauth2.Token) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL.String() + strings.TrimPrefix(path, "/")

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, newProtocolError(op, 0, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	applyStatic(c.mode, req)
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	c.logger.WithFields(logrus.Fields{
		"op":     op,
		"method": method,
		"url":    target,
	}).Debug("Making HTTP request to FileFlows")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, newConnectionError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return 0, nil, newConnectionError(op, err)
	}
	if int64(len(data)) > c.maxBody {
		return 0, nil, newProtocolError(op, resp.StatusCode, fmt.Sprintf("response body exceeds %d bytes", c.maxBody))
	}

	c.logger.WithFields(logrus.Fields{
		"op":          op,
		"status_code": resp.StatusCode,
		"latency":     time.Since(start),
	}).Debug("Received HTTP response from FileFlows")

	return resp.StatusCode, data, nil
}

// login submits the credentials and returns the bare session token.
func (c *Client) login(ctx context.Context, creds Login) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	})
	if err != nil {
		return "", newProtocolError("login", 0, fmt.Sprintf("encode credentials: %v", err))
	}

	status, data, err := c.exchange(ctx, "login", http.MethodPost, loginPath, payload, nil)
	if err != nil {
		return "", err
	}

	switch {
	case status >= 200 && status < 300:
		token := strings.TrimSpace(string(data))
		if unquoted, err := strconv.Unquote(token); err == nil {
			token = unquoted
		}
		token = strings.TrimSpace(strings.Trim(token, `"`))
		if token == "" {
			return "", newAuthError("login", status, ErrEmptyToken)
		}
		c.logger.WithField("user", creds.Username).Info("Acquired FileFlows session token")
		return token, nil
	case status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "", newAuthError("login", status, ErrLoginRejected)
	default:
		return "", newProtocolError("login", status, snippet(data))
	}
}
