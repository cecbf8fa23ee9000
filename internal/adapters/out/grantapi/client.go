// Package grantapi grants accounts access to an environment through the
// access-management HTTP API.
package grantapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
)

// Ensure Client implements out.PermissionGranter.
var _ out.PermissionGranter = (*Client)(nil)

// DefaultTimeout is the default timeout for a grant request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read into messages.
const maxErrorBody = 4 << 10

// Client calls POST {base}/v1/environments/{name}/grants.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	timeout time.Duration
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a grant client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid grant API url %q", domain.ErrInvalidConfig, baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

type grantRequest struct {
	Account   string `json:"account"`
	Namespace string `json:"namespace,omitempty"`
}

type grantResponse struct {
	Granted int `json:"granted"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Grant gives account access to env and returns how many role assignments
// were added. Grants that already exist are not counted.
func (c *Client) Grant(ctx context.Context, env domain.EnvironmentRef, account string) (int, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "grantapi",
		zerowrap.FieldAction:  "Grant",
		zerowrap.FieldEnv:     env.String(),
	})
	log := zerowrap.FromCtx(ctx)

	body, err := json.Marshal(grantRequest{Account: account, Namespace: env.Namespace})
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := c.baseURL + "/v1/environments/" + url.PathEscape(env.Name) + "/grants"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "envrefresh")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, log.WrapErr(err, "grant request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, statusError(resp)
	}

	var result grantResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to decode grant response: %w", err)
	}

	log.Info().Str("account", account).Int(zerowrap.FieldCount, result.Granted).Msg("access granted")
	return result.Granted, nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil {
		if parsed.Message != "" {
			msg = parsed.Message
		} else if parsed.Error != "" {
			msg = parsed.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrResourceNotFound, msg)
	default:
		return fmt.Errorf("grant API returned %d: %s", resp.StatusCode, msg)
	}
}
