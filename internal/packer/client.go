package packer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	platformerrors "github.com/jmgilman/go/errors"
	"golang.org/x/time/rate"

	"github.com/eugenenazirov/box-estimator/internal/packing"
)

const (
	// DefaultEndpoint is the packIntoMany operation of the 3dbinpacking API.
	DefaultEndpoint = "https://global-api.3dbinpacking.com/packer/packIntoMany"
	// DefaultTimeout bounds every call, including time spent waiting for an
	// outbound rate-limit slot.
	DefaultTimeout = 3 * time.Second

	maxResponseBytes = 4 << 20
)

// Packer decides which single box holds a cart.
type Packer interface {
	Pack(ctx context.Context, boxes []packing.Box, items []packing.Item) (packing.Decision, error)
}

// Client calls the external packing service. Every failure is returned as a
// platform error whose code tells the caller why; none of them is retried.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	timeout     time.Duration
	credentials Credentials
	limiter     *rate.Limiter
	newID       func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithEndpoint overrides the packing service URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithTimeout sets the upper bound on a single Pack call. Non-positive values
// are ignored; the call is never unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit throttles outbound calls to rps with the given burst. A
// non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithIDGenerator overrides the per-item id source, primarily for tests.
func WithIDGenerator(newID func() string) Option {
	return func(c *Client) {
		c.newID = newID
	}
}

// NewClient builds a Client that authenticates with creds.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		endpoint:    DefaultEndpoint,
		timeout:     DefaultTimeout,
		credentials: creds,
		newID:       randomItemID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the bound applied to each call.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Pack asks the service to pack items into the catalog boxes. Boxes and items
// should already be normalized. Exactly one packed bin yields that bin's id;
// zero or several yield packing.NoFit.
func (c *Client) Pack(ctx context.Context, boxes []packing.Box, items []packing.Item) (packing.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.credentials == nil || c.credentials.Username() == "" || c.credentials.APIKey().Reveal() == "" {
		return packing.Decision{}, platformerrors.New(platformerrors.CodeUnauthorized,
			"packing service credentials are not configured")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return packing.Decision{}, platformerrors.Wrap(err, platformerrors.CodeRateLimit,
				"no outbound slot available before deadline")
		}
	}

	payload, err := json.Marshal(packRequest{
		Username: c.credentials.Username(),
		APIKey:   c.credentials.APIKey().Reveal(),
		Bins:     toWireBins(boxes),
		Items:    toWireItems(items, c.newID),
		Params:   packParams{OptimizationMode: optimizationBinsNumber},
	})
	if err != nil {
		return packing.Decision{}, platformerrors.Wrap(err, platformerrors.CodeInternal, "encode pack request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return packing.Decision{}, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "build pack request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return packing.Decision{}, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return packing.Decision{}, platformerrors.WithContext(
			platformerrors.Newf(platformerrors.CodeUnavailable, "response code not 2xx: %s", resp.Status),
			"status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return packing.Decision{}, classifyTransportError(ctx, err)
	}

	return decodeDecision(body)
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return platformerrors.Wrap(err, platformerrors.CodeTimeout, "packing service did not answer in time")
	}
	return platformerrors.Wrap(err, platformerrors.CodeNetwork, "packing service unreachable")
}

// Reason returns a short label for a Pack failure, suitable for logs and
// metrics.
func Reason(err error) string {
	switch platformerrors.GetCode(err) {
	case platformerrors.CodeTimeout:
		return "timeout"
	case platformerrors.CodeNetwork:
		return "network"
	case platformerrors.CodeUnavailable:
		return "unavailable"
	case platformerrors.CodeSchemaFailed:
		return "schema"
	case platformerrors.CodeUnauthorized:
		return "unauthorized"
	case platformerrors.CodeRateLimit:
		return "rate_limit"
	default:
		return fmt.Sprintf("other(%s)", platformerrors.GetCode(err))
	}
}
