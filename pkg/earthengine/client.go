package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/water-quality/internal/resilience"
)

// Client evaluates expressions on the remote service.
type Client interface {
	// ComputeValue evaluates n and returns the raw JSON result. A null
	// result is returned as the literal "null".
	ComputeValue(ctx context.Context, n Node) (json.RawMessage, error)

	// CreateMap registers n for tiled display and returns its tile source.
	CreateMap(ctx context.Context, n Node, vis Visualization) (*MapID, error)
}

// Visualization controls how an image is rendered into map tiles.
type Visualization struct {
	Bands   []string
	Range   *Range
	Palette []string
}

// Range is the value interval stretched over the display range.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// MapID identifies a registered tile source.
type MapID struct {
	Name    string
	TileURL string
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Status     string `json:"status"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("earthengine: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("earthengine: status %d: %s", e.StatusCode, e.Message)
}

// Observer receives the outcome of every remote call.
type Observer func(operation string, elapsed time.Duration, err error)

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API endpoint (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets the HTTP client. It is expected to attach
// credentials, see Credentials.HTTPClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithRetry sets the retry policy. The default makes a single attempt.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithBreaker guards all calls with a circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *httpClient) {
		c.breaker = b
	}
}

// WithObserver installs a per-call hook, typically for metrics.
func WithObserver(o Observer) Option {
	return func(c *httpClient) {
		c.observe = o
	}
}

const defaultBaseURL = "https://earthengine.googleapis.com"

type httpClient struct {
	project string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
	observe Observer
}

// NewClient creates a client bound to a cloud project.
func NewClient(project string, opts ...Option) Client {
	c := &httpClient{
		project: project,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(10, 10),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ComputeValue(ctx context.Context, n Node) (json.RawMessage, error) {
	expr, err := Serialize(n)
	if err != nil {
		return nil, err
	}

	var out struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.call(ctx, "value:compute", map[string]any{"expression": expr}, &out); err != nil {
		return nil, err
	}
	if len(out.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return out.Result, nil
}

func (c *httpClient) CreateMap(ctx context.Context, n Node, vis Visualization) (*MapID, error) {
	expr, err := Serialize(n)
	if err != nil {
		return nil, err
	}

	options := map[string]any{}
	if vis.Range != nil {
		options["ranges"] = []Range{*vis.Range}
	}
	if len(vis.Palette) > 0 {
		options["paletteColors"] = vis.Palette
	}
	body := map[string]any{
		"expression":           expr,
		"fileFormat":           "AUTO_JPEG_PNG",
		"visualizationOptions": options,
	}
	if len(vis.Bands) > 0 {
		body["bandIds"] = vis.Bands
	}

	var out struct {
		Name string `json:"name"`
	}
	if err := c.call(ctx, "maps", body, &out); err != nil {
		return nil, err
	}
	if out.Name == "" {
		return nil, eris.New("earthengine: map response without name")
	}
	return &MapID{
		Name:    out.Name,
		TileURL: fmt.Sprintf("%s/v1/%s/tiles/{z}/{x}/{y}", c.baseURL, out.Name),
	}, nil
}

// call posts body to a project-scoped method and decodes the reply into out.
func (c *httpClient) call(ctx context.Context, method string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "earthengine: marshal request")
	}
	url := fmt.Sprintf("%s/v1/projects/%s/%s", c.baseURL, c.project, method)

	start := time.Now()
	data, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
			return c.post(ctx, url, payload)
		})
	})
	if c.observe != nil {
		c.observe(method, time.Since(start), err)
	}
	if err != nil {
		return eris.Wrapf(err, "earthengine: %s", method)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "earthengine: decode %s response", method)
	}
	return nil
}

func (c *httpClient) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "earthengine: rate limiter")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "earthengine: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "earthengine: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := parseAPIError(resp.StatusCode, data)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, apiErr
	}
	return data, nil
}

func parseAPIError(status int, body []byte) *APIError {
	var env struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		env.Error.StatusCode = status
		return env.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return &APIError{StatusCode: status, Message: msg}
}
