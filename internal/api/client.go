package api

import (
	"context"
	"fmt"
	"sync"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/rs/zerolog"

	"github.com/diogo/waychat/internal/models"
)

// Doer is the subset of an HTTP client the completion client needs.
// tls_client.HttpClient satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Completer submits a transcript and returns the generated reply
type Completer interface {
	Complete(ctx context.Context, transcript []models.Message) (string, error)
}

// Client talks to an OpenAI-compatible chat completion endpoint. It keeps no
// conversation state: every call carries the full transcript.
type Client struct {
	httpClient     Doer
	endpoint       string
	apiKey         string
	model          string
	temperature    float64
	maxTokens      int
	timeoutSeconds int
	logger         zerolog.Logger
	mu             sync.RWMutex
}

// Ensure Client implements Completer
var _ Completer = (*Client)(nil)

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithEndpoint sets the chat completion URL
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithModel sets the model identifier sent with every request
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(temperature float64) ClientOption {
	return func(c *Client) {
		c.temperature = temperature
	}
}

// WithMaxTokens sets the output length cap
func WithMaxTokens(maxTokens int) ClientOption {
	return func(c *Client) {
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

// WithTimeoutSeconds sets the transport timeout. Zero keeps the transport default.
func WithTimeoutSeconds(seconds int) ClientOption {
	return func(c *Client) {
		c.timeoutSeconds = seconds
	}
}

// WithHTTPClient injects the HTTP client (used by tests)
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new completion client. apiKey is sent as a bearer token.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	client := &Client{
		endpoint:    models.EndpointChatCompletions,
		apiKey:      apiKey,
		model:       models.DefaultModel,
		temperature: models.DefaultTemperature,
		maxTokens:   models.DefaultMaxTokens,
		logger:      zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}
		if client.timeoutSeconds > 0 {
			options = append(options, tls_client.WithTimeoutSeconds(client.timeoutSeconds))
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// GetModel returns the model identifier
func (c *Client) GetModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel changes the model identifier for subsequent calls
func (c *Client) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

// Endpoint returns the chat completion URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// HasAPIKey reports whether a bearer credential is configured
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}
