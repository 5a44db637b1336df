package llm

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kbukum/flowengine/errors"
)

// ErrNoDialect is returned when an adapter is built without a dialect.
var ErrNoDialect = stderrors.New("llm: dialect is required")

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// Adapter is a config-driven LLM client that works with any provider via
// the Dialect pattern. It implements Provider.
type Adapter struct {
	name      string
	baseURL   string
	apiKey    string
	headers   map[string]string
	client    *http.Client
	dialect   Dialect
	model     string
	temp      float64
	maxTokens int
}

var _ Provider = (*Adapter)(nil)

// New creates an LLM adapter from config using the global dialect registry.
func New(cfg Config) (*Adapter, error) {
	cfg.ApplyDefaults()
	dialect, err := GetDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	return newAdapter(dialect, cfg), nil
}

// NewWithDialect creates an LLM adapter with an explicit dialect instance.
func NewWithDialect(dialect Dialect, cfg Config) (*Adapter, error) {
	if dialect == nil {
		return nil, ErrNoDialect
	}
	cfg.ApplyDefaults()
	if cfg.Name == "" {
		cfg.Name = dialect.Name() + "-llm"
	}
	return newAdapter(dialect, cfg), nil
}

func newAdapter(dialect Dialect, cfg Config) *Adapter {
	return &Adapter{
		name:      cfg.Name,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		headers:   cfg.Headers,
		client:    &http.Client{Timeout: cfg.Timeout},
		dialect:   dialect,
		model:     cfg.Model,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
	}
}

// Name returns the adapter name.
func (a *Adapter) Name() string { return a.name }

// Dialect returns the dialect used by this adapter.
func (a *Adapter) Dialect() Dialect { return a.dialect }

// IsAvailable checks if the LLM provider is reachable.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	path := a.dialect.HealthPath()
	if path == "" {
		path = "/"
	}
	req, err := a.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// Complete sends a completion request and returns the full response.
// Transport failures and non-2xx statuses come back as retryable
// EXTERNAL_SERVICE_ERROR app errors.
func (a *Adapter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	a.applyDefaults(&req)

	payload, err := a.dialect.BuildRequest(req)
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := a.newRequest(ctx, http.MethodPost, a.dialect.ChatPath(), body)
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, errors.ExternalServiceError(a.name, err)
	}
	defer httpResp.Body.Close() //nolint:errcheck // read-only body

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.ExternalServiceError(a.name, fmt.Errorf("read response: %w", err))
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return nil, errors.ExternalServiceError(a.name, fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, respBody)).
			WithDetail("status", httpResp.StatusCode)
	}

	result, err := a.dialect.ParseResponse(respBody)
	if err != nil {
		return nil, fmt.Errorf("llm: parse response: %w", err)
	}
	result.Usage = result.Usage.withTotal()
	return result, nil
}

func (a *Adapter) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (a *Adapter) applyDefaults(req *CompletionRequest) {
	if req.Model == "" {
		req.Model = a.model
	}
	if req.Temperature == 0 {
		req.Temperature = a.temp
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = a.maxTokens
	}
}
