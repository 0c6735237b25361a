// ABOUTME: OpenAI-compatible chat-completions backend (llama.cpp llama-server, vLLM, OpenAI)
// ABOUTME: Issues max_tokens=1 priming calls and streaming completion calls; bodies are parsed by the caller

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	pilog "github.com/mauromedda/pi-complete-go/internal/log"
	"github.com/mauromedda/pi-complete-go/pkg/ai"
	"github.com/mauromedda/pi-complete-go/pkg/ai/internal/httputil"
)

const (
	// DefaultBaseURL is where llama-server listens with the usual FIM presets.
	DefaultBaseURL     = "http://127.0.0.1:8012"
	chatCompletionPath = "/v1/chat/completions"

	// maxPrimeBody bounds how much of a priming response is read before it is discarded.
	maxPrimeBody = 64 * 1024
)

// Config configures a Provider.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Compat  CompatMode
}

// Provider talks to one OpenAI-compatible endpoint.
type Provider struct {
	client *httputil.Client
	model  string
	compat CompatMode
}

// New creates a provider. An empty API key falls back to OPENAI_API_KEY;
// when both are empty no Authorization header is sent.
func New(cfg Config) *Provider {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = httputil.NormalizeBaseURL(baseURL)

	compat := cfg.Compat
	if compat == CompatAuto {
		compat = DetectCompat(baseURL)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}

	return &Provider{
		client: httputil.NewClient(baseURL, headers, cfg.Timeout),
		model:  cfg.Model,
		compat: compat,
	}
}

// BaseURL returns the normalized endpoint base URL.
func (p *Provider) BaseURL() string {
	return p.client.BaseURL()
}

// IsLocal reports whether the endpoint is on the loopback interface.
func (p *Provider) IsLocal() bool {
	return httputil.IsLocalURL(p.client.BaseURL())
}

// Compat returns the resolved compatibility mode.
func (p *Provider) Compat() CompatMode {
	return p.compat
}

// Prime sends msgs with max_tokens=1 so the server parses and caches the
// prompt prefix. The response is drained and discarded; an error envelope in
// the body is reported as an error.
func (p *Provider) Prime(ctx context.Context, msgs []ai.Message, opts ai.Options) error {
	opts.MaxTokens = 1
	resp, err := p.post(ctx, buildRequestBody(p.model, p.compat, msgs, opts, false))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPrimeBody))
	if err != nil {
		return fmt.Errorf("reading priming response: %w", err)
	}
	if err := envelopeError(body); err != nil {
		return err
	}
	return nil
}

// Stream starts a streaming completion and returns the raw response body.
// Whatever the status code, the body is handed back: error envelopes are
// part of the stream grammar. The caller must close it.
func (p *Provider) Stream(ctx context.Context, msgs []ai.Message, opts ai.Options) (io.ReadCloser, error) {
	resp, err := p.post(ctx, buildRequestBody(p.model, p.compat, msgs, opts, true))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (p *Provider) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	pilog.Debug("http: POST %s%s stream=%v max_tokens=%d bytes=%d", p.client.BaseURL(), chatCompletionPath, body.Stream, body.MaxTokens, len(bodyBytes))
	resp, err := p.client.Do(ctx, http.MethodPost, chatCompletionPath, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	pilog.Debug("http: POST %s%s → %d", p.client.BaseURL(), chatCompletionPath, resp.StatusCode)
	return resp, nil
}
