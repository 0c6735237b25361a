// ABOUTME: Shared HTTP client for inference server calls: default headers, timeouts, streaming bodies
// ABOUTME: Single attempt per call; every status code is returned to the caller for uniform body parsing

package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole request, including reading a streamed body.
const DefaultTimeout = 30 * time.Second

// Client wraps an http.Client with a base URL and default headers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

// NewClient creates a new HTTP client with the given base URL, default headers
// and overall request timeout (DefaultTimeout when zero).
// Proxy support comes from the stdlib's default transport (HTTP_PROXY, HTTPS_PROXY).
func NewClient(baseURL string, headers map[string]string, timeout time.Duration) *Client {
	if headers == nil {
		headers = make(map[string]string)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: baseURL,
		headers: headers,
	}
}

// BaseURL returns the base URL configured on this client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends one HTTP request. Any response, whatever its status code, is
// returned; only transport failures produce an error. The caller must close
// the response body.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := c.buildRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	return resp, nil
}

// Discard drains and closes a response body so the connection can be reused.
func Discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}

// buildRequest creates an http.Request with default headers applied.
func (c *Client) buildRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s %s: %w", method, path, err)
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}
