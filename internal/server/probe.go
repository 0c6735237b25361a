// ABOUTME: Endpoint probes: /health readiness and time-to-first-byte of a one-token streaming completion
// ABOUTME: Classifies latency as local (<50ms), fast (<500ms) or slow (>=500ms)

package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LatencyClass categorizes endpoint latency.
type LatencyClass int

const (
	LatencyLocal LatencyClass = iota // <50ms TTFB
	LatencyFast                      // <500ms TTFB
	LatencySlow                      // >=500ms TTFB
)

// String returns the human-readable name of the latency class.
func (l LatencyClass) String() string {
	switch l {
	case LatencyLocal:
		return "local"
	case LatencyFast:
		return "fast"
	case LatencySlow:
		return "slow"
	default:
		return "unknown"
	}
}

// ProbeResult holds the outcome of a TTFB measurement.
type ProbeResult struct {
	TTFB    time.Duration `json:"ttfbNs"`
	Latency LatencyClass  `json:"-"`
	Class   string        `json:"latency"`
	Status  int           `json:"status"`
	Err     error         `json:"-"`
}

// probeTimeout is the maximum time to wait for a probe response.
const probeTimeout = 5 * time.Second

// Probe sends a one-token streaming completion and measures the time until
// the first body byte. On any failure the result is LatencySlow with Err set.
func Probe(ctx context.Context, baseURL, apiKey, model string) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if model == "" {
		model = "default"
	}
	payload := fmt.Sprintf(`{"model":%q,"messages":[{"role":"user","content":"hi"}],"max_tokens":1,"stream":true}`, model)
	url := strings.TrimRight(baseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(payload))
	if err != nil {
		return slow(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return slow(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	var first [1]byte
	if _, err := io.ReadFull(resp.Body, first[:]); err != nil {
		r := slow(fmt.Errorf("reading first byte: %w", err))
		r.Status = resp.StatusCode
		return r
	}
	ttfb := time.Since(start)
	class := classifyLatency(ttfb)
	return ProbeResult{TTFB: ttfb, Latency: class, Class: class.String(), Status: resp.StatusCode}
}

func slow(err error) ProbeResult {
	return ProbeResult{TTFB: probeTimeout, Latency: LatencySlow, Class: LatencySlow.String(), Err: err}
}

// classifyLatency maps a TTFB duration to a LatencyClass.
func classifyLatency(ttfb time.Duration) LatencyClass {
	switch {
	case ttfb < 50*time.Millisecond:
		return LatencyLocal
	case ttfb < 500*time.Millisecond:
		return LatencyFast
	default:
		return LatencySlow
	}
}

// Healthy reports whether GET {baseURL}/health answers 200.
func Healthy(ctx context.Context, client *http.Client, baseURL string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health: status %d", resp.StatusCode)
	}
	return nil
}
