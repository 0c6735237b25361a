// ABOUTME: URL helpers for inference server base URLs: /v1 normalization and local-endpoint detection
// ABOUTME: Local endpoints are the ones an auto-started server process can serve

package httputil

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeBaseURL strips a trailing "/v1" (and any trailing slash) from a base URL.
// This prevents double-versioned paths like "/v1/v1/chat/completions" when the
// provider appends its own versioned path.
// Only strips /v1 when it's the sole top-level path (e.g., http://host:8012/v1),
// not when it's nested (e.g., http://host/api/v1).
func NormalizeBaseURL(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	baseURL = strings.TrimRight(baseURL, "/")

	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}

	if u.Path == "/v1" {
		u.Path = ""
		return strings.TrimRight(u.String(), "/")
	}

	return baseURL
}

// IsLocalURL reports whether baseURL points at the loopback interface.
func IsLocalURL(baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
