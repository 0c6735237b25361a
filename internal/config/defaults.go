// ABOUTME: Default settings and typed accessors for duration and geometry fields
// ABOUTME: Validate reports every invalid field at once, wrapped in ErrInvalid

package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mauromedda/pi-complete-go/internal/document"
	"github.com/mauromedda/pi-complete-go/pkg/ai/provider/openai"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid settings")

// Defaults returns the built-in settings.
func Defaults() *Settings {
	autoStart := true
	w := document.DefaultWindowOptions()
	return &Settings{
		Endpoint:    openai.DefaultBaseURL,
		Compat:      "auto",
		MaxTokens:   256,
		MaxLines:    16,
		Temperature: 0.1,
		Timeout:     "30s",
		Window: WindowSettings{
			LinesBefore: w.LinesBefore,
			LinesAfter:  w.LinesAfter,
			CacheSlack:  w.CacheSlack,
			TTL:         "5m",
		},
		Server: ServerSettings{
			AutoStart:    &autoStart,
			IdleTimeout:  "15m",
			StartTimeout: "60s",
		},
		LogLevel: "info",
	}
}

// Validate checks ranges and formats.
func (s *Settings) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if u, err := url.Parse(s.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("endpoint %q must be an http(s) URL", s.Endpoint)
	}
	switch s.Compat {
	case "", "auto", "standard", "openai", "llama.cpp", "llamacpp", "llama":
	default:
		add("compat %q must be auto, standard or llama.cpp", s.Compat)
	}
	if s.ContextSize < 0 {
		add("contextSize must not be negative")
	}
	if s.MaxTokens < 0 {
		add("maxTokens must not be negative")
	}
	if s.MaxLines < 0 {
		add("maxLines must not be negative")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		add("temperature %v out of range [0, 2]", s.Temperature)
	}
	if s.TopP < 0 || s.TopP > 1 {
		add("topP %v out of range [0, 1]", s.TopP)
	}
	if s.Window.LinesBefore < 0 || s.Window.LinesAfter < 0 || s.Window.CacheSlack < 0 {
		add("window sizes must not be negative")
	}
	if s.MinBudgetChars < 0 {
		add("minBudgetChars must not be negative")
	}
	for name, v := range map[string]string{
		"timeout":             s.Timeout,
		"window.ttl":          s.Window.TTL,
		"server.idleTimeout":  s.Server.IdleTimeout,
		"server.startTimeout": s.Server.StartTimeout,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			add("%s %q is not a duration", name, v)
		}
	}
	return errors.Join(errs...)
}

// duration parses v, returning zero for empty or malformed values.
func duration(v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// RequestTimeout returns the per-request HTTP timeout.
func (s *Settings) RequestTimeout() time.Duration { return duration(s.Timeout) }

// WindowTTL returns how long a rendered window stays reusable.
func (s *Settings) WindowTTL() time.Duration { return duration(s.Window.TTL) }

// IdleTimeout returns how long a spawned server may stay idle.
func (s *Settings) IdleTimeout() time.Duration { return duration(s.Server.IdleTimeout) }

// StartTimeout bounds the wait for a spawned server.
func (s *Settings) StartTimeout() time.Duration { return duration(s.Server.StartTimeout) }

// AutoStart reports whether an unreachable local endpoint triggers a server start.
func (s *Settings) AutoStart() bool {
	return s.Server.AutoStart != nil && *s.Server.AutoStart && len(s.Server.Command) > 0
}

// WindowOptions converts the window settings.
func (s *Settings) WindowOptions() document.WindowOptions {
	return document.WindowOptions{
		LinesBefore: s.Window.LinesBefore,
		LinesAfter:  s.Window.LinesAfter,
		CacheSlack:  s.Window.CacheSlack,
	}
}

// CompatMode converts the compat setting.
func (s *Settings) CompatMode() openai.CompatMode {
	return openai.ParseCompat(s.Compat)
}
