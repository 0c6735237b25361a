// ABOUTME: Wires settings into the provider, supervisor and completion engine
// ABOUTME: Shared by the complete, serve and probe commands

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mauromedda/pi-complete-go/internal/completion"
	"github.com/mauromedda/pi-complete-go/internal/config"
	pilog "github.com/mauromedda/pi-complete-go/internal/log"
	"github.com/mauromedda/pi-complete-go/internal/server"
	"github.com/mauromedda/pi-complete-go/internal/window"
	"github.com/mauromedda/pi-complete-go/pkg/ai"
	"github.com/mauromedda/pi-complete-go/pkg/ai/provider/openai"
)

// app is the assembled runtime for one invocation.
type app struct {
	flags       *rootFlags
	projectRoot string
	settings    *config.Settings
	provider    *openai.Provider
	supervisor  *server.Supervisor
	engine      *completion.Engine

	logFile io.Closer
}

// loadSettings merges settings for the project root and applies flag overrides.
func loadSettings(f *rootFlags) (string, *config.Settings, error) {
	root := f.project
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", nil, fmt.Errorf("getting working directory: %w", err)
		}
		root = cwd
	}
	s, err := config.Load(root)
	if err != nil {
		return "", nil, fmt.Errorf("loading settings: %w", err)
	}
	applyFlags(s, f)
	if err := s.Validate(); err != nil {
		return "", nil, err
	}
	return root, s, nil
}

func applyFlags(s *config.Settings, f *rootFlags) {
	if f.endpoint != "" {
		s.Endpoint = f.endpoint
	}
	if f.model != "" {
		s.Model = f.model
	}
	if f.logLevel != "" {
		s.LogLevel = f.logLevel
	}
	if f.verbose {
		s.LogLevel = "debug"
	}
}

// newApp builds the runtime. When logToFile is set, log output goes to the
// configured log file instead of stderr.
func newApp(f *rootFlags, logToFile bool) (*app, error) {
	root, s, err := loadSettings(f)
	if err != nil {
		return nil, err
	}
	a := &app{flags: f, projectRoot: root, settings: s}

	pilog.SetLevel(pilog.ParseLevel(s.LogLevel))
	var serverOut io.Writer
	if logToFile {
		path := s.LogFile
		if path == "" {
			path = config.LogFile()
		}
		lf, err := openLog(path)
		if err != nil {
			return nil, err
		}
		pilog.SetOutput(lf, true)
		a.logFile = lf
		serverOut = lf
	}

	a.provider = openai.New(openai.Config{
		BaseURL: s.Endpoint,
		APIKey:  s.APIKey,
		Model:   s.Model,
		Timeout: s.RequestTimeout(),
		Compat:  s.CompatMode(),
	})

	var opts []completion.Option
	if len(s.Server.Command) > 0 {
		ka := server.NewKeepalive(nil)
		a.supervisor = server.NewSupervisor(server.Config{
			Command:      s.Server.Command,
			BaseURL:      a.provider.BaseURL(),
			StartTimeout: s.StartTimeout(),
			IdleTimeout:  s.IdleTimeout(),
			Output:       serverOut,
		}, ka)
		opts = append(opts, completion.WithHeartbeat(ka))
		if s.AutoStart() {
			opts = append(opts, completion.WithTransportErrorHook(a.supervisor.OnTransportError))
		}
	}
	a.engine = completion.New(engineConfig(s), a.provider, opts...)

	pilog.Debug("app: endpoint %s (%s), model %q", a.provider.BaseURL(), a.provider.Compat(), s.Model)
	return a, nil
}

// engineConfig maps settings onto the engine's tunables.
func engineConfig(s *config.Settings) completion.Config {
	cfg := completion.DefaultConfig()
	cfg.Window = s.WindowOptions()
	cfg.WindowTTL = s.WindowTTL()
	cfg.Markers = window.DefaultMarkers()
	cfg.MaxLines = s.MaxLines
	cfg.MinBudgetChars = s.MinBudgetChars
	cfg.ContextSize = s.ContextSize
	cfg.Request = ai.Options{
		Model:       s.Model,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
		TopP:        s.TopP,
		Stop:        s.Stop,
	}
	return cfg
}

// ensureServer starts the configured server when auto-start applies and
// the endpoint is local.
func (a *app) ensureServer(ctx context.Context) error {
	if a.supervisor == nil || !a.settings.AutoStart() || !a.provider.IsLocal() {
		return nil
	}
	if err := a.supervisor.EnsureRunning(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

// close stops a server this process started and releases the log file.
func (a *app) close() {
	if a.supervisor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.supervisor.Stop(ctx); err != nil {
			pilog.Warn("app: stopping server: %v", err)
		}
		cancel()
	}
	if a.logFile != nil {
		pilog.SetOutput(nil, false)
		_ = a.logFile.Close()
	}
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	lf, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return lf, nil
}
