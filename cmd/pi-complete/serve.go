// ABOUTME: serve command: line-delimited JSON-RPC over stdin/stdout for editor integrations
// ABOUTME: Runs the RPC loop, the settings watcher and the server supervisor until stdin closes

package main

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mauromedda/pi-complete-go/internal/config"
	pilog "github.com/mauromedda/pi-complete-go/internal/log"
	"github.com/mauromedda/pi-complete-go/internal/mode/rpc"
)

func newServeCmd(rf *rootFlags) *cobra.Command {
	var stderrLog bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve completions over JSON-RPC on stdin/stdout",
		Long: `serve reads one JSON request per line from stdin and writes one response or
notification per line to stdout. Logs go to the configured log file, or to
stderr with --log-stderr; stdout carries protocol traffic only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(rf, !stderrLog)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&stderrLog, "log-stderr", false, "Log to stderr instead of the log file")
	return cmd
}

func serve(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	router := rpc.NewRouter()
	srv := rpc.NewServer(in, out, router)
	svc := &rpc.Service{
		Engine:     a.engine,
		Marker:     a.settings.CheckpointMarker,
		Endpoint:   a.provider.BaseURL(),
		Model:      a.settings.Model,
		Supervisor: a.supervisor,
		Notify:     srv.Notify,
	}
	svc.Register(router)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return srv.Run(ctx)
	})
	// A blocked read of the input only ends when it is closed.
	g.Go(func() error {
		<-ctx.Done()
		if c, ok := in.(io.Closer); ok {
			_ = c.Close()
		}
		return nil
	})

	watcher := config.WatchSettings(a.projectRoot, config.DefaultWatchInterval, func(s *config.Settings, err error) {
		if err != nil {
			pilog.Warn("serve: settings reload: %v", err)
			return
		}
		pending := applyReload(a, s)
		pilog.Info("serve: settings reloaded: log level %s applied, truncation budgets reset", s.LogLevel)
		if len(pending) > 0 {
			pilog.Warn("serve: restart to apply changed %s", strings.Join(pending, ", "))
		}
	})
	g.Go(func() error {
		watcher.Run(ctx)
		return nil
	})

	if a.supervisor != nil {
		g.Go(func() error {
			if err := a.supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	pilog.Info("serve: ready (endpoint %s, pid %d)", a.provider.BaseURL(), os.Getpid())
	return g.Wait()
}

// applyReload applies the reloadable part of s (the log level) and resets
// the engine's learned state. It returns the changed settings that only
// take effect after a restart.
func applyReload(a *app, s *config.Settings) []string {
	if a.flags != nil {
		applyFlags(s, a.flags)
	}
	pilog.SetLevel(pilog.ParseLevel(s.LogLevel))
	a.engine.Reset()

	old := a.settings
	var pending []string
	check := func(name string, changed bool) {
		if changed {
			pending = append(pending, name)
		}
	}
	check("endpoint", old.Endpoint != s.Endpoint)
	check("apiKey", old.APIKey != s.APIKey)
	check("model", old.Model != s.Model)
	check("compat", old.Compat != s.Compat)
	check("timeout", old.Timeout != s.Timeout)
	check("contextSize", old.ContextSize != s.ContextSize)
	check("maxTokens", old.MaxTokens != s.MaxTokens)
	check("maxLines", old.MaxLines != s.MaxLines)
	check("temperature", old.Temperature != s.Temperature)
	check("topP", old.TopP != s.TopP)
	check("stop", !slices.Equal(old.Stop, s.Stop))
	check("checkpointMarker", old.CheckpointMarker != s.CheckpointMarker)
	check("minBudgetChars", old.MinBudgetChars != s.MinBudgetChars)
	check("window", old.Window != s.Window)
	check("server", !slices.Equal(old.Server.Command, s.Server.Command) ||
		old.AutoStart() != s.AutoStart() ||
		old.Server.IdleTimeout != s.Server.IdleTimeout ||
		old.Server.StartTimeout != s.Server.StartTimeout)
	check("logFile", old.LogFile != s.LogFile)

	old.LogLevel = s.LogLevel
	return pending
}
