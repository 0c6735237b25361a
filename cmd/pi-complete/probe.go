// ABOUTME: probe command: health check and time-to-first-byte measurement against the endpoint
// ABOUTME: Prints the latency class, or the raw result as JSON with --json

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mauromedda/pi-complete-go/internal/server"
)

func newProbeCmd(rf *rootFlags) *cobra.Command {
	var (
		asJSON bool
		start  bool
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Measure the endpoint's time to first byte",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(rf, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if start {
				if err := a.ensureServer(ctx); err != nil {
					return err
				}
			}

			apiKey := a.settings.APIKey
			if apiKey == "" {
				apiKey = os.Getenv("OPENAI_API_KEY")
			}
			health := server.Healthy(ctx, nil, a.provider.BaseURL())
			res := server.Probe(ctx, a.provider.BaseURL(), apiKey, a.settings.Model)

			out := cmd.OutOrStdout()
			if asJSON {
				v := struct {
					server.ProbeResult
					Healthy bool   `json:"healthy"`
					Error   string `json:"error,omitempty"`
				}{ProbeResult: res, Healthy: health == nil}
				if res.Err != nil {
					v.Error = res.Err.Error()
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			}

			fmt.Fprintf(out, "endpoint: %s\n", a.provider.BaseURL())
			if health != nil {
				fmt.Fprintf(out, "health:   %s\n", warning.Render(health.Error()))
			} else {
				fmt.Fprintln(out, "health:   ok")
			}
			if res.Err != nil {
				fmt.Fprintf(out, "probe:    %s\n", warning.Render(res.Err.Error()))
				return fmt.Errorf("probe failed: %w", res.Err)
			}
			fmt.Fprintf(out, "ttfb:     %s (%s, HTTP %d)\n", res.TTFB.Round(time.Millisecond), res.Class, res.Status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&start, "start", false, "Start the configured server first if it is not running")
	return cmd
}
