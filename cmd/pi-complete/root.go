// ABOUTME: Root cobra command and the flags shared by every subcommand
// ABOUTME: Flags override the merged global and project settings

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rootFlags are the persistent overrides applied on top of loaded settings.
type rootFlags struct {
	endpoint string
	model    string
	project  string
	logLevel string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "pi-complete",
		Short: "Low-latency code completion against a local inference server",
		Long: `pi-complete streams code completions from an OpenAI-compatible server such as
llama.cpp's llama-server. It keeps the server's prompt cache warm with priming
requests, shrinks the document excerpt when the context window overflows and
can start the server on demand.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.endpoint, "endpoint", "", "Base URL of the completion server")
	pf.StringVarP(&f.model, "model", "m", "", "Model name sent with each request")
	pf.StringVar(&f.project, "project", "", "Project root for .pi-complete settings (default: working directory)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Shorthand for --log-level=debug")

	root.AddCommand(
		newCompleteCmd(f),
		newServeCmd(f),
		newProbeCmd(f),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pi-complete %s (%s) built %s\n", version, commit, date)
		},
	}
}
