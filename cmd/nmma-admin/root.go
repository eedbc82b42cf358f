package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/skyportal/nmma-analysis/config"
	"github.com/skyportal/nmma-analysis/internal/bootstrap"
)

// cliState is shared by subcommands once PersistentPreRunE has loaded config.
type cliState struct {
	cfg    config.AppConfig
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	state := &cliState{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "nmma-admin",
		Short: "Operator tools for the NMMA analysis service",
		Long: `nmma-admin inspects and exercises an NMMA analysis deployment.

It normalizes photometry tables the way the service does, submits analysis
requests, reads tracked job records from Redis, and lists the model catalog.
Configuration is read from the same environment variables as the service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := bootstrap.LoadConfig()
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.logger = slog.New(slog.NewJSONHandler(errOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.AddCommand(
		newNormalizeCmd(state),
		newSubmitCmd(state),
		newJobCmd(state),
		newModelsCmd(state),
	)
	return root
}
