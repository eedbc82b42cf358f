package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/skyportal/nmma-analysis/internal/domain/photometry"
)

func newNormalizeCmd(state *cliState) *cobra.Command {
	var (
		asJSON bool
		policy string
	)
	cmd := &cobra.Command{
		Use:   "normalize <csv|->",
		Short: "Print the canonical observations for a photometry CSV",
		Long: `Normalize parses a photometry CSV file (or stdin with "-") and prints the
JD-sorted observations the fitter would receive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readTable(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			opts := state.cfg.Normalize.Options()
			if policy != "" {
				opts.MJDPolicy = photometry.MJDPolicy(policy)
				if !opts.MJDPolicy.Valid() {
					return fmt.Errorf("unknown mjd policy %q", policy)
				}
			}

			obs, err := photometry.Normalize(table, opts)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(state.out)
				enc.SetIndent("", "  ")
				return enc.Encode(obs)
			}
			return photometry.FromObservations(obs).WriteCSV(state.out)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print observations as JSON")
	cmd.Flags().StringVar(&policy, "mjd-policy", "", "override NORMALIZE_MJD_POLICY (always|threshold)")
	return cmd
}

func readTable(stdin io.Reader, path string) (*photometry.Table, error) {
	if path == "-" {
		return photometry.ParseCSV(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photometry: %w", err)
	}
	defer f.Close()
	return photometry.ParseCSV(f)
}
