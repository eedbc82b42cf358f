package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	redisadapter "github.com/skyportal/nmma-analysis/internal/adapters/redis"
	"github.com/skyportal/nmma-analysis/internal/bootstrap"
)

func newJobCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Show a tracked analysis job",
		Long: `Job reads the record the service keeps in Redis while JOB_TRACKING_ENABLED
is set. Records expire JOB_TRACKING_TTL after their last update.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := bootstrap.ConnectRedis(ctx, bootstrap.RedisConnectConfig{
				RedisConfig: state.cfg.Redis,
				Logger:      state.logger,
			})
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer client.Close()

			tracker := redisadapter.NewJobTrackerWithPrefix(client, state.cfg.Tracking.KeyPrefix, state.cfg.Tracking.TTL)
			rec, err := tracker.Get(ctx, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(state.out)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
}
