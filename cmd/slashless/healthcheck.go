package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slashless/slashless/internal/config"
	"github.com/slashless/slashless/internal/pool"
	"github.com/slashless/slashless/internal/status"
)

// silentSink discards every event; the healthcheck probe only cares
// about PingWithRetry's return value, not status transitions.
type silentSink struct{}

func (silentSink) Emit(status.Slot, status.Status) {}
func (silentSink) Log(status.Level, string)         {}

func newHealthcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Dial the configured Redis instance and PING it once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			p := pool.New(cfg.RedisAddr(), 1, 0, silentSink{})
			defer p.Close()

			if _, err := p.PingWithRetry(context.Background()); err != nil {
				return fmt.Errorf("redis is not reachable at %s: %w", cfg.RedisAddr(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "redis at %s is reachable\n", cfg.RedisAddr())
			return nil
		},
	}
}
