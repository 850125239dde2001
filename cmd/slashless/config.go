package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slashless/slashless/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the loaded configuration, with the bearer secret masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "redis_addr:      %s\n", cfg.RedisAddr())
			fmt.Fprintf(out, "server_addr:     %s\n", cfg.ServerAddr())
			fmt.Fprintf(out, "token:           %s\n", cfg.MaskedToken())
			fmt.Fprintf(out, "max_connections: %d\n", cfg.MaxConnections)
			if cfg.Unbounded() {
				fmt.Fprintln(out, "max_retry:       unlimited")
			} else {
				fmt.Fprintf(out, "max_retry:       %d\n", cfg.MaxRetry)
			}
			fmt.Fprintf(out, "mode:            %s\n", cfg.Mode())
			return nil
		},
	}
}
