// Command slashless runs an HTTP-to-Redis protocol adapter compatible
// with the Upstash Redis REST API. It communicates with a running
// Redis instance to execute commands and translates requests and
// responses to and from the REST API's JSON shapes.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mna/mainer"
	"github.com/spf13/cobra"
)

// version is the module version reported by `slashless version`.
const version = "0.1.0"

// shutdownGracePeriod bounds how long the server waits for in-flight
// requests to finish during a graceful shutdown.
const shutdownGracePeriod = 10 * time.Second

func main() {
	root := &cobra.Command{
		Use:           "slashless",
		Short:         "An Upstash-compatible HTTP-to-Redis REST adapter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var redisAddrOverride string
	serveSubcmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &serveCmd{RedisAddrOverride: redisAddrOverride}
			code := c.Main(args, mainer.CurrentStdio())
			if code != mainer.Success {
				return fmt.Errorf("exit code %d", code)
			}
			return nil
		},
	}
	serveSubcmd.Flags().StringVar(&redisAddrOverride, "redis-addr", "", `Redis address to use instead of SLASHLESS_REDIS_HOST/PORT. As a special case, "memory" starts an in-process miniredis instance.`)
	// Running slashless without a subcommand serves, like `slashless serve`.
	root.RunE = serveSubcmd.RunE

	root.AddCommand(
		serveSubcmd,
		newHealthcheckCmd(),
		newTokenCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
