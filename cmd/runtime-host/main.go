// Package main is the entrypoint for runtime-host, the IPC host process and its tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/morezero/runtime-ipc/internal/config"
	"github.com/morezero/runtime-ipc/internal/server"
	"github.com/morezero/runtime-ipc/pkg/semver"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "runtime-host: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "runtime-host",
		Short: "IPC host for renderer processes",
		Long: `runtime-host answers IPC messages sent by renderer processes over COMMS.

Renderers publish envelopes on <SUBJECT_PREFIX>.host.<routing-id>. The host
routes them by type and replies in place (sync), to the renderer inbox
(async), or not at all (fire-and-forget). Every handled message is journaled.

Environment: COMMS_URL, EMBEDDED_COMMS, SUBJECT_PREFIX, PROTOCOL_RANGE,
DATABASE_URL (optional journal), HTTP_PORT, LOG_LEVEL. See README.`,
		Version:       semver.ProtocolVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Run()
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the host (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return server.Run()
			},
		},
		newMigrateCmd(),
		newJournalCmd(),
		newSendCmd(),
	)
	return root
}

// loadConfig loads the environment and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	server.SetupLogging(cfg)
	return cfg, nil
}
