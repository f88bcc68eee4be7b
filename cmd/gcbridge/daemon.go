package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nsogc/gcbridge/pkg/daemon"
	"github.com/nsogc/gcbridge/pkg/version"
)

func NewDaemonCommand() *cobra.Command {
	allowOtherUsers := false

	cmd := &cobra.Command{
		Use:     "daemon",
		Hidden:  false,
		Short:   "Run the gcbridge daemon in the foreground",
		GroupID: gAdvanced,
		Long: `Run the gcbridge daemon in the foreground.

The daemon owns the Bluetooth connection, the virtual controller and the
settings file. Every other command talks to it over a unix socket.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.Infof("gcbridge version %s commit %s", version.Version, version.GitCommit)
			return daemon.Run(configPath, unixSocketPath, allowOtherUsers)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&allowOtherUsers, "allow-other-users", false, "Allow every local user to access the daemon socket.")

	return cmd
}
