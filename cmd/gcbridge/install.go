package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	daemonutils "github.com/nsogc/gcbridge/pkg/utils/daemon"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowOtherUsers := false

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Start the gcbridge daemon at login",
		GroupID: gAdvanced,
		Long: `Start the gcbridge daemon at login.

This writes a systemd user unit on Linux, a launch agent on macOS, or a
Startup folder script on Windows that runs the current binary. Run
"gcbridge install" again after moving the binary.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args := []string{"daemon", "--config", configPath, "--daemon-socket", unixSocketPath}
			if allowOtherUsers {
				args = append(args, "--allow-other-users")
			}

			u, err := daemonutils.CurrentUnit(args)
			if err != nil {
				return err
			}

			if err := daemonutils.Install(u); err != nil {
				return fmt.Errorf("failed to install daemon: %w", err)
			}

			logrus.Infof("installation succeeded")
			cmd.Printf("The daemon will start from %s at login.\n", u.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowOtherUsers, "allow-other-users", false, "Allow every local user to access the daemon socket.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Stop starting the gcbridge daemon at login",
		GroupID: gAdvanced,
		Long:    `Remove the autostart entry written by "gcbridge install". The settings file is kept.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			u, err := daemonutils.CurrentUnit(nil)
			if err != nil {
				return err
			}

			if err := daemonutils.Uninstall(u); err != nil {
				return fmt.Errorf("failed to uninstall daemon: %w", err)
			}

			logrus.Infof("uninstallation succeeded")
			return nil
		},
	}
}
