package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nsogc/gcbridge/pkg/version"
)

func getVersion() (clientVersion, daemonVersion string, err error) {
	daemonVersion, err = apiClient.GetVersion()
	return version.Version, daemonVersion, err
}

// NewVersionCommand .
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Print version",
		GroupID: gBasic,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

// NewScanCommand .
func NewScanCommand() *cobra.Command {
	timeout := 5 * time.Second

	cmd := &cobra.Command{
		Use:     "scan",
		Short:   "Scan for nearby GameCube controllers",
		GroupID: gBasic,
		Long: `Scan for nearby NSO GameCube controllers.

Hold the pairing button on the controller while scanning.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := apiClient.Scan(timeout)
			if err != nil {
				return fmt.Errorf("failed to scan: %w", err)
			}

			if len(devices) == 0 {
				cmd.Println("No controller found. Hold the pairing button and try again.")
				return nil
			}

			for _, d := range devices {
				cmd.Printf("%s  %s  %s\n", bold("%s", d.Address), d.Name, fmt.Sprintf("%d dBm", d.RSSI))
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", timeout, "How long to scan.")

	return cmd
}

// NewConnectCommand .
func NewConnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "connect [address]",
		Short:   "Connect to a controller",
		GroupID: gBasic,
		Long: `Connect the daemon to a controller.

Without an address the saved controller is used. If none is saved, the first
controller found is used and remembered.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			addr := ""
			if len(args) == 1 {
				addr = args[0]
			}

			ret, err := apiClient.Connect(addr)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}
			logrus.Info("connected")

			return nil
		},
	}
}

// NewDisconnectCommand .
func NewDisconnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "disconnect",
		Short:   "Disconnect the controller",
		GroupID: gBasic,
		Long:    `Disconnect the controller. Emulation is stopped first.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.Disconnect()
			if err != nil {
				return fmt.Errorf("failed to disconnect: %w", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}
			logrus.Info("disconnected")

			return nil
		},
	}
}

// NewEmulationCommand .
func NewEmulationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "emulation",
		Short:   "Start or stop the virtual Xbox 360 controller",
		GroupID: gBasic,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Plug in the virtual controller and forward input",
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := apiClient.StartEmulation()
				if err != nil {
					return fmt.Errorf("failed to start emulation: %w", err)
				}

				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Info("emulation started")

				return nil
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Unplug the virtual controller",
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := apiClient.StopEmulation()
				if err != nil {
					return fmt.Errorf("failed to stop emulation: %w", err)
				}

				if ret != "" {
					logrus.Infof("daemon responded: %s", ret)
				}
				logrus.Info("emulation stopped")

				return nil
			},
		},
	)

	return cmd
}
