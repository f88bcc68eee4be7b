package main

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nsogc/gcbridge/pkg/client"
	"github.com/nsogc/gcbridge/pkg/gui"
)

var (
	logLevel       = "info"
	unixSocketPath = defaultSocketPath()
	configPath     = defaultConfigPath()
)

var apiClient = client.NewClient(unixSocketPath)

var (
	gBasic        = "Basic:"
	gCalibration  = "Calibration:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gCalibration,
		gAdvanced,
	}
)

func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "gcbridge.sock")
	}
	return filepath.Join(os.TempDir(), "gcbridge.sock")
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "gcbridge", "settings.json")
}

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gcbridge",
		Short: "gcbridge makes an NSO GameCube controller work as an Xbox 360 controller",
		Long: `gcbridge connects a Nintendo Switch Online GameCube controller over Bluetooth LE
and forwards its input to a virtual Xbox 360 controller (ViGEmBus).

Run "gcbridge daemon" first, then use the other commands or "gcbridge gui" to control it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)

			// The daemon does not talk to itself.
			if cmd.Name() == "daemon" {
				return nil
			}

			if clientVersion, daemonVersion, err := getVersion(); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. Restart the daemon after upgrading gcbridge.")
				}
			} else if errors.Is(err, client.ErrNotFound) {
				logrus.Error("gcbridge daemon is too old to report its version. Restart the daemon after upgrading gcbridge.")
			}

			return nil
		},
	}

	if os.Getenv("GCBRIDGE_RUN_GUI") != "" || path.Base(os.Args[0]) == "gcbridge-gui" {
		cmd.Run = func(_ *cobra.Command, _ []string) {
			gui.Run(unixSocketPath)
		}
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "settings file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "gcbridge daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewStatusCommand(),
		NewScanCommand(),
		NewConnectCommand(),
		NewDisconnectCommand(),
		NewEmulationCommand(),
		NewCalibrationCommand(),
		NewDeadZoneCommand(),
		NewSettingsCommand(),
		NewWatchCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
		gui.NewGUICommand(&unixSocketPath, gAdvanced),
	)

	return cmd
}
