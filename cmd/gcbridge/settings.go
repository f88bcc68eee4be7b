package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewSettingsCommand .
func NewSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "settings",
		Short:   "Export or import the settings document",
		GroupID: gAdvanced,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "export [file]",
			Short: "Write the current settings to a file or stdout",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				conf, err := apiClient.GetConfig()
				if err != nil {
					return fmt.Errorf("failed to get config: %w", err)
				}

				b, err := json.MarshalIndent(conf, "", "  ")
				if err != nil {
					return err
				}
				b = append(b, '\n')

				if len(args) == 0 || args[0] == "-" {
					_, err = cmd.OutOrStdout().Write(b)
					return err
				}

				if err := os.WriteFile(args[0], b, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", args[0], err)
				}
				logrus.WithField("file", args[0]).Info("settings exported")
				return nil
			},
		},
		&cobra.Command{
			Use:   "import <file>",
			Short: "Replace the settings with a file, or stdin with -",
			Long: `Replace the settings with a settings document.

Both the current format and the legacy per-axis calibration format are
accepted. Nothing is changed if any axis fails validation.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var (
					b   []byte
					err error
				)
				if args[0] == "-" {
					b, err = io.ReadAll(cmd.InOrStdin())
				} else {
					b, err = os.ReadFile(args[0])
				}
				if err != nil {
					return fmt.Errorf("failed to read settings: %w", err)
				}

				if _, err := apiClient.SetConfig(b); err != nil {
					return fmt.Errorf("failed to import settings: %w", err)
				}
				logrus.WithField("file", args[0]).Info("settings imported")
				return nil
			},
		},
	)

	return cmd
}
