package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewDeadZoneCommand .
func NewDeadZoneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deadzone",
		Aliases: []string{"dz"},
		Short:   "Get or set axis dead zones",
		GroupID: gCalibration,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Show the dead zone of every axis",
			RunE: func(cmd *cobra.Command, _ []string) error {
				dzs, err := apiClient.GetDeadZones()
				if err != nil {
					return fmt.Errorf("failed to get dead zones: %w", err)
				}

				for _, dz := range dzs {
					cmd.Printf("  %-10s %s\n", dz.Axis, bold("%.3f", dz.Threshold))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <axis|group> <threshold>",
			Short: "Set the dead zone of an axis or a group of axes",
			Long: `Set the dead zone of an axis or a group of axes.

The threshold is a fraction of the axis range in [0, 1). Groups: left_stick,
c_stick, triggers.`,
			Args: cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				threshold, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return fmt.Errorf("invalid threshold: %v", err)
				}

				dzs, err := apiClient.SetDeadZone(args[0], threshold)
				if err != nil {
					return fmt.Errorf("failed to set dead zone: %w", err)
				}

				for _, dz := range dzs {
					logrus.WithFields(logrus.Fields{
						"axis":      dz.Axis,
						"threshold": dz.Threshold,
					}).Info("dead zone saved")
				}
				return nil
			},
		},
	)

	return cmd
}
