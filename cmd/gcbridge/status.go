package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nsogc/gcbridge/pkg/calibration"
	"github.com/nsogc/gcbridge/pkg/types"
)

type statusData struct {
	status   *types.Status
	settings []types.AxisSettings
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	st, err := apiClient.GetStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	settings, err := apiClient.GetCalibration()
	if err != nil {
		return nil, fmt.Errorf("failed to get calibration: %w", err)
	}

	return &statusData{
		status:   st,
		settings: settings,
	}, nil
}

type statusJSON struct {
	*types.Status
	Axes []types.AxisSettings `json:"axes"`
}

func NewStatusCommand() *cobra.Command {
	asJSON := false

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of gcbridge",
		Long:    `Get the controller connection, emulation, wizard and calibration state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(statusJSON{Status: data.status, Axes: data.settings})
			}

			st := data.status

			cmd.Println(bold("Controller:"))
			cmd.Println("  Connected: " + bool2Text(st.Connected))
			if st.Address != "" {
				cmd.Printf("    Address: %s\n", bold("%s", st.Address))
			}
			cmd.Printf("  Packets received: %s\n", bold("%d", st.Packets))
			cmd.Println()

			cmd.Println(bold("Virtual Xbox 360 controller:"))
			cmd.Println("  Emulating: " + bool2Text(st.Emulating))
			cmd.Printf("  Frames forwarded: %s\n", bold("%d", st.Forwarded))
			if st.LastError != "" {
				cmd.Printf("  Last error: %s\n", color.RedString(st.LastError))
			}
			cmd.Println()

			cmd.Println(bold("Calibration wizard:"))
			if st.Wizard.Step.Active() {
				cmd.Printf("  Calibrating %s: %s\n", bold("%s", st.Wizard.Axis), st.Wizard.Step)
				cmd.Printf("    %s\n", st.Wizard.Instruction)
			} else {
				cmd.Printf("  State: %s\n", bold("%s", st.Wizard.Step))
			}
			if st.Wizard.Message != "" {
				cmd.Printf("    %s\n", st.Wizard.Message)
			}
			cmd.Println()

			cmd.Println(bold("Axes:"))
			printAxisSettings(cmd, data.settings)
			cmd.Println()

			cmd.Printf("Settings file: %s\n", st.ConfigPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON.")

	return cmd
}

func printAxisSettings(cmd *cobra.Command, settings []types.AxisSettings) {
	for _, s := range settings {
		c := s.Calibration
		cmd.Printf("  %-10s min %s  center %s  max %s  dead zone %s\n",
			s.Calibration.Axis,
			bold("%4d", c.RawMin), bold("%4d", c.RawCenter), bold("%4d", c.RawMax),
			bold("%.3f", s.DeadZone.Threshold))
	}
}

func wizardLine(st calibration.Status) string {
	if st.Step.Active() {
		return fmt.Sprintf("[%s %s] %s", st.Axis, st.Step, st.Instruction)
	}
	if st.Message != "" {
		return fmt.Sprintf("[%s %s] %s", st.Axis, st.Step, st.Message)
	}
	return fmt.Sprintf("[%s %s]", st.Axis, st.Step)
}
