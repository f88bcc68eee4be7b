package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/calibration"
	"github.com/nsogc/gcbridge/pkg/client"
)

// NewCalibrationCommand .
func NewCalibrationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calibration",
		Aliases: []string{"calibrate", "cal"},
		Short:   "Calibrate the controller axes",
		GroupID: gCalibration,
		Long: `Calibrate the controller axes.

Use "gcbridge calibration wizard <axis>" for a guided calibration, or the
start, capture, retake and cancel subcommands to drive the wizard step by step.
Axes: left_x, left_y, c_x, c_y, l_trigger, r_trigger.`,
	}

	cmd.AddCommand(
		newCalibrationWizardCommand(),
		newCalibrationStartCommand(),
		newCalibrationCaptureCommand(),
		newWizardActionCommand("retake", "Step back and capture the previous value again",
			func() (calibration.Status, error) { return apiClient.Retake() }),
		newWizardActionCommand("cancel", "Discard the running calibration",
			func() (calibration.Status, error) { return apiClient.CancelWizard() }),
		newCalibrationStatusCommand(),
		newCalibrationShowCommand(),
		newCalibrationSetCommand(),
		newCalibrationResetCommand(),
	)

	return cmd
}

func newCalibrationStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start <axis>",
		Short: "Start the calibration wizard for an axis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAxisArg(args)
			if err != nil {
				return err
			}

			st, err := apiClient.StartWizard(id)
			if err != nil {
				return fmt.Errorf("failed to start calibration: %w", err)
			}

			cmd.Println(wizardLine(st))
			return nil
		},
	}
}

func newCalibrationCaptureCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "capture [value]",
		Short: "Capture the value for the current wizard step",
		Long: `Capture the value for the current wizard step.

Without a value the daemon uses the average of the most recent samples of the
axis being calibrated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value *int
			if len(args) == 1 {
				v, err := parseIntArg(args, "raw value")
				if err != nil {
					return err
				}
				value = &v
			}

			st, err := apiClient.Capture(value)
			if err != nil {
				return fmt.Errorf("failed to capture: %w", err)
			}

			cmd.Println(wizardLine(st))
			return nil
		},
	}
}

// newWizardActionCommand creates a subcommand that calls a body-less wizard action.
func newWizardActionCommand(use, short string, fn func() (calibration.Status, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := fn()
			if err != nil {
				return fmt.Errorf("failed to %s: %w", use, err)
			}

			cmd.Println(wizardLine(st))
			return nil
		},
	}
}

func newCalibrationStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the calibration wizard state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.GetWizard()
			if err != nil {
				return fmt.Errorf("failed to get wizard status: %w", err)
			}

			cmd.Println(wizardLine(st))
			if st.Captured.Min != nil {
				cmd.Printf("  min: %s\n", bold("%d", *st.Captured.Min))
			}
			if st.Captured.Center != nil {
				cmd.Printf("  center: %s\n", bold("%d", *st.Captured.Center))
			}
			if st.Captured.Max != nil {
				cmd.Printf("  max: %s\n", bold("%d", *st.Captured.Max))
			}
			return nil
		},
	}
}

func newCalibrationShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the calibration and dead zone of every axis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := apiClient.GetCalibration()
			if err != nil {
				return fmt.Errorf("failed to get calibration: %w", err)
			}

			printAxisSettings(cmd, settings)
			return nil
		},
	}
}

func newCalibrationSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <axis> <min> <center> <max>",
		Short: "Set the calibration of an axis manually",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAxisArg(args)
			if err != nil {
				return err
			}

			cal := axis.Calibration{Axis: id}
			for i, name := range []string{"min", "center", "max"} {
				v, err := parseIntArg(args[i+1:i+2], name)
				if err != nil {
					return err
				}
				switch i {
				case 0:
					cal.RawMin = v
				case 1:
					cal.RawCenter = v
				case 2:
					cal.RawMax = v
				}
			}

			saved, err := apiClient.SetCalibration(cal)
			if err != nil {
				return fmt.Errorf("failed to set calibration: %w", err)
			}

			logrus.WithFields(logrus.Fields{
				"axis":   saved.Axis,
				"min":    saved.RawMin,
				"center": saved.RawCenter,
				"max":    saved.RawMax,
			}).Info("calibration saved")
			return nil
		},
	}
}

func newCalibrationResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default calibration and dead zones of every axis",
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.ResetCalibration()
			if err != nil {
				return fmt.Errorf("failed to reset calibration: %w", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}
			logrus.Info("calibration reset to defaults")
			return nil
		},
	}
}

func newCalibrationWizardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wizard <axis>",
		Short: "Calibrate an axis interactively",
		Long: `Calibrate an axis interactively.

Follow the instruction and press Enter to capture. Type a number to capture
that raw value instead, "r" to retake the previous step or "q" to cancel.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAxisArg(args)
			if err != nil {
				return err
			}

			st, err := apiClient.StartWizard(id)
			if err != nil {
				return fmt.Errorf("failed to start calibration: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var live atomic.Int64
			live.Store(-1)
			if term.IsTerminal(int(os.Stdout.Fd())) {
				go watchRaw(ctx, id, &live)
			}

			return runWizard(apiClient, cmd.OutOrStdout(), os.Stdin, st, &live)
		},
	}
}

// watchRaw stores the latest raw value of id in live until ctx is done.
func watchRaw(ctx context.Context, id axis.ID, live *atomic.Int64) {
	frames, err := apiClient.WatchInput(ctx, 100*time.Millisecond)
	if err != nil {
		logrus.WithError(err).Debug("failed to watch input")
		return
	}
	for f := range frames {
		if v, ok := f.Raw.Axes[id]; ok && f.Connected {
			live.Store(int64(v))
		}
	}
}

// wizardAPI is the part of the daemon client the interactive wizard uses.
type wizardAPI interface {
	GetWizard() (calibration.Status, error)
	Capture(value *int) (calibration.Status, error)
	Retake() (calibration.Status, error)
	CancelWizard() (calibration.Status, error)
}

func runWizard(api wizardAPI, out io.Writer, in io.Reader, st calibration.Status, live *atomic.Int64) error {
	sc := bufio.NewScanner(in)

	for st.Step.Active() {
		fmt.Fprintln(out, wizardLine(st))
		if v := live.Load(); v >= 0 {
			fmt.Fprintf(out, "  current raw value: %s\n", bold("%d", v))
		}
		fmt.Fprint(out, "  [Enter] capture, [r] retake, [q] cancel, or a raw value: ")

		if !sc.Scan() {
			if _, err := api.CancelWizard(); err != nil {
				logrus.WithError(err).Warn("failed to cancel calibration")
			}
			return fmt.Errorf("input closed, calibration cancelled")
		}

		var (
			next calibration.Status
			err  error
		)
		input := strings.TrimSpace(sc.Text())
		switch strings.ToLower(input) {
		case "":
			next, err = api.Capture(nil)
		case "r":
			next, err = api.Retake()
		case "q":
			next, err = api.CancelWizard()
		default:
			v, convErr := strconv.Atoi(input)
			if convErr != nil {
				fmt.Fprintf(out, "  not a number: %q\n", input)
				continue
			}
			next, err = api.Capture(&v)
		}
		if err == nil {
			st = next
			continue
		}

		// The daemon rejected the request. The session may still be
		// running, e.g. when no samples arrived yet.
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) {
			return fmt.Errorf("calibration failed: %w", err)
		}
		current, statusErr := api.GetWizard()
		if statusErr != nil {
			return fmt.Errorf("calibration failed: %w", err)
		}
		if current.Step.Active() && current.Axis != st.Axis {
			return fmt.Errorf("calibration of %s was replaced by %s: %w", st.Axis, current.Axis, err)
		}
		if current.Step.Active() {
			fmt.Fprintf(out, "  %s, try again\n", apiErr.Message)
		} else {
			fmt.Fprintf(out, "  %s\n", apiErr.Message)
		}
		st = current
	}

	fmt.Fprintln(out, wizardLine(st))
	if st.Step != calibration.StepDone {
		return fmt.Errorf("calibration of %s cancelled", st.Axis)
	}

	logrus.WithField("axis", st.Axis).Info("calibration saved")
	return nil
}
