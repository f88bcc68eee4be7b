package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/types"
)

// NewWatchCommand .
func NewWatchCommand() *cobra.Command {
	var (
		interval = 100 * time.Millisecond
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Show live raw and mapped controller input",
		GroupID: gCalibration,
		Long: `Show live raw and mapped controller input until interrupted.

Useful to check a calibration: the mapped value of a resting stick should be 0.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			frames, err := apiClient.WatchInput(ctx, interval)
			if err != nil {
				return fmt.Errorf("failed to watch input: %w", err)
			}

			out := cmd.OutOrStdout()
			inPlace := !asJSON && term.IsTerminal(int(os.Stdout.Fd()))
			enc := json.NewEncoder(out)
			for f := range frames {
				switch {
				case asJSON:
					if err := enc.Encode(f); err != nil {
						return err
					}
				case inPlace:
					fmt.Fprintf(out, "\r%s\033[K", formatFrame(f))
				default:
					fmt.Fprintln(out, formatFrame(f))
				}
			}
			if inPlace {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.DurationVarP(&interval, "interval", "i", interval, "Time between frames.")
	f.BoolVar(&asJSON, "json", false, "Print one JSON frame per line.")

	return cmd
}

func formatFrame(f types.InputFrame) string {
	if !f.Connected {
		return "no controller connected"
	}
	raw := f.Raw.Axes
	m := f.Mapped
	return fmt.Sprintf("L %4d,%4d (%+.2f,%+.2f)  C %4d,%4d (%+.2f,%+.2f)  LT %3d (%.2f)  RT %3d (%.2f)  [%s]",
		raw[axis.LeftX], raw[axis.LeftY], m.LeftX, m.LeftY,
		raw[axis.CX], raw[axis.CY], m.RightX, m.RightY,
		raw[axis.LTrigger], m.LTrigger,
		raw[axis.RTrigger], m.RTrigger,
		m.Buttons)
}
