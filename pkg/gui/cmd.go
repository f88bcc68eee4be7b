package gui

import (
	"context"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nsogc/gcbridge/pkg/client"
	"github.com/nsogc/gcbridge/pkg/events"
	"github.com/nsogc/gcbridge/pkg/version"
)

func NewGUICommand(unixSocketPath *string, groupID string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gui",
		Short:   "Start the gcbridge tray app",
		GroupID: groupID,
		Long: `Start the gcbridge tray app.

The tray app talks to a running daemon. It shows the controller, emulation and calibration state, and offers the common actions.`,
		Run: func(_ *cobra.Command, _ []string) {
			Run(*unixSocketPath)
		},
	}

	return cmd
}

func Run(unixSocketPath string) {
	apiClient := client.NewClient(unixSocketPath)
	logrus.WithField("version", version.Version).WithField("gitCommit", version.GitCommit).Info("gcbridge gui")

	ctx, cancel := context.WithCancel(context.Background())
	systray.Run(func() {
		ctrl := newMenuController(apiClient)
		go startEventBridge(ctx, apiClient, ctrl)
		go ctrl.run()
	}, func() {
		cancel()
		logrus.Info("gcbridge gui exiting")
	})
}

// startEventBridge subscribes to daemon events and refreshes the menu on demand.
func startEventBridge(ctx context.Context, api *client.Client, ctrl *menuController) {
	for ev := range api.SubscribeEvents(ctx) {
		logrus.WithFields(logrus.Fields{
			"event": ev.Name,
			"data":  string(ev.Data),
		}).Debug("new event")

		switch ev.Name {
		case events.WizardStep:
			payload, err := events.DecodeAs[events.WizardStepEvent](ev)
			if err != nil {
				logrus.WithError(err).Error("failed to decode wizard.step event")
				continue
			}
			if payload.Message != "" {
				logrus.WithField("axis", payload.Axis).Warn(payload.Message)
			}
		case events.EmulationState:
			payload, err := events.DecodeAs[events.EmulationStateEvent](ev)
			if err != nil {
				logrus.WithError(err).Error("failed to decode emulation.state event")
				continue
			}
			if payload.Error != "" {
				logrus.WithField("error", payload.Error).Warn("emulation stopped")
			}
		case events.StorageWarning:
			payload, err := events.DecodeAs[events.StorageWarningEvent](ev)
			if err != nil {
				logrus.WithError(err).Error("failed to decode storage.warning event")
				continue
			}
			logrus.WithField("path", payload.Path).Warnf("settings %s failed: %s", payload.Op, payload.Error)
		}

		ctrl.requestRefresh()
	}
}
