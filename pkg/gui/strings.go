package gui

const (
	tooltipIdle = `gcbridge forwards an NSO GameCube controller to a virtual Xbox 360 controller.`

	tooltipQuit = `Quit the tray app, but keep the gcbridge daemon running.

The daemon keeps forwarding input while the tray app is closed. You can still control it with the gcbridge command line.`

	tooltipCapture = `Capture the current position of the axis being calibrated. The daemon averages the most recent samples.`

	tooltipReset = `Restore the factory calibration and dead zone of every axis.`

	tooltipDeadZone = `Ignore small movements around the rest position. Raise it if the stick drifts or a trigger reports input at rest.`
)
