// Package types holds the request and response bodies shared between the
// daemon and its clients.
package types

import (
	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/calibration"
	"github.com/nsogc/gcbridge/pkg/gamepad"
	"github.com/nsogc/gcbridge/pkg/pipeline"
)

// Status is the daemon overview returned by GET /status.
type Status struct {
	Version    string             `json:"version"`
	ConfigPath string             `json:"configPath"`
	Connected  bool               `json:"connected"`
	Address    string             `json:"address,omitempty"`
	Emulating  bool               `json:"emulating"`
	Packets    uint64             `json:"packets"`
	Forwarded  uint64             `json:"forwarded"`
	LastError  string             `json:"lastError,omitempty"`
	Wizard     calibration.Status `json:"wizard"`
}

// InputFrame is one message of the GET /ws/input stream and the body of
// GET /input.
type InputFrame struct {
	Ts        int64             `json:"ts"`
	Connected bool              `json:"connected"`
	Raw       pipeline.RawState `json:"raw"`
	Mapped    gamepad.State     `json:"mapped"`
}

// ConnectRequest is the body of POST /connect. An empty address means the
// saved controller, then the first one found.
type ConnectRequest struct {
	Address string `json:"address"`
}

// CaptureRequest is the body of POST /wizard/capture. Without a value the
// average of the recent samples of the axis is used.
type CaptureRequest struct {
	Value *int `json:"value,omitempty"`
}

// StartWizardRequest is the body of POST /wizard/start.
type StartWizardRequest struct {
	Axis string `json:"axis"`
}

// DeadZoneRequest is the body of PUT /deadzone/:axis.
type DeadZoneRequest struct {
	Threshold float64 `json:"threshold"`
}

// AxisSettings is one entry of GET /calibration.
type AxisSettings struct {
	Calibration axis.Calibration `json:"calibration"`
	DeadZone    axis.DeadZone    `json:"deadZone"`
}
