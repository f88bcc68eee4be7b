package config

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/axis"
)

type Config interface {
	ControllerAddress() string
	AllowOtherUsers() bool
	Axis(id axis.ID) (axis.Calibration, axis.DeadZone)
	MQTT() MQTTConfig

	SetControllerAddress(string)
	SetAllowOtherUsers(bool)
	SetAxis(axis.Calibration, axis.DeadZone)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error

	LogrusFields() logrus.Fields
}

// MQTTConfig configures the optional MQTT mirror of the mapped controller
// state. An empty Broker disables it.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Interval time.Duration
}

func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}
