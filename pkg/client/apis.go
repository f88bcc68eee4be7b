package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/ble"
	"github.com/nsogc/gcbridge/pkg/calibration"
	"github.com/nsogc/gcbridge/pkg/config"
	"github.com/nsogc/gcbridge/pkg/types"
)

func getJSON[T any](c *Client, path, what string) (T, error) {
	var v T
	ret, err := c.Get(path)
	if err != nil {
		return v, pkgerrors.Wrapf(err, "failed to get %s", what)
	}
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return v, pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return v, nil
}

func sendJSON[T any](c *Client, method, path string, body any, what string) (T, error) {
	var v T
	var data string
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return v, err
		}
		data = string(b)
	}
	ret, err := c.Send(method, path, data)
	if err != nil {
		return v, pkgerrors.Wrapf(err, "failed to %s", what)
	}
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return v, pkgerrors.Wrapf(err, "failed to unmarshal response to %s", what)
	}
	return v, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	return unquote([]byte(ret)), nil
}

func (c *Client) GetStatus() (*types.Status, error) {
	st, err := getJSON[types.Status](c, "/status", "status")
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	conf, err := getJSON[config.RawFileConfig](c, "/config", "config")
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

// SetConfig imports a settings document. Both the native and the legacy
// format are accepted.
func (c *Client) SetConfig(doc []byte) (*config.RawFileConfig, error) {
	ret, err := c.Put("/config", string(doc))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to import settings")
	}
	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}
	return &conf, nil
}

// ===== Calibration APIs =====

func (c *Client) GetCalibration() ([]types.AxisSettings, error) {
	return getJSON[[]types.AxisSettings](c, "/calibration", "calibration")
}

func (c *Client) SetCalibration(cal axis.Calibration) (axis.Calibration, error) {
	return sendJSON[axis.Calibration](c, "PUT", "/calibration/"+url.PathEscape(string(cal.Axis)), cal,
		fmt.Sprintf("set calibration of %s", cal.Axis))
}

func (c *Client) ResetCalibration() (string, error) {
	ret, err := c.Post("/calibration/reset", "")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to reset calibration")
	}
	return unquote([]byte(ret)), nil
}

func (c *Client) GetDeadZones() ([]axis.DeadZone, error) {
	return getJSON[[]axis.DeadZone](c, "/deadzone", "dead zones")
}

// SetDeadZone sets the dead zone of an axis or of every axis in a group.
func (c *Client) SetDeadZone(axisOrGroup string, threshold float64) ([]axis.DeadZone, error) {
	return sendJSON[[]axis.DeadZone](c, "PUT", "/deadzone/"+url.PathEscape(axisOrGroup),
		types.DeadZoneRequest{Threshold: threshold}, fmt.Sprintf("set dead zone of %s", axisOrGroup))
}

// ===== Wizard APIs =====

func (c *Client) GetWizard() (calibration.Status, error) {
	return getJSON[calibration.Status](c, "/wizard", "wizard status")
}

func (c *Client) StartWizard(id axis.ID) (calibration.Status, error) {
	return sendJSON[calibration.Status](c, "POST", "/wizard/start", types.StartWizardRequest{Axis: string(id)}, "start calibration wizard")
}

// Capture records value for the current wizard step. A nil value lets the
// daemon average the recent samples.
func (c *Client) Capture(value *int) (calibration.Status, error) {
	return sendJSON[calibration.Status](c, "POST", "/wizard/capture", types.CaptureRequest{Value: value}, "capture calibration value")
}

func (c *Client) Retake() (calibration.Status, error) {
	return sendJSON[calibration.Status](c, "POST", "/wizard/retake", nil, "retake calibration value")
}

func (c *Client) CancelWizard() (calibration.Status, error) {
	return sendJSON[calibration.Status](c, "POST", "/wizard/cancel", nil, "cancel calibration wizard")
}

// ===== Connection APIs =====

func (c *Client) Scan(timeout time.Duration) ([]ble.Device, error) {
	path := "/scan"
	if timeout > 0 {
		path += fmt.Sprintf("?timeout=%g", timeout.Seconds())
	}
	return getJSON[[]ble.Device](c, path, "scan results")
}

// Connect connects the daemon to addr. An empty addr uses the saved
// controller.
func (c *Client) Connect(addr string) (string, error) {
	return sendJSON[string](c, "POST", "/connect", types.ConnectRequest{Address: addr}, "connect")
}

func (c *Client) Disconnect() (string, error) {
	return sendJSON[string](c, "POST", "/disconnect", nil, "disconnect")
}

func (c *Client) StartEmulation() (string, error) {
	return sendJSON[string](c, "POST", "/emulation/start", nil, "start emulation")
}

func (c *Client) StopEmulation() (string, error) {
	return sendJSON[string](c, "POST", "/emulation/stop", nil, "stop emulation")
}

func (c *Client) GetInput() (*types.InputFrame, error) {
	frame, err := getJSON[types.InputFrame](c, "/input", "input")
	if err != nil {
		return nil, err
	}
	return &frame, nil
}
