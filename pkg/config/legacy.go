package config

import (
	"encoding/json"

	pkgerrors "github.com/pkg/errors"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/utils/ptr"
)

// legacyFile is the flat nso_gc_settings.json layout, where every
// calibration value is its own key.
type legacyFile struct {
	ControllerAddress *string                    `json:"controller_address"`
	Calibration       map[string]json.RawMessage `json:"calibration"`
}

// Decode parses a settings document. Both the native format and the legacy
// flat format are accepted.
func Decode(b []byte) (*RawFileConfig, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, err
	}

	if _, ok := probe["calibration"]; ok {
		return decodeLegacy(b)
	}

	conf := &RawFileConfig{}
	if err := json.Unmarshal(b, conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func decodeLegacy(b []byte) (*RawFileConfig, error) {
	var lf legacyFile
	if err := json.Unmarshal(b, &lf); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to parse legacy settings")
	}

	num := func(key string) *float64 {
		raw, ok := lf.Calibration[key]
		if !ok {
			return nil
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil
		}
		return &v
	}
	integer := func(key string) *int {
		v := num(key)
		if v == nil {
			return nil
		}
		return ptr.To(int(*v))
	}

	conf := &RawFileConfig{
		ControllerAddress: lf.ControllerAddress,
		Axes:              make(map[axis.ID]*RawAxis),
	}

	sticks := []struct {
		id       axis.ID
		prefix   string
		deadZone string
	}{
		{axis.LeftX, "left_x", "left_stick_deadzone"},
		{axis.LeftY, "left_y", "left_stick_deadzone"},
		{axis.CX, "c_x", "c_stick_deadzone"},
		{axis.CY, "c_y", "c_stick_deadzone"},
	}
	for _, s := range sticks {
		conf.Axes[s.id] = &RawAxis{
			RawMin:    integer(s.prefix + "_min"),
			RawCenter: integer(s.prefix + "_center"),
			RawMax:    integer(s.prefix + "_max"),
			DeadZone:  num(s.deadZone),
		}
	}

	// The legacy trigger minimum is the rest position.
	for _, t := range []struct {
		id     axis.ID
		prefix string
	}{
		{axis.LTrigger, "l_trigger"},
		{axis.RTrigger, "r_trigger"},
	} {
		a := &RawAxis{
			RawCenter: integer(t.prefix + "_min"),
			RawMax:    integer(t.prefix + "_max"),
			DeadZone:  num("trigger_deadzone"),
		}
		if a.RawCenter != nil {
			a.RawMin = ptr.To(min(0, *a.RawCenter))
		}
		conf.Axes[t.id] = a
	}

	return conf, nil
}
