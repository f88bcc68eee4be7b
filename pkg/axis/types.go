package axis

import (
	"fmt"
)

// ID identifies an analog input on the controller.
type ID string

const (
	LeftX    ID = "left_x"
	LeftY    ID = "left_y"
	CX       ID = "c_x"
	CY       ID = "c_y"
	LTrigger ID = "l_trigger"
	RTrigger ID = "r_trigger"
)

// All lists every known axis in report order.
var All = []ID{LeftX, LeftY, CX, CY, LTrigger, RTrigger}

// Class tells the mapper whether an axis is bidirectional or not.
type Class string

const (
	// ClassStick is centered and maps to [-1, 1].
	ClassStick Class = "stick"
	// ClassTrigger rests at its center value and maps to [0, 1].
	ClassTrigger Class = "trigger"
)

// Valid reports whether id is a known axis.
func (id ID) Valid() bool {
	for _, a := range All {
		if a == id {
			return true
		}
	}
	return false
}

// Class returns the axis class of id.
func (id ID) Class() Class {
	if id == LTrigger || id == RTrigger {
		return ClassTrigger
	}
	return ClassStick
}

// Parse accepts the canonical axis names plus a few aliases used by the CLI.
func Parse(s string) (ID, error) {
	switch s {
	case "left_x", "left-x", "lx":
		return LeftX, nil
	case "left_y", "left-y", "ly":
		return LeftY, nil
	case "c_x", "c-x", "cx":
		return CX, nil
	case "c_y", "c-y", "cy":
		return CY, nil
	case "l_trigger", "l-trigger", "lt":
		return LTrigger, nil
	case "r_trigger", "r-trigger", "rt":
		return RTrigger, nil
	}
	return "", fmt.Errorf("unknown axis %q", s)
}

// Groups are the dead zone groups exposed by the UI: both axes of a
// stick share one slider, and so do the two triggers.
var Groups = map[string][]ID{
	"left_stick": {LeftX, LeftY},
	"c_stick":    {CX, CY},
	"triggers":   {LTrigger, RTrigger},
}

// Resolve expands an axis name or group name into axis IDs.
func Resolve(s string) ([]ID, error) {
	if g, ok := Groups[s]; ok {
		return g, nil
	}
	id, err := Parse(s)
	if err != nil {
		return nil, fmt.Errorf("unknown axis or group %q", s)
	}
	return []ID{id}, nil
}

// Calibration holds the raw readings that correspond to the physical
// extremes and rest position of an axis.
type Calibration struct {
	Axis      ID  `json:"axis"`
	RawMin    int `json:"rawMin"`
	RawCenter int `json:"rawCenter"`
	RawMax    int `json:"rawMax"`
}

// DeadZone is the fraction of the normalized range around center that is
// reported as zero.
type DeadZone struct {
	Axis      ID      `json:"axis"`
	Threshold float64 `json:"threshold"`
}

// ValidationError is returned when a calibration or dead zone is out of range.
type ValidationError struct {
	Axis   ID
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid settings for axis %s: %s", e.Axis, e.Reason)
}

// Validate checks the ordering invariant. Triggers never go below their
// rest position, so their minimum may equal the center.
func (c Calibration) Validate() error {
	if !c.Axis.Valid() {
		return &ValidationError{Axis: c.Axis, Reason: "unknown axis"}
	}
	if c.Axis.Class() == ClassTrigger {
		if c.RawMin > c.RawCenter || c.RawCenter >= c.RawMax {
			return &ValidationError{Axis: c.Axis, Reason: fmt.Sprintf("need min <= center < max, got %d/%d/%d", c.RawMin, c.RawCenter, c.RawMax)}
		}
		return nil
	}
	if c.RawMin >= c.RawCenter || c.RawCenter >= c.RawMax {
		return &ValidationError{Axis: c.Axis, Reason: fmt.Sprintf("need min < center < max, got %d/%d/%d", c.RawMin, c.RawCenter, c.RawMax)}
	}
	return nil
}

// Validate checks that the threshold is in [0, 1).
func (d DeadZone) Validate() error {
	if !d.Axis.Valid() {
		return &ValidationError{Axis: d.Axis, Reason: "unknown axis"}
	}
	if d.Threshold < 0 || d.Threshold >= 1 {
		return &ValidationError{Axis: d.Axis, Reason: fmt.Sprintf("dead zone must be in [0, 1), got %g", d.Threshold)}
	}
	return nil
}

// DefaultCalibration returns the factory calibration for id. Stick X axes
// report 12-bit values while Y axes report 8-bit values.
func DefaultCalibration(id ID) Calibration {
	switch id {
	case LeftX, CX:
		return Calibration{Axis: id, RawMin: 248, RawCenter: 2048, RawMax: 3848}
	case LeftY, CY:
		return Calibration{Axis: id, RawMin: 55, RawCenter: 131, RawMax: 207}
	case LTrigger, RTrigger:
		return Calibration{Axis: id, RawMin: 0, RawCenter: 30, RawMax: 230}
	}
	return Calibration{Axis: id}
}

// DefaultDeadZone returns the factory dead zone for id.
func DefaultDeadZone(id ID) DeadZone {
	if id.Class() == ClassTrigger {
		return DeadZone{Axis: id, Threshold: 0.02}
	}
	return DeadZone{Axis: id, Threshold: 0.05}
}
