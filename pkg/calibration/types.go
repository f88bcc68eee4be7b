package calibration

import (
	"fmt"

	"github.com/nsogc/gcbridge/pkg/axis"
)

// Step defines the steps of the calibration wizard.
type Step string

const (
	StepIdle        Step = "Idle"
	StepAwaitMin    Step = "AwaitMin"
	StepAwaitCenter Step = "AwaitCenter"
	StepAwaitMax    Step = "AwaitMax"
	StepDone        Step = "Done"
	StepCancelled   Step = "Cancelled"
)

// Active reports whether s expects a capture.
func (s Step) Active() bool {
	return s == StepAwaitMin || s == StepAwaitCenter || s == StepAwaitMax
}

// Captured holds the values recorded so far. Nil means not captured yet.
type Captured struct {
	Min    *int `json:"min,omitempty"`
	Center *int `json:"center,omitempty"`
	Max    *int `json:"max,omitempty"`
}

// Status is the view model of the wizard exposed via HTTP and events.
type Status struct {
	Axis        axis.ID  `json:"axis,omitempty"`
	Step        Step     `json:"step"`
	Instruction string   `json:"instruction,omitempty"`
	Captured    Captured `json:"captured"`
	CanRetake   bool     `json:"canRetake"`
	CanCancel   bool     `json:"canCancel"`
	Message     string   `json:"message,omitempty"`
}

// Instruction returns what the user should do with the controller at step.
func Instruction(id axis.ID, step Step) string {
	name := displayName(id)
	switch step {
	case StepAwaitMin:
		switch id {
		case axis.LeftX, axis.CX:
			return fmt.Sprintf("Move the %s fully LEFT, then capture", name)
		case axis.LeftY, axis.CY:
			return fmt.Sprintf("Move the %s fully DOWN, then capture", name)
		}
	case StepAwaitCenter:
		if id.Class() == axis.ClassTrigger {
			return fmt.Sprintf("Release the %s completely, then capture", name)
		}
		return fmt.Sprintf("Let the %s rest at CENTER, then capture", name)
	case StepAwaitMax:
		switch id {
		case axis.LeftX, axis.CX:
			return fmt.Sprintf("Move the %s fully RIGHT, then capture", name)
		case axis.LeftY, axis.CY:
			return fmt.Sprintf("Move the %s fully UP, then capture", name)
		case axis.LTrigger, axis.RTrigger:
			return fmt.Sprintf("Press the %s fully, then capture", name)
		}
	case StepDone:
		return fmt.Sprintf("Calibration of the %s saved", name)
	}
	return ""
}

func displayName(id axis.ID) string {
	switch id {
	case axis.LeftX, axis.LeftY:
		return "left stick"
	case axis.CX, axis.CY:
		return "C stick"
	case axis.LTrigger:
		return "left trigger"
	case axis.RTrigger:
		return "right trigger"
	}
	return string(id)
}
