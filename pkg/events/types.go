package events

import "encoding/json"

// Event name constants
const (
	WizardStep         = "wizard.step"
	EmulationState     = "emulation.state"
	ConnectionState    = "connection.state"
	CalibrationChanged = "calibration.changed"
	StorageWarning     = "storage.warning"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// WizardStepEvent is the typed payload for wizard.step.
type WizardStepEvent struct {
	Axis        string `json:"axis"`
	From        string `json:"from"`
	To          string `json:"to"`
	Instruction string `json:"instruction,omitempty"`
	Message     string `json:"message,omitempty"`
	Ts          int64  `json:"ts"`
}

// EmulationStateEvent is the typed payload for emulation.state.
type EmulationStateEvent struct {
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
	Ts      int64  `json:"ts"`
}

// ConnectionStateEvent is the typed payload for connection.state.
type ConnectionStateEvent struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	Error     string `json:"error,omitempty"`
	Ts        int64  `json:"ts"`
}

// CalibrationChangedEvent is published whenever an axis calibration or dead
// zone is replaced.
type CalibrationChangedEvent struct {
	Axis string `json:"axis"`
	Ts   int64  `json:"ts"`
}

// StorageWarningEvent reports a failed load or save of the settings file.
type StorageWarningEvent struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Error string `json:"error"`
	Ts    int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.WizardStepEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.From, payload.To)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
