// Package pipeline forwards controller input to the virtual controller.
//
// A SampleSource feeds raw events into an Input. The Pipeline wakes on every
// completed report, maps the latest values with the current calibration and
// hands the result to a ControllerSink.
package pipeline

import (
	"context"
	"errors"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/gamepad"
)

var (
	// ErrDriverUnavailable means the virtual controller bus cannot be used.
	ErrDriverUnavailable = errors.New("virtual controller driver unavailable")
	// ErrTransport means the controller connection was lost.
	ErrTransport = errors.New("controller transport lost")
)

// EventKind tells which fields of an Event are set.
type EventKind int

const (
	KindAxis EventKind = iota
	KindButton
	// KindSync marks the end of one input report.
	KindSync
)

// Event is one raw input change.
type Event struct {
	Kind    EventKind
	Axis    axis.ID
	Raw     int
	Button  gamepad.Button
	Pressed bool
}

func AxisEvent(id axis.ID, raw int) Event {
	return Event{Kind: KindAxis, Axis: id, Raw: raw}
}

func ButtonEvent(b gamepad.Button, pressed bool) Event {
	return Event{Kind: KindButton, Button: b, Pressed: pressed}
}

func SyncEvent() Event {
	return Event{Kind: KindSync}
}

// SampleSource produces raw input events from a connected controller.
type SampleSource interface {
	// Listen delivers events to handle until ctx is done or the connection
	// is lost. A lost connection is reported as an error wrapping
	// ErrTransport.
	Listen(ctx context.Context, handle func(Event)) error
	// Address returns the address of the connected controller.
	Address() string
	Close() error
}

// ControllerSink accepts mapped controller frames.
type ControllerSink interface {
	// Start plugs in the virtual controller. It returns an error wrapping
	// ErrDriverUnavailable if the driver is missing.
	Start() error
	Update(gamepad.State) error
	// Stop resets and unplugs the virtual controller.
	Stop() error
}

// Observer sees every forwarded frame. Observe must not block.
type Observer interface {
	Observe(gamepad.State)
}

type ObserverFunc func(gamepad.State)

func (f ObserverFunc) Observe(s gamepad.State) { f(s) }

// Calibrations provides the current calibration of every axis.
// *store.Store satisfies it.
type Calibrations interface {
	Axis(id axis.ID) (axis.Calibration, axis.DeadZone)
}
