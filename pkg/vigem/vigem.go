// Package vigem plugs a virtual Xbox 360 controller into the ViGEmBus
// driver and feeds it mapped controller frames.
package vigem

import (
	"fmt"

	"github.com/nsogc/gcbridge/pkg/pipeline"
)

// Guidance is shown to users when the driver cannot be used.
const Guidance = "install the ViGEmBus driver (https://github.com/nefarius/ViGEmBus/releases) and make sure ViGEmClient.dll is next to gcbridge or on PATH"

const (
	errNone                = 0x20000000
	errBusNotFound         = 0xE0000001
	errNoFreeSlot          = 0xE0000002
	errInvalidTarget       = 0xE0000003
	errRemovalFailed       = 0xE0000004
	errAlreadyConnected    = 0xE0000005
	errTargetUninitialized = 0xE0000006
	errTargetNotPluggedIn  = 0xE0000007
	errBusVersionMismatch  = 0xE0000008
	errBusAccessFailed     = 0xE0000009
	errBusAlreadyConnected = 0xE0000012
	errBusInvalidHandle    = 0xE0000013
)

// Error is a ViGEm client error code.
type Error struct {
	Code uint32
}

// newError returns nil for the success code.
func newError(code uintptr) error {
	if uint32(code) == errNone {
		return nil
	}
	return &Error{Code: uint32(code)}
}

func (e *Error) Error() string {
	var msg string
	switch e.Code {
	case errBusNotFound:
		msg = "bus not found"
	case errNoFreeSlot:
		msg = "no free slot"
	case errInvalidTarget:
		msg = "invalid target"
	case errRemovalFailed:
		msg = "removal failed"
	case errAlreadyConnected:
		msg = "already connected"
	case errTargetUninitialized:
		msg = "target uninitialized"
	case errTargetNotPluggedIn:
		msg = "target not plugged in"
	case errBusVersionMismatch:
		msg = "bus version mismatch"
	case errBusAccessFailed:
		msg = "bus access failed"
	case errBusAlreadyConnected:
		msg = "bus already connected"
	case errBusInvalidHandle:
		msg = "bus invalid handle"
	default:
		msg = "unknown error"
	}
	return fmt.Sprintf("vigem: %s (%#08x)", msg, e.Code)
}

// Is makes a missing or unusable bus match pipeline.ErrDriverUnavailable.
func (e *Error) Is(target error) bool {
	if target != pipeline.ErrDriverUnavailable {
		return false
	}
	switch e.Code {
	case errBusNotFound, errBusVersionMismatch, errBusAccessFailed:
		return true
	}
	return false
}

func driverUnavailable(cause error) error {
	return fmt.Errorf("%w: %w; %s", pipeline.ErrDriverUnavailable, cause, Guidance)
}
