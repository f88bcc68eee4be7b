//go:build !windows

package vigem

import (
	"errors"
	"runtime"

	pkgerrors "github.com/pkg/errors"

	"github.com/nsogc/gcbridge/pkg/gamepad"
	"github.com/nsogc/gcbridge/pkg/pipeline"
)

var _ pipeline.ControllerSink = &Sink{}

// Sink reports the driver as unavailable; ViGEmBus only exists on Windows.
type Sink struct{}

func New() *Sink {
	return &Sink{}
}

func (s *Sink) Start() error {
	return driverUnavailable(errors.New("ViGEmBus is not supported on " + runtime.GOOS))
}

func (s *Sink) Update(gamepad.State) error {
	return pkgerrors.New("virtual controller not started")
}

func (s *Sink) Stop() error {
	return nil
}
