package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/gamepad"
)

// MapState maps a raw snapshot with the current calibration. The C stick
// becomes the right thumbstick.
func MapState(raw RawState, cals Calibrations) gamepad.State {
	m := func(id axis.ID) float64 {
		cal, dz := cals.Axis(id)
		return axis.MapAxis(raw.Axes[id], cal, dz)
	}
	return gamepad.State{
		LeftX:    m(axis.LeftX),
		LeftY:    m(axis.LeftY),
		RightX:   m(axis.CX),
		RightY:   m(axis.CY),
		LTrigger: m(axis.LTrigger),
		RTrigger: m(axis.RTrigger),
		Buttons:  raw.Buttons,
	}
}

type Pipeline struct {
	input     *Input
	cals      Calibrations
	sink      ControllerSink
	observers []Observer

	forwarded atomic.Uint64
}

func New(input *Input, cals Calibrations, sink ControllerSink, observers ...Observer) *Pipeline {
	return &Pipeline{
		input:     input,
		cals:      cals,
		sink:      sink,
		observers: observers,
	}
}

// Forwarded returns the number of frames sent to the sink.
func (p *Pipeline) Forwarded() uint64 {
	return p.forwarded.Load()
}

// Run forwards input until ctx is cancelled or the input is closed. A
// forward that already started completes before Run returns; none starts
// after ctx is done. Cancellation returns nil. A closed input returns an
// error wrapping ErrTransport.
func (p *Pipeline) Run(ctx context.Context) error {
	logrus.Debug("input pipeline started")
	defer logrus.Debug("input pipeline stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.input.Done():
			return transportError(p.input.Err())
		case <-p.input.Updated():
			if ctx.Err() != nil {
				return nil
			}
			if err := p.forward(); err != nil {
				return err
			}
		}
	}
}

func (p *Pipeline) forward() error {
	st := MapState(p.input.Snapshot(), p.cals)
	if err := p.sink.Update(st); err != nil {
		return pkgerrors.Wrap(err, "failed to update virtual controller")
	}
	p.forwarded.Add(1)
	for _, o := range p.observers {
		o.Observe(st)
	}
	return nil
}

func transportError(err error) error {
	if err == nil {
		return fmt.Errorf("%w: input closed", ErrTransport)
	}
	if errors.Is(err, ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
