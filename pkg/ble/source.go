package ble

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/gamepad"
	"github.com/nsogc/gcbridge/pkg/pipeline"
	"github.com/nsogc/gcbridge/pkg/protocol"
)

var _ pipeline.SampleSource = &Source{}

// Source is a connected controller.
type Source struct {
	t    *Transport
	dev  bluetooth.Device
	char bluetooth.DeviceCharacteristic
	addr string

	rejected atomic.Uint64

	lostOnce sync.Once
	lost     chan struct{}
	lostErr  error
}

func newSource(t *Transport, dev bluetooth.Device, char bluetooth.DeviceCharacteristic, addr string) *Source {
	return &Source{
		t:    t,
		dev:  dev,
		char: char,
		addr: addr,
		lost: make(chan struct{}),
	}
}

func (s *Source) Address() string {
	return s.addr
}

// Rejected returns the number of malformed reports dropped.
func (s *Source) Rejected() uint64 {
	return s.rejected.Load()
}

// Listen subscribes to input reports and blocks until ctx is done or the
// controller disconnects.
func (s *Source) Listen(ctx context.Context, handle func(pipeline.Event)) error {
	err := s.char.EnableNotifications(func(buf []byte) {
		r, err := protocol.Decode(buf)
		if err != nil {
			if s.rejected.Add(1) == 1 {
				logrus.WithError(err).WithField("address", s.addr).Warn("dropping malformed input report")
			}
			return
		}
		emitReport(r, handle)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to enable notifications: %w", pipeline.ErrTransport, err)
	}

	select {
	case <-ctx.Done():
		_ = s.char.EnableNotifications(nil)
		return nil
	case <-s.lost:
		return s.lostErr
	}
}

// Close disconnects the controller.
func (s *Source) Close() error {
	s.t.forget(s)
	s.lose(errors.New("connection closed"))
	if err := s.dev.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", s.addr, err)
	}
	return nil
}

func (s *Source) lose(cause error) {
	s.lostOnce.Do(func() {
		s.lostErr = fmt.Errorf("%w: %s: %w", pipeline.ErrTransport, s.addr, cause)
		close(s.lost)
		logrus.WithError(cause).WithField("address", s.addr).Info("controller connection ended")
	})
}

// emitReport turns a decoded report into pipeline events, ending with a sync.
func emitReport(r protocol.Report, handle func(pipeline.Event)) {
	for _, id := range axis.All {
		if v, ok := r.Axes[id]; ok {
			handle(pipeline.AxisEvent(id, v))
		}
	}
	for _, b := range gamepad.AllButtons {
		handle(pipeline.ButtonEvent(b, r.Buttons.Has(b)))
	}
	handle(pipeline.SyncEvent())
}
