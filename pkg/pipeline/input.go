package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/gamepad"
)

// WindowSize is the number of recent samples kept per axis for capture
// averaging.
const WindowSize = 20

// RawState is a snapshot of the latest raw input.
type RawState struct {
	Axes    map[axis.ID]int `json:"axes"`
	Buttons gamepad.Buttons `json:"buttons"`
	Packets uint64          `json:"packets"`
}

// Input holds the latest raw value of every axis and button. Writers are
// the transport callbacks; readers never block them.
type Input struct {
	raw     map[axis.ID]*atomic.Int64
	buttons atomic.Uint32
	packets atomic.Uint64

	updated chan struct{}

	winMu  sync.Mutex
	window map[axis.ID][]int

	closeOnce sync.Once
	done      chan struct{}
	err       error
}

func NewInput() *Input {
	in := &Input{
		raw:     make(map[axis.ID]*atomic.Int64, len(axis.All)),
		updated: make(chan struct{}, 1),
		window:  make(map[axis.ID][]int, len(axis.All)),
		done:    make(chan struct{}),
	}
	for _, id := range axis.All {
		in.raw[id] = &atomic.Int64{}
	}
	return in
}

// Handle applies one event. It is meant to be passed to
// SampleSource.Listen.
func (in *Input) Handle(ev Event) {
	switch ev.Kind {
	case KindAxis:
		v, ok := in.raw[ev.Axis]
		if !ok {
			return
		}
		v.Store(int64(ev.Raw))
		in.winMu.Lock()
		w := append(in.window[ev.Axis], ev.Raw)
		if len(w) > WindowSize {
			w = w[len(w)-WindowSize:]
		}
		in.window[ev.Axis] = w
		in.winMu.Unlock()
	case KindButton:
		for {
			old := in.buttons.Load()
			next := uint32(gamepad.Buttons(old).With(ev.Button, ev.Pressed))
			if in.buttons.CompareAndSwap(old, next) {
				break
			}
		}
	case KindSync:
		in.packets.Add(1)
		// Coalesce: one pending wake-up is enough.
		select {
		case in.updated <- struct{}{}:
		default:
		}
	}
}

// Updated is signalled after every completed report.
func (in *Input) Updated() <-chan struct{} {
	return in.updated
}

// Snapshot returns the latest raw values.
func (in *Input) Snapshot() RawState {
	st := RawState{
		Axes:    make(map[axis.ID]int, len(in.raw)),
		Buttons: gamepad.Buttons(in.buttons.Load()),
		Packets: in.packets.Load(),
	}
	for id, v := range in.raw {
		st.Axes[id] = int(v.Load())
	}
	return st
}

// PacketCount returns the number of reports received so far.
func (in *Input) PacketCount() uint64 {
	return in.packets.Load()
}

// Average returns the mean of the recent samples of id, rounded to the
// nearest integer. ok is false if no sample was received yet.
func (in *Input) Average(id axis.ID) (avg int, ok bool) {
	in.winMu.Lock()
	defer in.winMu.Unlock()

	w := in.window[id]
	if len(w) == 0 {
		return 0, false
	}
	sum := 0
	for _, v := range w {
		sum += v
	}
	n := len(w)
	// Round half away from zero; values are never negative.
	return (sum + n/2) / n, true
}

// ResetWindow drops the recent samples of id.
func (in *Input) ResetWindow(id axis.ID) {
	in.winMu.Lock()
	delete(in.window, id)
	in.winMu.Unlock()
}

// Close marks the input as finished. err is the reason, usually wrapping
// ErrTransport. Only the first call has an effect.
func (in *Input) Close(err error) {
	in.closeOnce.Do(func() {
		in.err = err
		close(in.done)
	})
}

// Done is closed once the input is closed.
func (in *Input) Done() <-chan struct{} {
	return in.done
}

// Err returns the error passed to Close. It must only be called after Done
// is closed.
func (in *Input) Err() error {
	return in.err
}
