package ble

import (
	"testing"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/gamepad"
	"github.com/nsogc/gcbridge/pkg/pipeline"
	"github.com/nsogc/gcbridge/pkg/protocol"
)

func TestEmitReport(t *testing.T) {
	data := make([]byte, protocol.ReportSize)
	data[4] = 0x08 // A
	data[6] = 0x80 // ZL
	data[12] = 200
	data[61] = 99

	r, err := protocol.Decode(data)
	if err != nil {
		t.Fatal(err)
	}

	in := pipeline.NewInput()
	var evs []pipeline.Event
	emitReport(r, func(ev pipeline.Event) {
		evs = append(evs, ev)
		in.Handle(ev)
	})

	if len(evs) != len(axis.All)+len(gamepad.AllButtons)+1 {
		t.Fatalf("got %d events", len(evs))
	}
	if evs[len(evs)-1].Kind != pipeline.KindSync {
		t.Fatal("last event must be a sync")
	}

	st := in.Snapshot()
	if st.Axes[axis.LeftY] != 200 || st.Axes[axis.RTrigger] != 99 {
		t.Errorf("unexpected axes %v", st.Axes)
	}
	if !st.Buttons.Has(gamepad.A) || !st.Buttons.Has(gamepad.ZL) || st.Buttons.Has(gamepad.B) {
		t.Errorf("unexpected buttons %v", st.Buttons)
	}
	if st.Packets != 1 {
		t.Errorf("packets = %d, want 1", st.Packets)
	}
}

func TestEmitReportReleasesButtons(t *testing.T) {
	in := pipeline.NewInput()
	in.Handle(pipeline.ButtonEvent(gamepad.Start, true))

	r, err := protocol.Decode(make([]byte, protocol.ReportSize))
	if err != nil {
		t.Fatal(err)
	}
	emitReport(r, in.Handle)

	if in.Snapshot().Buttons != 0 {
		t.Errorf("buttons not released: %v", in.Snapshot().Buttons)
	}
}

func TestNormalize(t *testing.T) {
	if normalize(" 3c:a9:ab:5f:70:b1 ") != "3C:A9:AB:5F:70:B1" {
		t.Error("normalize failed")
	}
}
