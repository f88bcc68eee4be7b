package calibration

import (
	"errors"
	"testing"

	"github.com/nsogc/gcbridge/pkg/axis"
)

type fakeCommitter struct {
	commits []axis.Calibration
}

func (f *fakeCommitter) SetCalibration(cal axis.Calibration) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	f.commits = append(f.commits, cal)
	return nil
}

type transition struct{ from, to Step }

func newTestWizard() (*Wizard, *fakeCommitter, *[]transition) {
	c := &fakeCommitter{}
	var trs []transition
	w := NewWizard(c, func(from, to Status) {
		trs = append(trs, transition{from.Step, to.Step})
	})
	return w, c, &trs
}

func mustCapture(t *testing.T, w *Wizard, v int) Status {
	t.Helper()
	st, err := w.Capture(v)
	if err != nil {
		t.Fatalf("Capture(%d) failed: %v", v, err)
	}
	return st
}

func TestWizardStickHappyPath(t *testing.T) {
	w, c, trs := newTestWizard()

	st, err := w.Start(axis.LeftX)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if st.Step != StepAwaitMin || st.Instruction == "" {
		t.Fatalf("unexpected status after start: %+v", st)
	}

	mustCapture(t, w, 250)
	mustCapture(t, w, 2050)
	st = mustCapture(t, w, 3850)
	if st.Step != StepDone {
		t.Fatalf("expected Done, got %s", st.Step)
	}

	want := axis.Calibration{Axis: axis.LeftX, RawMin: 250, RawCenter: 2050, RawMax: 3850}
	if len(c.commits) != 1 || c.commits[0] != want {
		t.Fatalf("commits = %+v, want [%+v]", c.commits, want)
	}

	wantTrs := []transition{
		{StepIdle, StepAwaitMin},
		{StepAwaitMin, StepAwaitCenter},
		{StepAwaitCenter, StepAwaitMax},
		{StepAwaitMax, StepDone},
	}
	if len(*trs) != len(wantTrs) {
		t.Fatalf("transitions = %v, want %v", *trs, wantTrs)
	}
	for i := range wantTrs {
		if (*trs)[i] != wantTrs[i] {
			t.Errorf("transition %d = %v, want %v", i, (*trs)[i], wantTrs[i])
		}
	}
}

func TestWizardInvalidCommitCancels(t *testing.T) {
	w, c, _ := newTestWizard()

	if _, err := w.Start(axis.CY); err != nil {
		t.Fatal(err)
	}
	mustCapture(t, w, 10)
	mustCapture(t, w, 10)
	st, err := w.Capture(1000)

	var verr *axis.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if st.Step != StepCancelled || st.Message == "" {
		t.Errorf("expected Cancelled with a reason, got %+v", st)
	}
	if len(c.commits) != 0 {
		t.Errorf("store must be untouched, got %+v", c.commits)
	}

	// A new session can be started afterwards.
	if _, err := w.Start(axis.CY); err != nil {
		t.Errorf("Start after failure: %v", err)
	}
}

func TestWizardTrigger(t *testing.T) {
	w, c, _ := newTestWizard()

	st, err := w.Start(axis.RTrigger)
	if err != nil {
		t.Fatal(err)
	}
	if st.Step != StepAwaitCenter {
		t.Fatalf("trigger should start at AwaitCenter, got %s", st.Step)
	}
	if st.Captured.Min == nil || *st.Captured.Min != 0 {
		t.Fatalf("trigger min should be the floor, got %+v", st.Captured)
	}
	if st.CanRetake {
		t.Error("trigger rest step has nothing to retake")
	}

	mustCapture(t, w, 32)
	mustCapture(t, w, 228)

	want := axis.Calibration{Axis: axis.RTrigger, RawMin: 0, RawCenter: 32, RawMax: 228}
	if len(c.commits) != 1 || c.commits[0] != want {
		t.Fatalf("commits = %+v, want [%+v]", c.commits, want)
	}
}

func TestWizardRetake(t *testing.T) {
	w, c, _ := newTestWizard()

	if _, err := w.Start(axis.LeftY); err != nil {
		t.Fatal(err)
	}
	mustCapture(t, w, 50)
	mustCapture(t, w, 999) // bad center

	st, err := w.Retake()
	if err != nil {
		t.Fatalf("Retake failed: %v", err)
	}
	if st.Step != StepAwaitCenter || st.Captured.Center != nil {
		t.Fatalf("unexpected status after retake: %+v", st)
	}
	if st.Captured.Min == nil || *st.Captured.Min != 50 {
		t.Fatalf("retake must keep the min, got %+v", st.Captured)
	}

	mustCapture(t, w, 130)
	mustCapture(t, w, 210)

	want := axis.Calibration{Axis: axis.LeftY, RawMin: 50, RawCenter: 130, RawMax: 210}
	if len(c.commits) != 1 || c.commits[0] != want {
		t.Fatalf("commits = %+v, want [%+v]", c.commits, want)
	}
}

func TestWizardRetakeAtFirstStep(t *testing.T) {
	w, _, _ := newTestWizard()
	if _, err := w.Start(axis.CX); err != nil {
		t.Fatal(err)
	}
	st, err := w.Retake()
	if err != nil || st.Step != StepAwaitMin {
		t.Fatalf("Retake at first step = %+v, %v", st, err)
	}
}

func TestWizardCancel(t *testing.T) {
	w, c, _ := newTestWizard()

	if _, err := w.Start(axis.LeftX); err != nil {
		t.Fatal(err)
	}
	mustCapture(t, w, 100)
	st, err := w.Cancel()
	if err != nil || st.Step != StepCancelled {
		t.Fatalf("Cancel = %+v, %v", st, err)
	}
	if len(c.commits) != 0 {
		t.Error("cancel must not commit")
	}
	if _, err := w.Capture(5); !errors.Is(err, ErrWizardNotRunning) {
		t.Errorf("Capture after cancel: got %v, want ErrWizardNotRunning", err)
	}
}

func TestWizardErrors(t *testing.T) {
	w, _, _ := newTestWizard()

	if _, err := w.Capture(1); !errors.Is(err, ErrWizardNotRunning) {
		t.Errorf("Capture while idle: %v", err)
	}
	if _, err := w.Retake(); !errors.Is(err, ErrWizardNotRunning) {
		t.Errorf("Retake while idle: %v", err)
	}
	if _, err := w.Cancel(); !errors.Is(err, ErrWizardNotRunning) {
		t.Errorf("Cancel while idle: %v", err)
	}

	if _, err := w.Start("nope"); err == nil {
		t.Error("expected error for unknown axis")
	}

	if _, err := w.Start(axis.LeftX); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Start(axis.CX); !errors.Is(err, ErrWizardInProgress) {
		t.Errorf("second Start: %v", err)
	}
	if id, ok := w.Axis(); !ok || id != axis.LeftX {
		t.Errorf("Axis() = %v, %v", id, ok)
	}
}

func TestStatusIsACopy(t *testing.T) {
	w, _, _ := newTestWizard()
	if _, err := w.Start(axis.LeftX); err != nil {
		t.Fatal(err)
	}
	st := mustCapture(t, w, 100)
	*st.Captured.Min = 7
	if got := *w.Status().Captured.Min; got != 100 {
		t.Errorf("status leaked internal state, min = %d", got)
	}
}

func TestInstruction(t *testing.T) {
	tests := []struct {
		id   axis.ID
		step Step
		want string
	}{
		{axis.LeftX, StepAwaitMin, "Move the left stick fully LEFT, then capture"},
		{axis.CY, StepAwaitMax, "Move the C stick fully UP, then capture"},
		{axis.LTrigger, StepAwaitCenter, "Release the left trigger completely, then capture"},
		{axis.RTrigger, StepAwaitMax, "Press the right trigger fully, then capture"},
		{axis.LeftY, StepIdle, ""},
	}
	for _, tt := range tests {
		if got := Instruction(tt.id, tt.step); got != tt.want {
			t.Errorf("Instruction(%s, %s) = %q, want %q", tt.id, tt.step, got, tt.want)
		}
	}
}
