package calibration

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/axis"
)

var ErrWizardInProgress = &wizardError{"calibration wizard already in progress"}
var ErrWizardNotRunning = &wizardError{"calibration wizard not running"}

type wizardError struct{ msg string }

func (e *wizardError) Error() string { return e.msg }

// Committer receives the result of a completed session.
type Committer interface {
	SetCalibration(axis.Calibration) error
}

// NotifyFunc is called after every step transition, outside the wizard lock.
type NotifyFunc func(from, to Status)

// session is the per-axis wizard state. It only exists while the wizard is
// not Idle.
type session struct {
	axis     axis.ID
	step     Step
	captured Captured
	message  string
}

// Wizard runs at most one calibration session at a time.
type Wizard struct {
	mu        sync.Mutex
	committer Committer
	notify    NotifyFunc
	s         *session
}

func NewWizard(c Committer, notify NotifyFunc) *Wizard {
	return &Wizard{committer: c, notify: notify}
}

// Start begins calibrating id. Sticks start with their minimum; triggers
// start with their rest position and use 0 as their minimum.
func (w *Wizard) Start(id axis.ID) (Status, error) {
	if !id.Valid() {
		return Status{}, &axis.ValidationError{Axis: id, Reason: "unknown axis"}
	}

	w.mu.Lock()
	if w.s != nil && w.s.step.Active() {
		w.mu.Unlock()
		return Status{}, ErrWizardInProgress
	}
	from := w.statusLocked()

	s := &session{axis: id, step: StepAwaitMin}
	if id.Class() == axis.ClassTrigger {
		floor := 0
		s.captured.Min = &floor
		s.step = StepAwaitCenter
	}
	w.s = s
	to := w.statusLocked()
	w.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"axis": id,
		"step": to.Step,
	}).Info("calibration wizard started")
	w.emit(from, to)
	return to, nil
}

// Capture records value for the current step and advances. Capturing the
// maximum validates and commits the session.
func (w *Wizard) Capture(value int) (Status, error) {
	w.mu.Lock()
	if w.s == nil || !w.s.step.Active() {
		w.mu.Unlock()
		return Status{}, ErrWizardNotRunning
	}
	from := w.statusLocked()
	s := w.s

	var commitErr error
	switch s.step {
	case StepAwaitMin:
		s.captured.Min = &value
		s.step = StepAwaitCenter
	case StepAwaitCenter:
		s.captured.Center = &value
		s.step = StepAwaitMax
	case StepAwaitMax:
		s.captured.Max = &value
		cal := axis.Calibration{
			Axis:      s.axis,
			RawMin:    *s.captured.Min,
			RawCenter: *s.captured.Center,
			RawMax:    *s.captured.Max,
		}
		commitErr = w.committer.SetCalibration(cal)
		if commitErr != nil {
			s.step = StepCancelled
			s.message = fmt.Sprintf("%v; start again to retry", commitErr)
		} else {
			s.step = StepDone
			s.message = ""
		}
	}
	to := w.statusLocked()
	w.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{
		"axis":  s.axis,
		"value": value,
		"from":  from.Step,
		"to":    to.Step,
	})
	if commitErr != nil {
		var verr *axis.ValidationError
		if errors.As(commitErr, &verr) {
			log.WithError(commitErr).Warn("calibration rejected")
		} else {
			log.WithError(commitErr).Error("failed to commit calibration")
		}
	} else {
		log.Debug("calibration value captured")
	}

	w.emit(from, to)
	return to, commitErr
}

// Retake steps back one step, so the next capture overwrites the value of
// that step only. At the first step it stays where it is.
func (w *Wizard) Retake() (Status, error) {
	w.mu.Lock()
	if w.s == nil || !w.s.step.Active() {
		w.mu.Unlock()
		return Status{}, ErrWizardNotRunning
	}
	from := w.statusLocked()
	s := w.s

	switch s.step {
	case StepAwaitCenter:
		if s.axis.Class() == axis.ClassStick {
			s.captured.Min = nil
			s.step = StepAwaitMin
		}
	case StepAwaitMax:
		s.captured.Center = nil
		s.step = StepAwaitCenter
	}
	to := w.statusLocked()
	w.mu.Unlock()

	w.emit(from, to)
	return to, nil
}

// Cancel discards the active session. The store is left untouched.
func (w *Wizard) Cancel() (Status, error) {
	w.mu.Lock()
	if w.s == nil || !w.s.step.Active() {
		w.mu.Unlock()
		return Status{}, ErrWizardNotRunning
	}
	from := w.statusLocked()
	w.s.step = StepCancelled
	w.s.message = "cancelled by user"
	to := w.statusLocked()
	w.mu.Unlock()

	logrus.WithField("axis", to.Axis).Info("calibration wizard cancelled")
	w.emit(from, to)
	return to, nil
}

// Status returns the current wizard status.
func (w *Wizard) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statusLocked()
}

// Axis returns the axis of the active session, if any.
func (w *Wizard) Axis() (axis.ID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.s == nil || !w.s.step.Active() {
		return "", false
	}
	return w.s.axis, true
}

func (w *Wizard) statusLocked() Status {
	if w.s == nil {
		return Status{Step: StepIdle}
	}
	s := w.s
	st := Status{
		Axis:        s.axis,
		Step:        s.step,
		Instruction: Instruction(s.axis, s.step),
		Captured:    copyCaptured(s.captured),
		CanCancel:   s.step.Active(),
		Message:     s.message,
	}
	st.CanRetake = s.step == StepAwaitMax || (s.step == StepAwaitCenter && s.axis.Class() == axis.ClassStick)
	return st
}

func (w *Wizard) emit(from, to Status) {
	if w.notify != nil {
		w.notify(from, to)
	}
}

func copyCaptured(c Captured) Captured {
	cp := func(p *int) *int {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	return Captured{Min: cp(c.Min), Center: cp(c.Center), Max: cp(c.Max)}
}
