//go:build windows

package vigem

import (
	"errors"
	"sync"
	"unsafe"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"

	"github.com/nsogc/gcbridge/pkg/gamepad"
	"github.com/nsogc/gcbridge/pkg/pipeline"
)

var (
	client = windows.NewLazyDLL("ViGEmClient.dll")

	procAlloc            = client.NewProc("vigem_alloc")
	procFree             = client.NewProc("vigem_free")
	procConnect          = client.NewProc("vigem_connect")
	procDisconnect       = client.NewProc("vigem_disconnect")
	procTargetAdd        = client.NewProc("vigem_target_add")
	procTargetFree       = client.NewProc("vigem_target_free")
	procTargetRemove     = client.NewProc("vigem_target_remove")
	procTargetX360Alloc  = client.NewProc("vigem_target_x360_alloc")
	procTargetX360Update = client.NewProc("vigem_target_x360_update")
)

var _ pipeline.ControllerSink = &Sink{}

// Sink is one virtual Xbox 360 controller.
type Sink struct {
	mu     sync.Mutex
	client uintptr
	target uintptr
}

func New() *Sink {
	return &Sink{}
}

// call invokes a proc returning a VIGEM_ERROR.
func call(p *windows.LazyProc, args ...uintptr) error {
	code, _, err := p.Call(args...)
	if err != nil && !errors.Is(err, windows.ERROR_SUCCESS) {
		return err
	}
	return newError(code)
}

func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.target != 0 {
		return nil
	}

	if err := client.Load(); err != nil {
		return driverUnavailable(err)
	}

	c, _, _ := procAlloc.Call()
	if c == 0 {
		return pkgerrors.New("vigem_alloc returned no client")
	}
	if err := call(procConnect, c); err != nil {
		procFree.Call(c)
		if errors.Is(err, pipeline.ErrDriverUnavailable) {
			return driverUnavailable(err)
		}
		return pkgerrors.Wrap(err, "failed to connect to ViGEmBus")
	}

	t, _, _ := procTargetX360Alloc.Call()
	if t == 0 {
		procDisconnect.Call(c)
		procFree.Call(c)
		return pkgerrors.New("vigem_target_x360_alloc returned no target")
	}
	if err := call(procTargetAdd, c, t); err != nil {
		procTargetFree.Call(t)
		procDisconnect.Call(c)
		procFree.Call(c)
		return pkgerrors.Wrap(err, "failed to plug in virtual controller")
	}

	s.client, s.target = c, t
	logrus.Info("virtual Xbox 360 controller plugged in")
	return nil
}

func (s *Sink) Update(st gamepad.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(st.Report())
}

func (s *Sink) updateLocked(r gamepad.XUSBReport) error {
	if s.target == 0 {
		return pkgerrors.New("virtual controller not started")
	}
	return call(procTargetX360Update, s.client, s.target, uintptr(unsafe.Pointer(&r)))
}

// Stop sends a neutral report, then unplugs and frees the controller.
func (s *Sink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.target == 0 {
		return nil
	}

	if err := s.updateLocked(gamepad.XUSBReport{}); err != nil {
		logrus.WithError(err).Warn("failed to reset virtual controller")
	}
	err := call(procTargetRemove, s.client, s.target)
	procTargetFree.Call(s.target)
	procDisconnect.Call(s.client)
	procFree.Call(s.client)
	s.client, s.target = 0, 0

	if err != nil {
		return pkgerrors.Wrap(err, "failed to unplug virtual controller")
	}
	logrus.Info("virtual Xbox 360 controller unplugged")
	return nil
}
