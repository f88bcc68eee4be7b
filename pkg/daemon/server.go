package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/ble"
	"github.com/nsogc/gcbridge/pkg/calibration"
	"github.com/nsogc/gcbridge/pkg/events"
	"github.com/nsogc/gcbridge/pkg/pipeline"
	"github.com/nsogc/gcbridge/pkg/store"
	"github.com/nsogc/gcbridge/pkg/types"
	"github.com/nsogc/gcbridge/pkg/version"
)

var (
	ErrNotConnected     = errors.New("no controller connected")
	ErrAlreadyConnected = errors.New("a controller is already connected")
	ErrNoSamples        = errors.New("no input received for this axis yet")
)

// Transport finds and connects controllers.
type Transport interface {
	Scan(ctx context.Context, timeout time.Duration) ([]ble.Device, error)
	Connect(ctx context.Context, addr string) (pipeline.SampleSource, error)
}

// bleTransport adapts *ble.Transport to Transport.
type bleTransport struct {
	t *ble.Transport
}

func (b bleTransport) Scan(ctx context.Context, timeout time.Duration) ([]ble.Device, error) {
	return b.t.Scan(ctx, timeout)
}

func (b bleTransport) Connect(ctx context.Context, addr string) (pipeline.SampleSource, error) {
	s, err := b.t.Connect(ctx, addr)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Options wires a Server.
type Options struct {
	Store     *store.Store
	Hub       *events.EventHub
	Transport Transport
	// NewSink creates a virtual controller for every emulation run.
	NewSink   func() pipeline.ControllerSink
	Observers []pipeline.Observer
}

// connection is one connected controller and its input state.
type connection struct {
	source    pipeline.SampleSource
	input     *pipeline.Input
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		if err := c.source.Close(); err != nil {
			logrus.WithError(err).Debug("failed to close controller connection")
		}
	})
}

// emulation is one run of the input pipeline.
type emulation struct {
	pipeline *pipeline.Pipeline
	sink     pipeline.ControllerSink
	cancel   context.CancelFunc
	done     chan struct{}
}

// Server is the daemon state shared by all handlers.
type Server struct {
	store     *store.Store
	hub       *events.EventHub
	wizard    *calibration.Wizard
	transport Transport
	newSink   func() pipeline.ControllerSink
	observers []pipeline.Observer

	// connectMu serialises connection attempts.
	connectMu sync.Mutex

	mu        sync.Mutex
	conn      *connection
	emu       *emulation
	forwarded uint64
	lastError string
}

func NewServer(opts Options) *Server {
	s := &Server{
		store:     opts.Store,
		hub:       opts.Hub,
		transport: opts.Transport,
		newSink:   opts.NewSink,
		observers: opts.Observers,
	}
	s.wizard = calibration.NewWizard(opts.Store, s.publishWizardStep)
	return s
}

func (s *Server) publishWizardStep(from, to calibration.Status) {
	s.hub.Publish(events.WizardStep, events.WizardStepEvent{
		Axis:        string(to.Axis),
		From:        string(from.Step),
		To:          string(to.Step),
		Instruction: to.Instruction,
		Message:     to.Message,
		Ts:          time.Now().Unix(),
	})
}

// Status returns an overview of the daemon.
func (s *Server) Status() types.Status {
	s.mu.Lock()
	st := types.Status{
		Version:    version.Version,
		ConfigPath: s.store.Path(),
		Forwarded:  s.forwarded,
		LastError:  s.lastError,
	}
	if s.conn != nil {
		st.Connected = true
		st.Address = s.conn.source.Address()
		st.Packets = s.conn.input.PacketCount()
	}
	if s.emu != nil {
		st.Emulating = true
		st.Forwarded += s.emu.pipeline.Forwarded()
	}
	s.mu.Unlock()

	st.Wizard = s.wizard.Status()
	return st
}

// Input returns the latest raw input and its mapping.
func (s *Server) Input() types.InputFrame {
	frame := types.InputFrame{Ts: time.Now().UnixMilli()}

	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c == nil {
		return frame
	}

	frame.Connected = true
	frame.Raw = c.input.Snapshot()
	frame.Mapped = pipeline.MapState(frame.Raw, s.store)
	return frame
}

func (s *Server) currentInput() (*pipeline.Input, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn.input, nil
}

// Scan lists nearby controllers.
func (s *Server) Scan(ctx context.Context, timeout time.Duration) ([]ble.Device, error) {
	return s.transport.Scan(ctx, timeout)
}

// Connect connects to addr. An empty addr uses the saved controller, and
// if there is none, the first controller found.
func (s *Server) Connect(ctx context.Context, addr string) (string, error) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	s.mu.Lock()
	connected := s.conn != nil
	s.mu.Unlock()
	if connected {
		return "", ErrAlreadyConnected
	}

	if addr == "" {
		addr = s.store.ControllerAddress()
	}

	src, err := s.transport.Connect(ctx, addr)
	if err != nil {
		s.setLastError(err)
		s.hub.Publish(events.ConnectionState, events.ConnectionStateEvent{
			Connected: false,
			Address:   addr,
			Error:     err.Error(),
			Ts:        time.Now().Unix(),
		})
		return "", err
	}

	lctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		source: src,
		input:  pipeline.NewInput(),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.conn = c
	s.lastError = ""
	s.mu.Unlock()

	s.store.SetControllerAddress(src.Address())
	go s.listen(lctx, c)

	s.hub.Publish(events.ConnectionState, events.ConnectionStateEvent{
		Connected: true,
		Address:   src.Address(),
		Ts:        time.Now().Unix(),
	})
	return src.Address(), nil
}

func (s *Server) listen(ctx context.Context, c *connection) {
	defer close(c.done)

	err := c.source.Listen(ctx, c.input.Handle)
	if err != nil {
		c.input.Close(err)
		c.close()
		logrus.WithError(err).WithField("address", c.source.Address()).Warn("controller connection lost")
	} else {
		c.input.Close(errors.New("disconnected"))
	}

	s.mu.Lock()
	if s.conn == c {
		s.conn = nil
	}
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	ev := events.ConnectionStateEvent{
		Connected: false,
		Address:   c.source.Address(),
		Ts:        time.Now().Unix(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.hub.Publish(events.ConnectionState, ev)
}

// Disconnect stops emulation and disconnects the controller.
func (s *Server) Disconnect() error {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}

	s.StopEmulation()

	c.cancel()
	<-c.done
	c.close()
	logrus.WithField("address", c.source.Address()).Info("controller disconnected")
	return nil
}

// StartEmulation plugs in a virtual controller and starts forwarding input
// to it. Starting a running emulation does nothing.
func (s *Server) StartEmulation() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emu != nil {
		return nil
	}
	if s.conn == nil {
		return ErrNotConnected
	}

	sink := s.newSink()
	if err := sink.Start(); err != nil {
		s.lastError = err.Error()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &emulation{
		pipeline: pipeline.New(s.conn.input, s.store, sink, s.observers...),
		sink:     sink,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.emu = e
	go s.runEmulation(ctx, e)

	logrus.Info("emulation started")
	s.hub.Publish(events.EmulationState, events.EmulationStateEvent{
		Running: true,
		Ts:      time.Now().Unix(),
	})
	return nil
}

func (s *Server) runEmulation(ctx context.Context, e *emulation) {
	defer close(e.done)

	err := e.pipeline.Run(ctx)
	if stopErr := e.sink.Stop(); stopErr != nil {
		logrus.WithError(stopErr).Error("failed to stop virtual controller")
	}

	s.mu.Lock()
	if s.emu == e {
		s.emu = nil
	}
	s.forwarded += e.pipeline.Forwarded()
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	ev := events.EmulationStateEvent{Running: false, Ts: time.Now().Unix()}
	if err != nil {
		ev.Error = err.Error()
		logrus.WithError(err).Warn("emulation stopped")
	} else {
		logrus.Info("emulation stopped")
	}
	s.hub.Publish(events.EmulationState, ev)
}

// StopEmulation stops forwarding and unplugs the virtual controller. It
// returns once the last frame was forwarded.
func (s *Server) StopEmulation() {
	s.mu.Lock()
	e := s.emu
	s.mu.Unlock()
	if e == nil {
		return
	}
	e.cancel()
	<-e.done
}

// StartWizard starts a calibration session for id. Samples received
// before the start are discarded so the first capture only averages the
// position the user was asked to hold.
func (s *Server) StartWizard(id axis.ID) (calibration.Status, error) {
	st, err := s.wizard.Start(id)
	if err != nil {
		return st, err
	}
	s.resetWindow(id)
	return st, nil
}

// Capture records a wizard value. Without a value the average of the
// recent samples of the wizard axis is used. The sample window restarts
// after every accepted capture.
func (s *Server) Capture(value *int) (calibration.Status, error) {
	id, ok := s.wizard.Axis()
	if !ok {
		return calibration.Status{}, calibration.ErrWizardNotRunning
	}

	if value == nil {
		in, err := s.currentInput()
		if err != nil {
			return calibration.Status{}, err
		}
		avg, ok := in.Average(id)
		if !ok {
			return calibration.Status{}, ErrNoSamples
		}
		value = &avg
	}

	st, err := s.wizard.Capture(*value)
	if err != nil {
		return st, err
	}
	s.resetWindow(id)
	return st, nil
}

// Retake steps the wizard back and restarts the sample window.
func (s *Server) Retake() (calibration.Status, error) {
	id, _ := s.wizard.Axis()
	st, err := s.wizard.Retake()
	if err != nil {
		return st, err
	}
	s.resetWindow(id)
	return st, nil
}

func (s *Server) resetWindow(id axis.ID) {
	if in, err := s.currentInput(); err == nil {
		in.ResetWindow(id)
	}
}

// Close stops emulation, disconnects and flushes the settings.
func (s *Server) Close() error {
	s.StopEmulation()
	if err := s.Disconnect(); err != nil && !errors.Is(err, ErrNotConnected) {
		logrus.WithError(err).Warn("failed to disconnect controller")
	}
	return s.store.Close()
}

func (s *Server) setLastError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}
