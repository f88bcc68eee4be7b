// Package store holds the live calibration and dead zone of every axis.
//
// Reads are lock-free: each axis lives behind an atomic pointer that is
// swapped whole on update. Writes are persisted by a background saver so
// the input path never waits on the disk.
package store

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/config"
	"github.com/nsogc/gcbridge/pkg/events"
)

// Publisher receives store notifications. *events.EventHub satisfies it.
type Publisher interface {
	Publish(name string, payload any)
}

type record struct {
	cal axis.Calibration
	dz  axis.DeadZone
}

type Store struct {
	file *config.File
	pub  Publisher

	axes map[axis.ID]*atomic.Pointer[record]

	// saveMu serialises writes of the settings file.
	saveMu  sync.Mutex
	pending atomic.Bool
	dirty   chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// Open loads the settings file at path and starts the background saver.
func Open(path string, pub Publisher) *Store {
	return New(config.NewFileFromConfig(nil, path), pub)
}

// New wraps an existing settings file. The file is (re)loaded; a load
// failure is reported as a warning and the defaults are used.
func New(f *config.File, pub Publisher) *Store {
	s := &Store{
		file:  f,
		pub:   pub,
		axes:  make(map[axis.ID]*atomic.Pointer[record], len(axis.All)),
		dirty: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	for _, id := range axis.All {
		p := &atomic.Pointer[record]{}
		p.Store(&record{cal: axis.DefaultCalibration(id), dz: axis.DefaultDeadZone(id)})
		s.axes[id] = p
	}

	s.Load()

	s.wg.Add(1)
	go s.saver()

	return s
}

// Config returns the underlying settings file.
func (s *Store) Config() *config.File {
	return s.file
}

// Path returns the settings file path.
func (s *Store) Path() string {
	return s.file.Path()
}

// Load reads the settings file. It never fails: a missing, unreadable or
// invalid file leaves the affected axes at their defaults and the problem
// is reported as a storage warning.
func (s *Store) Load() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if err := s.file.Load(); err != nil {
		s.warn(&StorageError{Op: "load", Path: s.file.Path(), Err: err})
	}
	s.adoptFile()
}

// adoptFile copies every axis of the settings file into the live records.
func (s *Store) adoptFile() {
	for _, id := range axis.All {
		cal, dz := s.file.Axis(id)
		if err := cal.Validate(); err != nil {
			s.warn(&StorageError{Op: "load", Path: s.file.Path(), Err: err})
			cal = axis.DefaultCalibration(id)
		}
		if err := dz.Validate(); err != nil {
			s.warn(&StorageError{Op: "load", Path: s.file.Path(), Err: err})
			dz = axis.DefaultDeadZone(id)
		}
		s.axes[id].Store(&record{cal: cal, dz: dz})
	}
}

// Calibration returns the current calibration of id.
func (s *Store) Calibration(id axis.ID) axis.Calibration {
	p, ok := s.axes[id]
	if !ok {
		return axis.DefaultCalibration(id)
	}
	return p.Load().cal
}

// DeadZone returns the current dead zone of id.
func (s *Store) DeadZone(id axis.ID) axis.DeadZone {
	p, ok := s.axes[id]
	if !ok {
		return axis.DefaultDeadZone(id)
	}
	return p.Load().dz
}

// Axis returns the calibration and dead zone of id as one consistent pair.
func (s *Store) Axis(id axis.ID) (axis.Calibration, axis.DeadZone) {
	p, ok := s.axes[id]
	if !ok {
		return axis.DefaultCalibration(id), axis.DefaultDeadZone(id)
	}
	r := p.Load()
	return r.cal, r.dz
}

// SetCalibration validates and installs cal, then schedules a save.
func (s *Store) SetCalibration(cal axis.Calibration) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	s.update(cal.Axis, func(r *record) { r.cal = cal })
	return nil
}

// SetDeadZone validates and installs dz, then schedules a save.
func (s *Store) SetDeadZone(dz axis.DeadZone) error {
	if err := dz.Validate(); err != nil {
		return err
	}
	s.update(dz.Axis, func(r *record) { r.dz = dz })
	return nil
}

func (s *Store) update(id axis.ID, fn func(r *record)) {
	p := s.axes[id]
	for {
		old := p.Load()
		next := *old
		fn(&next)
		if p.CompareAndSwap(old, &next) {
			break
		}
	}
	s.publishChanged(id)
	s.schedule()
}

// Reset restores the factory calibration and dead zone of every axis.
func (s *Store) Reset() {
	for _, id := range axis.All {
		s.axes[id].Store(&record{cal: axis.DefaultCalibration(id), dz: axis.DefaultDeadZone(id)})
		s.publishChanged(id)
	}
	s.schedule()
}

func (s *Store) ControllerAddress() string {
	return s.file.ControllerAddress()
}

// SetControllerAddress remembers the last connected controller.
func (s *Store) SetControllerAddress(addr string) {
	if s.file.ControllerAddress() == addr {
		return
	}
	s.file.SetControllerAddress(addr)
	s.schedule()
}

// Import replaces the whole settings document. Every axis is validated
// before anything is changed.
func (s *Store) Import(c *config.RawFileConfig) error {
	if c == nil {
		c = &config.RawFileConfig{}
	}
	if err := c.Validate(); err != nil {
		return err
	}

	s.saveMu.Lock()
	s.file.Replace(c)
	s.adoptFile()
	s.saveMu.Unlock()

	for _, id := range axis.All {
		s.publishChanged(id)
	}
	s.schedule()
	return nil
}

// Export returns the full settings document, including values that are
// still at their defaults.
func (s *Store) Export() *config.RawFileConfig {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.syncFile()
	c, err := config.NewRawFileConfigFromConfig(s.file)
	if err != nil {
		return &config.RawFileConfig{}
	}
	return c
}

// syncFile copies the live records into the settings file. saveMu must be
// held.
func (s *Store) syncFile() {
	for _, id := range axis.All {
		r := s.axes[id].Load()
		s.file.SetAxis(r.cal, r.dz)
	}
}

// Save writes the settings file synchronously.
func (s *Store) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.pending.Store(false)
	s.syncFile()
	if err := s.file.Save(); err != nil {
		// Try again on the next change.
		s.pending.Store(true)
		return &StorageError{Op: "save", Path: s.file.Path(), Err: err}
	}
	return nil
}

// Flush saves immediately if there are unsaved changes.
func (s *Store) Flush() error {
	if !s.pending.Load() {
		return nil
	}
	return s.Save()
}

// Close stops the background saver and writes any pending change.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)
	s.wg.Wait()
	return s.Flush()
}

func (s *Store) schedule() {
	s.pending.Store(true)
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Store) saver() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.dirty:
			if !s.pending.Load() {
				continue
			}
			if err := s.Save(); err != nil {
				s.warn(err)
			}
		}
	}
}

func (s *Store) warn(err error) {
	logrus.WithError(err).Warn("settings storage problem")

	var se *StorageError
	if !errors.As(err, &se) {
		se = &StorageError{Op: "save", Path: s.file.Path(), Err: err}
	}
	if s.pub != nil {
		s.pub.Publish(events.StorageWarning, events.StorageWarningEvent{
			Op:    se.Op,
			Path:  se.Path,
			Error: se.Err.Error(),
			Ts:    time.Now().Unix(),
		})
	}
}

func (s *Store) publishChanged(id axis.ID) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(events.CalibrationChanged, events.CalibrationChangedEvent{
		Axis: string(id),
		Ts:   time.Now().Unix(),
	})
}
