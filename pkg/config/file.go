package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		ControllerAddress: ptr.To(""),
		AllowOtherUsers:   ptr.To(false),
		MQTT: &RawMQTT{
			Broker:     ptr.To(""),
			Topic:      ptr.To("gcbridge/state"),
			ClientID:   ptr.To("gcbridge"),
			IntervalMs: ptr.To(50),
		},
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

// NewFileFromConfig wraps an already decoded config. It is used by clients
// that receive the config from the daemon and want the defaulting accessors.
func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

// RawAxis is the persisted form of one axis. Missing fields fall back to the
// axis defaults.
type RawAxis struct {
	RawMin    *int     `json:"rawMin,omitempty"`
	RawCenter *int     `json:"rawCenter,omitempty"`
	RawMax    *int     `json:"rawMax,omitempty"`
	DeadZone  *float64 `json:"deadZone,omitempty"`
}

type RawMQTT struct {
	Broker     *string `json:"broker,omitempty"`
	Topic      *string `json:"topic,omitempty"`
	ClientID   *string `json:"clientID,omitempty"`
	IntervalMs *int    `json:"intervalMs,omitempty"`
}

type RawFileConfig struct {
	ControllerAddress *string              `json:"controllerAddress,omitempty"`
	AllowOtherUsers   *bool                `json:"allowOtherUsers,omitempty"`
	Axes              map[axis.ID]*RawAxis `json:"axes,omitempty"`
	MQTT              *RawMQTT             `json:"mqtt,omitempty"`
}

// NewRawFileConfigFromConfig builds a fully populated document from c.
func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	m := c.MQTT()
	rawConfig := &RawFileConfig{
		ControllerAddress: ptr.To(c.ControllerAddress()),
		AllowOtherUsers:   ptr.To(c.AllowOtherUsers()),
		Axes:              make(map[axis.ID]*RawAxis, len(axis.All)),
		MQTT: &RawMQTT{
			Broker:     ptr.To(m.Broker),
			Topic:      ptr.To(m.Topic),
			ClientID:   ptr.To(m.ClientID),
			IntervalMs: ptr.To(int(m.Interval / time.Millisecond)),
		},
	}
	for _, id := range axis.All {
		cal, dz := c.Axis(id)
		rawConfig.Axes[id] = NewRawAxis(cal, dz)
	}

	return rawConfig, nil
}

func NewRawAxis(cal axis.Calibration, dz axis.DeadZone) *RawAxis {
	return &RawAxis{
		RawMin:    ptr.To(cal.RawMin),
		RawCenter: ptr.To(cal.RawCenter),
		RawMax:    ptr.To(cal.RawMax),
		DeadZone:  ptr.To(dz.Threshold),
	}
}

// Resolve fills the missing fields of a with the defaults of id.
func (a *RawAxis) Resolve(id axis.ID) (axis.Calibration, axis.DeadZone) {
	cal := axis.DefaultCalibration(id)
	dz := axis.DefaultDeadZone(id)
	if a == nil {
		return cal, dz
	}
	cal.RawMin = ptr.Deref(a.RawMin, cal.RawMin)
	cal.RawCenter = ptr.Deref(a.RawCenter, cal.RawCenter)
	cal.RawMax = ptr.Deref(a.RawMax, cal.RawMax)
	dz.Threshold = ptr.Deref(a.DeadZone, dz.Threshold)
	return cal, dz
}

// Validate checks every axis present in the document. Unknown axis keys are
// ignored so that newer files still load.
func (r *RawFileConfig) Validate() error {
	for id, a := range r.Axes {
		if !id.Valid() {
			continue
		}
		cal, dz := a.Resolve(id)
		if err := cal.Validate(); err != nil {
			return err
		}
		if err := dz.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) Path() string {
	return f.filepath
}

func (f *File) ControllerAddress() string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.ControllerAddress, *defaultFileConfig.ControllerAddress)
}

func (f *File) AllowOtherUsers() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.AllowOtherUsers, *defaultFileConfig.AllowOtherUsers)
}

func (f *File) Axis(id axis.ID) (axis.Calibration, axis.DeadZone) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.c.Axes[id].Resolve(id)
}

func (f *File) MQTT() MQTTConfig {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	def := defaultFileConfig.MQTT
	m := f.c.MQTT
	if m == nil {
		m = &RawMQTT{}
	}

	return MQTTConfig{
		Broker:   ptr.Deref(m.Broker, *def.Broker),
		Topic:    ptr.Deref(m.Topic, *def.Topic),
		ClientID: ptr.Deref(m.ClientID, *def.ClientID),
		Interval: time.Duration(ptr.Deref(m.IntervalMs, *def.IntervalMs)) * time.Millisecond,
	}
}

func (f *File) SetControllerAddress(addr string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.ControllerAddress = &addr
}

func (f *File) SetAllowOtherUsers(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.AllowOtherUsers = &b
}

func (f *File) SetAxis(cal axis.Calibration, dz axis.DeadZone) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.c.Axes == nil {
		f.c.Axes = make(map[axis.ID]*RawAxis)
	}
	f.c.Axes[cal.Axis] = NewRawAxis(cal, dz)
}

// Replace swaps the whole document, e.g. after an import.
func (f *File) Replace(c *RawFileConfig) {
	if c == nil {
		c = &RawFileConfig{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c = c
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		f.c = &RawFileConfig{}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	b, err := io.ReadAll(fp)
	if err != nil {
		f.c = &RawFileConfig{}
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf, err := Decode(b)
	if err != nil {
		f.c = &RawFileConfig{}
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = conf

	return nil
}

// Save writes the config next to its destination and renames it into
// place, so a crash never leaves a truncated file behind.
func (f *File) Save() error {
	f.mu.RLock()
	if f.c == nil {
		f.mu.RUnlock()
		return pkgerrors.New("config is nil")
	}
	b, err := json.MarshalIndent(f.c, "", "  ")
	f.mu.RUnlock()
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config for file %s", f.filepath)
	}

	return writeFileAtomic(f.filepath, append(b, '\n'), 0644)
}

// Snapshot returns a deep copy of the current document.
func (f *File) Snapshot() *RawFileConfig {
	f.mu.RLock()
	defer f.mu.RUnlock()

	b, err := json.Marshal(f.c)
	if err != nil {
		return &RawFileConfig{}
	}
	c := &RawFileConfig{}
	_ = json.Unmarshal(b, c)
	return c
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	fields := logrus.Fields{
		"controllerAddress": f.ControllerAddress(),
		"allowOtherUsers":   f.AllowOtherUsers(),
		"mqttBroker":        f.MQTT().Broker,
	}
	for _, id := range axis.All {
		cal, dz := f.Axis(id)
		fields[string(id)] = []any{cal.RawMin, cal.RawCenter, cal.RawMax, dz.Threshold}
	}
	return fields
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return pkgerrors.Wrapf(err, "failed to write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return pkgerrors.Wrapf(err, "failed to sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return pkgerrors.Wrapf(err, "failed to close %s", tmpName)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return pkgerrors.Wrapf(err, "failed to chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return pkgerrors.Wrapf(err, "failed to replace %s", path)
	}

	return nil
}
