// Package ble connects to NSO GameCube controllers over Bluetooth Low
// Energy and turns their input reports into pipeline events.
package ble

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/nsogc/gcbridge/pkg/protocol"
)

const (
	DefaultScanTimeout    = 5 * time.Second
	DefaultFindTimeout    = 10 * time.Second
	DefaultConnectTimeout = 20 * time.Second
)

var (
	ErrNotFound        = errors.New("controller not found")
	ErrNoInput         = errors.New("input characteristic not found")
	ErrAlreadyScanning = errors.New("a scan is already running")
)

// Device is a controller seen during a scan.
type Device struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	RSSI    int16  `json:"rssi"`
}

// Transport owns the host Bluetooth adapter.
type Transport struct {
	adapter *bluetooth.Adapter

	enableOnce sync.Once
	enableErr  error

	// scanMu serialises scans; the adapter runs one at a time.
	scanMu sync.Mutex

	mu      sync.Mutex
	sources map[string]*Source
}

func NewTransport() *Transport {
	return &Transport{
		adapter: bluetooth.DefaultAdapter,
		sources: make(map[string]*Source),
	}
}

func (t *Transport) enable() error {
	t.enableOnce.Do(func() {
		if err := t.adapter.Enable(); err != nil {
			t.enableErr = pkgerrors.Wrap(err, "failed to enable bluetooth adapter")
			return
		}
		t.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
			addr := device.Address.String()
			logrus.WithFields(logrus.Fields{
				"address":   addr,
				"connected": connected,
			}).Debug("bluetooth connection changed")
			if connected {
				return
			}
			t.mu.Lock()
			s := t.sources[normalize(addr)]
			t.mu.Unlock()
			if s != nil {
				s.lose(errors.New("device disconnected"))
			}
		})
	})
	return t.enableErr
}

// Scan lists nearby controllers for timeout or until ctx is done.
func (t *Transport) Scan(ctx context.Context, timeout time.Duration) ([]Device, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}

	var (
		mu      sync.Mutex
		found   []Device
		indexOf = map[string]int{}
	)
	err := t.scan(ctx, timeout, func(r bluetooth.ScanResult) bool {
		name := r.LocalName()
		if !strings.Contains(name, protocol.DeviceNameFilter) {
			return false
		}
		d := Device{Address: r.Address.String(), Name: name, RSSI: r.RSSI}
		mu.Lock()
		if i, ok := indexOf[d.Address]; ok {
			found[i] = d
		} else {
			indexOf[d.Address] = len(found)
			found = append(found, d)
			logrus.WithFields(logrus.Fields{
				"address": d.Address,
				"name":    d.Name,
				"rssi":    d.RSSI,
			}).Info("found controller")
		}
		mu.Unlock()
		return false
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return found, nil
}

// scan runs the adapter scan until match returns true, timeout passes or
// ctx is done.
func (t *Transport) scan(ctx context.Context, timeout time.Duration, match func(bluetooth.ScanResult) bool) error {
	if err := t.enable(); err != nil {
		return err
	}
	if !t.scanMu.TryLock() {
		return ErrAlreadyScanning
	}
	defer t.scanMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- t.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
			if match(r) {
				cancel()
			}
		})
	}()

	select {
	case err := <-errCh:
		// The scan ended on its own.
		if err != nil {
			return pkgerrors.Wrap(err, "bluetooth scan failed")
		}
		return nil
	case <-ctx.Done():
	}

	if err := t.adapter.StopScan(); err != nil {
		logrus.WithError(err).Warn("failed to stop bluetooth scan")
	}
	if err := <-errCh; err != nil {
		return pkgerrors.Wrap(err, "bluetooth scan failed")
	}
	return nil
}

// find resolves addr to a scan result. An empty addr matches the first
// controller seen.
func (t *Transport) find(ctx context.Context, addr string) (bluetooth.ScanResult, error) {
	var (
		mu     sync.Mutex
		result *bluetooth.ScanResult
	)
	err := t.scan(ctx, DefaultFindTimeout, func(r bluetooth.ScanResult) bool {
		if addr == "" {
			if !strings.Contains(r.LocalName(), protocol.DeviceNameFilter) {
				return false
			}
		} else if normalize(r.Address.String()) != normalize(addr) {
			return false
		}
		mu.Lock()
		defer mu.Unlock()
		if result == nil {
			r := r
			result = &r
		}
		return true
	})
	if err != nil {
		return bluetooth.ScanResult{}, err
	}

	mu.Lock()
	defer mu.Unlock()
	if result == nil {
		if addr == "" {
			return bluetooth.ScanResult{}, pkgerrors.Wrap(ErrNotFound, "no controller in range")
		}
		return bluetooth.ScanResult{}, pkgerrors.Wrapf(ErrNotFound, "no controller with address %s", addr)
	}
	return *result, nil
}

// Connect connects to the controller at addr and subscribes to its input
// reports. An empty addr connects to the first controller found.
func (t *Transport) Connect(ctx context.Context, addr string) (*Source, error) {
	r, err := t.find(ctx, addr)
	if err != nil {
		return nil, err
	}
	addr = r.Address.String()

	log := logrus.WithField("address", addr)
	log.Info("connecting to controller")

	ctx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()

	type result struct {
		dev bluetooth.Device
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		dev, err := t.adapter.Connect(r.Address, bluetooth.ConnectionParams{})
		resCh <- result{dev, err}
	}()

	var dev bluetooth.Device
	select {
	case res := <-resCh:
		if res.err != nil {
			return nil, pkgerrors.Wrapf(res.err, "failed to connect to %s", addr)
		}
		dev = res.dev
	case <-ctx.Done():
		go func() {
			// Drop a connection that completes after we gave up.
			if res := <-resCh; res.err == nil {
				_ = res.dev.Disconnect()
			}
		}()
		return nil, pkgerrors.Wrapf(ctx.Err(), "timed out connecting to %s", addr)
	}

	char, err := inputCharacteristic(dev)
	if err != nil {
		_ = dev.Disconnect()
		return nil, err
	}

	s := newSource(t, dev, char, addr)
	t.mu.Lock()
	t.sources[normalize(addr)] = s
	t.mu.Unlock()

	log.Info("controller connected")
	return s, nil
}

func (t *Transport) forget(s *Source) {
	t.mu.Lock()
	if t.sources[normalize(s.addr)] == s {
		delete(t.sources, normalize(s.addr))
	}
	t.mu.Unlock()
}

func inputCharacteristic(dev bluetooth.Device) (bluetooth.DeviceCharacteristic, error) {
	want, err := bluetooth.ParseUUID(protocol.InputCharacteristic)
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, pkgerrors.Wrap(err, "invalid input characteristic UUID")
	}

	services, err := dev.DiscoverServices(nil)
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, pkgerrors.Wrap(err, "failed to discover services")
	}
	for _, svc := range services {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			logrus.WithError(err).WithField("service", svc.UUID().String()).Debug("failed to discover characteristics")
			continue
		}
		for _, c := range chars {
			if c.UUID() == want {
				return c, nil
			}
		}
	}
	return bluetooth.DeviceCharacteristic{}, ErrNoInput
}

func normalize(addr string) string {
	return strings.ToUpper(strings.TrimSpace(addr))
}
