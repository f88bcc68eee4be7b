package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/ble"
	"github.com/nsogc/gcbridge/pkg/calibration"
	"github.com/nsogc/gcbridge/pkg/events"
	"github.com/nsogc/gcbridge/pkg/gamepad"
	"github.com/nsogc/gcbridge/pkg/pipeline"
	"github.com/nsogc/gcbridge/pkg/store"
	"github.com/nsogc/gcbridge/pkg/types"
)

type fakeSource struct {
	addr   string
	events chan pipeline.Event
	lost   chan error

	mu     sync.Mutex
	closed bool
}

func newFakeSource(addr string) *fakeSource {
	return &fakeSource{
		addr:   addr,
		events: make(chan pipeline.Event),
		lost:   make(chan error, 1),
	}
}

func (f *fakeSource) Listen(ctx context.Context, handle func(pipeline.Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-f.lost:
			return err
		case ev := <-f.events:
			handle(ev)
		}
	}
}

func (f *fakeSource) Address() string { return f.addr }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeTransport struct {
	mu         sync.Mutex
	devices    []ble.Device
	source     *fakeSource
	connectErr error
	addrs      []string
}

func (f *fakeTransport) Scan(context.Context, time.Duration) ([]ble.Device, error) {
	return f.devices, nil
}

func (f *fakeTransport) Connect(_ context.Context, addr string) (pipeline.SampleSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addrs = append(f.addrs, addr)
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f.source, nil
}

func (f *fakeTransport) connectedTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.addrs...)
}

type fakeSink struct {
	mu       sync.Mutex
	startErr error
	started  int
	stopped  int
	frames   []gamepad.State
}

func (f *fakeSink) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	return nil
}

func (f *fakeSink) Update(s gamepad.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, s)
	return nil
}

func (f *fakeSink) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

func (f *fakeSink) counts() (started, stopped, frames int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.stopped, len(f.frames)
}

type testEnv struct {
	server    *Server
	router    *gin.Engine
	store     *store.Store
	hub       *events.EventHub
	transport *fakeTransport
	source    *fakeSource
	sink      *fakeSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hub := events.NewEventHub()
	st := store.Open(filepath.Join(t.TempDir(), "settings.json"), hub)
	src := newFakeSource("AA:BB:CC:DD:EE:FF")
	tr := &fakeTransport{
		devices: []ble.Device{{Address: src.addr, Name: "Nintendo GameCube Controller", RSSI: -50}},
		source:  src,
	}
	sink := &fakeSink{}

	s := NewServer(Options{
		Store:     st,
		Hub:       hub,
		Transport: tr,
		NewSink:   func() pipeline.ControllerSink { return sink },
	})
	t.Cleanup(func() { _ = s.Close() })

	return &testEnv{
		server:    s,
		router:    setupRoutes(s),
		store:     st,
		hub:       hub,
		transport: tr,
		source:    src,
		sink:      sink,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, path, nil)
	} else {
		var b []byte
		switch v := body.(type) {
		case string:
			b = []byte(v)
		default:
			var err error
			b, err = json.Marshal(v)
			if err != nil {
				t.Fatal(err)
			}
		}
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func (e *testEnv) connect(t *testing.T) {
	t.Helper()
	if w := e.do(t, "POST", "/connect", nil); w.Code != http.StatusCreated {
		t.Fatalf("connect: got %d: %s", w.Code, w.Body.String())
	}
}

// sendReport pushes one complete report and waits until it was handled.
func (e *testEnv) sendReport(t *testing.T, evs ...pipeline.Event) {
	t.Helper()
	before := e.server.Status().Packets
	for _, ev := range append(evs, pipeline.SyncEvent()) {
		e.source.events <- ev
	}
	waitFor(t, func() bool { return e.server.Status().Packets > before })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestStatusAndVersion(t *testing.T) {
	e := newTestEnv(t)

	if w := e.do(t, "GET", "/version", nil); w.Code != http.StatusOK {
		t.Errorf("GET /version = %d", w.Code)
	}

	w := e.do(t, "GET", "/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /status = %d", w.Code)
	}
	st := decode[types.Status](t, w)
	if st.Connected || st.Emulating {
		t.Errorf("fresh daemon reports %+v", st)
	}
	if st.Wizard.Step != calibration.StepIdle {
		t.Errorf("wizard step = %s, want Idle", st.Wizard.Step)
	}

	if w := e.do(t, "GET", "/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown route = %d, want 404", w.Code)
	}
}

func TestSetCalibration(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"valid stick", "/calibration/left_x", `{"rawMin":100,"rawCenter":2000,"rawMax":3900}`, http.StatusCreated},
		{"alias", "/calibration/cy", `{"rawMin":40,"rawCenter":128,"rawMax":220}`, http.StatusCreated},
		{"trigger min equals center", "/calibration/l_trigger", `{"rawMin":20,"rawCenter":20,"rawMax":200}`, http.StatusCreated},
		{"stick min equals center", "/calibration/left_y", `{"rawMin":128,"rawCenter":128,"rawMax":200}`, http.StatusBadRequest},
		{"reversed", "/calibration/c_x", `{"rawMin":3000,"rawCenter":2000,"rawMax":1000}`, http.StatusBadRequest},
		{"unknown axis", "/calibration/z_axis", `{"rawMin":1,"rawCenter":2,"rawMax":3}`, http.StatusBadRequest},
		{"bad json", "/calibration/left_x", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			w := e.do(t, "PUT", tt.path, tt.body)
			if w.Code != tt.want {
				t.Fatalf("got %d: %s, want %d", w.Code, w.Body.String(), tt.want)
			}
		})
	}
}

func TestRejectedCalibrationLeavesStoreUnchanged(t *testing.T) {
	e := newTestEnv(t)
	before := e.store.Calibration(axis.LeftX)

	w := e.do(t, "PUT", "/calibration/left_x", `{"rawMin":10,"rawCenter":5,"rawMax":20}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", w.Code)
	}
	if got := e.store.Calibration(axis.LeftX); got != before {
		t.Errorf("calibration changed to %+v", got)
	}
}

func TestGetCalibrationListsEveryAxis(t *testing.T) {
	e := newTestEnv(t)
	got := decode[[]types.AxisSettings](t, e.do(t, "GET", "/calibration", nil))
	if len(got) != len(axis.All) {
		t.Fatalf("got %d axes, want %d", len(got), len(axis.All))
	}
	for i, id := range axis.All {
		if got[i].Calibration != axis.DefaultCalibration(id) {
			t.Errorf("%s: got %+v", id, got[i].Calibration)
		}
	}
}

func TestSetDeadZoneGroup(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, "PUT", "/deadzone/triggers", types.DeadZoneRequest{Threshold: 0.1})
	if w.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	for _, id := range []axis.ID{axis.LTrigger, axis.RTrigger} {
		if got := e.store.DeadZone(id).Threshold; got != 0.1 {
			t.Errorf("%s dead zone = %g, want 0.1", id, got)
		}
	}
	if got := e.store.DeadZone(axis.LeftX); got != axis.DefaultDeadZone(axis.LeftX) {
		t.Errorf("left_x changed to %+v", got)
	}

	w = e.do(t, "PUT", "/deadzone/left_stick", types.DeadZoneRequest{Threshold: 1})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("threshold 1: got %d, want 400", w.Code)
	}
	if got := e.store.DeadZone(axis.LeftY); got != axis.DefaultDeadZone(axis.LeftY) {
		t.Errorf("left_y changed to %+v", got)
	}

	if w := e.do(t, "PUT", "/deadzone/sideways", types.DeadZoneRequest{Threshold: 0.1}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown group: got %d, want 400", w.Code)
	}
}

func TestResetCalibration(t *testing.T) {
	e := newTestEnv(t)
	if err := e.store.SetCalibration(axis.Calibration{Axis: axis.CX, RawMin: 1, RawCenter: 2, RawMax: 3}); err != nil {
		t.Fatal(err)
	}

	if w := e.do(t, "POST", "/calibration/reset", nil); w.Code != http.StatusCreated {
		t.Fatalf("got %d", w.Code)
	}
	if got := e.store.Calibration(axis.CX); got != axis.DefaultCalibration(axis.CX) {
		t.Errorf("c_x = %+v after reset", got)
	}
}

func TestWizardOverHTTP(t *testing.T) {
	e := newTestEnv(t)

	if w := e.do(t, "POST", "/wizard/capture", types.CaptureRequest{Value: ptr(1)}); w.Code != http.StatusConflict {
		t.Fatalf("capture while idle: got %d, want 409", w.Code)
	}

	w := e.do(t, "POST", "/wizard/start", types.StartWizardRequest{Axis: "left_x"})
	if w.Code != http.StatusCreated {
		t.Fatalf("start: got %d: %s", w.Code, w.Body.String())
	}
	if st := decode[calibration.Status](t, w); st.Step != calibration.StepAwaitMin {
		t.Fatalf("step = %s, want AwaitMin", st.Step)
	}

	if w := e.do(t, "POST", "/wizard/start", types.StartWizardRequest{Axis: "c_x"}); w.Code != http.StatusConflict {
		t.Fatalf("second start: got %d, want 409", w.Code)
	}

	var st calibration.Status
	for _, v := range []int{150, 2050, 3950} {
		w := e.do(t, "POST", "/wizard/capture", types.CaptureRequest{Value: ptr(v)})
		if w.Code != http.StatusCreated {
			t.Fatalf("capture %d: got %d: %s", v, w.Code, w.Body.String())
		}
		st = decode[calibration.Status](t, w)
	}
	if st.Step != calibration.StepDone {
		t.Fatalf("step = %s, want Done", st.Step)
	}

	want := axis.Calibration{Axis: axis.LeftX, RawMin: 150, RawCenter: 2050, RawMax: 3950}
	if got := e.store.Calibration(axis.LeftX); got != want {
		t.Errorf("stored %+v, want %+v", got, want)
	}
}

func TestWizardInvalidCaptureCancels(t *testing.T) {
	e := newTestEnv(t)
	before := e.store.Calibration(axis.CY)

	e.do(t, "POST", "/wizard/start", types.StartWizardRequest{Axis: "c_y"})
	e.do(t, "POST", "/wizard/capture", types.CaptureRequest{Value: ptr(10)})
	e.do(t, "POST", "/wizard/capture", types.CaptureRequest{Value: ptr(10)})
	w := e.do(t, "POST", "/wizard/capture", types.CaptureRequest{Value: ptr(200)})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", w.Code)
	}
	if got := e.server.wizard.Status().Step; got != calibration.StepCancelled {
		t.Errorf("step = %s, want Cancelled", got)
	}
	if got := e.store.Calibration(axis.CY); got != before {
		t.Errorf("store changed to %+v", got)
	}
}

func TestCaptureUsesRecentSamples(t *testing.T) {
	e := newTestEnv(t)

	e.do(t, "POST", "/wizard/start", types.StartWizardRequest{Axis: "l_trigger"})
	if w := e.do(t, "POST", "/wizard/capture", nil); w.Code != http.StatusConflict {
		t.Fatalf("capture without controller: got %d, want 409", w.Code)
	}

	e.connect(t)
	if w := e.do(t, "POST", "/wizard/capture", nil); w.Code != http.StatusConflict {
		t.Fatalf("capture without samples: got %d, want 409", w.Code)
	}

	e.sendReport(t, pipeline.AxisEvent(axis.LTrigger, 30))
	e.sendReport(t, pipeline.AxisEvent(axis.LTrigger, 33))

	w := e.do(t, "POST", "/wizard/capture", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("capture: got %d: %s", w.Code, w.Body.String())
	}
	st := decode[calibration.Status](t, w)
	if st.Captured.Center == nil || *st.Captured.Center != 32 {
		t.Errorf("captured %+v, want center 32", st.Captured)
	}
}

func TestCaptureWindowRestartsEachStep(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t)

	capture := func(t *testing.T) calibration.Status {
		t.Helper()
		w := e.do(t, "POST", "/wizard/capture", nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("capture: got %d: %s", w.Code, w.Body.String())
		}
		return decode[calibration.Status](t, w)
	}

	// Samples from before the session must not leak into the first step.
	for i := 0; i < pipeline.WindowSize; i++ {
		e.sendReport(t, pipeline.AxisEvent(axis.LeftX, 3000))
	}
	if w := e.do(t, "POST", "/wizard/start", types.StartWizardRequest{Axis: "left_x"}); w.Code != http.StatusCreated {
		t.Fatalf("start: got %d: %s", w.Code, w.Body.String())
	}
	if w := e.do(t, "POST", "/wizard/capture", nil); w.Code != http.StatusConflict {
		t.Fatalf("capture right after start: got %d, want 409", w.Code)
	}

	for i := 0; i < pipeline.WindowSize; i++ {
		e.sendReport(t, pipeline.AxisEvent(axis.LeftX, 200))
	}
	if st := capture(t); st.Captured.Min == nil || *st.Captured.Min != 200 {
		t.Fatalf("captured %+v, want min 200", st.Captured)
	}

	e.sendReport(t, pipeline.AxisEvent(axis.LeftX, 2048))
	e.sendReport(t, pipeline.AxisEvent(axis.LeftX, 2048))
	if st := capture(t); st.Captured.Center == nil || *st.Captured.Center != 2048 {
		t.Fatalf("captured %+v, want center 2048", st.Captured)
	}

	if w := e.do(t, "POST", "/wizard/retake", nil); w.Code != http.StatusCreated {
		t.Fatalf("retake: got %d", w.Code)
	}
	e.sendReport(t, pipeline.AxisEvent(axis.LeftX, 2050))
	if st := capture(t); st.Captured.Center == nil || *st.Captured.Center != 2050 {
		t.Errorf("captured %+v, want retaken center 2050", st.Captured)
	}
}

func TestConnectUsesSavedAddress(t *testing.T) {
	e := newTestEnv(t)
	e.store.SetControllerAddress("11:22:33:44:55:66")

	e.connect(t)
	if got := e.transport.connectedTo(); len(got) != 1 || got[0] != "11:22:33:44:55:66" {
		t.Errorf("connected to %v", got)
	}
	if got := e.store.ControllerAddress(); got != e.source.addr {
		t.Errorf("saved address = %q, want %q", got, e.source.addr)
	}

	if w := e.do(t, "POST", "/connect", nil); w.Code != http.StatusConflict {
		t.Errorf("second connect: got %d, want 409", w.Code)
	}

	if w := e.do(t, "POST", "/disconnect", nil); w.Code != http.StatusCreated {
		t.Fatalf("disconnect: got %d", w.Code)
	}
	if !e.source.isClosed() {
		t.Error("source not closed")
	}
	if w := e.do(t, "POST", "/disconnect", nil); w.Code != http.StatusConflict {
		t.Errorf("second disconnect: got %d, want 409", w.Code)
	}
}

func TestConnectErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ble.ErrNotFound, http.StatusNotFound},
		{ble.ErrNoInput, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("adapter off"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		e := newTestEnv(t)
		e.transport.connectErr = tt.err
		if w := e.do(t, "POST", "/connect", types.ConnectRequest{Address: "x"}); w.Code != tt.want {
			t.Errorf("%v: got %d, want %d", tt.err, w.Code, tt.want)
		}
		if st := e.server.Status(); st.Connected || st.LastError == "" {
			t.Errorf("%v: status %+v", tt.err, st)
		}
	}
}

func TestScan(t *testing.T) {
	e := newTestEnv(t)
	got := decode[[]ble.Device](t, e.do(t, "GET", "/scan?timeout=0.5", nil))
	if len(got) != 1 || got[0].Address != e.source.addr {
		t.Errorf("scan = %+v", got)
	}
	if w := e.do(t, "GET", "/scan?timeout=-1", nil); w.Code != http.StatusBadRequest {
		t.Errorf("negative timeout: got %d, want 400", w.Code)
	}
}

func TestEmulationLifecycle(t *testing.T) {
	e := newTestEnv(t)

	if w := e.do(t, "POST", "/emulation/start", nil); w.Code != http.StatusConflict {
		t.Fatalf("start without controller: got %d, want 409", w.Code)
	}

	e.connect(t)
	if w := e.do(t, "POST", "/emulation/start", nil); w.Code != http.StatusCreated {
		t.Fatalf("start: got %d: %s", w.Code, w.Body.String())
	}
	// Starting twice keeps the running emulation.
	e.do(t, "POST", "/emulation/start", nil)

	e.sendReport(t, pipeline.AxisEvent(axis.LeftX, 3848), pipeline.ButtonEvent(gamepad.A, true))
	waitFor(t, func() bool {
		_, _, n := e.sink.counts()
		return n > 0
	})

	e.sink.mu.Lock()
	last := e.sink.frames[len(e.sink.frames)-1]
	e.sink.mu.Unlock()
	if last.LeftX != 1 || !last.Buttons.Has(gamepad.A) {
		t.Errorf("forwarded %+v", last)
	}

	if w := e.do(t, "POST", "/emulation/stop", nil); w.Code != http.StatusCreated {
		t.Fatalf("stop: got %d", w.Code)
	}
	started, stopped, _ := e.sink.counts()
	if started != 1 || stopped != 1 {
		t.Errorf("sink started %d stopped %d, want 1/1", started, stopped)
	}
	if st := e.server.Status(); st.Emulating || st.Forwarded == 0 {
		t.Errorf("status after stop %+v", st)
	}
}

func TestEmulationDriverUnavailable(t *testing.T) {
	e := newTestEnv(t)
	e.sink.startErr = fmt.Errorf("%w: install ViGEmBus", pipeline.ErrDriverUnavailable)
	e.connect(t)

	w := e.do(t, "POST", "/emulation/start", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ViGEmBus") {
		t.Errorf("body lacks guidance: %s", w.Body.String())
	}
	if e.server.Status().Emulating {
		t.Error("emulation reported running")
	}
}

func TestTransportLossStopsEmulation(t *testing.T) {
	e := newTestEnv(t)
	sub := e.hub.Subscribe()
	defer e.hub.Unsubscribe(sub)

	e.connect(t)
	e.do(t, "POST", "/emulation/start", nil)

	e.source.lost <- fmt.Errorf("%w: device disconnected", pipeline.ErrTransport)
	waitFor(t, func() bool {
		st := e.server.Status()
		return !st.Connected && !st.Emulating
	})

	if _, stopped, _ := e.sink.counts(); stopped != 1 {
		t.Errorf("sink stopped %d times, want 1", stopped)
	}
	if st := e.server.Status(); !strings.Contains(st.LastError, "device disconnected") {
		t.Errorf("last error = %q", st.LastError)
	}

	var sawLost bool
	timeout := time.After(time.Second)
	for !sawLost {
		select {
		case ev := <-sub.C:
			if ev.Name != events.ConnectionState {
				continue
			}
			p, err := events.DecodeAs[events.ConnectionStateEvent](ev)
			if err != nil {
				t.Fatal(err)
			}
			sawLost = !p.Connected && p.Error != ""
		case <-timeout:
			t.Fatal("no connection.state event for the lost controller")
		}
	}
}

func TestConfigImportExport(t *testing.T) {
	e := newTestEnv(t)

	doc := decode[map[string]any](t, e.do(t, "GET", "/config", nil))
	if _, ok := doc["axes"]; !ok {
		t.Fatalf("export lacks axes: %v", doc)
	}

	bad := `{"axes":{"c_x":{"rawMin":10,"rawCenter":5,"rawMax":20}}}`
	if w := e.do(t, "PUT", "/config", bad); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid import: got %d, want 400", w.Code)
	}
	if got := e.store.Calibration(axis.CX); got != axis.DefaultCalibration(axis.CX) {
		t.Errorf("invalid import changed c_x to %+v", got)
	}

	if w := e.do(t, "PUT", "/config", `not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("garbage import: got %d, want 400", w.Code)
	}

	good := `{"axes":{"c_x":{"rawMin":300,"rawCenter":2000,"rawMax":3800,"deadZone":0.2}}}`
	if w := e.do(t, "PUT", "/config", good); w.Code != http.StatusCreated {
		t.Fatalf("import: got %d: %s", w.Code, w.Body.String())
	}
	cal, dz := e.store.Axis(axis.CX)
	if cal.RawMin != 300 || cal.RawMax != 3800 || dz.Threshold != 0.2 {
		t.Errorf("imported %+v %+v", cal, dz)
	}
}

func TestInputWithoutController(t *testing.T) {
	e := newTestEnv(t)
	frame := decode[types.InputFrame](t, e.do(t, "GET", "/input", nil))
	if frame.Connected {
		t.Error("input reports a controller")
	}
}

func TestEventStream(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		resp *http.Response
		err  error
	}
	respCh := make(chan result, 1)
	go func() {
		req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events", nil)
		resp, err := http.DefaultClient.Do(req)
		respCh <- result{resp, err}
	}()

	waitFor(t, func() bool { return e.hub.Subscribers() == 1 })
	if _, err := e.server.wizard.Start(axis.RTrigger); err != nil {
		t.Fatal(err)
	}

	res := <-respCh
	if res.err != nil {
		t.Fatal(res.err)
	}
	defer res.resp.Body.Close()

	sc := bufio.NewScanner(res.resp.Body)
	var name, data string
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "event:"); ok {
			name = v
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok {
			data = v
			break
		}
	}
	if name != events.WizardStep {
		t.Fatalf("event name = %q, want %q", name, events.WizardStep)
	}
	p, err := events.DecodeAs[events.WizardStepEvent](events.Event{Name: name, Data: json.RawMessage(data)})
	if err != nil {
		t.Fatal(err)
	}
	if p.Axis != string(axis.RTrigger) || p.To != string(calibration.StepAwaitCenter) {
		t.Errorf("payload %+v", p)
	}
}

func TestInputWebSocket(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	e.connect(t)
	e.sendReport(t, pipeline.AxisEvent(axis.CX, 2048))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/input?interval=10"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	var frame types.InputFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatal(err)
	}
	if !frame.Connected || frame.Raw.Axes[axis.CX] != 2048 {
		t.Errorf("frame %+v", frame)
	}
	if frame.Mapped.RightX != 0 {
		t.Errorf("centered c stick mapped to %g", frame.Mapped.RightX)
	}
}

func ptr(v int) *int { return &v }
