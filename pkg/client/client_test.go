package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nsogc/gcbridge/pkg/events"
)

// serveUnix serves h on a unix socket and returns its path.
func serveUnix(t *testing.T, h http.Handler) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "gcb")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, "d.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatal(err)
	}
	srv := &http.Server{Handler: h}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })
	return path
}

func TestDaemonNotRunning(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	_, err := c.GetVersion()
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("got %v, want ErrDaemonNotRunning", err)
	}
}

func TestErrorResponses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/emulation/start", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `"virtual controller driver unavailable: install ViGEmBus"`)
	})
	mux.HandleFunc("/wizard/retake", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `"calibration wizard not running"`)
	})
	c := NewClient(serveUnix(t, mux))

	tests := []struct {
		name    string
		call    func() error
		target  error
		message string
	}{
		{
			name:    "driver unavailable",
			call:    func() error { _, err := c.StartEmulation(); return err },
			target:  ErrDriverUnavailable,
			message: "install ViGEmBus",
		},
		{
			name:    "conflict",
			call:    func() error { _, err := c.Retake(); return err },
			target:  ErrConflict,
			message: "wizard not running",
		},
		{
			name:    "not found",
			call:    func() error { _, err := c.GetStatus(); return err },
			target:  ErrNotFound,
			message: "404",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, tt.target) {
				t.Fatalf("got %v, want %v", err, tt.target)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q lacks %q", err, tt.message)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Errorf("error %v is not an APIError", err)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `"v1.2.3"`)
	})
	c := NewClient(serveUnix(t, mux))

	v, err := c.GetVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != "v1.2.3" {
		t.Errorf("version = %q", v)
	}
}

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"",
		"event:wizard.step",
		`data:{"axis":"left_x","from":"Idle","to":"AwaitMin","ts":1}`,
		"",
		"event: emulation.state",
		`data: {"running":true,"ts":2}`,
		"",
	}, "\n")

	var got []events.Event
	err := readEvents(strings.NewReader(stream), func(ev events.Event) bool {
		got = append(got, ev)
		return true
	})
	if err == nil {
		t.Fatal("expected the end of the stream to be reported")
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}

	step, err := events.DecodeAs[events.WizardStepEvent](got[0])
	if err != nil || got[0].Name != events.WizardStep || step.To != "AwaitMin" {
		t.Errorf("first event %s %+v %v", got[0].Name, step, err)
	}
	emu, err := events.DecodeAs[events.EmulationStateEvent](got[1])
	if err != nil || got[1].Name != events.EmulationState || !emu.Running {
		t.Errorf("second event %s %+v %v", got[1].Name, emu, err)
	}
}

func TestSubscribeEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event:connection.state\ndata:{\"connected\":true,\"address\":\"AA\",\"ts\":1}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	c := NewClient(serveUnix(t, mux))

	ctx, cancel := context.WithCancel(context.Background())
	ch := c.SubscribeEvents(ctx)

	select {
	case ev := <-ch:
		p, err := events.DecodeAs[events.ConnectionStateEvent](ev)
		if err != nil || !p.Connected || p.Address != "AA" {
			t.Errorf("event %+v %v", p, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
