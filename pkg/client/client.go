package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/events"
	"github.com/nsogc/gcbridge/pkg/types"
)

// Client is a struct for communicating with the gcbridge daemon
type Client struct {
	socketPath string
	httpClient *http.Client
}

// NewClient is a constructor for creating a new Client
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return dialUnix(ctx, socketPath)
				},
			},
		},
	}
}

func dialUnix(ctx context.Context, socketPath string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDaemonNotRunning
		}
		if os.IsPermission(err) {
			return nil, ErrPermissionDenied
		}
		logrus.Errorf("failed to connect to unix socket: %v", err)
		return nil, err
	}
	return conn, nil
}

// Send is a method for sending a request to the daemon
func (c *Client) Send(method string, path string, data string) (string, error) {
	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"data":   data,
		"unix":   c.socketPath,
	}).Debug("sending request")

	var body io.Reader
	if data != "" {
		body = strings.NewReader(data)
	}
	req, err := http.NewRequest(method, "http://unix"+path, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if data != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: unquote(b)}
	}

	return string(b), nil
}

// Get is a method for sending a GET request to the daemon
func (c *Client) Get(path string) (string, error) {
	return c.Send("GET", path, "")
}

// Put is a method for sending a PUT request to the daemon
func (c *Client) Put(path string, data string) (string, error) {
	return c.Send("PUT", path, data)
}

// Post is a method for sending a POST request to the daemon
func (c *Client) Post(path string, data string) (string, error) {
	return c.Send("POST", path, data)
}

// unquote turns a JSON string body into plain text. Other bodies are
// returned as they are.
func unquote(b []byte) string {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(b))
}

const eventRetryInterval = 2 * time.Second

// SubscribeEvents streams daemon events until ctx is done. The returned
// channel is closed afterwards. A lost stream is reopened.
func (c *Client) SubscribeEvents(ctx context.Context) <-chan events.Event {
	ch := make(chan events.Event, 16)
	go func() {
		defer close(ch)
		for {
			err := c.streamEvents(ctx, ch)
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).Debug("event stream ended, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(eventRetryInterval):
			}
		}
	}()
	return ch
}

func (c *Client) streamEvents(ctx context.Context, ch chan<- events.Event) error {
	req, err := http.NewRequestWithContext(ctx, "GET", "http://unix/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	return readEvents(resp.Body, func(ev events.Event) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// readEvents parses a server-sent event stream, calling emit for every
// complete event until emit returns false or r ends.
func readEvents(r io.Reader, emit func(events.Event) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	var name string
	var data []string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if name != "" || len(data) > 0 {
				ev := events.Event{Name: name, Data: json.RawMessage(strings.Join(data, "\n"))}
				if !emit(ev) {
					return nil
				}
			}
			name, data = "", nil
		case strings.HasPrefix(line, ":"):
			// Comment, used as keep-alive.
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

// WatchInput streams input frames from the daemon every interval until ctx
// is done or the daemon closes the stream.
func (c *Client) WatchInput(ctx context.Context, interval time.Duration) (<-chan types.InputFrame, error) {
	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialUnix(ctx, c.socketPath)
		},
		HandshakeTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("ws://unix/ws/input?interval=%d", interval.Milliseconds())
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return nil, err
	}

	ch := make(chan types.InputFrame, 1)
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()
	go func() {
		defer close(ch)
		defer conn.Close()
		for {
			var frame types.InputFrame
			if err := conn.ReadJSON(&frame); err != nil {
				if ctx.Err() == nil {
					logrus.WithError(err).Debug("input stream closed")
				}
				return
			}
			select {
			case ch <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
