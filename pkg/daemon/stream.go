package daemon

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	keepAliveInterval    = 15 * time.Second
	defaultInputInterval = 50 * time.Millisecond
	minInputInterval     = 10 * time.Millisecond
	writeTimeout         = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	// Only local clients can reach the unix socket.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamEvents sends hub events as server-sent events until the client
// goes away. ?events=a,b limits the stream to those event names.
func (s *Server) streamEvents(c *gin.Context) {
	var names []string
	if v := c.Query("events"); v != "" {
		names = strings.Split(v, ",")
	}
	sub := s.hub.Subscribe(names...)
	defer s.hub.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	logrus.Debug("event subscriber connected")
	defer logrus.Debug("event subscriber disconnected")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-keepAlive.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		}
	})
}

// streamInput pushes an input frame over a websocket at a fixed interval.
func (s *Server) streamInput(c *gin.Context) {
	interval := defaultInputInterval
	if v := c.Query("interval"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		interval = max(time.Duration(ms)*time.Millisecond, minInputInterval)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Reading is only needed to notice the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon shutting down"),
				time.Now().Add(writeTimeout))
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(s.Input()); err != nil {
				logrus.WithError(err).Debug("input stream closed")
				return
			}
		}
	}
}
