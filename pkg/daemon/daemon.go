package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/ble"
	"github.com/nsogc/gcbridge/pkg/events"
	"github.com/nsogc/gcbridge/pkg/mirror"
	"github.com/nsogc/gcbridge/pkg/pipeline"
	"github.com/nsogc/gcbridge/pkg/store"
	"github.com/nsogc/gcbridge/pkg/vigem"
)

func setupRoutes(s *Server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.NoRoute(s.notFound)

	router.GET("/version", s.getVersion)
	router.GET("/status", s.getStatus)
	router.GET("/config", s.getConfig)
	router.PUT("/config", s.setConfig)

	router.GET("/calibration", s.getCalibration)
	router.PUT("/calibration/:axis", s.setCalibration)
	router.POST("/calibration/reset", s.resetCalibration)
	router.GET("/deadzone", s.getDeadZone)
	router.PUT("/deadzone/:axis", s.setDeadZone)

	router.GET("/wizard", s.getWizard)
	router.POST("/wizard/start", s.startWizard)
	router.POST("/wizard/capture", s.captureWizard)
	router.POST("/wizard/retake", s.retakeWizard)
	router.POST("/wizard/cancel", s.cancelWizard)

	router.GET("/scan", s.scan)
	router.POST("/connect", s.connect)
	router.POST("/disconnect", s.disconnect)
	router.POST("/emulation/start", s.startEmulation)
	router.POST("/emulation/stop", s.stopEmulation)

	router.GET("/input", s.getInput)
	router.GET("/events", s.streamEvents)
	router.GET("/ws/input", s.streamInput)

	return router
}

func Run(configPath string, unixSocketPath string, allowOtherUsers bool) error {
	hub := events.NewEventHub()
	st := store.Open(configPath, hub)
	conf := st.Config()
	logrus.WithFields(conf.LogrusFields()).Infof("settings loaded from %s", configPath)

	var observers []pipeline.Observer
	if m := conf.MQTT(); m.Enabled() {
		mir, err := mirror.Dial(m)
		if err != nil {
			logrus.WithError(err).Warn("MQTT mirror disabled")
		} else {
			defer mir.Close()
			observers = append(observers, mir)
		}
	}

	s := NewServer(Options{
		Store:     st,
		Hub:       hub,
		Transport: bleTransport{t: ble.NewTransport()},
		NewSink:   newVirtualController,
		Observers: observers,
	})
	router := setupRoutes(s)

	// Receive SIGHUP to reload settings
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			st.Load()
			logrus.Infof("settings reloaded")
		}
	}()

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	srv := &http.Server{
		Handler:     router,
		// Streaming handlers end when the daemon shuts down.
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}

	if err := os.MkdirAll(filepath.Dir(unixSocketPath), 0755); err != nil {
		return err
	}
	removeStaleSocket(unixSocketPath)

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return err
	}

	if conf.AllowOtherUsers() || allowOtherUsers {
		logrus.Infof("other users are allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("shutting down http server")
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("releasing controller and saving settings")
	if err := s.Close(); err != nil {
		logrus.Errorf("failed to save settings before exiting: %v", err)
	}

	logrus.Info("exiting")
	return nil
}

func newVirtualController() pipeline.ControllerSink {
	return vigem.New()
}

// removeStaleSocket deletes a socket file left behind by a daemon that did
// not shut down cleanly.
func removeStaleSocket(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if conn, err := net.DialTimeout("unix", path, time.Second); err == nil {
		_ = conn.Close()
		return
	}
	if err := os.Remove(path); err != nil {
		logrus.WithError(err).Warnf("failed to remove stale socket %s", path)
		return
	}
	logrus.Debugf("removed stale socket %s", path)
}
