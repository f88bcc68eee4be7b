package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/config"
	"github.com/nsogc/gcbridge/pkg/types"
	"github.com/nsogc/gcbridge/pkg/version"
)

func badRequest(c *gin.Context, err error) {
	c.IndentedJSON(http.StatusBadRequest, err.Error())
	_ = c.AbortWithError(http.StatusBadRequest, err)
}

func (s *Server) getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func (s *Server) getStatus(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.Status())
}

func (s *Server) getConfig(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.store.Export())
}

func (s *Server) setConfig(c *gin.Context) {
	b, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	fc, err := config.Decode(b)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid settings document: %w", err))
		return
	}
	if err := s.store.Import(fc); err != nil {
		abortWithError(c, err)
		return
	}

	logrus.Info("settings imported")
	c.IndentedJSON(http.StatusCreated, s.store.Export())
}

func (s *Server) getCalibration(c *gin.Context) {
	ret := make([]types.AxisSettings, 0, len(axis.All))
	for _, id := range axis.All {
		cal, dz := s.store.Axis(id)
		ret = append(ret, types.AxisSettings{Calibration: cal, DeadZone: dz})
	}
	c.IndentedJSON(http.StatusOK, ret)
}

func (s *Server) setCalibration(c *gin.Context) {
	id, err := axis.Parse(c.Param("axis"))
	if err != nil {
		badRequest(c, err)
		return
	}

	var cal axis.Calibration
	if err := c.BindJSON(&cal); err != nil {
		badRequest(c, err)
		return
	}
	cal.Axis = id

	if err := s.store.SetCalibration(cal); err != nil {
		abortWithError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"axis":   id,
		"min":    cal.RawMin,
		"center": cal.RawCenter,
		"max":    cal.RawMax,
	}).Info("set calibration")
	c.IndentedJSON(http.StatusCreated, s.store.Calibration(id))
}

func (s *Server) resetCalibration(c *gin.Context) {
	s.store.Reset()
	logrus.Info("calibration reset to defaults")
	c.IndentedJSON(http.StatusCreated, "calibration and dead zones reset to defaults")
}

func (s *Server) getDeadZone(c *gin.Context) {
	ret := make([]axis.DeadZone, 0, len(axis.All))
	for _, id := range axis.All {
		ret = append(ret, s.store.DeadZone(id))
	}
	c.IndentedJSON(http.StatusOK, ret)
}

// setDeadZone sets one axis or every axis of a group.
func (s *Server) setDeadZone(c *gin.Context) {
	ids, err := axis.Resolve(c.Param("axis"))
	if err != nil {
		badRequest(c, err)
		return
	}

	var req types.DeadZoneRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	// Validate the whole group before changing any of it.
	for _, id := range ids {
		if err := (axis.DeadZone{Axis: id, Threshold: req.Threshold}).Validate(); err != nil {
			abortWithError(c, err)
			return
		}
	}

	ret := make([]axis.DeadZone, 0, len(ids))
	for _, id := range ids {
		dz := axis.DeadZone{Axis: id, Threshold: req.Threshold}
		if err := s.store.SetDeadZone(dz); err != nil {
			abortWithError(c, err)
			return
		}
		ret = append(ret, dz)
	}

	logrus.WithFields(logrus.Fields{
		"axis":      c.Param("axis"),
		"threshold": req.Threshold,
	}).Info("set dead zone")
	c.IndentedJSON(http.StatusCreated, ret)
}

func (s *Server) getWizard(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.wizard.Status())
}

func (s *Server) startWizard(c *gin.Context) {
	var req types.StartWizardRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id, err := axis.Parse(req.Axis)
	if err != nil {
		badRequest(c, err)
		return
	}

	st, err := s.StartWizard(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, st)
}

func (s *Server) captureWizard(c *gin.Context) {
	var req types.CaptureRequest
	if c.Request.ContentLength != 0 {
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	st, err := s.Capture(req.Value)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, st)
}

func (s *Server) retakeWizard(c *gin.Context) {
	st, err := s.Retake()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, st)
}

func (s *Server) cancelWizard(c *gin.Context) {
	st, err := s.wizard.Cancel()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, st)
}

func (s *Server) scan(c *gin.Context) {
	var timeout time.Duration
	if t := c.Query("timeout"); t != "" {
		secs, err := strconv.ParseFloat(t, 64)
		if err != nil || secs <= 0 {
			badRequest(c, fmt.Errorf("invalid timeout %q", t))
			return
		}
		timeout = time.Duration(secs * float64(time.Second))
	}

	devices, err := s.Scan(c.Request.Context(), timeout)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, devices)
}

func (s *Server) connect(c *gin.Context) {
	var req types.ConnectRequest
	if c.Request.ContentLength != 0 {
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	addr, err := s.Connect(c.Request.Context(), req.Address)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("connected to %s", addr))
}

func (s *Server) disconnect(c *gin.Context) {
	if err := s.Disconnect(); err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, "disconnected")
}

func (s *Server) startEmulation(c *gin.Context) {
	if err := s.StartEmulation(); err != nil {
		abortWithError(c, err)
		return
	}
	c.IndentedJSON(http.StatusCreated, "emulation started")
}

func (s *Server) stopEmulation(c *gin.Context) {
	s.StopEmulation()
	c.IndentedJSON(http.StatusCreated, "emulation stopped")
}

func (s *Server) getInput(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.Input())
}

func (s *Server) notFound(c *gin.Context) {
	err := errors.New("no such endpoint")
	c.IndentedJSON(http.StatusNotFound, err.Error())
	_ = c.AbortWithError(http.StatusNotFound, err)
}
