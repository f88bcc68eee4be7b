package daemon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/ble"
	"github.com/nsogc/gcbridge/pkg/calibration"
	"github.com/nsogc/gcbridge/pkg/pipeline"
)

// Logger is the logrus logger handler
func ginLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handler can change c.Path so:
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		stop := time.Since(start)
		latency := int(math.Ceil(float64(stop.Nanoseconds()) / 1000000.0))
		statusCode := c.Writer.Status()
		dataLength := c.Writer.Size()
		if dataLength < 0 {
			dataLength = 0
		}

		entry := logger.WithFields(logrus.Fields{
			"statusCode": statusCode,
			"latency":    latency, // time to process
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": dataLength,
		})

		if len(c.Errors) > 0 {
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
		} else {
			msg := fmt.Sprintf("%s %s %d (%dms)", c.Request.Method, path, statusCode, latency)
			//nolint:gocritic
			if statusCode >= http.StatusInternalServerError {
				entry.Error(msg)
			} else if statusCode >= http.StatusBadRequest {
				entry.Warn(msg)
			} else {
				entry.Debug(msg)
			}
		}
	}
}

// statusOf maps an error to the HTTP status returned to clients.
func statusOf(err error) int {
	var verr *axis.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, calibration.ErrWizardInProgress),
		errors.Is(err, calibration.ErrWizardNotRunning),
		errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrAlreadyConnected),
		errors.Is(err, ErrNoSamples),
		errors.Is(err, ble.ErrAlreadyScanning):
		return http.StatusConflict
	case errors.Is(err, ble.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrDriverUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrTransport),
		errors.Is(err, ble.ErrNoInput):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// abortWithError writes err as the JSON body and records it for the logger.
func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	c.IndentedJSON(status, err.Error())
	_ = c.AbortWithError(status, err)
}
