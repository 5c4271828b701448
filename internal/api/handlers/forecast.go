package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/trendcast/internal/middleware"
	"github.com/irfndi/trendcast/internal/models"
	"github.com/irfndi/trendcast/internal/services"
	"github.com/irfndi/trendcast/internal/utils"
)

// WarmupService is the part of the warmup orchestrator the HTTP layer needs.
type WarmupService interface {
	Warmup(ctx context.Context, req models.WarmupRequest) models.WarmupResult
	Status(ctx context.Context, key string) models.WarmupResult
}

// HorizonLimits bounds the forecast horizon accepted from clients.
type HorizonLimits struct {
	Default int
	Max     int
}

type ForecastHandler struct {
	warmups   WarmupService
	forecasts *services.ForecastService
	limits    HorizonLimits
	logger    logrus.FieldLogger
}

func NewForecastHandler(warmups WarmupService, forecasts *services.ForecastService, limits HorizonLimits, logger logrus.FieldLogger) *ForecastHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ForecastHandler{warmups: warmups, forecasts: forecasts, limits: limits, logger: logger}
}

// Warmup starts or joins the computation of a comparison and returns what is available now.
func (h *ForecastHandler) Warmup(c *gin.Context) {
	var req models.WarmupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	req, err := validateComparison(req, h.limits)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	middleware.AddSpanAttribute(c, "forecast.key", req.Key())
	result := h.warmups.Warmup(c.Request.Context(), req)
	if result.Status == models.WarmupFailed {
		middleware.RecordError(c, errors.New(result.Error), "warmup failed")
		h.logger.WithFields(logrus.Fields{
			"forecast_key": result.Key,
			"error":        result.Error,
		}).Warn("Warmup request failed")
	}
	c.JSON(warmupStatusCode(result.Status), result)
}

// Status reports the warmup state of a comparison without computing anything.
func (h *ForecastHandler) Status(c *gin.Context) {
	req := models.WarmupRequest{
		SubjectA: c.Query("subject_a"),
		SubjectB: c.Query("subject_b"),
	}
	if raw := c.Query("horizon_days"); raw != "" {
		horizon, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "horizon_days must be an integer"})
			return
		}
		req.HorizonDays = horizon
	}
	req, err := validateComparison(req, h.limits)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.warmups.Status(c.Request.Context(), req.Key()))
}

// Confidence scores caller-supplied confidence factors. Missing factors take neutral defaults.
func (h *ForecastHandler) Confidence(c *gin.Context) {
	var factors models.ConfidenceFactors
	if err := c.ShouldBindJSON(&factors); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.forecasts.Confidence(factors))
}

func warmupStatusCode(status models.WarmupStatus) int {
	switch status {
	case models.WarmupReady:
		return http.StatusOK
	case models.WarmupRunning, models.WarmupQueued:
		return http.StatusAccepted
	case models.WarmupFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

// validateComparison normalizes req and applies the horizon policy.
func validateComparison(req models.WarmupRequest, limits HorizonLimits) (models.WarmupRequest, error) {
	req = req.Normalized()
	if req.SubjectA == "" {
		return req, utils.NewFieldError("subject_a", "is required")
	}
	if req.SubjectB == "" {
		return req, utils.NewFieldError("subject_b", "is required")
	}
	if strings.EqualFold(req.SubjectA, req.SubjectB) {
		return req, utils.NewFieldError("subject_b", "must differ from subject_a")
	}
	if req.HorizonDays == 0 {
		req.HorizonDays = limits.Default
	}
	if req.HorizonDays < 1 || req.HorizonDays > limits.Max {
		return req, utils.NewFieldError("horizon_days", "must be between 1 and %d, got %d", limits.Max, req.HorizonDays)
	}
	return req, nil
}
