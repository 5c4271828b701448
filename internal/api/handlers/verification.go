package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/trendcast/internal/database"
	"github.com/irfndi/trendcast/internal/forecast"
	"github.com/irfndi/trendcast/internal/middleware"
	"github.com/irfndi/trendcast/internal/models"
	"github.com/irfndi/trendcast/internal/services"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Verifier is the part of the verification service the HTTP layer needs.
type Verifier interface {
	VerifyCached(ctx context.Context, key string) (*models.VerifiedForecast, error)
	GetVerification(ctx context.Context, id uuid.UUID) (*models.VerifiedForecast, error)
	ListVerifications(ctx context.Context, forecastID string, limit int) ([]models.VerifiedForecast, error)
}

type VerificationHandler struct {
	verifier Verifier
	limits   HorizonLimits
	logger   logrus.FieldLogger
}

type VerificationListResponse struct {
	ForecastID    string                    `json:"forecast_id"`
	Verifications []models.VerifiedForecast `json:"verifications"`
	Count         int                       `json:"count"`
}

func NewVerificationHandler(verifier Verifier, limits HorizonLimits, logger logrus.FieldLogger) *VerificationHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &VerificationHandler{verifier: verifier, limits: limits, logger: logger}
}

// Verify checks the cached comparison against observed values and stores a new verification record.
func (h *VerificationHandler) Verify(c *gin.Context) {
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

	vf, err := h.verifier.VerifyCached(c.Request.Context(), req.Key())
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, vf)
	case errors.Is(err, services.ErrForecastNotCached):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, forecast.ErrNothingToVerify):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		middleware.RecordError(c, err, "verification failed")
		h.logger.WithFields(logrus.Fields{
			"forecast_key": req.Key(),
			"error":        err.Error(),
		}).Error("Failed to verify forecast")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify forecast"})
	}
}

// GetVerification returns one stored verification record.
func (h *VerificationHandler) GetVerification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid verification id"})
		return
	}

	vf, err := h.verifier.GetVerification(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Verification not found"})
		return
	}
	if err != nil {
		middleware.RecordError(c, err, "get verification failed")
		h.logger.WithError(err).WithField("verification_id", id.String()).Error("Failed to load verification")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load verification"})
		return
	}
	c.JSON(http.StatusOK, vf)
}

// ListVerifications returns the verification history of one forecast, newest first.
func (h *VerificationHandler) ListVerifications(c *gin.Context) {
	forecastID := c.Query("forecast_id")
	if forecastID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "forecast_id parameter is required"})
		return
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := h.verifier.ListVerifications(c.Request.Context(), forecastID, limit)
	if err != nil {
		middleware.RecordError(c, err, "list verifications failed")
		h.logger.WithError(err).WithField("forecast_id", forecastID).Error("Failed to list verifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list verifications"})
		return
	}
	if records == nil {
		records = []models.VerifiedForecast{}
	}
	c.JSON(http.StatusOK, VerificationListResponse{ForecastID: forecastID, Verifications: records, Count: len(records)})
}
