package handlers

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/trendcast/internal/middleware"
	"github.com/irfndi/trendcast/internal/models"
	"github.com/irfndi/trendcast/internal/utils"
)

const maxIngestBatch = 5000

// PointWriter stores trend observations.
type PointWriter interface {
	UpsertPoints(ctx context.Context, points []models.TrendPoint) (int64, error)
}

type TrendPointHandler struct {
	writer PointWriter
	logger logrus.FieldLogger
}

type IngestRequest struct {
	Points []models.TrendPoint `json:"points" binding:"required"`
}

type IngestResponse struct {
	Received int   `json:"received"`
	Stored   int64 `json:"stored"`
}

func NewTrendPointHandler(writer PointWriter, logger logrus.FieldLogger) *TrendPointHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TrendPointHandler{writer: writer, logger: logger}
}

// Ingest upserts a batch of daily observations. Subjects are stored normalized so that
// they match warmup keys.
func (h *TrendPointHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if len(req.Points) == 0 || len(req.Points) > maxIngestBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.NewFieldError("points", "must hold between 1 and %d entries", maxIngestBatch).Error()})
		return
	}

	points := make([]models.TrendPoint, len(req.Points))
	for i, p := range req.Points {
		normalized, err := normalizePoint(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "index": i})
			return
		}
		points[i] = normalized
	}

	stored, err := h.writer.UpsertPoints(c.Request.Context(), points)
	if err != nil {
		middleware.RecordError(c, err, "trend point ingest failed")
		h.logger.WithError(err).WithField("points", len(points)).Error("Failed to store trend points")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store trend points"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"received": len(points),
		"stored":   stored,
	}).Info("Trend points ingested")
	c.JSON(http.StatusOK, IngestResponse{Received: len(points), Stored: stored})
}

func normalizePoint(p models.TrendPoint) (models.TrendPoint, error) {
	p.Subject = strings.ToLower(strings.TrimSpace(p.Subject))
	if p.Subject == "" {
		return p, utils.NewFieldError("subject", "is required")
	}
	day, err := time.Parse(models.DateLayout, strings.TrimSpace(p.Date))
	if err != nil {
		return p, utils.NewFieldError("date", "must be YYYY-MM-DD, got %q", p.Date)
	}
	p.Date = day.Format(models.DateLayout)
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) || p.Value < 0 {
		return p, utils.NewFieldError("value", "must be a non-negative number, got %v", p.Value)
	}
	return p, nil
}
