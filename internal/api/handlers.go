package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mk1MoreBugs/hack270625-sub000/internal/database"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/models"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/pricing"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/queue"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/scheduler"
)

type Handler struct {
	db        *database.Database
	engine    *pricing.Engine
	scheduler *scheduler.Scheduler
	logger    *logrus.Logger
}

type PricingConfigRequest struct {
	K1                   float64 `json:"k1" binding:"required,gt=0"`
	K2                   float64 `json:"k2" binding:"required,gt=0"`
	K3                   float64 `json:"k3" binding:"required,gt=0"`
	ElasticityCapPercent float64 `json:"elasticity_cap_percent" binding:"required,gt=0"`
	MaxShiftPercent      float64 `json:"max_shift_percent" binding:"required,gt=0"`
	CooldownHours        int     `json:"cooldown_hours" binding:"required,gt=0"`
}

func NewHandler(db *database.Database, engine *pricing.Engine, sched *scheduler.Scheduler, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:        db,
		engine:    engine,
		scheduler: sched,
		logger:    logger,
	}
}

// GetPricingConfig returns the currently active configuration.
func (h *Handler) GetPricingConfig(c *gin.Context) {
	cfg, err := h.db.GetActivePricingConfig(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load pricing config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load pricing config"})
		return
	}
	if cfg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active pricing config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// CreatePricingConfig disables existing configurations and activates a new one.
func (h *Handler) CreatePricingConfig(c *gin.Context) {
	var req PricingConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := &models.PricingConfig{
		K1:                   req.K1,
		K2:                   req.K2,
		K3:                   req.K3,
		ElasticityCapPercent: req.ElasticityCapPercent,
		MaxShiftPercent:      req.MaxShiftPercent,
		CooldownHours:        req.CooldownHours,
	}
	if err := h.db.CreatePricingConfig(c.Request.Context(), cfg); err != nil {
		h.logger.WithError(err).Error("Failed to create pricing config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create pricing config"})
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

// RunBatch triggers a full-catalog repricing run and returns its results.
func (h *Handler) RunBatch(c *gin.Context) {
	result, err := h.scheduler.RunBatchNow(c.Request.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "A repricing run is already in progress"})
			return
		}
		h.logger.WithError(err).Error("Repricing run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Repricing run failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Repricing run completed",
		"total":   result.Total,
		"changed": len(result.Changed),
		"failed":  result.Failed,
		"skipped": result.Skipped,
		"results": result.Changed,
	})
}

// RunSingle enqueues an on-demand reprice of one listing.
func (h *Handler) RunSingle(c *gin.Context) {
	listingID, ok := h.listingID(c)
	if !ok {
		return
	}

	if err := h.scheduler.TriggerListing(listingID); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Reprice queue is full"})
			return
		}
		h.logger.WithError(err).Error("Failed to enqueue reprice request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue reprice request"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":    "Reprice request accepted",
		"listing_id": listingID,
	})
}

// Calculate evaluates the pipeline for one listing without applying it.
func (h *Handler) Calculate(c *gin.Context) {
	listingID, ok := h.listingID(c)
	if !ok {
		return
	}

	outcome, err := h.engine.Calculate(c.Request.Context(), listingID)
	if err != nil {
		if errors.Is(err, pricing.ErrListingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
			return
		}
		h.logger.WithError(err).Error("Dry-run calculation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Dry-run calculation failed"})
		return
	}

	switch outcome.Status {
	case pricing.OutcomeChanged:
		c.JSON(http.StatusOK, outcome.Change)
	case pricing.OutcomeSkipped:
		c.JSON(http.StatusOK, gin.H{
			"listing_id": listingID,
			"skipped":    outcome.Reason,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": outcome.Err.Error()})
	}
}

// GetStats summarizes price changes over the last 24 hours.
func (h *Handler) GetStats(c *gin.Context) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	changes, err := h.db.GetRecentPriceChanges(c.Request.Context(), since)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load recent price changes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	var increases, decreases int
	var totalPercent float64
	for _, pc := range changes {
		if pc.NewPrice > pc.OldPrice {
			increases++
		} else if pc.NewPrice < pc.OldPrice {
			decreases++
		}
		totalPercent += pc.ChangePercent
	}

	avgPercent := 0.0
	if len(changes) > 0 {
		avgPercent = totalPercent / float64(len(changes))
	}

	c.JSON(http.StatusOK, gin.H{
		"total_price_changes_24h":    len(changes),
		"price_increases_24h":        increases,
		"price_decreases_24h":        decreases,
		"average_change_percent_24h": avgPercent,
		"run_in_progress":            h.scheduler.IsRunning(),
	})
}

// GetHistory returns recent price change records for a listing.
func (h *Handler) GetHistory(c *gin.Context) {
	listingID, ok := h.listingID(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.db.GetPriceHistory(c.Request.Context(), listingID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load price history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load price history"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) listingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("listing_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing id"})
		return 0, false
	}
	return id, true
}
