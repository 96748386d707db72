package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mk1MoreBugs/hack270625-sub000/config"
	"github.com/mk1MoreBugs/hack270625-sub000/internal/models"
)

// ErrListingNotFound is returned by RunSingle for an unknown listing id.
var ErrListingNotFound = errors.New("listing not found")

// OutcomeStatus classifies what happened to one listing during a run.
type OutcomeStatus string

const (
	OutcomeChanged OutcomeStatus = "changed"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// ListingOutcome is the per-listing result of the pipeline. Failures are
// captured here instead of aborting the batch.
type ListingOutcome struct {
	ListingID int64
	Status    OutcomeStatus
	Reason    SkipReason
	Change    *models.PriceChangeResult
	Err       error
}

// BatchResult aggregates a full repricing run.
type BatchResult struct {
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Total      int                        `json:"total"`
	Changed    []models.PriceChangeResult `json:"changed"`
	Skipped    map[SkipReason]int         `json:"skipped"`
	Failed     int                        `json:"failed"`
}

// Store is the storage surface the orchestrator depends on.
type Store interface {
	EligibilityStore
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	GetListingsByStatus(ctx context.Context, status models.ListingStatus) ([]models.Listing, error)
	GetDemandSnapshots(ctx context.Context) (map[int64]models.DemandSnapshot, error)
	EnsurePricingConfig(ctx context.Context, defaults models.PricingConfig) (*models.PricingConfig, error)
	ApplyPriceChange(ctx context.Context, listingID int64, newPrice float64, record *models.PriceChangeRecord) error
}

// Engine fans the eligibility/score/adjust pipeline out across the catalog.
type Engine struct {
	store  Store
	cfg    *config.Config
	logger *logrus.Logger
	gate   *Gate
	now    func() time.Time
}

func NewEngine(store Store, cfg *config.Config, logger *logrus.Logger) *Engine {
	return &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger,
		gate:   NewGate(store),
		now:    time.Now,
	}
}

// defaultConfig is the pricing config synthesized when none is active.
func (e *Engine) defaultConfig() models.PricingConfig {
	return models.PricingConfig{
		K1:                   0.5,
		K2:                   2.0,
		K3:                   5.0,
		Enabled:              true,
		ElasticityCapPercent: e.cfg.Pricing.ElasticityCapPercent,
		MaxShiftPercent:      e.cfg.Pricing.MaxShiftPercent,
		CooldownHours:        e.cfg.Pricing.CooldownHours,
	}
}

// RunBatch reprices every available listing. Per-listing failures are logged
// and counted but never abort the run; only missing configuration or an
// unreadable catalog do.
func (e *Engine) RunBatch(ctx context.Context) (*BatchResult, error) {
	result := &BatchResult{
		StartedAt: e.now().UTC(),
		Skipped:   make(map[SkipReason]int),
	}

	pricingCfg, err := e.store.EnsurePricingConfig(ctx, e.defaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pricing config: %w", err)
	}

	listings, err := e.store.GetListingsByStatus(ctx, models.ListingStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate listings: %w", err)
	}

	snapshots, err := e.store.GetDemandSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load demand snapshots: %w", err)
	}

	groups := cohortScores(listings, snapshots, pricingCfg)
	result.Total = len(listings)

	workerCount := e.cfg.Pricing.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	jobs := make(chan models.Listing)
	outcomes := make(chan ListingOutcome, len(listings))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for listing := range jobs {
				outcomes <- e.processListing(ctx, &listing, pricingCfg, groups, snapshots, false)
			}
		}()
	}

feed:
	for _, listing := range listings {
		select {
		case <-ctx.Done():
			// Shutdown between listings; in-flight commits finish whole
			break feed
		case jobs <- listing:
		}
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	for outcome := range outcomes {
		e.collect(result, outcome)
	}

	result.FinishedAt = e.now().UTC()
	e.logger.WithFields(logrus.Fields{
		"total":    result.Total,
		"changed":  len(result.Changed),
		"failed":   result.Failed,
		"duration": result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("Repricing batch completed")

	return result, nil
}

// RunSingle runs the same pipeline for exactly one listing, used for ad-hoc
// administrative repricing outside the periodic cadence.
func (e *Engine) RunSingle(ctx context.Context, listingID int64) (*ListingOutcome, error) {
	return e.runOne(ctx, listingID, false)
}

// Calculate evaluates the pipeline for one listing without persisting, for
// dry-run inspection.
func (e *Engine) Calculate(ctx context.Context, listingID int64) (*ListingOutcome, error) {
	return e.runOne(ctx, listingID, true)
}

func (e *Engine) runOne(ctx context.Context, listingID int64, dryRun bool) (*ListingOutcome, error) {
	listing, err := e.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}

	pricingCfg, err := e.store.EnsurePricingConfig(ctx, e.defaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pricing config: %w", err)
	}

	candidates, err := e.store.GetListingsByStatus(ctx, models.ListingStatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("failed to load cohort listings: %w", err)
	}

	snapshots, err := e.store.GetDemandSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load demand snapshots: %w", err)
	}

	groups := cohortScores(candidates, snapshots, pricingCfg)
	outcome := e.processListing(ctx, listing, pricingCfg, groups, snapshots, dryRun)
	return &outcome, nil
}

// processListing runs the strictly sequential per-listing pipeline:
// eligibility -> score -> normalize -> adjust -> persist.
func (e *Engine) processListing(
	ctx context.Context,
	listing *models.Listing,
	pricingCfg *models.PricingConfig,
	groups map[models.CohortKey][]memberScore,
	snapshots map[int64]models.DemandSnapshot,
	dryRun bool,
) ListingOutcome {
	log := e.logger.WithField("listing_id", listing.ID)

	skip, err := e.gate.Check(ctx, listing, pricingCfg.Cooldown())
	if err != nil {
		log.WithError(err).Error("Eligibility check failed")
		return ListingOutcome{ListingID: listing.ID, Status: OutcomeFailed, Err: err}
	}
	if skip != SkipNone {
		log.WithField("reason", skip).Debug("Listing skipped")
		return ListingOutcome{ListingID: listing.ID, Status: OutcomeSkipped, Reason: skip}
	}

	// A listing without a positive price cannot be adjusted relative to
	// itself; treat it as malformed rather than divide by it below
	if listing.CurrentPrice <= 0 {
		err := fmt.Errorf("listing has no current price: %.2f", listing.CurrentPrice)
		log.WithError(err).Error("Listing rejected")
		return ListingOutcome{ListingID: listing.ID, Status: OutcomeFailed, Err: err}
	}

	var snapshot *models.DemandSnapshot
	if s, ok := snapshots[listing.ID]; ok {
		snapshot = &s
	}

	score := DemandScore(snapshot, pricingCfg)
	median := medianForListing(groups, listing)
	normalized := score / median

	daysOnMarket := e.daysOnMarket(listing, snapshot)
	percent := AdjustmentPercent(normalized, daysOnMarket, pricingCfg.ElasticityCapPercent)
	if percent == 0 {
		return ListingOutcome{ListingID: listing.ID, Status: OutcomeSkipped, Reason: SkipNoAdjustment}
	}

	newPrice := ApplyAdjustment(listing.CurrentPrice, listing.BasePrice, percent, pricingCfg.MaxShiftPercent)
	if IsNoOpChange(listing.CurrentPrice, newPrice) {
		return ListingOutcome{ListingID: listing.ID, Status: OutcomeSkipped, Reason: SkipNoAdjustment}
	}

	// Actual applied percent, after the clamp
	changePercent := (newPrice - listing.CurrentPrice) / listing.CurrentPrice * 100
	description := changeDescription(changePercent, normalized, daysOnMarket)

	change := &models.PriceChangeResult{
		ListingID:        listing.ID,
		OldPrice:         listing.CurrentPrice,
		NewPrice:         newPrice,
		ChangePercent:    changePercent,
		DemandScore:      score,
		DemandNormalized: normalized,
		Description:      description,
	}

	if !dryRun {
		record := &models.PriceChangeRecord{
			ListingID:     listing.ID,
			ChangedAt:     e.now().UTC(),
			OldPrice:      listing.CurrentPrice,
			NewPrice:      newPrice,
			ChangePercent: changePercent,
			Reason:        models.PriceChangeReasonDynamic,
			Description:   description,
		}
		if err := e.store.ApplyPriceChange(ctx, listing.ID, newPrice, record); err != nil {
			log.WithError(err).Error("Failed to persist price change")
			return ListingOutcome{ListingID: listing.ID, Status: OutcomeFailed, Err: err}
		}
	}

	log.WithFields(logrus.Fields{
		"old_price":         change.OldPrice,
		"new_price":         change.NewPrice,
		"change_percent":    change.ChangePercent,
		"demand_normalized": change.DemandNormalized,
	}).Info("Listing repriced")

	return ListingOutcome{ListingID: listing.ID, Status: OutcomeChanged, Change: change}
}

// daysOnMarket prefers the analytics counter and falls back to listing age
// when no snapshot exists yet.
func (e *Engine) daysOnMarket(listing *models.Listing, snapshot *models.DemandSnapshot) int {
	if snapshot != nil {
		return snapshot.DaysOnMarket
	}
	return int(e.now().UTC().Sub(listing.CreatedAt).Hours() / 24)
}

func (e *Engine) collect(result *BatchResult, outcome ListingOutcome) {
	switch outcome.Status {
	case OutcomeChanged:
		result.Changed = append(result.Changed, *outcome.Change)
	case OutcomeSkipped:
		result.Skipped[outcome.Reason]++
	case OutcomeFailed:
		result.Failed++
	}
}

func changeDescription(changePercent, demandNormalized float64, daysOnMarket int) string {
	if changePercent > 0 {
		return fmt.Sprintf("Raised %.1f%% on high relative demand (%.2fx cohort median)", changePercent, demandNormalized)
	}
	return fmt.Sprintf("Cut %.1f%% on low demand after %d days on market (%.2fx cohort median)", -changePercent, daysOnMarket, demandNormalized)
}
