package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/codyseavey/magicgest/internal/config"
	"github.com/codyseavey/magicgest/internal/metrics"
	"github.com/codyseavey/magicgest/internal/models"
)

// CardRefresher re-fetches a card from the upstream catalog and overwrites
// the cached copy
type CardRefresher interface {
	RefreshCard(ctx context.Context, id string) (*models.Card, error)
}

// PriceWorker periodically refreshes every tracked card, records today's
// price and evaluates alerts
type PriceWorker struct {
	db       *gorm.DB
	catalog  CardRefresher
	prices   *PriceService
	alerts   *AlertService
	interval time.Duration
	platform models.Platform
	log      logrus.FieldLogger
	now      func() time.Time

	mu                sync.RWMutex
	running           bool
	lastRun           *WorkerRun
	lastUpdateTime    time.Time
	cardsUpdatedToday int
	lastStatsDay      time.Time
}

// WorkerRun summarizes one refresh pass
type WorkerRun struct {
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration_ns"`
	Cards            int           `json:"cards"`
	Refreshed        int           `json:"refreshed"`
	RefreshFailed    int           `json:"refresh_failed"`
	PricesRecorded   int           `json:"prices_recorded"`
	AlertsChecked    int           `json:"alerts_checked"`
	AlertsTriggered  int           `json:"alerts_triggered"`
	AlertCheckFailed bool          `json:"alert_check_failed,omitempty"`
}

type PriceStatus struct {
	Enabled           bool            `json:"enabled"`
	Running           bool            `json:"running"`
	Interval          string          `json:"interval"`
	Platform          models.Platform `json:"platform"`
	LastUpdateTime    time.Time       `json:"last_update_time"`
	NextUpdateTime    time.Time       `json:"next_update_time"`
	CardsUpdatedToday int             `json:"cards_updated_today"`
	LastRun           *WorkerRun      `json:"last_run,omitempty"`
}

func NewPriceWorker(db *gorm.DB, catalog CardRefresher, prices *PriceService, alerts *AlertService, cfg config.WorkerConfig, log logrus.FieldLogger) *PriceWorker {
	platform, err := models.ParsePlatform(cfg.Platform)
	if err != nil {
		log.WithField("platform", cfg.Platform).Warn("Price worker: unknown platform, using default")
		platform = models.DefaultPlatform
	}
	return &PriceWorker{
		db:       db,
		catalog:  catalog,
		prices:   prices,
		alerts:   alerts,
		interval: cfg.PriceRefreshInterval,
		platform: platform,
		log:      log,
		now:      time.Now,
	}
}

// Enabled reports whether Start will run a loop
func (w *PriceWorker) Enabled() bool {
	return w.interval > 0
}

// Start runs a refresh pass immediately and then on every tick until ctx is
// cancelled. It returns at once when the interval is not positive.
func (w *PriceWorker) Start(ctx context.Context) {
	if !w.Enabled() {
		return
	}
	w.log.WithFields(logrus.Fields{"interval": w.interval, "platform": w.platform}).Info("Price worker started")

	w.runAndLog(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Price worker stopping...")
			return
		case <-ticker.C:
			w.runAndLog(ctx)
		}
	}
}

func (w *PriceWorker) runAndLog(ctx context.Context) {
	run, err := w.RunOnce(ctx)
	if err != nil {
		w.log.WithError(err).Error("Price worker: refresh pass failed")
		return
	}
	w.log.WithFields(logrus.Fields{
		"cards":            run.Cards,
		"refreshed":        run.Refreshed,
		"refresh_failed":   run.RefreshFailed,
		"prices_recorded":  run.PricesRecorded,
		"alerts_triggered": run.AlertsTriggered,
		"duration":         run.Duration,
	}).Info("Price worker: refresh pass completed")
}

// RunOnce refreshes every tracked card, records today's price on the worker
// platform and checks alerts. A failed refresh keeps the cached card.
func (w *PriceWorker) RunOnce(ctx context.Context) (*WorkerRun, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil, fmt.Errorf("price worker: refresh already running")
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	start := w.now()
	ids, err := w.trackedCardIDs(ctx)
	if err != nil {
		return nil, err
	}

	run := &WorkerRun{StartedAt: start, Cards: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if _, err := w.catalog.RefreshCard(ctx, id); err != nil {
			run.RefreshFailed++
			w.log.WithError(err).WithField("card_id", id).Warn("Price worker: failed to refresh card")
			continue
		}
		run.Refreshed++
	}

	recorded := w.prices.RecordMany(ctx, ids, w.platform)
	run.PricesRecorded = recorded.Recorded

	if check, err := w.alerts.CheckAlerts(ctx); err != nil {
		run.AlertCheckFailed = true
		w.log.WithError(err).Warn("Price worker: alert check failed")
	} else {
		run.AlertsChecked = check.Checked
		run.AlertsTriggered = check.Triggered
	}

	run.Duration = w.now().Sub(start)
	metrics.PriceRefreshDuration.Observe(run.Duration.Seconds())
	w.finish(run)
	return run, nil
}

func (w *PriceWorker) finish(run *WorkerRun) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if w.lastStatsDay.Before(today) {
		w.cardsUpdatedToday = 0
		w.lastStatsDay = today
	}
	w.cardsUpdatedToday += run.Refreshed
	w.lastUpdateTime = now
	w.lastRun = run
}

// trackedCardIDs returns every distinct card referenced by the collection,
// the wishlist or a price alert
func (w *PriceWorker) trackedCardIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := w.db.WithContext(ctx).Raw(`
		SELECT card_id FROM collection_items
		UNION SELECT card_id FROM wishlist_items
		UNION SELECT card_id FROM price_alerts
		ORDER BY card_id
	`).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("list tracked cards: %w", err)
	}
	return ids, nil
}

func (w *PriceWorker) Status() PriceStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := PriceStatus{
		Enabled:           w.Enabled(),
		Running:           w.running,
		Interval:          w.interval.String(),
		Platform:          w.platform,
		LastUpdateTime:    w.lastUpdateTime,
		CardsUpdatedToday: w.cardsUpdatedToday,
		LastRun:           w.lastRun,
	}
	if status.Enabled && !w.lastUpdateTime.IsZero() {
		status.NextUpdateTime = w.lastUpdateTime.Add(w.interval)
	}
	return status
}
