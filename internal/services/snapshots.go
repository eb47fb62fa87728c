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

const (
	defaultValueHistoryDays = 30
	snapshotCheckInterval   = 15 * time.Minute
)

// SnapshotService records the collection value over time
type SnapshotService struct {
	db       *gorm.DB
	log      logrus.FieldLogger
	auto     bool
	hour     int // snapshots are taken automatically at or after this hour
	platform models.Platform
	now      func() time.Time

	mu           sync.Mutex
	lastSnapshot time.Time
}

func NewSnapshotService(db *gorm.DB, cfg config.SnapshotConfig, log logrus.FieldLogger) *SnapshotService {
	platform, err := models.ParsePlatform(cfg.Platform)
	if err != nil {
		log.WithField("platform", cfg.Platform).Warn("Snapshot service: unknown platform, using default")
		platform = models.DefaultPlatform
	}
	return &SnapshotService{
		db:       db,
		log:      log,
		auto:     cfg.Auto,
		hour:     cfg.Hour,
		platform: platform,
		now:      time.Now,
	}
}

// TakeSnapshot appends the current collection totals valued on platform
func (s *SnapshotService) TakeSnapshot(ctx context.Context, platform models.Platform) (*models.CollectionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []models.CollectionItem
	if err := s.db.WithContext(ctx).Preload("Card").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}

	snapshot := models.CollectionSnapshot{
		TotalValue:   CollectionValue(items, platform).Round(2).InexactFloat64(),
		UniqueCards:  len(items),
		Platform:     platform,
		SnapshotDate: s.now(),
	}
	for _, item := range items {
		snapshot.TotalCards += item.Quantity
	}

	if err := s.db.WithContext(ctx).Create(&snapshot).Error; err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	s.lastSnapshot = snapshot.SnapshotDate

	metrics.SnapshotsTotal.Inc()
	metrics.CollectionValue.WithLabelValues(string(platform)).Set(snapshot.TotalValue)
	metrics.CollectionCardsTotal.Set(float64(snapshot.TotalCards))

	s.log.WithFields(logrus.Fields{
		"platform":    platform,
		"total_value": snapshot.TotalValue,
		"total_cards": snapshot.TotalCards,
	}).Info("Snapshot service: recorded collection value snapshot")
	return &snapshot, nil
}

// History returns snapshots for platform within the last days, oldest first
func (s *SnapshotService) History(ctx context.Context, platform models.Platform, days int) (*models.ValueHistoryResponse, error) {
	if days == 0 {
		days = defaultValueHistoryDays
	}
	if days < 1 {
		return nil, invalid("days", "must be at least 1")
	}
	since := s.now().AddDate(0, 0, -days)

	snapshots := []models.CollectionSnapshot{}
	err := s.db.WithContext(ctx).
		Where("platform = ? AND snapshot_date >= ?", platform, since).
		Order("snapshot_date ASC, id ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	return &models.ValueHistoryResponse{Platform: platform, Days: days, Snapshots: snapshots}, nil
}

// Start runs the daily automatic snapshot until ctx is cancelled. It returns
// immediately when automatic snapshots are disabled.
func (s *SnapshotService) Start(ctx context.Context) {
	if !s.auto {
		return
	}
	s.log.WithFields(logrus.Fields{"hour": s.hour, "platform": s.platform}).Info("Snapshot service started: will record daily collection value")

	s.checkAndSnapshot(ctx)

	ticker := time.NewTicker(snapshotCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Snapshot service stopping...")
			return
		case <-ticker.C:
			s.checkAndSnapshot(ctx)
		}
	}
}

func (s *SnapshotService) checkAndSnapshot(ctx context.Context) {
	now := s.now()
	if now.Hour() < s.hour {
		return
	}
	taken, err := s.hasSnapshotForDay(ctx, now)
	if err != nil {
		s.log.WithError(err).Warn("Snapshot service: failed to check today's snapshot")
		return
	}
	if taken {
		return
	}
	if _, err := s.TakeSnapshot(ctx, s.platform); err != nil {
		s.log.WithError(err).Error("Snapshot service: failed to take snapshot")
	}
}

func (s *SnapshotService) hasSnapshotForDay(ctx context.Context, day time.Time) (bool, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.CollectionSnapshot{}).
		Where("platform = ? AND snapshot_date >= ? AND snapshot_date < ?", s.platform, start, end).
		Count(&count).Error
	return count > 0, err
}

// LastSnapshot reports when this process last recorded a snapshot
func (s *SnapshotService) LastSnapshot() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSnapshot
}
