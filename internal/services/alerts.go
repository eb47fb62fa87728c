package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/magicgest/internal/metrics"
	"github.com/codyseavey/magicgest/internal/models"
)

// AlertNotifier receives alerts as they fire
type AlertNotifier interface {
	BroadcastJSON(v any)
}

// AlertEvent is pushed to notifiers when an alert fires
type AlertEvent struct {
	Type         string            `json:"type"`
	Alert        models.PriceAlert `json:"alert"`
	CurrentPrice float64           `json:"current_price"`
}

type AlertService struct {
	db       *gorm.DB
	notifier AlertNotifier
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewAlertService creates an alert service. notifier may be nil.
func NewAlertService(db *gorm.DB, notifier AlertNotifier, log logrus.FieldLogger) *AlertService {
	return &AlertService{db: db, notifier: notifier, log: log, now: time.Now}
}

// EvaluateAlert reports whether an alert's condition holds for the card's
// cached price. A missing or non-positive price never triggers.
func EvaluateAlert(alert models.PriceAlert, card models.Card) (decimal.Decimal, bool) {
	price, ok := card.PriceFor(alert.Platform)
	if !ok || !price.IsPositive() {
		return decimal.Zero, false
	}
	target := decimal.NewFromFloat(alert.TargetPrice)
	switch alert.Condition {
	case models.AlertBelow:
		return price, price.LessThanOrEqual(target)
	case models.AlertAbove:
		return price, price.GreaterThanOrEqual(target)
	}
	return price, false
}

func (s *AlertService) List(ctx context.Context, activeOnly bool) ([]models.PriceAlert, error) {
	query := s.db.WithContext(ctx).Preload("Card").Order("created_at DESC, id DESC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var alerts []models.PriceAlert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

func (s *AlertService) Triggered(ctx context.Context) ([]models.PriceAlert, error) {
	var alerts []models.PriceAlert
	err := s.db.WithContext(ctx).Preload("Card").
		Where("triggered = ?", true).
		Order("triggered_at DESC, id DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("list triggered alerts: %w", err)
	}
	return alerts, nil
}

func (s *AlertService) Get(ctx context.Context, id uint) (*models.PriceAlert, error) {
	var alert models.PriceAlert
	if err := s.db.WithContext(ctx).Preload("Card").First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("alert")
		}
		return nil, fmt.Errorf("load alert: %w", err)
	}
	return &alert, nil
}

func (s *AlertService) Create(ctx context.Context, req models.CreateAlertRequest) (*models.PriceAlert, error) {
	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		return nil, invalid("platform", "%v", err)
	}
	if req.TargetPrice <= 0 {
		return nil, invalid("target_price", "must be greater than 0")
	}
	condition := req.Condition
	if condition == "" {
		condition = models.AlertBelow
	}
	if !condition.IsValid() {
		return nil, invalid("condition", "must be below or above")
	}

	alert := models.PriceAlert{
		CardID:      req.CardID,
		Platform:    platform,
		TargetPrice: req.TargetPrice,
		Condition:   condition,
		Active:      true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCard(tx, req.CardID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&alert).Error
	})
	if err != nil {
		return nil, wrapStorage("create alert", err)
	}
	return s.Get(ctx, alert.ID)
}

// Update edits an alert. Toggling active or setting reset clears a previous
// trigger so the alert can fire again.
func (s *AlertService) Update(ctx context.Context, id uint, req models.UpdateAlertRequest) (*models.PriceAlert, error) {
	updates := map[string]any{}
	if req.TargetPrice != nil {
		if *req.TargetPrice <= 0 {
			return nil, invalid("target_price", "must be greater than 0")
		}
		updates["target_price"] = *req.TargetPrice
	}
	if req.Condition != nil {
		if !req.Condition.IsValid() {
			return nil, invalid("condition", "must be below or above")
		}
		updates["condition"] = *req.Condition
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.Active != nil || req.Reset {
		updates["triggered"] = false
		updates["triggered_at"] = nil
	}
	if len(updates) == 0 {
		return nil, invalid("", "no fields to update")
	}

	result := s.db.WithContext(ctx).Model(&models.PriceAlert{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("update alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, notFound("alert")
	}
	return s.Get(ctx, id)
}

func (s *AlertService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.PriceAlert{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("alert")
	}
	return nil
}

// CheckAlerts evaluates every active, untriggered alert against the cached
// card prices and marks the ones that fire
func (s *AlertService) CheckAlerts(ctx context.Context) (*models.AlertCheckResult, error) {
	var alerts []models.PriceAlert
	err := s.db.WithContext(ctx).Preload("Card").
		Where("active = ? AND triggered = ?", true, false).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}

	result := &models.AlertCheckResult{Checked: len(alerts), Alerts: []models.PriceAlert{}}
	for _, alert := range alerts {
		price, fire := EvaluateAlert(alert, alert.Card)
		if !fire {
			continue
		}

		now := s.now()
		update := s.db.WithContext(ctx).Model(&models.PriceAlert{}).
			Where("id = ? AND triggered = ?", alert.ID, false).
			Updates(map[string]any{"triggered": true, "triggered_at": now})
		if update.Error != nil {
			s.log.WithError(update.Error).WithField("alert_id", alert.ID).Warn("Alerts: failed to mark alert triggered")
			continue
		}
		if update.RowsAffected == 0 {
			continue
		}

		alert.Triggered = true
		alert.TriggeredAt = &now
		result.Triggered++
		result.Alerts = append(result.Alerts, alert)
		metrics.AlertsTriggeredTotal.Inc()

		s.log.WithFields(logrus.Fields{
			"alert_id":  alert.ID,
			"card_id":   alert.CardID,
			"platform":  alert.Platform,
			"condition": alert.Condition,
			"target":    alert.TargetPrice,
			"price":     price.String(),
		}).Info("Alerts: price alert triggered")

		if s.notifier != nil {
			s.notifier.BroadcastJSON(AlertEvent{Type: "alert_triggered", Alert: alert, CurrentPrice: price.InexactFloat64()})
		}
	}
	return result, nil
}
