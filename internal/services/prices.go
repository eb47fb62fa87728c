package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/codyseavey/magicgest/internal/metrics"
	"github.com/codyseavey/magicgest/internal/models"
)

const (
	defaultHistoryDays = 30
	defaultTrendDays   = 7
	defaultTrendLimit  = 10
)

// PriceService records price history points from the cached card prices and
// ranks price movements
type PriceService struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewPriceService(db *gorm.DB, log logrus.FieldLogger) *PriceService {
	return &PriceService{db: db, log: log, now: time.Now}
}

func (s *PriceService) Platforms() []models.PlatformInfo {
	return models.AllPlatforms()
}

func (s *PriceService) card(ctx context.Context, cardID string) (*models.Card, error) {
	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, "id = ?", cardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("card")
		}
		return nil, fmt.Errorf("load card: %w", err)
	}
	return &card, nil
}

// CurrentPrice reads the cached price of a card on a platform. Price is nil
// when the catalog has no value for the platform.
func (s *PriceService) CurrentPrice(ctx context.Context, cardID string, platform models.Platform) (*models.CurrentPrice, error) {
	card, err := s.card(ctx, cardID)
	if err != nil {
		return nil, err
	}
	out := &models.CurrentPrice{
		CardID:      card.ID,
		CardName:    card.Name,
		Platform:    platform,
		Currency:    platform.Currency(),
		LastUpdated: card.UpdatedAt,
	}
	if price, ok := card.PriceFor(platform); ok {
		f := price.InexactFloat64()
		out.Price = &f
	}
	return out, nil
}

// dayBounds returns the UTC calendar day containing t
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := t.UTC().Truncate(24 * time.Hour)
	return start, start.Add(24 * time.Hour)
}

func (s *PriceService) recordedToday(tx *gorm.DB, cardID string, platform models.Platform, now time.Time) (bool, error) {
	start, end := dayBounds(now)
	var count int64
	err := tx.Model(&models.PriceHistory{}).
		Where("card_id = ? AND platform = ? AND recorded_at >= ? AND recorded_at < ?", cardID, platform, start, end).
		Count(&count).Error
	return count > 0, err
}

// RecordPrice appends today's cached price to the history. A second call on
// the same day is skipped unless force is set.
func (s *PriceService) RecordPrice(ctx context.Context, cardID string, platform models.Platform, force bool) (*models.RecordPriceResult, error) {
	card, err := s.card(ctx, cardID)
	if err != nil {
		return nil, err
	}
	price, ok := card.PriceFor(platform)
	if !ok || !price.IsPositive() {
		return nil, fmt.Errorf("no price available for %s: %w", platform, ErrNotFound)
	}

	now := s.now()
	var result *models.RecordPriceResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !force {
			exists, err := s.recordedToday(tx, cardID, platform, now)
			if err != nil {
				return err
			}
			if exists {
				result = &models.RecordPriceResult{Message: "Price already recorded today", Skipped: true}
				return nil
			}
		}
		point := models.PriceHistory{
			CardID:     cardID,
			Platform:   platform,
			Price:      price.InexactFloat64(),
			Currency:   platform.Currency(),
			RecordedAt: now.UTC(),
		}
		if err := tx.Create(&point).Error; err != nil {
			return err
		}
		result = &models.RecordPriceResult{Message: "Price recorded successfully", Price: point.Price, Currency: point.Currency}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record price: %w", err)
	}
	if !result.Skipped {
		metrics.PricePointsRecorded.WithLabelValues(string(platform)).Inc()
	}
	return result, nil
}

// RecordCollectionPrices records today's price for every distinct card in
// the collection. One card failing does not stop the others.
func (s *PriceService) RecordCollectionPrices(ctx context.Context, platform models.Platform) (*models.BulkRecordResult, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.CollectionItem{}).Distinct("card_id").Pluck("card_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list collection cards: %w", err)
	}
	result := s.RecordMany(ctx, ids, platform)
	result.Message = "Bulk price recording completed"
	return result, nil
}

// RecordMany records today's price for each card id without forcing
func (s *PriceService) RecordMany(ctx context.Context, cardIDs []string, platform models.Platform) *models.BulkRecordResult {
	result := &models.BulkRecordResult{Total: len(cardIDs)}
	for _, id := range cardIDs {
		if ctx.Err() != nil {
			result.Failed++
			continue
		}
		rec, err := s.RecordPrice(ctx, id, platform, false)
		switch {
		case errors.Is(err, ErrNotFound):
			result.Skipped++
		case err != nil:
			s.log.WithError(err).WithFields(logrus.Fields{"card_id": id, "platform": platform}).Warn("Prices: failed to record price")
			result.Failed++
		case rec.Skipped:
			result.Skipped++
		default:
			result.Recorded++
		}
	}
	return result
}

// History returns the points recorded for a card within the last days,
// oldest first
func (s *PriceService) History(ctx context.Context, cardID string, platform models.Platform, days int) (*models.PriceHistoryResponse, error) {
	if days == 0 {
		days = defaultHistoryDays
	}
	if days < 1 {
		return nil, invalid("days", "must be at least 1")
	}
	since := s.now().UTC().AddDate(0, 0, -days)

	var points []models.PriceHistory
	err := s.db.WithContext(ctx).
		Where("card_id = ? AND platform = ? AND recorded_at >= ?", cardID, platform, since).
		Order("recorded_at ASC, id ASC").
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}

	resp := &models.PriceHistoryResponse{Platform: platform, History: make([]models.PricePoint, 0, len(points))}
	if card, err := s.card(ctx, cardID); err == nil {
		resp.Card = card
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	for _, p := range points {
		resp.History = append(resp.History, models.PricePoint{Price: p.Price, Currency: p.Currency, Date: p.RecordedAt})
	}
	return resp, nil
}

func (s *PriceService) Trends(ctx context.Context, platform models.Platform, days, limit int) (*models.PriceTrends, error) {
	if days == 0 {
		days = defaultTrendDays
	}
	if limit == 0 {
		limit = defaultTrendLimit
	}
	if days < 1 {
		return nil, invalid("days", "must be at least 1")
	}
	if limit < 1 {
		return nil, invalid("limit", "must be at least 1")
	}
	since := s.now().UTC().AddDate(0, 0, -days)

	var points []models.PriceHistory
	err := s.db.WithContext(ctx).
		Preload("Card").
		Where("platform = ? AND recorded_at >= ?", platform, since).
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}

	trends := ComputeTrends(points, limit)
	return &trends, nil
}

// ComputeTrends compares each card's earliest and latest point. Cards whose
// earliest price is not positive are left out. Gainers and losers are ranked
// by absolute change and each capped at limit/2.
func ComputeTrends(points []models.PriceHistory, limit int) models.PriceTrends {
	type span struct {
		first, last models.PriceHistory
	}
	spans := map[string]*span{}
	for _, p := range points {
		sp, ok := spans[p.CardID]
		if !ok {
			spans[p.CardID] = &span{first: p, last: p}
			continue
		}
		if earlier(p, sp.first) {
			sp.first = p
		}
		if earlier(sp.last, p) {
			sp.last = p
		}
	}

	entries := make([]models.TrendEntry, 0, len(spans))
	changes := make(map[string]decimal.Decimal, len(spans))
	for cardID, sp := range spans {
		oldPrice := decimal.NewFromFloat(sp.first.Price)
		if !oldPrice.IsPositive() {
			continue
		}
		newPrice := decimal.NewFromFloat(sp.last.Price)
		change := newPrice.Sub(oldPrice).Div(oldPrice).Mul(decimal.NewFromInt(100))
		changes[cardID] = change

		e := models.TrendEntry{
			CardID:        cardID,
			OldPrice:      sp.first.Price,
			NewPrice:      sp.last.Price,
			PercentChange: change.Round(2).InexactFloat64(),
		}
		if c := firstCard(sp.first, sp.last); c != nil {
			e.Name, e.SetName, e.ImageURI = c.Name, c.SetName, c.ImageURI
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		ai, aj := changes[entries[i].CardID].Abs(), changes[entries[j].CardID].Abs()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return entries[i].CardID < entries[j].CardID
	})

	half := limit / 2
	trends := models.PriceTrends{Gainers: []models.TrendEntry{}, Losers: []models.TrendEntry{}}
	for _, e := range entries {
		change := changes[e.CardID]
		switch {
		case change.IsPositive() && len(trends.Gainers) < half:
			trends.Gainers = append(trends.Gainers, e)
		case change.IsNegative() && len(trends.Losers) < half:
			trends.Losers = append(trends.Losers, e)
		}
	}
	return trends
}

func earlier(a, b models.PriceHistory) bool {
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.Before(b.RecordedAt)
	}
	return a.ID < b.ID
}

func firstCard(points ...models.PriceHistory) *models.Card {
	for _, p := range points {
		if p.Card != nil {
			return p.Card
		}
	}
	return nil
}
