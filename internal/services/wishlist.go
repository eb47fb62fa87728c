package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/codyseavey/magicgest/internal/models"
)

type WishlistService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewWishlistService(db *gorm.DB, log logrus.FieldLogger) *WishlistService {
	return &WishlistService{db: db, log: log}
}

const wishlistOrder = "CASE wishlist_items.priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END, wishlist_items.added_at DESC, wishlist_items.id DESC"

// List returns the wishlist, highest priority first and newest first within a tier
func (s *WishlistService) List(ctx context.Context) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	if err := s.db.WithContext(ctx).Preload("Card").Order(wishlistOrder).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return items, nil
}

func (s *WishlistService) Get(ctx context.Context, id uint) (*models.WishlistItem, error) {
	var item models.WishlistItem
	if err := s.db.WithContext(ctx).Preload("Card").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("wishlist item")
		}
		return nil, fmt.Errorf("load wishlist item: %w", err)
	}
	return &item, nil
}

func (s *WishlistService) Add(ctx context.Context, req models.AddToWishlistRequest) (*models.WishlistItem, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, invalid("quantity", "must be at least 1")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, invalid("priority", "must be high, medium or low")
	}
	if req.MaxPrice != nil && *req.MaxPrice < 0 {
		return nil, invalid("max_price", "must not be negative")
	}

	item := models.WishlistItem{
		CardID:   req.CardID,
		Quantity: quantity,
		MaxPrice: req.MaxPrice,
		Priority: priority,
		Notes:    req.Notes,
		AddedAt:  time.Now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCard(tx, req.CardID); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.WishlistItem{}).Where("card_id = ?", req.CardID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("card already in wishlist: %w", ErrConflict)
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, wrapStorage("add to wishlist", err)
	}
	return s.Get(ctx, item.ID)
}

func (s *WishlistService) Update(ctx context.Context, id uint, req models.UpdateWishlistRequest) (*models.WishlistItem, error) {
	updates := map[string]any{}
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return nil, invalid("quantity", "must be at least 1")
		}
		updates["quantity"] = *req.Quantity
	}
	if req.MaxPrice != nil {
		if *req.MaxPrice < 0 {
			return nil, invalid("max_price", "must not be negative")
		}
		updates["max_price"] = *req.MaxPrice
	}
	if req.Priority != nil {
		if !req.Priority.IsValid() {
			return nil, invalid("priority", "must be high, medium or low")
		}
		updates["priority"] = *req.Priority
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		return nil, invalid("", "no fields to update")
	}

	result := s.db.WithContext(ctx).Model(&models.WishlistItem{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("update wishlist item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, notFound("wishlist item")
	}
	return s.Get(ctx, id)
}

func (s *WishlistService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.WishlistItem{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete wishlist item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("wishlist item")
	}
	return nil
}

// Affordable returns items that have a price ceiling and whose current price
// on the platform is known and within it
func (s *WishlistService) Affordable(ctx context.Context, platform models.Platform) ([]models.AffordableItem, error) {
	var items []models.WishlistItem
	if err := s.db.WithContext(ctx).Preload("Card").Where("max_price IS NOT NULL").Order(wishlistOrder).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}

	out := []models.AffordableItem{}
	for _, item := range items {
		price, ok := item.Card.PriceFor(platform)
		if !ok || !price.IsPositive() {
			continue
		}
		if price.GreaterThan(decimal.NewFromFloat(*item.MaxPrice)) {
			continue
		}
		out = append(out, models.AffordableItem{WishlistItem: item, CurrentPrice: price.InexactFloat64()})
	}
	return out, nil
}

func (s *WishlistService) Stats(ctx context.Context, platform models.Platform) (*models.WishlistStats, error) {
	var items []models.WishlistItem
	if err := s.db.WithContext(ctx).Preload("Card").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}

	total, affordable := decimal.Zero, decimal.Zero
	stats := &models.WishlistStats{TotalItems: len(items), ByPriority: []models.PriorityCount{}}
	counts := map[models.Priority]int{}
	for _, item := range items {
		counts[item.Priority]++
		price, ok := item.Card.PriceFor(platform)
		if !ok {
			continue
		}
		itemTotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(itemTotal)
		if item.MaxPrice != nil && price.IsPositive() && price.LessThanOrEqual(decimal.NewFromFloat(*item.MaxPrice)) {
			affordable = affordable.Add(itemTotal)
			stats.AffordableCount++
		}
	}
	stats.TotalValue = total.Round(2).InexactFloat64()
	stats.AffordableValue = affordable.Round(2).InexactFloat64()

	for _, p := range []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		if counts[p] > 0 {
			stats.ByPriority = append(stats.ByPriority, models.PriorityCount{Priority: p, Count: counts[p]})
		}
	}
	return stats, nil
}
