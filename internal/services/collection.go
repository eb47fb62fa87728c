package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/codyseavey/magicgest/internal/models"
)

// Maximum quantity allowed per collection item
const maxQuantity = 9999

const topSetsLimit = 10

type CollectionService struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewCollectionService(db *gorm.DB, log logrus.FieldLogger) *CollectionService {
	return &CollectionService{db: db, log: log}
}

// CollectionFilter narrows and orders a collection listing
type CollectionFilter struct {
	Search string
	SortBy string
	Order  string
}

var collectionSortColumns = map[string]string{
	"added_at":  "collection_items.added_at",
	"quantity":  "collection_items.quantity",
	"condition": "collection_items.condition",
	"name":      "cards.name",
}

func (s *CollectionService) List(ctx context.Context, f CollectionFilter) ([]models.CollectionItem, error) {
	column, ok := collectionSortColumns[f.SortBy]
	if f.SortBy == "" {
		column, ok = collectionSortColumns["added_at"], true
	}
	if !ok {
		return nil, invalid("sortBy", "unsupported sort column %q", f.SortBy)
	}

	direction := "DESC"
	switch strings.ToUpper(f.Order) {
	case "", "DESC":
	case "ASC":
		direction = "ASC"
	default:
		return nil, invalid("order", "must be ASC or DESC")
	}

	query := s.db.WithContext(ctx).
		Preload("Card").
		Joins("JOIN cards ON cards.id = collection_items.card_id")
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + term + "%"
		query = query.Where("cards.name LIKE ? OR cards.set_name LIKE ?", like, like)
	}

	var items []models.CollectionItem
	if err := query.Order(column + " " + direction).Order("collection_items.id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list collection: %w", err)
	}
	return items, nil
}

func (s *CollectionService) Get(ctx context.Context, id uint) (*models.CollectionItem, error) {
	var item models.CollectionItem
	if err := s.db.WithContext(ctx).Preload("Card").First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("collection item")
		}
		return nil, fmt.Errorf("load collection item: %w", err)
	}
	return &item, nil
}

// Add stores owned copies. Adding a (card, condition, foil) combination that
// already exists increments that row instead of creating a second one.
func (s *CollectionService) Add(ctx context.Context, req models.AddToCollectionRequest) (*models.CollectionUpdateResponse, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, invalid("quantity", "must be at least 1")
	}
	if quantity > maxQuantity {
		return nil, invalid("quantity", "exceeds maximum allowed (%d)", maxQuantity)
	}
	condition := req.Condition
	if condition == "" {
		condition = models.ConditionNearMint
	}
	if !condition.IsValid() {
		return nil, invalid("condition", "unknown condition %q", condition)
	}
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = models.DefaultLanguage
	}

	var (
		item      models.CollectionItem
		operation = "created"
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireCard(tx, req.CardID); err != nil {
			return err
		}

		err := tx.Where("card_id = ? AND condition = ? AND foil = ?", req.CardID, condition, req.Foil).First(&item).Error
		switch {
		case err == nil:
			if item.Quantity+quantity > maxQuantity {
				return invalid("quantity", "exceeds maximum allowed (%d)", maxQuantity)
			}
			item.Quantity += quantity
			operation = "merged"
			return tx.Model(&item).Update("quantity", item.Quantity).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CollectionItem{
				CardID:    req.CardID,
				Quantity:  quantity,
				Condition: condition,
				Foil:      req.Foil,
				Language:  language,
				Notes:     req.Notes,
				AddedAt:   time.Now(),
			}
			return tx.Create(&item).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, wrapStorage("add to collection", err)
	}

	loaded, err := s.Get(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"card_id": req.CardID, "quantity": quantity, "operation": operation}).Debug("Collection: item stored")
	return &models.CollectionUpdateResponse{Item: loaded, Operation: operation}, nil
}

// Update applies a partial edit. A quantity below 1 deletes the row; a change
// of condition or foil that collides with another row merges the two.
func (s *CollectionService) Update(ctx context.Context, id uint, req models.UpdateCollectionRequest) (*models.CollectionUpdateResponse, error) {
	if req.Quantity == nil && req.Condition == nil && req.Foil == nil && req.Language == nil && req.Notes == nil {
		return nil, invalid("", "no fields to update")
	}
	if req.Condition != nil && !req.Condition.IsValid() {
		return nil, invalid("condition", "unknown condition %q", *req.Condition)
	}
	if req.Quantity != nil && *req.Quantity > maxQuantity {
		return nil, invalid("quantity", "exceeds maximum allowed (%d)", maxQuantity)
	}

	var (
		resultID  uint
		operation = "updated"
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CollectionItem
		if err := tx.First(&item, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("collection item")
			}
			return err
		}

		if req.Quantity != nil && *req.Quantity < 1 {
			operation = "deleted"
			return tx.Delete(&item).Error
		}

		if req.Quantity != nil {
			item.Quantity = *req.Quantity
		}
		if req.Condition != nil {
			item.Condition = *req.Condition
		}
		if req.Foil != nil {
			item.Foil = *req.Foil
		}
		if req.Language != nil {
			item.Language = *req.Language
		}
		if req.Notes != nil {
			item.Notes = *req.Notes
		}

		var other models.CollectionItem
		err := tx.Where("card_id = ? AND condition = ? AND foil = ? AND id <> ?", item.CardID, item.Condition, item.Foil, item.ID).
			First(&other).Error
		switch {
		case err == nil:
			other.Quantity += item.Quantity
			if other.Quantity > maxQuantity {
				return invalid("quantity", "exceeds maximum allowed (%d)", maxQuantity)
			}
			if req.Notes != nil {
				other.Notes = item.Notes
			}
			if err := tx.Save(&other).Error; err != nil {
				return err
			}
			operation = "merged"
			resultID = other.ID
			return tx.Delete(&item).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			resultID = item.ID
			return tx.Save(&item).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, wrapStorage("update collection item", err)
	}

	if operation == "deleted" {
		return &models.CollectionUpdateResponse{Operation: operation, Message: "item removed from collection"}, nil
	}
	loaded, err := s.Get(ctx, resultID)
	if err != nil {
		return nil, err
	}
	return &models.CollectionUpdateResponse{Item: loaded, Operation: operation}, nil
}

func (s *CollectionService) Remove(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.CollectionItem{}, id)
	if result.Error != nil {
		return fmt.Errorf("remove collection item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("collection item")
	}
	return nil
}

// RemoveQuantity decrements an item, deleting it when fewer than one copy
// would remain
func (s *CollectionService) RemoveQuantity(ctx context.Context, id uint, n int) (*models.CollectionUpdateResponse, error) {
	if n < 1 {
		return nil, invalid("quantity", "must be at least 1")
	}
	var remaining int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CollectionItem
		if err := tx.First(&item, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("collection item")
			}
			return err
		}
		remaining = item.Quantity - n
		if remaining < 1 {
			return tx.Delete(&item).Error
		}
		return tx.Model(&item).Update("quantity", remaining).Error
	})
	if err != nil {
		return nil, wrapStorage("remove quantity", err)
	}
	if remaining < 1 {
		return &models.CollectionUpdateResponse{Operation: "deleted", Message: "item removed from collection"}, nil
	}
	loaded, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.CollectionUpdateResponse{Item: loaded, Operation: "updated"}, nil
}

func (s *CollectionService) Stats(ctx context.Context, platform models.Platform) (*models.CollectionStats, error) {
	var items []models.CollectionItem
	if err := s.db.WithContext(ctx).Preload("Card").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}

	stats := &models.CollectionStats{
		UniqueCards: len(items),
		Platform:    platform,
		Currency:    platform.Currency(),
		ByRarity:    []models.RarityCount{},
		TopSets:     []models.SetCount{},
	}

	rarity := map[string]int{}
	sets := map[string]*models.SetCount{}
	for i := range items {
		item := &items[i]
		stats.TotalCards += item.Quantity
		rarity[string(item.Card.Rarity)] += item.Quantity
		if sc, ok := sets[item.Card.SetCode]; ok {
			sc.Count += item.Quantity
		} else {
			sets[item.Card.SetCode] = &models.SetCount{SetCode: item.Card.SetCode, SetName: item.Card.SetName, Count: item.Quantity}
		}
	}
	stats.TotalValue = CollectionValue(items, platform).Round(2).InexactFloat64()

	for r, n := range rarity {
		stats.ByRarity = append(stats.ByRarity, models.RarityCount{Rarity: r, Count: n})
	}
	sort.Slice(stats.ByRarity, func(i, j int) bool { return stats.ByRarity[i].Rarity < stats.ByRarity[j].Rarity })

	for _, sc := range sets {
		stats.TopSets = append(stats.TopSets, *sc)
	}
	sort.Slice(stats.TopSets, func(i, j int) bool {
		if stats.TopSets[i].Count != stats.TopSets[j].Count {
			return stats.TopSets[i].Count > stats.TopSets[j].Count
		}
		return stats.TopSets[i].SetCode < stats.TopSets[j].SetCode
	})
	if len(stats.TopSets) > topSetsLimit {
		stats.TopSets = stats.TopSets[:topSetsLimit]
	}
	return stats, nil
}

// CollectionValue sums quantity x platform price. Items without a price for
// the platform contribute nothing.
func CollectionValue(items []models.CollectionItem, platform models.Platform) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		price, ok := items[i].Card.PriceFor(platform)
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(items[i].Quantity))))
	}
	return total
}

func requireCard(tx *gorm.DB, cardID string) error {
	var count int64
	if err := tx.Model(&models.Card{}).Where("id = ?", cardID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound("card")
	}
	return nil
}

// wrapStorage leaves nil and domain errors untouched and wraps everything else
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrDeckEmpty) || IsValidation(err) || IsUpstream(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
