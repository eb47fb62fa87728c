package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/codyseavey/magicgest/internal/models"
)

// DeckService stores decks and their card lists. Every write to a deck's
// card list touches the deck's updated_at in the same transaction.
type DeckService struct {
	db      *gorm.DB
	catalog *CatalogService
	log     logrus.FieldLogger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewDeckService(db *gorm.DB, catalog *CatalogService, log logrus.FieldLogger) *DeckService {
	return &DeckService{
		db:      db,
		catalog: catalog,
		log:     log,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// List returns every deck with its entry count and total card quantity,
// most recently updated first
func (s *DeckService) List(ctx context.Context) ([]models.DeckSummary, error) {
	var decks []models.Deck
	if err := s.db.WithContext(ctx).Order("updated_at DESC, id DESC").Find(&decks).Error; err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}

	type deckCount struct {
		DeckID     uint
		CardCount  int
		TotalCards int
	}
	var counts []deckCount
	err := s.db.WithContext(ctx).Model(&models.DeckCard{}).
		Select("deck_id, COUNT(id) AS card_count, COALESCE(SUM(quantity), 0) AS total_cards").
		Group("deck_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count deck cards: %w", err)
	}
	byDeck := make(map[uint]deckCount, len(counts))
	for _, c := range counts {
		byDeck[c.DeckID] = c
	}

	out := make([]models.DeckSummary, 0, len(decks))
	for _, d := range decks {
		c := byDeck[d.ID]
		out = append(out, models.DeckSummary{Deck: d, CardCount: c.CardCount, TotalCards: c.TotalCards})
	}
	return out, nil
}

func (s *DeckService) deck(ctx context.Context, id uint) (*models.Deck, error) {
	var deck models.Deck
	if err := s.db.WithContext(ctx).First(&deck, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("deck")
		}
		return nil, fmt.Errorf("load deck: %w", err)
	}
	return &deck, nil
}

// entries loads a deck's cards ordered by category, mana value and name. An
// empty category loads both.
func (s *DeckService) entries(ctx context.Context, deckID uint, category models.DeckCategory) ([]models.DeckCard, error) {
	query := s.db.WithContext(ctx).
		Preload("Card").
		Joins("JOIN cards ON cards.id = deck_cards.card_id").
		Where("deck_cards.deck_id = ?", deckID)
	if category != "" {
		query = query.Where("deck_cards.category = ?", category)
	}

	var entries []models.DeckCard
	if err := query.Order("deck_cards.category, cards.cmc, cards.name").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load deck cards: %w", err)
	}
	return entries, nil
}

func (s *DeckService) Get(ctx context.Context, id uint) (*models.DeckDetail, error) {
	deck, err := s.deck(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries(ctx, id, "")
	if err != nil {
		return nil, err
	}
	return &models.DeckDetail{
		Deck:  *deck,
		Cards: entries,
		Value: deckValue(entries, models.PlatformScryfallUSD),
	}, nil
}

func (s *DeckService) Create(ctx context.Context, req models.CreateDeckRequest) (*models.Deck, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "deck name is required")
	}
	deck := models.Deck{
		Name:          name,
		Format:        req.Format,
		Description:   req.Description,
		ColorIdentity: req.ColorIdentity,
	}
	if err := s.db.WithContext(ctx).Create(&deck).Error; err != nil {
		return nil, fmt.Errorf("create deck: %w", err)
	}
	s.log.WithField("deck_id", deck.ID).Info("Decks: created deck")
	return &deck, nil
}

func (s *DeckService) Update(ctx context.Context, id uint, req models.UpdateDeckRequest) (*models.Deck, error) {
	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name", "deck name must not be empty")
		}
		updates["name"] = name
	}
	if req.Format != nil {
		updates["format"] = *req.Format
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ColorIdentity != nil {
		updates["color_identity"] = *req.ColorIdentity
	}
	if len(updates) == 0 {
		return nil, invalid("", "no fields to update")
	}
	updates["updated_at"] = time.Now()

	result := s.db.WithContext(ctx).Model(&models.Deck{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("update deck: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, notFound("deck")
	}
	return s.deck(ctx, id)
}

// Delete removes a deck and all of its entries
func (s *DeckService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deck_id = ?", id).Delete(&models.DeckCard{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Deck{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFound("deck")
		}
		return nil
	})
	return wrapStorage("delete deck", err)
}

// AddCard adds copies of a cached card to a deck. An existing entry for the
// same card and category absorbs the quantity.
func (s *DeckService) AddCard(ctx context.Context, deckID uint, req models.AddDeckCardRequest) (*models.DeckCardUpdateResponse, error) {
	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, invalid("quantity", "must be at least 1")
	}
	category := req.Category
	if category == "" {
		category = models.CategoryMainboard
	}
	if !category.IsValid() {
		return nil, invalid("category", "must be mainboard or sideboard")
	}

	var (
		entry     models.DeckCard
		operation = "created"
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireDeck(tx, deckID); err != nil {
			return err
		}
		if err := requireCard(tx, req.CardID); err != nil {
			return err
		}

		err := tx.Where("deck_id = ? AND card_id = ? AND category = ?", deckID, req.CardID, category).First(&entry).Error
		switch {
		case err == nil:
			entry.Quantity += quantity
			operation = "merged"
			if err := tx.Model(&entry).Update("quantity", entry.Quantity).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = models.DeckCard{DeckID: deckID, CardID: req.CardID, Quantity: quantity, Category: category}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		default:
			return err
		}
		return touchDeck(tx, deckID)
	})
	if err != nil {
		return nil, wrapStorage("add card to deck", err)
	}

	loaded, err := s.entry(ctx, deckID, entry.ID)
	if err != nil {
		return nil, err
	}
	return &models.DeckCardUpdateResponse{Entry: loaded, Operation: operation}, nil
}

// UpdateCard changes an entry's quantity or category. A quantity below 1
// removes the entry; moving it onto an existing entry merges the two.
func (s *DeckService) UpdateCard(ctx context.Context, deckID, entryID uint, req models.UpdateDeckCardRequest) (*models.DeckCardUpdateResponse, error) {
	if req.Quantity == nil && req.Category == nil {
		return nil, invalid("", "no fields to update")
	}
	if req.Category != nil && !req.Category.IsValid() {
		return nil, invalid("category", "must be mainboard or sideboard")
	}

	var (
		resultID  uint
		operation = "updated"
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.DeckCard
		if err := tx.Where("id = ? AND deck_id = ?", entryID, deckID).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("deck card")
			}
			return err
		}

		if req.Quantity != nil && *req.Quantity < 1 {
			operation = "deleted"
			if err := tx.Delete(&entry).Error; err != nil {
				return err
			}
			return touchDeck(tx, deckID)
		}

		if req.Quantity != nil {
			entry.Quantity = *req.Quantity
		}
		resultID = entry.ID

		if req.Category != nil && *req.Category != entry.Category {
			var other models.DeckCard
			err := tx.Where("deck_id = ? AND card_id = ? AND category = ?", deckID, entry.CardID, *req.Category).First(&other).Error
			switch {
			case err == nil:
				other.Quantity += entry.Quantity
				if err := tx.Model(&other).Update("quantity", other.Quantity).Error; err != nil {
					return err
				}
				if err := tx.Delete(&entry).Error; err != nil {
					return err
				}
				operation = "merged"
				resultID = other.ID
				return touchDeck(tx, deckID)
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
			entry.Category = *req.Category
		}

		if err := tx.Model(&entry).Updates(map[string]any{"quantity": entry.Quantity, "category": entry.Category}).Error; err != nil {
			return err
		}
		return touchDeck(tx, deckID)
	})
	if err != nil {
		return nil, wrapStorage("update deck card", err)
	}

	if operation == "deleted" {
		return &models.DeckCardUpdateResponse{Operation: operation}, nil
	}
	loaded, err := s.entry(ctx, deckID, resultID)
	if err != nil {
		return nil, err
	}
	return &models.DeckCardUpdateResponse{Entry: loaded, Operation: operation}, nil
}

func (s *DeckService) RemoveCard(ctx context.Context, deckID, entryID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND deck_id = ?", entryID, deckID).Delete(&models.DeckCard{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFound("deck card")
		}
		return touchDeck(tx, deckID)
	})
	return wrapStorage("remove card from deck", err)
}

func (s *DeckService) entry(ctx context.Context, deckID, entryID uint) (*models.DeckCard, error) {
	var entry models.DeckCard
	if err := s.db.WithContext(ctx).Preload("Card").Where("id = ? AND deck_id = ?", entryID, deckID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("deck card")
		}
		return nil, fmt.Errorf("load deck card: %w", err)
	}
	return &entry, nil
}

// Import adds every line of a plain-text decklist to the deck. Lines that
// cannot be parsed or resolved are reported and skipped.
func (s *DeckService) Import(ctx context.Context, deckID uint, text string) (*models.DeckImportResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, invalid("text", "decklist is empty")
	}
	if _, err := s.deck(ctx, deckID); err != nil {
		return nil, err
	}

	lines, parseErrs := ParseDecklist(text)
	result := &models.DeckImportResult{Errors: parseErrs}
	result.Failed = len(parseErrs)

	for _, line := range lines {
		card, err := s.catalog.ResolveByName(ctx, line.Name)
		if err == nil {
			_, err = s.AddCard(ctx, deckID, models.AddDeckCardRequest{CardID: card.ID, Quantity: line.Quantity, Category: line.Category})
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, models.DeckImportError{Line: line.Line, Text: line.Text, Error: err.Error()})
			continue
		}
		result.Added++
	}
	if result.Errors == nil {
		result.Errors = []models.DeckImportError{}
	}

	s.log.WithFields(logrus.Fields{"deck_id": deckID, "added": result.Added, "failed": result.Failed}).Info("Decks: decklist imported")
	return result, nil
}

func requireDeck(tx *gorm.DB, deckID uint) error {
	var count int64
	if err := tx.Model(&models.Deck{}).Where("id = ?", deckID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound("deck")
	}
	return nil
}

func touchDeck(tx *gorm.DB, deckID uint) error {
	return tx.Model(&models.Deck{}).Where("id = ?", deckID).Update("updated_at", time.Now()).Error
}

func deckValue(entries []models.DeckCard, platform models.Platform) float64 {
	items := make([]models.CollectionItem, len(entries))
	for i, e := range entries {
		items[i] = models.CollectionItem{Card: e.Card, Quantity: e.Quantity}
	}
	return CollectionValue(items, platform).Round(2).InexactFloat64()
}
