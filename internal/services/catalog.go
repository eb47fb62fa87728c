package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/magicgest/internal/metrics"
	"github.com/codyseavey/magicgest/internal/models"
)

const nameCacheSize = 2048

// CatalogService keeps the local card cache in step with Scryfall. Every
// card read from Scryfall is written back as a full overwrite.
type CatalogService struct {
	db       *gorm.DB
	scryfall *ScryfallService
	names    *lru.Cache[string, string] // lowercased exact name -> card id
	log      logrus.FieldLogger
}

func NewCatalogService(db *gorm.DB, scryfall *ScryfallService, log logrus.FieldLogger) *CatalogService {
	names, _ := lru.New[string, string](nameCacheSize)
	return &CatalogService{
		db:       db,
		scryfall: scryfall,
		names:    names,
		log:      log,
	}
}

// Upsert writes cards to the cache, replacing every column of existing rows
func (s *CatalogService) Upsert(ctx context.Context, cards ...models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&cards).Error
	if err != nil {
		return fmt.Errorf("upsert cards: %w", err)
	}
	metrics.CatalogUpsertsTotal.Add(float64(len(cards)))
	for _, c := range cards {
		s.names.Add(strings.ToLower(c.Name), c.ID)
	}
	return nil
}

func (s *CatalogService) Search(ctx context.Context, query string, page int) (*models.CardSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("q", "search query is required")
	}

	result, err := s.scryfall.SearchCards(ctx, query, page)
	if err != nil {
		return nil, err
	}
	if err := s.Upsert(ctx, result.Cards...); err != nil {
		return nil, err
	}
	return result, nil
}

// GetCard returns the cached card, fetching it from Scryfall on a miss
func (s *CatalogService) GetCard(ctx context.Context, id string) (*models.Card, error) {
	card, err := s.Cached(ctx, id)
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.RefreshCard(ctx, id)
}

// Cached reads a card from the local cache only
func (s *CatalogService) Cached(ctx context.Context, id string) (*models.Card, error) {
	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("card")
		}
		return nil, fmt.Errorf("load card: %w", err)
	}
	return &card, nil
}

// RefreshCard always fetches the card from Scryfall and overwrites the cache
func (s *CatalogService) RefreshCard(ctx context.Context, id string) (*models.Card, error) {
	card, err := s.scryfall.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Upsert(ctx, *card); err != nil {
		return nil, err
	}
	return card, nil
}

// ResolveByName finds a card by exact name, preferring the local cache
func (s *CatalogService) ResolveByName(ctx context.Context, name string) (*models.Card, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "card name is required")
	}
	key := strings.ToLower(name)

	if id, ok := s.names.Get(key); ok {
		if card, err := s.Cached(ctx, id); err == nil {
			return card, nil
		}
		s.names.Remove(key)
	}

	var card models.Card
	err := s.db.WithContext(ctx).Where("LOWER(name) = ?", key).Order("updated_at DESC").First(&card).Error
	if err == nil {
		s.names.Add(key, card.ID)
		return &card, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup card by name: %w", err)
	}

	fetched, err := s.scryfall.GetCardByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.Upsert(ctx, *fetched); err != nil {
		return nil, err
	}
	s.names.Add(key, fetched.ID)
	return fetched, nil
}

func (s *CatalogService) RandomCard(ctx context.Context) (*models.Card, error) {
	card, err := s.scryfall.GetRandomCard(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Upsert(ctx, *card); err != nil {
		return nil, err
	}
	return card, nil
}
