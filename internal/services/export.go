package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/codyseavey/magicgest/internal/models"
)

// CollectionExportRow is the portable form of one collection entry
type CollectionExportRow struct {
	Name            string           `json:"name"`
	SetCode         string           `json:"set_code"`
	SetName         string           `json:"set_name"`
	CollectorNumber string           `json:"collector_number"`
	Quantity        int              `json:"quantity"`
	Condition       models.Condition `json:"condition"`
	Foil            bool             `json:"foil"`
	Language        string           `json:"language"`
	Notes           string           `json:"notes"`
	ScryfallID      string           `json:"scryfall_id"`
}

var collectionCSVHeader = []string{"Name", "Set Code", "Set Name", "Collector Number", "Quantity", "Condition", "Foil", "Language"}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9]`)

type ExportService struct {
	collection *CollectionService
	decks      *DeckService
}

func NewExportService(collection *CollectionService, decks *DeckService) *ExportService {
	return &ExportService{collection: collection, decks: decks}
}

func CollectionRows(items []models.CollectionItem) []CollectionExportRow {
	rows := make([]CollectionExportRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, CollectionExportRow{
			Name:            item.Card.Name,
			SetCode:         item.Card.SetCode,
			SetName:         item.Card.SetName,
			CollectorNumber: item.Card.CollectorNumber,
			Quantity:        item.Quantity,
			Condition:       item.Condition,
			Foil:            item.Foil,
			Language:        item.Language,
			Notes:           item.Notes,
			ScryfallID:      item.CardID,
		})
	}
	return rows
}

// WriteCollectionCSV writes a header row followed by one row per entry
func WriteCollectionCSV(w io.Writer, rows []CollectionExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(collectionCSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		foil := "No"
		if r.Foil {
			foil = "Yes"
		}
		record := []string{r.Name, r.SetCode, r.SetName, r.CollectorNumber, strconv.Itoa(r.Quantity), string(r.Condition), foil, r.Language}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DeckText renders a deck in MTGO text form. The sideboard section is only
// written when the deck has sideboard cards.
func DeckText(deck models.Deck, entries []models.DeckCard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// %s\n", deck.Name)
	if deck.Format != "" {
		fmt.Fprintf(&b, "// Format: %s\n", deck.Format)
	}
	b.WriteString("\n")

	var sideboard []models.DeckCard
	for _, e := range entries {
		if e.Category == models.CategorySideboard {
			sideboard = append(sideboard, e)
			continue
		}
		fmt.Fprintf(&b, "%d %s\n", e.Quantity, e.Card.Name)
	}
	if len(sideboard) > 0 {
		b.WriteString("\nSideboard\n")
		for _, e := range sideboard {
			fmt.Fprintf(&b, "%d %s\n", e.Quantity, e.Card.Name)
		}
	}
	return b.String()
}

// DeckFilename replaces everything but ASCII letters and digits with "_"
func DeckFilename(name string) string {
	base := unsafeFilenameChars.ReplaceAllString(name, "_")
	if base == "" {
		base = "deck"
	}
	return base + ".txt"
}

func (s *ExportService) CollectionJSON(ctx context.Context) ([]CollectionExportRow, error) {
	items, err := s.collection.List(ctx, CollectionFilter{SortBy: "name", Order: "ASC"})
	if err != nil {
		return nil, err
	}
	return CollectionRows(items), nil
}

func (s *ExportService) CollectionCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.CollectionJSON(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteCollectionCSV(&buf, rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Deck returns the attachment filename and text of a deck
func (s *ExportService) Deck(ctx context.Context, deckID uint) (string, string, error) {
	deck, err := s.decks.deck(ctx, deckID)
	if err != nil {
		return "", "", err
	}
	entries, err := s.decks.entries(ctx, deckID, "")
	if err != nil {
		return "", "", err
	}
	return DeckFilename(deck.Name), DeckText(*deck, entries), nil
}
