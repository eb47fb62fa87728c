package services

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/codyseavey/magicgest/internal/models"
)

const (
	defaultHandSize = 7
	maxCopies       = 4
	curveOverflow   = 7 // mana values at or above this share the "7+" bucket
)

// typeBuckets is scanned in order; the first bucket contained in a card's
// type line receives the card's full quantity
var typeBuckets = []string{"creature", "instant", "sorcery", "enchantment", "artifact", "planeswalker", "land"}

const typeOther = "other"

// ComputeDeckStats derives curve, color, type and average mana value for one
// category of a deck. An empty input yields empty distributions.
func ComputeDeckStats(entries []models.DeckCard) models.DeckStats {
	stats := models.DeckStats{
		ManaCurve:         []models.CurvePoint{},
		ColorDistribution: map[string]int{},
		TypeDistribution:  map[string]int{},
	}
	if len(entries) == 0 {
		return stats
	}

	for _, c := range append(models.AllColors(), models.ColorColorless) {
		stats.ColorDistribution[string(c)] = 0
	}
	for _, t := range typeBuckets {
		stats.TypeDistribution[t] = 0
	}
	stats.TypeDistribution[typeOther] = 0

	curve := map[int]int{}
	var totalCMC float64
	for _, e := range entries {
		q := e.Quantity
		stats.TotalCards += q
		totalCMC += manaValue(e.Card) * float64(q)

		curve[curveBucket(e.Card.CMC)] += q

		colors := e.Card.Colors
		if len(colors) == 0 {
			stats.ColorDistribution[string(models.ColorColorless)] += q
		} else {
			for _, c := range colors {
				if _, ok := stats.ColorDistribution[string(c)]; ok {
					stats.ColorDistribution[string(c)] += q
				}
			}
		}

		stats.TypeDistribution[typeBucket(e.Card.TypeLine)] += q
	}

	buckets := make([]int, 0, len(curve))
	for b := range curve {
		buckets = append(buckets, b)
	}
	sort.Ints(buckets)
	for _, b := range buckets {
		stats.ManaCurve = append(stats.ManaCurve, models.CurvePoint{CMC: curveLabel(b), Count: curve[b]})
	}

	if stats.TotalCards > 0 {
		stats.AvgCMC = round2(totalCMC / float64(stats.TotalCards))
	}
	return stats
}

// AnalyzeDeck checks format legality of a mainboard and suggests curve and
// land ratio improvements
func AnalyzeDeck(deck models.Deck, mainboard []models.DeckCard) models.DeckAnalysis {
	analysis := models.DeckAnalysis{
		DeckName:    deck.Name,
		Format:      deck.Format,
		Issues:      []string{},
		Suggestions: []string{},
	}

	var totalCMC float64
	for _, e := range mainboard {
		analysis.TotalCards += e.Quantity
		totalCMC += manaValue(e.Card) * float64(e.Quantity)
		if isLand(e.Card.TypeLine) {
			analysis.LandCount += e.Quantity
		}
	}

	switch deck.Format {
	case models.FormatCommander:
		if analysis.TotalCards != 99 {
			analysis.Issues = append(analysis.Issues, fmt.Sprintf("Commander decks must have exactly 99 cards (current: %d)", analysis.TotalCards))
		}
	case models.FormatStandard, models.FormatModern, models.FormatPioneer:
		if analysis.TotalCards < 60 {
			analysis.Issues = append(analysis.Issues, fmt.Sprintf("%s decks must have at least 60 cards (current: %d)", deck.Format, analysis.TotalCards))
		}
	}

	if deck.Format != models.FormatCommander {
		for _, e := range mainboard {
			if !isBasicLand(e.Card.TypeLine) && e.Quantity > maxCopies {
				analysis.Issues = append(analysis.Issues, fmt.Sprintf("%s: %d copies (max %d allowed)", e.Card.Name, e.Quantity, maxCopies))
			}
		}
	}

	if analysis.TotalCards == 0 {
		return analysis
	}

	landPct := float64(analysis.LandCount*100) / float64(analysis.TotalCards)
	avg := totalCMC / float64(analysis.TotalCards)
	analysis.LandPercentage = math.Round(landPct*10) / 10
	analysis.AvgCMC = round2(avg)

	switch {
	case landPct < 30:
		analysis.Suggestions = append(analysis.Suggestions, fmt.Sprintf("Consider adding more lands (current: %.1f%%)", landPct))
	case landPct > 50:
		analysis.Suggestions = append(analysis.Suggestions, fmt.Sprintf("Too many lands (current: %.1f%%)", landPct))
	}
	if avg > 4 {
		analysis.Suggestions = append(analysis.Suggestions, fmt.Sprintf("High average CMC (%.2f). Consider adding more low-cost cards.", avg))
	}
	return analysis
}

// DrawOpeningHand shuffles the expanded mainboard and draws
// max(handSize-mulligans, 1) cards, capped at the deck size
func DrawOpeningHand(mainboard []models.DeckCard, handSize, mulligans int, rng *rand.Rand) (*models.PlaytestResult, error) {
	var library []models.Card
	for _, e := range mainboard {
		for range e.Quantity {
			library = append(library, e.Card)
		}
	}
	if len(library) == 0 {
		return nil, ErrDeckEmpty
	}

	rng.Shuffle(len(library), func(i, j int) {
		library[i], library[j] = library[j], library[i]
	})

	size := max(handSize-mulligans, 1)
	size = min(size, len(library))
	hand := library[:size:size]

	stats := models.HandStats{
		HandSize:  len(hand),
		Colors:    map[string]int{},
		Mulligans: mulligans,
	}
	var totalCMC float64
	for _, c := range hand {
		land := isLand(c.TypeLine)
		if land {
			stats.Lands++
		}
		totalCMC += manaValue(c)
		if len(c.Colors) == 0 && !land {
			stats.Colors[string(models.ColorColorless)]++
			continue
		}
		for _, color := range c.Colors {
			stats.Colors[string(color)]++
		}
	}
	stats.Spells = stats.HandSize - stats.Lands
	stats.AvgCMC = round2(totalCMC / float64(len(hand)))

	return &models.PlaytestResult{Hand: hand, Stats: stats, DeckSize: len(library)}, nil
}

// Stats computes statistics for one category of a deck
func (s *DeckService) Stats(ctx context.Context, deckID uint, category models.DeckCategory) (*models.DeckStats, error) {
	if category == "" {
		category = models.CategoryMainboard
	}
	if !category.IsValid() {
		return nil, invalid("category", "must be mainboard or sideboard")
	}
	if _, err := s.deck(ctx, deckID); err != nil {
		return nil, err
	}
	entries, err := s.entries(ctx, deckID, category)
	if err != nil {
		return nil, err
	}
	stats := ComputeDeckStats(entries)
	return &stats, nil
}

func (s *DeckService) Analyze(ctx context.Context, deckID uint) (*models.DeckAnalysis, error) {
	deck, err := s.deck(ctx, deckID)
	if err != nil {
		return nil, err
	}
	mainboard, err := s.entries(ctx, deckID, models.CategoryMainboard)
	if err != nil {
		return nil, err
	}
	analysis := AnalyzeDeck(*deck, mainboard)
	return &analysis, nil
}

// Playtest draws a sample opening hand. Nothing is persisted.
func (s *DeckService) Playtest(ctx context.Context, deckID uint, handSize *int, mulligans int) (*models.PlaytestResult, error) {
	size := defaultHandSize
	if handSize != nil {
		size = *handSize
	}
	if size < 1 {
		return nil, invalid("hand_size", "must be at least 1")
	}
	if mulligans < 0 {
		return nil, invalid("mulligans", "must not be negative")
	}
	if _, err := s.deck(ctx, deckID); err != nil {
		return nil, err
	}
	mainboard, err := s.entries(ctx, deckID, models.CategoryMainboard)
	if err != nil {
		return nil, err
	}

	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return DrawOpeningHand(mainboard, size, mulligans, s.rng)
}

// manaValue treats undefined or negative values as 0
func manaValue(c models.Card) float64 {
	if math.IsNaN(c.CMC) || math.IsInf(c.CMC, 0) || c.CMC < 0 {
		return 0
	}
	return c.CMC
}

func curveBucket(cmc float64) int {
	v := manaValue(models.Card{CMC: cmc})
	if v >= curveOverflow {
		return curveOverflow
	}
	return int(math.Floor(v))
}

func curveLabel(bucket int) string {
	if bucket >= curveOverflow {
		return strconv.Itoa(curveOverflow) + "+"
	}
	return strconv.Itoa(bucket)
}

func typeBucket(typeLine string) string {
	lower := strings.ToLower(typeLine)
	for _, t := range typeBuckets {
		if strings.Contains(lower, t) {
			return t
		}
	}
	return typeOther
}

func isLand(typeLine string) bool {
	return strings.Contains(strings.ToLower(typeLine), "land")
}

// isBasicLand is case-sensitive, matching the printed "Basic Land" supertype
func isBasicLand(typeLine string) bool {
	return strings.Contains(typeLine, "Basic") && strings.Contains(typeLine, "Land")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
