package services

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"gorm.io/datatypes"

	"github.com/codyseavey/magicgest/internal/models"
)

func entry(name, typeLine string, cmc float64, qty int, colors ...models.Color) models.DeckCard {
	return models.DeckCard{
		CardID:   name,
		Quantity: qty,
		Category: models.CategoryMainboard,
		Card: models.Card{
			ID:       name,
			Name:     name,
			TypeLine: typeLine,
			CMC:      cmc,
			Colors:   datatypes.NewJSONSlice(colors),
		},
	}
}

func TestComputeDeckStats_Empty(t *testing.T) {
	stats := ComputeDeckStats(nil)

	if len(stats.ManaCurve) != 0 {
		t.Errorf("expected empty curve, got %v", stats.ManaCurve)
	}
	if len(stats.ColorDistribution) != 0 || len(stats.TypeDistribution) != 0 {
		t.Errorf("expected empty distributions, got %v %v", stats.ColorDistribution, stats.TypeDistribution)
	}
	if stats.TotalCards != 0 || stats.AvgCMC != 0 {
		t.Errorf("expected zero totals, got %d cards avg %v", stats.TotalCards, stats.AvgCMC)
	}
}

func TestComputeDeckStats_Curve(t *testing.T) {
	entries := []models.DeckCard{
		entry("Emrakul", "Legendary Creature — Eldrazi", 15, 1),
		entry("Ulamog", "Legendary Creature — Eldrazi", 10, 2),
		entry("Bolt", "Instant", 1, 4, models.ColorRed),
		entry("Mountain", "Basic Land — Mountain", 0, 20),
		entry("Seven Drop", "Sorcery", 7, 1, models.ColorGreen),
		entry("Half", "Instant", 0.5, 1, models.ColorWhite),
		entry("Broken", "Artifact", math.NaN(), 1),
	}

	stats := ComputeDeckStats(entries)

	want := []models.CurvePoint{{CMC: "0", Count: 22}, {CMC: "1", Count: 4}, {CMC: "7+", Count: 4}}
	if len(stats.ManaCurve) != len(want) {
		t.Fatalf("ManaCurve = %v, want %v", stats.ManaCurve, want)
	}
	for i := range want {
		if stats.ManaCurve[i] != want[i] {
			t.Errorf("ManaCurve[%d] = %v, want %v", i, stats.ManaCurve[i], want[i])
		}
	}
}

func TestComputeDeckStats_TotalsAgree(t *testing.T) {
	entries := []models.DeckCard{
		entry("Llanowar Elves", "Creature — Elf Druid", 1, 4, models.ColorGreen),
		entry("Growth Spiral", "Instant", 2, 3, models.ColorGreen, models.ColorBlue),
		entry("Artifact Creature", "Artifact Creature — Golem", 3, 2),
		entry("Forest", "Basic Land — Forest", 0, 10),
		entry("Tribal Thing", "Kindred Instant — Elf", 2, 1, models.ColorGreen),
		entry("Battle", "Battle — Siege", 5, 1, models.ColorRed),
	}

	stats := ComputeDeckStats(entries)

	curveSum, typeSum := 0, 0
	for _, p := range stats.ManaCurve {
		curveSum += p.Count
	}
	for _, n := range stats.TypeDistribution {
		typeSum += n
	}
	if curveSum != stats.TotalCards || typeSum != stats.TotalCards || stats.TotalCards != 21 {
		t.Errorf("curve sum %d, type sum %d, total %d, want all 21", curveSum, typeSum, stats.TotalCards)
	}

	wantTypes := map[string]int{"creature": 6, "instant": 4, "land": 10, "other": 1}
	for k, v := range wantTypes {
		if stats.TypeDistribution[k] != v {
			t.Errorf("TypeDistribution[%s] = %d, want %d", k, stats.TypeDistribution[k], v)
		}
	}

	wantColors := map[string]int{"G": 8, "U": 3, "R": 1, "C": 12, "W": 0, "B": 0}
	for k, v := range wantColors {
		if stats.ColorDistribution[k] != v {
			t.Errorf("ColorDistribution[%s] = %d, want %d", k, stats.ColorDistribution[k], v)
		}
	}

	// (4*1 + 3*2 + 2*3 + 1*2 + 1*5) / 21
	if stats.AvgCMC != 1.1 {
		t.Errorf("AvgCMC = %v, want 1.1", stats.AvgCMC)
	}
}

func TestAnalyzeDeck_DeckSize(t *testing.T) {
	tests := []struct {
		name       string
		format     string
		total      int
		wantIssue  bool
		wantNumber []string
	}{
		{"commander exact", models.FormatCommander, 99, false, nil},
		{"commander short", models.FormatCommander, 98, true, []string{"99", "98"}},
		{"commander over", models.FormatCommander, 100, true, []string{"99", "100"}},
		{"standard minimum", models.FormatStandard, 60, false, nil},
		{"modern short", models.FormatModern, 59, true, []string{"Modern", "60", "59"}},
		{"pioneer large", models.FormatPioneer, 75, false, nil},
		{"casual", "Casual", 12, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mainboard := []models.DeckCard{
				entry("Island", "Basic Land — Island", 0, tt.total/2),
				entry("Opt", "Instant", 1, tt.total-tt.total/2, models.ColorBlue),
			}
			analysis := AnalyzeDeck(models.Deck{Name: "Test", Format: tt.format}, mainboard)

			var sizeIssue string
			for _, issue := range analysis.Issues {
				if strings.Contains(issue, "decks must have") {
					sizeIssue = issue
				}
			}
			if (sizeIssue != "") != tt.wantIssue {
				t.Fatalf("AnalyzeDeck(%s, %d) issues = %v, want size issue %v", tt.format, tt.total, analysis.Issues, tt.wantIssue)
			}
			for _, n := range tt.wantNumber {
				if !strings.Contains(sizeIssue, n) {
					t.Errorf("issue %q does not mention %s", sizeIssue, n)
				}
			}
		})
	}
}

func TestAnalyzeDeck_CopyLimit(t *testing.T) {
	mainboard := []models.DeckCard{
		entry("Relentless Rats", "Creature — Rat", 3, 20, models.ColorBlack),
		entry("Swamp", "Basic Land — Swamp", 0, 24),
		entry("Snow-Covered Swamp", "Basic Snow Land — Swamp", 0, 10),
		entry("Thoughtseize", "Sorcery", 1, 4, models.ColorBlack),
		entry("Urborg", "Legendary Land", 0, 5),
	}

	analysis := AnalyzeDeck(models.Deck{Format: models.FormatModern}, mainboard)

	want := []string{"Relentless Rats: 20 copies (max 4 allowed)", "Urborg: 5 copies (max 4 allowed)"}
	if len(analysis.Issues) != len(want) {
		t.Fatalf("Issues = %v, want %v", analysis.Issues, want)
	}
	for i := range want {
		if analysis.Issues[i] != want[i] {
			t.Errorf("Issues[%d] = %q, want %q", i, analysis.Issues[i], want[i])
		}
	}

	commander := AnalyzeDeck(models.Deck{Format: models.FormatCommander}, mainboard)
	for _, issue := range commander.Issues {
		if strings.Contains(issue, "copies") {
			t.Errorf("Commander should skip the copy limit, got %q", issue)
		}
	}
}

func TestAnalyzeDeck_Suggestions(t *testing.T) {
	tests := []struct {
		name  string
		lands int
		cmc   float64
		want  []string
	}{
		{"balanced", 24, 2, nil},
		{"lower bound inclusive", 18, 2, nil},
		{"upper bound inclusive", 30, 2, nil},
		{"too few lands", 10, 2, []string{"Consider adding more lands (current: 16.7%)"}},
		{"too many lands", 40, 2, []string{"Too many lands (current: 66.7%)"}},
		{"high curve", 24, 7, []string{"High average CMC (4.20). Consider adding more low-cost cards."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mainboard := []models.DeckCard{
				entry("Plains", "Basic Land — Plains", 0, tt.lands),
				entry("Spell", "Creature — Human", tt.cmc, 60-tt.lands, models.ColorWhite),
			}
			analysis := AnalyzeDeck(models.Deck{Format: models.FormatStandard}, mainboard)

			if len(analysis.Suggestions) != len(tt.want) {
				t.Fatalf("Suggestions = %v, want %v", analysis.Suggestions, tt.want)
			}
			for i := range tt.want {
				if analysis.Suggestions[i] != tt.want[i] {
					t.Errorf("Suggestions[%d] = %q, want %q", i, analysis.Suggestions[i], tt.want[i])
				}
			}
		})
	}
}

func TestAnalyzeDeck_EmptyMainboard(t *testing.T) {
	analysis := AnalyzeDeck(models.Deck{Name: "Empty", Format: models.FormatStandard}, nil)

	if analysis.TotalCards != 0 || analysis.LandPercentage != 0 || analysis.AvgCMC != 0 {
		t.Errorf("expected zero summary, got %+v", analysis)
	}
	if math.IsNaN(analysis.LandPercentage) || math.IsNaN(analysis.AvgCMC) {
		t.Error("empty mainboard produced NaN")
	}
	if len(analysis.Issues) != 1 || !strings.Contains(analysis.Issues[0], "(current: 0)") {
		t.Errorf("Issues = %v, want one deck size issue", analysis.Issues)
	}
}

func TestDrawOpeningHand_Size(t *testing.T) {
	deck := []models.DeckCard{
		entry("Bolt", "Instant", 1, 4, models.ColorRed),
		entry("Mountain", "Basic Land — Mountain", 0, 36),
	}

	tests := []struct {
		handSize  int
		mulligans int
		want      int
	}{
		{7, 0, 7},
		{7, 1, 6},
		{7, 6, 1},
		{7, 10, 1},
		{60, 0, 40},
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for _, tt := range tests {
		result, err := DrawOpeningHand(deck, tt.handSize, tt.mulligans, rng)
		if err != nil {
			t.Fatalf("DrawOpeningHand(%d, %d) error: %v", tt.handSize, tt.mulligans, err)
		}
		if len(result.Hand) != tt.want {
			t.Errorf("DrawOpeningHand(%d, %d) hand = %d cards, want %d", tt.handSize, tt.mulligans, len(result.Hand), tt.want)
		}
		if result.DeckSize != 40 {
			t.Errorf("DeckSize = %d, want 40", result.DeckSize)
		}
		if result.Stats.Lands+result.Stats.Spells != result.Stats.HandSize {
			t.Errorf("lands %d + spells %d != hand size %d", result.Stats.Lands, result.Stats.Spells, result.Stats.HandSize)
		}
	}
}

func TestDrawOpeningHand_PreservesMultiset(t *testing.T) {
	deck := []models.DeckCard{entry("Four Of", "Instant", 1, 4, models.ColorBlue)}
	for i := range 36 {
		deck = append(deck, entry("Single "+string(rune('A'+i)), "Creature", 2, 1, models.ColorGreen))
	}

	result, err := DrawOpeningHand(deck, 40, 0, rand.New(rand.NewPCG(7, 7)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Hand) != 40 {
		t.Fatalf("drew %d cards, want 40", len(result.Hand))
	}
	counts := map[string]int{}
	for _, c := range result.Hand {
		counts[c.ID]++
	}
	if counts["Four Of"] != 4 {
		t.Errorf("Four Of drawn %d times, want 4", counts["Four Of"])
	}
	if len(counts) != 37 {
		t.Errorf("distinct cards = %d, want 37", len(counts))
	}
}

func TestDrawOpeningHand_ColorTally(t *testing.T) {
	deck := []models.DeckCard{
		entry("Wastes", "Basic Land — Wastes", 0, 1),
		entry("Sol Ring", "Artifact", 1, 1),
		entry("Bolt", "Instant", 1, 1, models.ColorRed),
		entry("Dryad Arbor", "Land Creature — Forest Dryad", 0, 1, models.ColorGreen),
	}

	result, err := DrawOpeningHand(deck, 4, 0, rand.New(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]int{"C": 1, "R": 1, "G": 1}
	if len(result.Stats.Colors) != len(want) {
		t.Fatalf("Colors = %v, want %v", result.Stats.Colors, want)
	}
	for k, v := range want {
		if result.Stats.Colors[k] != v {
			t.Errorf("Colors[%s] = %d, want %d", k, result.Stats.Colors[k], v)
		}
	}
	if result.Stats.Lands != 2 || result.Stats.Spells != 2 {
		t.Errorf("lands/spells = %d/%d, want 2/2", result.Stats.Lands, result.Stats.Spells)
	}
	if result.Stats.AvgCMC != 0.5 {
		t.Errorf("AvgCMC = %v, want 0.5", result.Stats.AvgCMC)
	}
}

func TestDrawOpeningHand_EmptyDeck(t *testing.T) {
	_, err := DrawOpeningHand(nil, 7, 0, rand.New(rand.NewPCG(1, 1)))
	if !errors.Is(err, ErrDeckEmpty) {
		t.Errorf("DrawOpeningHand(empty) error = %v, want ErrDeckEmpty", err)
	}
}
