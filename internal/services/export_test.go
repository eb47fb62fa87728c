package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/magicgest/internal/models"
)

func TestDeckText(t *testing.T) {
	main := []models.DeckCard{
		{Quantity: 4, Category: models.CategoryMainboard, Card: models.Card{Name: "Lightning Bolt"}},
		{Quantity: 20, Category: models.CategoryMainboard, Card: models.Card{Name: "Mountain"}},
	}
	side := models.DeckCard{Quantity: 2, Category: models.CategorySideboard, Card: models.Card{Name: "Smash to Smithereens"}}

	tests := []struct {
		name    string
		deck    models.Deck
		entries []models.DeckCard
		want    string
	}{
		{
			name:    "mainboard only",
			deck:    models.Deck{Name: "Burn"},
			entries: main,
			want:    "// Burn\n\n4 Lightning Bolt\n20 Mountain\n",
		},
		{
			name:    "with format and sideboard",
			deck:    models.Deck{Name: "Burn", Format: models.FormatModern},
			entries: append(append([]models.DeckCard{}, main...), side),
			want:    "// Burn\n// Format: Modern\n\n4 Lightning Bolt\n20 Mountain\n\nSideboard\n2 Smash to Smithereens\n",
		},
		{
			name: "empty deck",
			deck: models.Deck{Name: "Empty"},
			want: "// Empty\n\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeckText(tt.deck, tt.entries); got != tt.want {
				t.Errorf("DeckText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeckTextRoundTrip(t *testing.T) {
	entries := []models.DeckCard{
		{Quantity: 4, Category: models.CategoryMainboard, Card: models.Card{Name: "Lightning Bolt"}},
		{Quantity: 2, Category: models.CategorySideboard, Card: models.Card{Name: "Smash to Smithereens"}},
	}
	lines, errs := ParseDecklist(DeckText(models.Deck{Name: "Burn", Format: "modern"}, entries))
	require.Empty(t, errs)
	require.Len(t, lines, 2)
	assert.Equal(t, DecklistLine{Line: 4, Text: "4 Lightning Bolt", Quantity: 4, Name: "Lightning Bolt", Category: models.CategoryMainboard}, lines[0])
	assert.Equal(t, models.CategorySideboard, lines[1].Category)
	assert.Equal(t, 2, lines[1].Quantity)
}

func TestDeckFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Burn", "Burn.txt"},
		{"Mono Red: Aggro!", "Mono_Red__Aggro_.txt"},
		{"", "deck.txt"},
	}
	for _, tt := range tests {
		if got := DeckFilename(tt.in); got != tt.want {
			t.Errorf("DeckFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteCollectionCSV(t *testing.T) {
	rows := []CollectionExportRow{
		{Name: "Lightning Bolt", SetCode: "m10", SetName: "Magic 2010", CollectorNumber: "146", Quantity: 4, Condition: models.ConditionNearMint, Foil: true, Language: "en"},
		{Name: `Ach! Hans, Run!`, SetCode: "unh", SetName: "Unhinged, \"Special\"", CollectorNumber: "116", Quantity: 1, Condition: "LP", Language: "en"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCollectionCSV(&buf, rows))

	want := "Name,Set Code,Set Name,Collector Number,Quantity,Condition,Foil,Language\n" +
		"Lightning Bolt,m10,Magic 2010,146,4,NM,Yes,en\n" +
		"\"Ach! Hans, Run!\",unh,\"Unhinged, \"\"Special\"\"\",116,1,LP,No,en\n"
	assert.Equal(t, want, buf.String())
}

func TestExportService(t *testing.T) {
	db := newTestDB(t)
	seedCards(t, db, testCard("bolt", "Lightning Bolt", nil), testCard("shock", "Shock", nil))
	collection := NewCollectionService(db, quietLogger())
	decks := NewDeckService(db, nil, quietLogger())
	svc := NewExportService(collection, decks)
	ctx := context.Background()

	_, err := collection.Add(ctx, models.AddToCollectionRequest{CardID: "shock", Quantity: 2})
	require.NoError(t, err)
	_, err = collection.Add(ctx, models.AddToCollectionRequest{CardID: "bolt", Quantity: 3, Notes: "binder"})
	require.NoError(t, err)

	rows, err := svc.CollectionJSON(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Lightning Bolt", rows[0].Name, "sorted by name")
	assert.Equal(t, "bolt", rows[0].ScryfallID)
	assert.Equal(t, "binder", rows[0].Notes)

	csvData, err := svc.CollectionCSV(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "Shock,tst,Test Set,,2,NM,No,en\n")

	deck, err := decks.Create(ctx, models.CreateDeckRequest{Name: "Burn Deck", Format: models.FormatModern})
	require.NoError(t, err)
	_, err = decks.AddCard(ctx, deck.ID, models.AddDeckCardRequest{CardID: "bolt", Quantity: 4})
	require.NoError(t, err)

	name, text, err := svc.Deck(ctx, deck.ID)
	require.NoError(t, err)
	assert.Equal(t, "Burn_Deck.txt", name)
	assert.Equal(t, "// Burn Deck\n// Format: Modern\n\n4 Lightning Bolt\n", text)

	_, _, err = svc.Deck(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
