package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/magicgest/internal/config"
	"github.com/codyseavey/magicgest/internal/models"
)

const boltJSON = `{
	"id": "bolt-1",
	"name": "Lightning Bolt",
	"set": "m10",
	"set_name": "Magic 2010",
	"collector_number": "146",
	"rarity": "common",
	"mana_cost": "{R}",
	"type_line": "Instant",
	"oracle_text": "Lightning Bolt deals 3 damage to any target.",
	"colors": ["R"],
	"cmc": 1,
	"image_uris": {"small": "https://img/small.jpg", "normal": "https://img/normal.jpg"},
	"prices": {"usd": "1.50", "usd_foil": null, "eur": "1.20"},
	"scryfall_uri": "https://scryfall.com/card/m10/146"
}`

const transformJSON = `{
	"id": "delver-1",
	"name": "Delver of Secrets // Insectile Aberration",
	"set": "isd",
	"set_name": "Innistrad",
	"collector_number": "51",
	"rarity": "common",
	"type_line": "Creature — Human Wizard // Creature — Human Insect",
	"cmc": 1,
	"card_faces": [
		{"mana_cost": "{U}", "colors": ["U"], "image_uris": {"normal": "https://img/front.jpg"}},
		{"mana_cost": "", "colors": ["U", "G"]}
	],
	"prices": {"usd": "0.25"}
}`

func newScryfallServer(t *testing.T, handler http.HandlerFunc) *ScryfallService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewScryfallService(config.ScryfallConfig{BaseURL: srv.URL, RatePerSecond: 1000})
}

func TestScryfallGetCard(t *testing.T) {
	var gotAgent atomic.Value
	svc := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAgent.Store(r.Header.Get("User-Agent"))
		assert.Equal(t, "/cards/bolt-1", r.URL.Path)
		_, _ = w.Write([]byte(boltJSON))
	})

	card, err := svc.GetCard(context.Background(), "bolt-1")
	require.NoError(t, err)

	assert.Equal(t, userAgent, gotAgent.Load())
	assert.Equal(t, "Lightning Bolt", card.Name)
	assert.Equal(t, "m10", card.SetCode)
	assert.Equal(t, "https://img/normal.jpg", card.ImageURI)
	assert.Equal(t, "{R}", card.ManaCost)
	assert.Equal(t, []models.Color{models.ColorRed}, []models.Color(card.Colors))

	prices := card.CurrentPrices()
	assert.Equal(t, "1.50", prices["usd"])
	assert.NotContains(t, prices, "usd_foil", "null prices are dropped")
}

func TestScryfallConvertsMultiFacedCard(t *testing.T) {
	svc := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(transformJSON))
	})

	card, err := svc.GetCard(context.Background(), "delver-1")
	require.NoError(t, err)

	assert.Equal(t, "https://img/front.jpg", card.ImageURI)
	assert.Equal(t, "{U}", card.ManaCost)
	assert.Equal(t, []models.Color{models.ColorBlue, models.ColorGreen}, []models.Color(card.Colors))
}

func TestScryfallNotFound(t *testing.T) {
	svc := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"object":"error","details":"No cards found"}`))
	})

	_, err := svc.GetCard(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	page, err := svc.SearchCards(context.Background(), "zzzz", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Cards)
	assert.Equal(t, 1, page.Page)
}

func TestScryfallUpstreamError(t *testing.T) {
	svc := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","details":"Invalid query syntax"}`))
	})

	_, err := svc.SearchCards(context.Background(), "((", 1)
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusBadRequest, ue.Status)
	assert.Equal(t, "Invalid query syntax", ue.Message)
}

func TestScryfallSearch(t *testing.T) {
	svc := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cards/search", r.URL.Path)
		assert.Equal(t, "bolt", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"total_cards": 3, "has_more": true, "data": [` + boltJSON + `]}`))
	})

	page, err := svc.SearchCards(context.Background(), "bolt", 2)
	require.NoError(t, err)
	assert.Len(t, page.Cards, 1)
	assert.Equal(t, 3, page.TotalCount)
	assert.True(t, page.HasMore)
	assert.Equal(t, 2, page.Page)
}

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"", ""}, ""},
		{[]string{"", "b", "c"}, "b"},
		{[]string{"a", "b"}, "a"},
	}
	for _, tt := range tests {
		if got := firstNonEmpty(tt.in...); got != tt.want {
			t.Errorf("firstNonEmpty(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
