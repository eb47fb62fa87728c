package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Color is a single colored mana symbol
type Color string

const (
	ColorWhite     Color = "W"
	ColorBlue      Color = "U"
	ColorBlack     Color = "B"
	ColorRed       Color = "R"
	ColorGreen     Color = "G"
	ColorColorless Color = "C" // bucket for cards without a colored symbol
)

// AllColors returns the five colored mana symbols in WUBRG order
func AllColors() []Color {
	return []Color{ColorWhite, ColorBlue, ColorBlack, ColorRed, ColorGreen}
}

type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
	RarityMythic   Rarity = "mythic"
)

// PriceSnapshot maps a Scryfall price field (usd, usd_foil, eur, eur_foil)
// to its decimal string, exactly as the catalog reports it.
type PriceSnapshot map[string]string

// Decimal returns the parsed price for a field. ok is false when the field is
// missing or not numeric.
func (p PriceSnapshot) Decimal(field PriceField) (decimal.Decimal, bool) {
	raw, exists := p[string(field)]
	if !exists || strings.TrimSpace(raw) == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Card is a cached copy of a Scryfall card record. It is always written as a
// whole (upsert), never patched field by field.
type Card struct {
	ID              string                            `json:"id" gorm:"primaryKey"`
	Name            string                            `json:"name" gorm:"not null;index"`
	SetCode         string                            `json:"set_code"`
	SetName         string                            `json:"set_name"`
	CollectorNumber string                            `json:"collector_number"`
	Rarity          Rarity                            `json:"rarity"`
	ImageURI        string                            `json:"image_uri"`
	ManaCost        string                            `json:"mana_cost"`
	TypeLine        string                            `json:"type_line"`
	OracleText      string                            `json:"oracle_text"`
	Colors          datatypes.JSONSlice[Color]        `json:"colors"`
	CMC             float64                           `json:"cmc"`
	Prices          datatypes.JSONType[PriceSnapshot] `json:"prices"`
	ScryfallURI     string                            `json:"scryfall_uri"`
	CreatedAt       time.Time                         `json:"created_at"`
	UpdatedAt       time.Time                         `json:"updated_at"`
}

// CurrentPrices returns the cached price snapshot, never nil
func (c *Card) CurrentPrices() PriceSnapshot {
	p := c.Prices.Data()
	if p == nil {
		return PriceSnapshot{}
	}
	return p
}

// PriceFor returns the cached price of the card on the given platform
func (c *Card) PriceFor(p Platform) (decimal.Decimal, bool) {
	info, ok := p.Info()
	if !ok {
		return decimal.Zero, false
	}
	return c.CurrentPrices().Decimal(info.Field)
}

type CardSearchResult struct {
	Cards      []Card `json:"cards"`
	TotalCount int    `json:"total_cards"`
	HasMore    bool   `json:"has_more"`
	Page       int    `json:"page"`
}
