package models

import (
	"time"
)

type DeckCategory string

const (
	CategoryMainboard DeckCategory = "mainboard"
	CategorySideboard DeckCategory = "sideboard"
)

func (c DeckCategory) IsValid() bool {
	return c == CategoryMainboard || c == CategorySideboard
}

// Formats with deck-size rules
const (
	FormatCommander = "Commander"
	FormatStandard  = "Standard"
	FormatModern    = "Modern"
	FormatPioneer   = "Pioneer"
)

type Deck struct {
	ID            uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Name          string     `json:"name" gorm:"not null"`
	Format        string     `json:"format"`
	Description   string     `json:"description"`
	ColorIdentity string     `json:"color_identity"`
	Cards         []DeckCard `json:"-" gorm:"foreignKey:DeckID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DeckCard is one entry of a deck's card list. (deck, card, category) is unique.
type DeckCard struct {
	ID       uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	DeckID   uint         `json:"deck_id" gorm:"not null;index;uniqueIndex:idx_deck_card_category"`
	CardID   string       `json:"card_id" gorm:"not null;index;uniqueIndex:idx_deck_card_category"`
	Card     Card         `json:"card" gorm:"foreignKey:CardID"`
	Quantity int          `json:"quantity" gorm:"not null;default:1"`
	Category DeckCategory `json:"category" gorm:"not null;default:'mainboard';uniqueIndex:idx_deck_card_category"`
}

type CreateDeckRequest struct {
	Name          string `json:"name" binding:"required"`
	Format        string `json:"format"`
	Description   string `json:"description"`
	ColorIdentity string `json:"color_identity"`
}

type UpdateDeckRequest struct {
	Name          *string `json:"name"`
	Format        *string `json:"format"`
	Description   *string `json:"description"`
	ColorIdentity *string `json:"color_identity"`
}

type AddDeckCardRequest struct {
	CardID   string       `json:"card_id" binding:"required"`
	Quantity int          `json:"quantity"`
	Category DeckCategory `json:"category"`
}

type UpdateDeckCardRequest struct {
	Quantity *int          `json:"quantity"`
	Category *DeckCategory `json:"category"`
}

type DeckSummary struct {
	Deck
	CardCount  int `json:"card_count"`
	TotalCards int `json:"total_cards"`
}

type DeckDetail struct {
	Deck
	Cards []DeckCard `json:"cards"`
	Value float64    `json:"value"`
}

// DeckImportResult reports per-line outcomes of a decklist import
type DeckImportResult struct {
	Added  int               `json:"added"`
	Failed int               `json:"failed"`
	Errors []DeckImportError `json:"errors"`
}

type DeckImportError struct {
	Line  int    `json:"line"`
	Text  string `json:"text"`
	Error string `json:"error"`
}

type CurvePoint struct {
	CMC   string `json:"cmc"`
	Count int    `json:"count"`
}

type DeckStats struct {
	ManaCurve         []CurvePoint   `json:"mana_curve"`
	ColorDistribution map[string]int `json:"color_distribution"`
	TypeDistribution  map[string]int `json:"type_distribution"`
	TotalCards        int            `json:"total_cards"`
	AvgCMC            float64        `json:"avg_cmc"`
}

type DeckAnalysis struct {
	DeckName       string   `json:"deck_name"`
	Format         string   `json:"format"`
	TotalCards     int      `json:"total_cards"`
	LandCount      int      `json:"land_count"`
	LandPercentage float64  `json:"land_percentage"`
	AvgCMC         float64  `json:"avg_cmc"`
	Issues         []string `json:"issues"`
	Suggestions    []string `json:"suggestions"`
}

type PlaytestRequest struct {
	HandSize  *int `json:"hand_size"`
	Mulligans int  `json:"mulligans"`
}

type HandStats struct {
	HandSize  int            `json:"hand_size"`
	Lands     int            `json:"lands"`
	Spells    int            `json:"spells"`
	AvgCMC    float64        `json:"avg_cmc"`
	Colors    map[string]int `json:"colors"`
	Mulligans int            `json:"mulligans"`
}

type PlaytestResult struct {
	Hand     []Card    `json:"hand"`
	Stats    HandStats `json:"stats"`
	DeckSize int       `json:"deck_size"`
}

// DeckCardUpdateResponse reports the resulting entry and what happened to it
type DeckCardUpdateResponse struct {
	Entry     *DeckCard `json:"entry,omitempty"`
	Operation string    `json:"operation"` // "created", "merged", "updated", "deleted"
}

type ImportDeckRequest struct {
	Text string `json:"text" binding:"required"`
}
