package models

import (
	"time"
)

type Condition string

const (
	ConditionMint             Condition = "M"
	ConditionNearMint         Condition = "NM"
	ConditionLightlyPlayed    Condition = "LP"
	ConditionModeratelyPlayed Condition = "MP"
	ConditionHeavilyPlayed    Condition = "HP"
	ConditionDamaged          Condition = "DMG"
)

// AllConditions returns all valid collection conditions, best first
func AllConditions() []Condition {
	return []Condition{
		ConditionMint,
		ConditionNearMint,
		ConditionLightlyPlayed,
		ConditionModeratelyPlayed,
		ConditionHeavilyPlayed,
		ConditionDamaged,
	}
}

func (c Condition) IsValid() bool {
	for _, v := range AllConditions() {
		if v == c {
			return true
		}
	}
	return false
}

// DefaultLanguage is the language assumed when none is given
const DefaultLanguage = "en"

// CollectionItem is one stack of owned copies. There is at most one item per
// (card, condition, foil) combination.
type CollectionItem struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CardID    string    `json:"card_id" gorm:"not null;index;uniqueIndex:idx_collection_stack"`
	Card      Card      `json:"card" gorm:"foreignKey:CardID"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`
	Condition Condition `json:"condition" gorm:"not null;default:'NM';uniqueIndex:idx_collection_stack"`
	Foil      bool      `json:"foil" gorm:"not null;default:false;uniqueIndex:idx_collection_stack"`
	Language  string    `json:"language" gorm:"not null;default:'en'"`
	Notes     string    `json:"notes"`
	AddedAt   time.Time `json:"added_at"`
}

type AddToCollectionRequest struct {
	CardID    string    `json:"card_id" binding:"required"`
	Quantity  int       `json:"quantity"`
	Condition Condition `json:"condition"`
	Foil      bool      `json:"foil"`
	Language  string    `json:"language"`
	Notes     string    `json:"notes"`
}

type UpdateCollectionRequest struct {
	Quantity  *int       `json:"quantity"`
	Condition *Condition `json:"condition"`
	Foil      *bool      `json:"foil"`
	Language  *string    `json:"language"`
	Notes     *string    `json:"notes"`
}

// CollectionUpdateResponse includes the resulting item plus what happened to it
type CollectionUpdateResponse struct {
	Item      *CollectionItem `json:"item,omitempty"`
	Operation string          `json:"operation"` // "created", "merged", "updated", "deleted"
	Message   string          `json:"message,omitempty"`
}

type RarityCount struct {
	Rarity string `json:"rarity"`
	Count  int    `json:"count"`
}

type SetCount struct {
	SetName string `json:"set_name"`
	SetCode string `json:"set_code"`
	Count   int    `json:"count"`
}

type CollectionStats struct {
	TotalCards  int           `json:"total_cards"`
	UniqueCards int           `json:"unique_cards"`
	TotalValue  float64       `json:"total_value"`
	Platform    Platform      `json:"platform"`
	Currency    string        `json:"currency"`
	ByRarity    []RarityCount `json:"by_rarity"`
	TopSets     []SetCount    `json:"top_sets"`
}
