package models

import (
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) IsValid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// WishlistItem is a card the user wants. At most one item exists per card.
type WishlistItem struct {
	ID       uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CardID   string    `json:"card_id" gorm:"not null;uniqueIndex"`
	Card     Card      `json:"card" gorm:"foreignKey:CardID"`
	Quantity int       `json:"quantity" gorm:"not null;default:1"`
	MaxPrice *float64  `json:"max_price"`
	Priority Priority  `json:"priority" gorm:"not null;default:'medium'"`
	Notes    string    `json:"notes"`
	AddedAt  time.Time `json:"added_at"`
}

type AddToWishlistRequest struct {
	CardID   string   `json:"card_id" binding:"required"`
	Quantity int      `json:"quantity"`
	MaxPrice *float64 `json:"max_price"`
	Priority Priority `json:"priority"`
	Notes    string   `json:"notes"`
}

type UpdateWishlistRequest struct {
	Quantity *int      `json:"quantity"`
	MaxPrice *float64  `json:"max_price"`
	Priority *Priority `json:"priority"`
	Notes    *string   `json:"notes"`
}

// AffordableItem is a wishlist item whose current price is within its ceiling
type AffordableItem struct {
	WishlistItem
	CurrentPrice float64 `json:"current_price"`
}

type PriorityCount struct {
	Priority Priority `json:"priority"`
	Count    int      `json:"count"`
}

type WishlistStats struct {
	TotalItems      int             `json:"total_items"`
	TotalValue      float64         `json:"total_value"`
	AffordableValue float64         `json:"affordable_value"`
	AffordableCount int             `json:"affordable_count"`
	ByPriority      []PriorityCount `json:"by_priority"`
}
