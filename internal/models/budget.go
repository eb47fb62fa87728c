package models

import (
	"time"
)

type TransactionType string

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionSale     TransactionType = "sale"
	TransactionTrade    TransactionType = "trade"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionPurchase || t == TransactionSale || t == TransactionTrade
}

// BudgetTransaction is append/delete only; amounts are never edited
type BudgetTransaction struct {
	ID              uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Type            TransactionType `json:"type" gorm:"not null;index"`
	Amount          float64         `json:"amount" gorm:"not null"`
	Currency        string          `json:"currency" gorm:"not null;default:'USD'"`
	Description     string          `json:"description"`
	CardID          *string         `json:"card_id" gorm:"index"`
	Card            *Card           `json:"card,omitempty" gorm:"foreignKey:CardID"`
	Quantity        *int            `json:"quantity"`
	TransactionDate time.Time       `json:"transaction_date" gorm:"not null;index"`
	CreatedAt       time.Time       `json:"created_at"`
}

type AddTransactionRequest struct {
	Type            TransactionType `json:"type" binding:"required"`
	Amount          float64         `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	CardID          *string         `json:"card_id"`
	Quantity        *int            `json:"quantity"`
	TransactionDate *time.Time      `json:"transaction_date"`
}

// Budget summary periods
const (
	PeriodAll    = "all"
	PeriodMonth  = "month"
	PeriodYear   = "year"
	Period30Days = "30days"
)

type BudgetTotals struct {
	TotalSpent    float64 `json:"total_spent"`
	TotalEarned   float64 `json:"total_earned"`
	NetSpent      float64 `json:"net_spent"`
	PurchaseCount int     `json:"purchase_count"`
	SaleCount     int     `json:"sale_count"`
	TradeCount    int     `json:"trade_count"`
}

type MonthlyTotal struct {
	Month  string  `json:"month"`
	Spent  float64 `json:"spent"`
	Earned float64 `json:"earned"`
}

type BudgetSummary struct {
	Summary      BudgetTotals        `json:"summary"`
	ByMonth      []MonthlyTotal      `json:"by_month"`
	TopPurchases []BudgetTransaction `json:"top_purchases"`
}

// CollectionSnapshot is an append-only point in the collection value series
type CollectionSnapshot struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	TotalValue   float64   `json:"total_value"`
	TotalCards   int       `json:"total_cards"`
	UniqueCards  int       `json:"unique_cards"`
	Platform     Platform  `json:"platform" gorm:"not null;index"`
	SnapshotDate time.Time `json:"snapshot_date" gorm:"not null;index"`
}

type ValueHistoryResponse struct {
	Platform  Platform             `json:"platform"`
	Days      int                  `json:"days"`
	Snapshots []CollectionSnapshot `json:"snapshots"`
}
