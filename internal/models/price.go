package models

import (
	"time"
)

// PriceHistory is one recorded price for a card on a platform. Normally at
// most one point exists per (card, platform, calendar day).
type PriceHistory struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CardID     string    `json:"card_id" gorm:"not null;index:idx_price_history_card_platform"`
	Card       *Card     `json:"-" gorm:"foreignKey:CardID"`
	Platform   Platform  `json:"platform" gorm:"not null;index:idx_price_history_card_platform"`
	Price      float64   `json:"price" gorm:"not null"`
	Currency   string    `json:"currency" gorm:"not null"`
	RecordedAt time.Time `json:"recorded_at" gorm:"not null;index"`
}

func (PriceHistory) TableName() string {
	return "price_history"
}

type AlertCondition string

const (
	AlertBelow AlertCondition = "below"
	AlertAbove AlertCondition = "above"
)

func (c AlertCondition) IsValid() bool {
	return c == AlertBelow || c == AlertAbove
}

// PriceAlert fires once when the cached price crosses TargetPrice. Triggered
// only returns to false through a manual update.
type PriceAlert struct {
	ID          uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	CardID      string         `json:"card_id" gorm:"not null;index"`
	Card        Card           `json:"card" gorm:"foreignKey:CardID"`
	Platform    Platform       `json:"platform" gorm:"not null"`
	TargetPrice float64        `json:"target_price" gorm:"not null"`
	Condition   AlertCondition `json:"condition" gorm:"not null;default:'below'"`
	Active      bool           `json:"active" gorm:"not null;default:true"`
	Triggered   bool           `json:"triggered" gorm:"not null;default:false"`
	TriggeredAt *time.Time     `json:"triggered_at"`
	CreatedAt   time.Time      `json:"created_at"`
}

type CreateAlertRequest struct {
	CardID      string         `json:"card_id" binding:"required"`
	Platform    string         `json:"platform"`
	TargetPrice float64        `json:"target_price"`
	Condition   AlertCondition `json:"condition"`
}

type UpdateAlertRequest struct {
	TargetPrice *float64        `json:"target_price"`
	Condition   *AlertCondition `json:"condition"`
	Active      *bool           `json:"active"`
	Reset       bool            `json:"reset"`
}

type AlertCheckResult struct {
	Checked   int          `json:"checked"`
	Triggered int          `json:"triggered"`
	Alerts    []PriceAlert `json:"alerts"`
}

type CurrentPrice struct {
	CardID      string    `json:"card_id"`
	CardName    string    `json:"card_name"`
	Platform    Platform  `json:"platform"`
	Price       *float64  `json:"price"`
	Currency    string    `json:"currency"`
	LastUpdated time.Time `json:"last_updated"`
}

type RecordPriceResult struct {
	Message  string  `json:"message"`
	Skipped  bool    `json:"skipped"`
	Price    float64 `json:"price,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

type BulkRecordResult struct {
	Message  string `json:"message"`
	Recorded int    `json:"recorded"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Total    int    `json:"total"`
}

type PricePoint struct {
	Price    float64   `json:"price"`
	Currency string    `json:"currency"`
	Date     time.Time `json:"date"`
}

type PriceHistoryResponse struct {
	Card     *Card        `json:"card"`
	Platform Platform     `json:"platform"`
	History  []PricePoint `json:"history"`
}

type TrendEntry struct {
	CardID        string  `json:"card_id"`
	Name          string  `json:"name"`
	SetName       string  `json:"set_name"`
	ImageURI      string  `json:"image_uri"`
	OldPrice      float64 `json:"old_price"`
	NewPrice      float64 `json:"new_price"`
	PercentChange float64 `json:"percent_change"`
}

type PriceTrends struct {
	Gainers []TrendEntry `json:"gainers"`
	Losers  []TrendEntry `json:"losers"`
}
