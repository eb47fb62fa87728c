package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/magicgest/internal/models"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
	defaultCurrency         = "USD"
	topPurchasesLimit       = 5
	monthsInSeries          = 12
	monthLayout             = "2006-01"
)

type BudgetService struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewBudgetService(db *gorm.DB, log logrus.FieldLogger) *BudgetService {
	return &BudgetService{db: db, log: log, now: time.Now}
}

// ListTransactions returns the newest transactions first, optionally limited
// to one type
func (s *BudgetService) ListTransactions(ctx context.Context, txType models.TransactionType, limit int) ([]models.BudgetTransaction, error) {
	if txType != "" && !txType.IsValid() {
		return nil, invalid("type", "must be purchase, sale, or trade")
	}
	if limit == 0 {
		limit = defaultTransactionLimit
	}
	if limit < 1 {
		return nil, invalid("limit", "must be at least 1")
	}
	limit = min(limit, maxTransactionLimit)

	query := s.db.WithContext(ctx).Preload("Card").Order("transaction_date DESC, id DESC").Limit(limit)
	if txType != "" {
		query = query.Where("type = ?", txType)
	}
	var txs []models.BudgetTransaction
	if err := query.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *BudgetService) AddTransaction(ctx context.Context, req models.AddTransactionRequest) (*models.BudgetTransaction, error) {
	if !req.Type.IsValid() {
		return nil, invalid("type", "must be purchase, sale, or trade")
	}
	if req.Amount <= 0 {
		return nil, invalid("amount", "must be greater than 0")
	}
	if req.Quantity != nil && *req.Quantity < 1 {
		return nil, invalid("quantity", "must be at least 1")
	}

	tx := models.BudgetTransaction{
		Type:            req.Type,
		Amount:          req.Amount,
		Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
		Description:     req.Description,
		Quantity:        req.Quantity,
		TransactionDate: s.now(),
	}
	if tx.Currency == "" {
		tx.Currency = defaultCurrency
	}
	if req.TransactionDate != nil {
		tx.TransactionDate = *req.TransactionDate
	}
	if req.CardID != nil && *req.CardID != "" {
		tx.CardID = req.CardID
	}

	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if tx.CardID != nil {
			if err := requireCard(db, *tx.CardID); err != nil {
				return err
			}
		}
		return db.Omit(clause.Associations).Create(&tx).Error
	})
	if err != nil {
		return nil, wrapStorage("add transaction", err)
	}

	s.log.WithFields(logrus.Fields{"id": tx.ID, "type": tx.Type, "amount": tx.Amount, "currency": tx.Currency}).Info("Budget: transaction added")
	return &tx, nil
}

func (s *BudgetService) DeleteTransaction(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.BudgetTransaction{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("transaction")
	}
	return nil
}

// periodStart returns the inclusive lower bound of a summary period. The
// zero time means no bound.
func periodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "", models.PeriodAll:
		return time.Time{}, nil
	case models.PeriodMonth:
		return now.AddDate(0, -1, 0), nil
	case models.PeriodYear:
		return now.AddDate(-1, 0, 0), nil
	case models.Period30Days:
		return now.AddDate(0, 0, -30), nil
	}
	return time.Time{}, invalid("period", "must be all, month, year, or 30days")
}

// SummarizeTransactions totals the transactions dated within period. Trades
// are counted but move no money.
func SummarizeTransactions(txs []models.BudgetTransaction, period string, now time.Time) (models.BudgetTotals, error) {
	var totals models.BudgetTotals
	start, err := periodStart(period, now)
	if err != nil {
		return totals, err
	}

	spent, earned := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.TransactionDate.Before(start) {
			continue
		}
		amount := decimal.NewFromFloat(tx.Amount)
		switch tx.Type {
		case models.TransactionPurchase:
			spent = spent.Add(amount)
			totals.PurchaseCount++
		case models.TransactionSale:
			earned = earned.Add(amount)
			totals.SaleCount++
		case models.TransactionTrade:
			totals.TradeCount++
		}
	}
	totals.TotalSpent = spent.Round(2).InexactFloat64()
	totals.TotalEarned = earned.Round(2).InexactFloat64()
	totals.NetSpent = spent.Sub(earned).Round(2).InexactFloat64()
	return totals, nil
}

// MonthlySeries buckets spending and earnings into the last twelve calendar
// months, oldest first. Months without activity are reported as zero.
func MonthlySeries(txs []models.BudgetTransaction, now time.Time) []models.MonthlyTotal {
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	first := current.AddDate(0, -(monthsInSeries - 1), 0)

	spent := make(map[string]decimal.Decimal, monthsInSeries)
	earned := make(map[string]decimal.Decimal, monthsInSeries)
	for _, tx := range txs {
		date := tx.TransactionDate.In(now.Location())
		if date.Before(first) {
			continue
		}
		key := date.Format(monthLayout)
		amount := decimal.NewFromFloat(tx.Amount)
		switch tx.Type {
		case models.TransactionPurchase:
			spent[key] = spent[key].Add(amount)
		case models.TransactionSale:
			earned[key] = earned[key].Add(amount)
		}
	}

	series := make([]models.MonthlyTotal, 0, monthsInSeries)
	for i := range monthsInSeries {
		key := first.AddDate(0, i, 0).Format(monthLayout)
		series = append(series, models.MonthlyTotal{
			Month:  key,
			Spent:  spent[key].Round(2).InexactFloat64(),
			Earned: earned[key].Round(2).InexactFloat64(),
		})
	}
	return series
}

// Summary reports totals for period plus the monthly series and largest
// purchases, all restricted to one currency
func (s *BudgetService) Summary(ctx context.Context, period, currency string) (*models.BudgetSummary, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = defaultCurrency
	}
	now := s.now()
	if _, err := periodStart(period, now); err != nil {
		return nil, err
	}

	var txs []models.BudgetTransaction
	if err := s.db.WithContext(ctx).Where("currency = ?", currency).Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	totals, err := SummarizeTransactions(txs, period, now)
	if err != nil {
		return nil, err
	}

	var top []models.BudgetTransaction
	err = s.db.WithContext(ctx).Preload("Card").
		Where("type = ? AND currency = ?", models.TransactionPurchase, currency).
		Order("amount DESC, id ASC").
		Limit(topPurchasesLimit).
		Find(&top).Error
	if err != nil {
		return nil, fmt.Errorf("load top purchases: %w", err)
	}

	return &models.BudgetSummary{
		Summary:      totals,
		ByMonth:      MonthlySeries(txs, now),
		TopPurchases: top,
	}, nil
}
