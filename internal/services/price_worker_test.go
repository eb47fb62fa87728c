package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codyseavey/magicgest/internal/config"
	"github.com/codyseavey/magicgest/internal/models"
)

// priceBumper rewrites a card's usd price instead of calling Scryfall
type priceBumper struct {
	db     *gorm.DB
	prices map[string]string
	calls  []string
}

func (p *priceBumper) RefreshCard(ctx context.Context, id string) (*models.Card, error) {
	p.calls = append(p.calls, id)
	usd, ok := p.prices[id]
	if !ok {
		return nil, &UpstreamError{Status: 503, Message: "unavailable"}
	}
	var card models.Card
	if err := p.db.WithContext(ctx).First(&card, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}
	card.Prices = datatypes.NewJSONType(models.PriceSnapshot{"usd": usd})
	return &card, p.db.WithContext(ctx).Save(&card).Error
}

func TestPriceWorkerRunOnce(t *testing.T) {
	db := newTestDB(t)
	seedCards(t, db,
		testCard("owned", "Owned", models.PriceSnapshot{"usd": "1.00"}),
		testCard("wanted", "Wanted", models.PriceSnapshot{"usd": "9.00"}),
		testCard("watched", "Watched", models.PriceSnapshot{"usd": "3.00"}),
		testCard("ignored", "Ignored", models.PriceSnapshot{"usd": "3.00"}),
	)
	ctx := context.Background()
	_, err := NewCollectionService(db, quietLogger()).Add(ctx, models.AddToCollectionRequest{CardID: "owned", Quantity: 2})
	require.NoError(t, err)
	_, err = NewWishlistService(db, quietLogger()).Add(ctx, models.AddToWishlistRequest{CardID: "wanted"})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	alerts := NewAlertService(db, notifier, quietLogger())
	_, err = alerts.Create(ctx, models.CreateAlertRequest{CardID: "watched", TargetPrice: 2})
	require.NoError(t, err)

	refresher := &priceBumper{db: db, prices: map[string]string{"owned": "1.25", "watched": "1.50"}}
	prices := NewPriceService(db, quietLogger())
	worker := NewPriceWorker(db, refresher, prices, alerts, config.WorkerConfig{PriceRefreshInterval: time.Hour}, quietLogger())

	run, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"owned", "wanted", "watched"}, refresher.calls)
	assert.Equal(t, 3, run.Cards)
	assert.Equal(t, 2, run.Refreshed)
	assert.Equal(t, 1, run.RefreshFailed)
	assert.Equal(t, 3, run.PricesRecorded, "a failed refresh still records the cached price")
	assert.Equal(t, 1, run.AlertsTriggered)
	assert.Len(t, notifier.events, 1)

	var owned models.PriceHistory
	require.NoError(t, db.Where("card_id = ?", "owned").First(&owned).Error)
	assert.Equal(t, 1.25, owned.Price)

	status := worker.Status()
	assert.True(t, status.Enabled)
	assert.Equal(t, models.DefaultPlatform, status.Platform)
	assert.Equal(t, 2, status.CardsUpdatedToday)
	assert.Equal(t, status.LastUpdateTime.Add(time.Hour), status.NextUpdateTime)
	require.NotNil(t, status.LastRun)

	again, err := worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.PricesRecorded, "one point per card and day")
}

func TestPriceWorkerDisabled(t *testing.T) {
	worker := NewPriceWorker(nil, nil, nil, nil, config.WorkerConfig{}, quietLogger())
	assert.False(t, worker.Enabled())

	done := make(chan struct{})
	go func() {
		worker.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return immediately when disabled")
	}
}
