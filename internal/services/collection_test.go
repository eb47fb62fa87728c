package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/magicgest/internal/models"
)

func newCollectionFixture(t *testing.T) *CollectionService {
	t.Helper()
	db := newTestDB(t)
	seedCards(t, db,
		testCard("bolt", "Lightning Bolt", models.PriceSnapshot{"usd": "2.00", "eur": "1.50"}),
		testCard("shock", "Shock", models.PriceSnapshot{"usd": "0.25"}),
	)
	return NewCollectionService(db, quietLogger())
}

func TestCollectionAddMergesSameStack(t *testing.T) {
	svc := newCollectionFixture(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, models.AddToCollectionRequest{CardID: "bolt", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "created", first.Operation)
	assert.Equal(t, models.ConditionNearMint, first.Item.Condition)
	assert.Equal(t, models.DefaultLanguage, first.Item.Language)

	second, err := svc.Add(ctx, models.AddToCollectionRequest{CardID: "bolt", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "merged", second.Operation)
	assert.Equal(t, first.Item.ID, second.Item.ID)
	assert.Equal(t, 5, second.Item.Quantity)

	foil, err := svc.Add(ctx, models.AddToCollectionRequest{CardID: "bolt", Foil: true})
	require.NoError(t, err)
	assert.Equal(t, "created", foil.Operation)
	assert.Equal(t, 1, foil.Item.Quantity, "quantity defaults to 1")

	items, err := svc.List(ctx, CollectionFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCollectionAddValidation(t *testing.T) {
	svc := newCollectionFixture(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, models.AddToCollectionRequest{CardID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Add(ctx, models.AddToCollectionRequest{CardID: "bolt", Quantity: -1})
	assert.True(t, IsValidation(err))

	_, err = svc.Add(ctx, models.AddToCollectionRequest{CardID: "bolt", Condition: "GD"})
	assert.True(t, IsValidation(err))
}

func TestCollectionUpdate(t *testing.T) {
	svc := newCollectionFixture(t)
	ctx := context.Background()

	nm, err := svc.Add(ctx, models.AddToCollectionRequest{CardID: "bolt", Quantity: 2})
	require.NoError(t, err)
	lp, err := svc.Add(ctx, models.AddToCollectionRequest{CardID: "bolt", Quantity: 1, Condition: "LP"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, nm.Item.ID, models.UpdateCollectionRequest{})
	assert.True(t, IsValidation(err), "no fields")

	notes := "trade binder"
	updated, err := svc.Update(ctx, nm.Item.ID, models.UpdateCollectionRequest{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, "updated", updated.Operation)
	assert.Equal(t, notes, updated.Item.Notes)

	condition := models.ConditionNearMint
	merged, err := svc.Update(ctx, lp.Item.ID, models.UpdateCollectionRequest{Condition: &condition})
	require.NoError(t, err)
	assert.Equal(t, "merged", merged.Operation)
	assert.Equal(t, nm.Item.ID, merged.Item.ID)
	assert.Equal(t, 3, merged.Item.Quantity)

	_, err = svc.Get(ctx, lp.Item.ID)
	assert.ErrorIs(t, err, ErrNotFound, "merged row is gone")

	zero := 0
	deleted, err := svc.Update(ctx, nm.Item.ID, models.UpdateCollectionRequest{Quantity: &zero})
	require.NoError(t, err)
	assert.Equal(t, "deleted", deleted.Operation)
	assert.Nil(t, deleted.Item)

	_, err = svc.Update(ctx, nm.Item.ID, models.UpdateCollectionRequest{Notes: &notes})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollectionRemoveQuantity(t *testing.T) {
	svc := newCollectionFixture(t)
	ctx := context.Background()

	added, err := svc.Add(ctx, models.AddToCollectionRequest{CardID: "shock", Quantity: 3})
	require.NoError(t, err)

	resp, err := svc.RemoveQuantity(ctx, added.Item.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Item.Quantity)

	resp, err = svc.RemoveQuantity(ctx, added.Item.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, "deleted", resp.Operation)

	assert.ErrorIs(t, svc.Remove(ctx, added.Item.ID), ErrNotFound)
}

func TestCollectionListFilterAndSort(t *testing.T) {
	svc := newCollectionFixture(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, models.AddToCollectionRequest{CardID: "bolt", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.Add(ctx, models.AddToCollectionRequest{CardID: "shock", Quantity: 4})
	require.NoError(t, err)

	byQty, err := svc.List(ctx, CollectionFilter{SortBy: "quantity", Order: "desc"})
	require.NoError(t, err)
	require.Len(t, byQty, 2)
	assert.Equal(t, "shock", byQty[0].CardID)

	filtered, err := svc.List(ctx, CollectionFilter{Search: "bolt"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Lightning Bolt", filtered[0].Card.Name)

	_, err = svc.List(ctx, CollectionFilter{SortBy: "price; DROP TABLE cards"})
	assert.True(t, IsValidation(err))
}

func TestCollectionStats(t *testing.T) {
	svc := newCollectionFixture(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, models.AddToCollectionRequest{CardID: "bolt", Quantity: 3})
	require.NoError(t, err)
	_, err = svc.Add(ctx, models.AddToCollectionRequest{CardID: "shock", Quantity: 4})
	require.NoError(t, err)

	usd, err := svc.Stats(ctx, models.PlatformScryfallUSD)
	require.NoError(t, err)
	assert.Equal(t, 7, usd.TotalCards)
	assert.Equal(t, 2, usd.UniqueCards)
	assert.Equal(t, 7.0, usd.TotalValue)
	assert.Equal(t, "USD", usd.Currency)

	eur, err := svc.Stats(ctx, models.PlatformScryfallEUR)
	require.NoError(t, err)
	assert.Equal(t, 4.5, eur.TotalValue, "cards without a eur price add nothing")
}
