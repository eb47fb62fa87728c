package database

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/codyseavey/magicgest/internal/config"
	"github.com/codyseavey/magicgest/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestOpenMigratesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(config.DatabaseConfig{Path: path}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	for _, table := range []string{"cards", "collection_items", "wishlist_items", "decks", "deck_cards", "price_history", "price_alerts", "budget_transactions", "collection_snapshots"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestOpenEnforcesForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(config.DatabaseConfig{Path: path}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	deck := models.Deck{Name: "Mono Red"}
	require.NoError(t, db.Create(&deck).Error)

	err = db.Create(&models.DeckCard{DeckID: deck.ID, CardID: "missing", Quantity: 1, Category: models.CategoryMainboard}).Error
	assert.Error(t, err, "deck card referencing an unknown card should be rejected")
}

func TestOpenCascadesDeckDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(config.DatabaseConfig{Path: path}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, db.Create(&models.Card{ID: "bolt", Name: "Lightning Bolt"}).Error)
	deck := models.Deck{Name: "Burn"}
	require.NoError(t, db.Create(&deck).Error)
	require.NoError(t, db.Create(&models.DeckCard{DeckID: deck.ID, CardID: "bolt", Quantity: 4, Category: models.CategoryMainboard}).Error)

	require.NoError(t, db.Delete(&models.Deck{}, deck.ID).Error)

	var count int64
	require.NoError(t, db.Model(&models.DeckCard{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMergeDuplicateDeckCards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE deck_cards (id INTEGER PRIMARY KEY AUTOINCREMENT, deck_id INTEGER, card_id TEXT, quantity INTEGER, category TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO deck_cards (deck_id, card_id, quantity, category) VALUES
		(1, 'bolt', 2, 'mainboard'),
		(1, 'bolt', 3, ''),
		(1, 'bolt', 1, 'sideboard'),
		(2, 'bolt', 4, 'mainboard')`).Error)

	require.NoError(t, mergeDuplicateDeckCards(db, quietLogger()))

	type row struct {
		DeckID   uint
		CardID   string
		Quantity int
		Category string
	}
	var rows []row
	require.NoError(t, db.Raw(`SELECT deck_id, card_id, quantity, category FROM deck_cards ORDER BY deck_id, category`).Scan(&rows).Error)

	require.Len(t, rows, 3)
	assert.Equal(t, row{1, "bolt", 5, "mainboard"}, rows[0])
	assert.Equal(t, row{1, "bolt", 1, "sideboard"}, rows[1])
	assert.Equal(t, row{2, "bolt", 4, "mainboard"}, rows[2])

	sqlDB, _ := db.DB()
	_ = sqlDB.Close()
}

func TestOpenEnforcesOneCollectionStack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(config.DatabaseConfig{Path: path}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, db.Create(&models.Card{ID: "bolt", Name: "Lightning Bolt"}).Error)
	stack := func(condition models.Condition, foil bool) *models.CollectionItem {
		return &models.CollectionItem{CardID: "bolt", Quantity: 1, Condition: condition, Foil: foil, Language: "en"}
	}

	require.NoError(t, db.Create(stack(models.ConditionNearMint, false)).Error)
	require.NoError(t, db.Create(stack(models.ConditionNearMint, true)).Error)
	require.NoError(t, db.Create(stack(models.ConditionLightlyPlayed, false)).Error)
	assert.Error(t, db.Create(stack(models.ConditionNearMint, false)).Error, "second NM non-foil stack should be rejected")
}

func TestMergeDuplicateCollectionItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE collection_items (id INTEGER PRIMARY KEY AUTOINCREMENT, card_id TEXT, quantity INTEGER, condition TEXT, foil NUMERIC, language TEXT, notes TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO collection_items (card_id, quantity, condition, foil) VALUES
		('bolt', 2, 'NM', 0),
		('bolt', 3, '', 0),
		('bolt', 1, 'NM', 1),
		('bolt', 4, 'NM', NULL),
		('shock', 1, 'LP', 0)`).Error)

	require.NoError(t, mergeDuplicateCollectionItems(db, quietLogger()))

	type row struct {
		CardID    string
		Quantity  int
		Condition string
		Foil      bool
	}
	var rows []row
	require.NoError(t, db.Raw(`SELECT card_id, quantity, condition, foil FROM collection_items ORDER BY card_id, foil`).Scan(&rows).Error)

	require.Len(t, rows, 3)
	assert.Equal(t, row{"bolt", 9, "NM", false}, rows[0])
	assert.Equal(t, row{"bolt", 1, "NM", true}, rows[1])
	assert.Equal(t, row{"shock", 1, "LP", false}, rows[2])

	sqlDB, _ := db.DB()
	_ = sqlDB.Close()
}
