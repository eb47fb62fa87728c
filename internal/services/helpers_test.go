package services

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codyseavey/magicgest/internal/config"
	"github.com/codyseavey/magicgest/internal/database"
	"github.com/codyseavey/magicgest/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func testCard(id, name string, prices models.PriceSnapshot) models.Card {
	if prices == nil {
		prices = models.PriceSnapshot{}
	}
	return models.Card{
		ID:       id,
		Name:     name,
		SetCode:  "tst",
		SetName:  "Test Set",
		Rarity:   models.RarityCommon,
		TypeLine: "Instant",
		Colors:   datatypes.NewJSONSlice([]models.Color{models.ColorRed}),
		CMC:      1,
		Prices:   datatypes.NewJSONType(prices),
	}
}

func seedCards(t *testing.T, db *gorm.DB, cards ...models.Card) {
	t.Helper()
	for _, c := range cards {
		require.NoError(t, db.Create(&c).Error)
	}
}
