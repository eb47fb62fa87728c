package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/codyseavey/magicgest/internal/config"
	"github.com/codyseavey/magicgest/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the sqlite database at cfg.Path, migrates the schema and
// runs data migrations. The caller owns the returned handle and must Close it.
func Open(cfg config.DatabaseConfig, log *logrus.Logger) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn(cfg.Path)), &gorm.Config{
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	log.WithField("path", cfg.Path).Info("Database connected successfully")

	if err := mergeDuplicateDeckCards(db, log); err != nil {
		return nil, fmt.Errorf("merge duplicate deck cards: %w", err)
	}
	if err := mergeDuplicateCollectionItems(db, log); err != nil {
		return nil, fmt.Errorf("merge duplicate collection items: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Card{},
		&models.CollectionItem{},
		&models.WishlistItem{},
		&models.Deck{},
		&models.DeckCard{},
		&models.PriceHistory{},
		&models.PriceAlert{},
		&models.BudgetTransaction{},
		&models.CollectionSnapshot{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	if err := RunMigrations(db, log); err != nil {
		return nil, fmt.Errorf("data migrations: %w", err)
	}

	log.Info("Database migration completed")
	return db, nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}
