package database

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// mergeDuplicateDeckCards folds rows that share (deck_id, card_id, category)
// into the lowest id, summing quantities. It runs BEFORE AutoMigrate so the
// unique index can be created on databases written by older versions.
func mergeDuplicateDeckCards(db *gorm.DB, log *logrus.Logger) error {
	if !db.Migrator().HasTable("deck_cards") {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`UPDATE deck_cards SET category = 'mainboard' WHERE category IS NULL OR category = ''`).Error; err != nil {
			return err
		}

		if err := tx.Exec(`
			UPDATE deck_cards
			SET quantity = (
				SELECT SUM(d2.quantity) FROM deck_cards d2
				WHERE d2.deck_id = deck_cards.deck_id
				  AND d2.card_id = deck_cards.card_id
				  AND d2.category = deck_cards.category
			)
			WHERE id IN (
				SELECT MIN(id) FROM deck_cards
				GROUP BY deck_id, card_id, category
				HAVING COUNT(*) > 1
			)
		`).Error; err != nil {
			return err
		}

		result := tx.Exec(`
			DELETE FROM deck_cards
			WHERE id NOT IN (
				SELECT MIN(id) FROM deck_cards
				GROUP BY deck_id, card_id, category
			)
		`)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			log.WithField("rows", result.RowsAffected).Info("Merged duplicate deck_cards entries")
		}
		return nil
	})
}

// mergeDuplicateCollectionItems folds stacks that share (card_id, condition,
// foil) into the lowest id, summing quantities. Like mergeDuplicateDeckCards
// it runs before AutoMigrate adds idx_collection_stack.
func mergeDuplicateCollectionItems(db *gorm.DB, log *logrus.Logger) error {
	if !db.Migrator().HasTable("collection_items") {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`UPDATE collection_items SET condition = 'NM' WHERE condition IS NULL OR condition = ''`).Error; err != nil {
			return err
		}
		if err := tx.Exec(`UPDATE collection_items SET foil = 0 WHERE foil IS NULL`).Error; err != nil {
			return err
		}

		if err := tx.Exec(`
			UPDATE collection_items
			SET quantity = (
				SELECT SUM(c2.quantity) FROM collection_items c2
				WHERE c2.card_id = collection_items.card_id
				  AND c2.condition = collection_items.condition
				  AND c2.foil = collection_items.foil
			)
			WHERE id IN (
				SELECT MIN(id) FROM collection_items
				GROUP BY card_id, condition, foil
				HAVING COUNT(*) > 1
			)
		`).Error; err != nil {
			return err
		}

		result := tx.Exec(`
			DELETE FROM collection_items
			WHERE id NOT IN (
				SELECT MIN(id) FROM collection_items
				GROUP BY card_id, condition, foil
			)
		`)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			log.WithField("rows", result.RowsAffected).Info("Merged duplicate collection_items stacks")
		}
		return nil
	})
}

// RunMigrations runs any custom data migrations after schema changes
func RunMigrations(db *gorm.DB, log *logrus.Logger) error {
	if err := normalizeCollectionDefaults(db, log); err != nil {
		return err
	}
	return normalizeAlertDefaults(db)
}

func normalizeCollectionDefaults(db *gorm.DB, log *logrus.Logger) error {
	if !db.Migrator().HasTable("collection_items") {
		return nil
	}

	result := db.Exec(`UPDATE collection_items SET condition = 'NM' WHERE condition IS NULL OR condition = ''`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.WithField("rows", result.RowsAffected).Info("Normalized empty collection conditions to NM")
	}

	return db.Exec(`UPDATE collection_items SET language = 'en' WHERE language IS NULL OR language = ''`).Error
}

func normalizeAlertDefaults(db *gorm.DB) error {
	if !db.Migrator().HasTable("price_alerts") {
		return nil
	}
	return db.Exec(`UPDATE price_alerts SET condition = 'below' WHERE condition IS NULL OR condition = ''`).Error
}
