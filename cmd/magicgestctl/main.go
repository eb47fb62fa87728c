// Command magicgestctl runs maintenance tasks against the magicgest database
// without starting the HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/codyseavey/magicgest/internal/config"
	"github.com/codyseavey/magicgest/internal/database"
	"github.com/codyseavey/magicgest/internal/logging"
	"github.com/codyseavey/magicgest/internal/services"
)

// app holds what every subcommand needs. It is opened before a subcommand
// runs.
type app struct {
	cfg *config.Config
	log *logrus.Logger
	db  *gorm.DB

	catalog   *services.CatalogService
	prices    *services.PriceService
	alerts    *services.AlertService
	snapshots *services.SnapshotService
	decks     *services.DeckService
	export    *services.ExportService
}

func (a *app) open() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Log.Level, cfg.Log.Format)
	a.log.SetOutput(os.Stderr)

	db, err := database.Open(cfg.Database, a.log)
	if err != nil {
		return err
	}
	a.db = db

	scryfall := services.NewScryfallService(cfg.Scryfall)
	a.catalog = services.NewCatalogService(db, scryfall, a.log)
	collection := services.NewCollectionService(db, a.log)
	a.decks = services.NewDeckService(db, a.catalog, a.log)
	a.prices = services.NewPriceService(db, a.log)
	// no websocket clients outside the server, triggered alerts are only logged
	a.alerts = services.NewAlertService(db, nil, a.log)
	a.snapshots = services.NewSnapshotService(db, cfg.Snapshot, a.log)
	a.export = services.NewExportService(collection, a.decks)
	return nil
}

func (a *app) close() {
	if a.db != nil {
		_ = database.Close(a.db)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "magicgestctl",
		Short: "magicgest maintenance CLI",
		Long: `magicgestctl operates on the database configured for the magicgest
server (DB_PATH, config.yaml or .env).

  snapshot       Record the current collection value
  record-prices  Record today's price for every collection card
  check-alerts   Evaluate active price alerts
  export-deck    Print a deck as a plain-text decklist
  analyze-deck   Print the legality analysis of a deck`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
	}

	root.AddCommand(
		newSnapshotCmd(a),
		newRecordPricesCmd(a),
		newCheckAlertsCmd(a),
		newExportDeckCmd(a),
		newAnalyzeDeckCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
