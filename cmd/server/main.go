package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codyseavey/magicgest/internal/api"
	"github.com/codyseavey/magicgest/internal/config"
	"github.com/codyseavey/magicgest/internal/database"
	"github.com/codyseavey/magicgest/internal/logging"
	"github.com/codyseavey/magicgest/internal/realtime"
	"github.com/codyseavey/magicgest/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}

	scryfallService := services.NewScryfallService(cfg.Scryfall)
	catalogService := services.NewCatalogService(db, scryfallService, log)
	collectionService := services.NewCollectionService(db, log)
	deckService := services.NewDeckService(db, catalogService, log)
	priceService := services.NewPriceService(db, log)
	hub := realtime.NewHub(log)
	alertService := services.NewAlertService(db, hub, log)
	snapshotService := services.NewSnapshotService(db, cfg.Snapshot, log)
	priceWorker := services.NewPriceWorker(db, catalogService, priceService, alertService, cfg.Worker, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Restart the price worker after a panic unless we are shutting down
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithField("panic", r).Error("Price worker panicked, restarting in 30 seconds")
					}
				}()
				priceWorker.Start(ctx)
			}()

			if !priceWorker.Enabled() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(30 * time.Second):
			}
		}
	}()

	go snapshotService.Start(ctx)

	router := api.SetupRouter(cfg.Server, api.Services{
		Catalog:    catalogService,
		SetIcons:   services.NewSetIconService(scryfallService, log),
		Collection: collectionService,
		Wishlist:   services.NewWishlistService(db, log),
		Decks:      deckService,
		Prices:     priceService,
		Alerts:     alertService,
		Budget:     services.NewBudgetService(db, log),
		Snapshots:  snapshotService,
		Export:     services.NewExportService(collectionService, deckService),
		Worker:     priceWorker,
		Hub:        hub,
	}, log)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server forced to shutdown")
	}
	hub.Close()
	if err := database.Close(db); err != nil {
		log.WithError(err).Warn("Failed to close database")
	}

	log.Info("Server exited")
}
