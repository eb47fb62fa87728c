package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/codyseavey/magicgest/internal/api/handlers"
	"github.com/codyseavey/magicgest/internal/config"
	"github.com/codyseavey/magicgest/internal/metrics"
	"github.com/codyseavey/magicgest/internal/realtime"
	"github.com/codyseavey/magicgest/internal/services"
)

// Services are the dependencies the HTTP layer calls into
type Services struct {
	Catalog    *services.CatalogService
	SetIcons   *services.SetIconService
	Collection *services.CollectionService
	Wishlist   *services.WishlistService
	Decks      *services.DeckService
	Prices     *services.PriceService
	Alerts     *services.AlertService
	Budget     *services.BudgetService
	Snapshots  *services.SnapshotService
	Export     *services.ExportService
	Worker     *services.PriceWorker
	Hub        *realtime.Hub
}

func SetupRouter(cfg config.ServerConfig, svc Services, log logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(log), metrics.Middleware())

	frontendPath := cfg.FrontendPath
	serveFrontend := frontendPath != "" && dirExists(frontendPath)

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", requestIDHeader}
	router.Use(cors.New(corsConfig))

	cardHandler := handlers.NewCardHandler(svc.Catalog, svc.SetIcons)
	collectionHandler := handlers.NewCollectionHandler(svc.Collection)
	wishlistHandler := handlers.NewWishlistHandler(svc.Wishlist)
	deckHandler := handlers.NewDeckHandler(svc.Decks)
	priceHandler := handlers.NewPriceHandler(svc.Prices, svc.Worker)
	alertHandler := handlers.NewAlertHandler(svc.Alerts)
	budgetHandler := handlers.NewBudgetHandler(svc.Budget, svc.Snapshots)
	exportHandler := handlers.NewExportHandler(svc.Export)

	api := router.Group("/api")
	{
		cards := api.Group("/cards")
		{
			cards.GET("/search", cardHandler.SearchCards)
			cards.GET("/random", cardHandler.RandomCard)
			cards.GET("/:id", cardHandler.GetCard)
			cards.POST("/:id/refresh", cardHandler.RefreshCard)
		}

		api.GET("/sets/:code/icon", cardHandler.GetSetIcon)

		collection := api.Group("/collection")
		{
			collection.GET("", collectionHandler.GetCollection)
			collection.POST("", collectionHandler.AddToCollection)
			collection.GET("/stats", collectionHandler.GetStats)
			collection.PUT("/:id", collectionHandler.UpdateCollectionItem)
			collection.DELETE("/:id", collectionHandler.DeleteCollectionItem)
		}

		wishlist := api.Group("/wishlist")
		{
			wishlist.GET("", wishlistHandler.GetWishlist)
			wishlist.POST("", wishlistHandler.AddToWishlist)
			wishlist.GET("/affordable", wishlistHandler.GetAffordable)
			wishlist.GET("/stats", wishlistHandler.GetStats)
			wishlist.PUT("/:id", wishlistHandler.UpdateWishlistItem)
			wishlist.DELETE("/:id", wishlistHandler.DeleteWishlistItem)
		}

		decks := api.Group("/decks")
		{
			decks.GET("", deckHandler.ListDecks)
			decks.POST("", deckHandler.CreateDeck)
			decks.GET("/:id", deckHandler.GetDeck)
			decks.PUT("/:id", deckHandler.UpdateDeck)
			decks.DELETE("/:id", deckHandler.DeleteDeck)
			decks.POST("/:id/cards", deckHandler.AddCard)
			decks.PUT("/:id/cards/:entryId", deckHandler.UpdateCard)
			decks.DELETE("/:id/cards/:entryId", deckHandler.RemoveCard)
			decks.POST("/:id/import", deckHandler.ImportDecklist)
			decks.GET("/:id/stats", deckHandler.GetStats)
			decks.GET("/:id/analyze", deckHandler.Analyze)
			decks.POST("/:id/playtest/draw", deckHandler.DrawHand)
		}

		prices := api.Group("/prices")
		{
			prices.GET("/platforms", priceHandler.GetPlatforms)
			prices.GET("/status", priceHandler.GetPriceStatus)
			prices.GET("/card/:cardId", priceHandler.GetCurrentPrice)
			prices.POST("/record/:cardId", priceHandler.RecordPrice)
			prices.POST("/record-collection", priceHandler.RecordCollectionPrices)
			prices.GET("/history/:cardId", priceHandler.GetHistory)
			prices.GET("/trends", priceHandler.GetTrends)
		}

		alerts := api.Group("/alerts")
		{
			alerts.GET("", alertHandler.ListAlerts)
			alerts.POST("", alertHandler.CreateAlert)
			alerts.GET("/triggered", alertHandler.GetTriggered)
			alerts.POST("/check", alertHandler.CheckAlerts)
			alerts.PUT("/:id", alertHandler.UpdateAlert)
			alerts.DELETE("/:id", alertHandler.DeleteAlert)
		}

		budget := api.Group("/budget")
		{
			budget.GET("/transactions", budgetHandler.ListTransactions)
			budget.POST("/transactions", budgetHandler.AddTransaction)
			budget.DELETE("/transactions/:id", budgetHandler.DeleteTransaction)
			budget.GET("/summary", budgetHandler.GetSummary)
			budget.POST("/snapshot", budgetHandler.TakeSnapshot)
			budget.GET("/value-history", budgetHandler.GetValueHistory)
		}

		export := api.Group("/export")
		{
			export.GET("/collection", exportHandler.CollectionJSON)
			export.GET("/collection/csv", exportHandler.CollectionCSV)
			export.GET("/deck/:deckId", exportHandler.Deck)
		}
	}

	if svc.Hub != nil {
		router.GET("/ws/alerts", svc.Hub.ServeWS)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if serveFrontend {
		indexPath := filepath.Join(frontendPath, "index.html")

		router.Static("/assets", filepath.Join(frontendPath, "assets"))
		router.StaticFile("/favicon.ico", filepath.Join(frontendPath, "favicon.ico"))
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback, API paths still 404 as JSON
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	} else {
		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
