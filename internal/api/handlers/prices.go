package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/magicgest/internal/services"
)

type PriceHandler struct {
	prices      *services.PriceService
	priceWorker *services.PriceWorker
}

func NewPriceHandler(prices *services.PriceService, priceWorker *services.PriceWorker) *PriceHandler {
	return &PriceHandler{
		prices:      prices,
		priceWorker: priceWorker,
	}
}

func (h *PriceHandler) GetPlatforms(c *gin.Context) {
	c.JSON(http.StatusOK, h.prices.Platforms())
}

func (h *PriceHandler) GetCurrentPrice(c *gin.Context) {
	platform, ok := queryPlatform(c)
	if !ok {
		return
	}
	price, err := h.prices.CurrentPrice(c.Request.Context(), c.Param("cardId"), platform)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, price)
}

// RecordPrice stores today's price for a card. ?force=true records even if
// a point already exists for today.
func (h *PriceHandler) RecordPrice(c *gin.Context) {
	platform, ok := queryPlatform(c)
	if !ok {
		return
	}
	force := c.Query("force") == "true"
	result, err := h.prices.RecordPrice(c.Request.Context(), c.Param("cardId"), platform, force)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PriceHandler) RecordCollectionPrices(c *gin.Context) {
	platform, ok := queryPlatform(c)
	if !ok {
		return
	}
	result, err := h.prices.RecordCollectionPrices(c.Request.Context(), platform)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *PriceHandler) GetHistory(c *gin.Context) {
	platform, ok := queryPlatform(c)
	if !ok {
		return
	}
	days, ok := queryInt(c, "days")
	if !ok {
		return
	}
	history, err := h.prices.History(c.Request.Context(), c.Param("cardId"), platform, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *PriceHandler) GetTrends(c *gin.Context) {
	platform, ok := queryPlatform(c)
	if !ok {
		return
	}
	days, ok := queryInt(c, "days")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	trends, err := h.prices.Trends(c.Request.Context(), platform, days, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trends)
}

// GetPriceStatus reports the background refresh worker state
func (h *PriceHandler) GetPriceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.priceWorker.Status())
}
