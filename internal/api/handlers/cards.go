package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/magicgest/internal/services"
)

type CardHandler struct {
	catalog  *services.CatalogService
	setIcons *services.SetIconService
}

func NewCardHandler(catalog *services.CatalogService, setIcons *services.SetIconService) *CardHandler {
	return &CardHandler{
		catalog:  catalog,
		setIcons: setIcons,
	}
}

func (h *CardHandler) SearchCards(c *gin.Context) {
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	result, err := h.catalog.Search(c.Request.Context(), c.Query("q"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.catalog.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// RandomCard fetches a random card from Scryfall and caches it
func (h *CardHandler) RandomCard(c *gin.Context) {
	card, err := h.catalog.RandomCard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

// RefreshCard re-fetches a card, overwriting the cached copy and its prices
func (h *CardHandler) RefreshCard(c *gin.Context) {
	card, err := h.catalog.RefreshCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"card": card})
}

// GetSetIcon serves the set symbol as a PNG
func (h *CardHandler) GetSetIcon(c *gin.Context) {
	size, ok := queryInt(c, "size")
	if !ok {
		return
	}
	data, err := h.setIcons.SetIconPNG(c.Request.Context(), c.Param("code"), size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", data)
}
