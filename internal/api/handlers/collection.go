package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/magicgest/internal/models"
	"github.com/codyseavey/magicgest/internal/services"
)

type CollectionHandler struct {
	collection *services.CollectionService
}

func NewCollectionHandler(collection *services.CollectionService) *CollectionHandler {
	return &CollectionHandler{collection: collection}
}

// GetCollection lists entries. Query: search, sort_by, order.
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	items, err := h.collection.List(c.Request.Context(), services.CollectionFilter{
		Search: c.Query("search"),
		SortBy: c.Query("sort_by"),
		Order:  c.Query("order"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *CollectionHandler) AddToCollection(c *gin.Context) {
	var req models.AddToCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.collection.Add(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if result.Operation != "created" {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (h *CollectionHandler) UpdateCollectionItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.collection.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteCollectionItem removes the entry, or only ?quantity=n copies of it
func (h *CollectionHandler) DeleteCollectionItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, ok := queryInt(c, "quantity")
	if !ok {
		return
	}

	if n != 0 {
		result, err := h.collection.RemoveQuantity(c.Request.Context(), id, n)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if err := h.collection.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *CollectionHandler) GetStats(c *gin.Context) {
	platform, ok := queryPlatform(c)
	if !ok {
		return
	}
	stats, err := h.collection.Stats(c.Request.Context(), platform)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
