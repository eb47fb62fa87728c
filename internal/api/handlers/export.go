package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/magicgest/internal/services"
)

type ExportHandler struct {
	export *services.ExportService
}

func NewExportHandler(export *services.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func exportDate() string {
	return time.Now().Format("2006-01-02")
}

func (h *ExportHandler) CollectionJSON(c *gin.Context) {
	rows, err := h.export.CollectionJSON(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, "collection-"+exportDate()+".json")
	c.JSON(http.StatusOK, rows)
}

func (h *ExportHandler) CollectionCSV(c *gin.Context) {
	data, err := h.export.CollectionCSV(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, "collection-"+exportDate()+".csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *ExportHandler) Deck(c *gin.Context) {
	id, ok := paramID(c, "deckId")
	if !ok {
		return
	}
	filename, text, err := h.export.Deck(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, filename)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}
