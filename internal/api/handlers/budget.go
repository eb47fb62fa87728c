package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/magicgest/internal/models"
	"github.com/codyseavey/magicgest/internal/services"
)

type BudgetHandler struct {
	budget    *services.BudgetService
	snapshots *services.SnapshotService
}

func NewBudgetHandler(budget *services.BudgetService, snapshots *services.SnapshotService) *BudgetHandler {
	return &BudgetHandler{
		budget:    budget,
		snapshots: snapshots,
	}
}

// ListTransactions supports ?type= and ?limit=
func (h *BudgetHandler) ListTransactions(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	txs, err := h.budget.ListTransactions(c.Request.Context(), models.TransactionType(c.Query("type")), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *BudgetHandler) AddTransaction(c *gin.Context) {
	var req models.AddTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tx, err := h.budget.AddTransaction(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (h *BudgetHandler) DeleteTransaction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.budget.DeleteTransaction(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *BudgetHandler) GetSummary(c *gin.Context) {
	summary, err := h.budget.Summary(c.Request.Context(), c.DefaultQuery("period", models.PeriodAll), c.Query("currency"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type snapshotRequest struct {
	Platform string `json:"platform"`
}

// TakeSnapshot records the current collection value. The platform comes from
// the JSON body, falling back to ?platform=.
func (h *BudgetHandler) TakeSnapshot(c *gin.Context) {
	var req snapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	if req.Platform == "" {
		req.Platform = c.Query("platform")
	}
	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		badRequest(c, err)
		return
	}
	snapshot, err := h.snapshots.TakeSnapshot(c.Request.Context(), platform)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}

// GetValueHistory returns collection value snapshots for charting
func (h *BudgetHandler) GetValueHistory(c *gin.Context) {
	platform, ok := queryPlatform(c)
	if !ok {
		return
	}
	days, ok := queryInt(c, "days")
	if !ok {
		return
	}
	history, err := h.snapshots.History(c.Request.Context(), platform, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
