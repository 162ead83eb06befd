package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/tally/internal/domain/models"
	"github.com/mamadbah2/tally/internal/repository/workbook"
	"github.com/mamadbah2/tally/internal/service/inventory"
	"github.com/mamadbah2/tally/internal/service/ledger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InventoryService parses and records pasted inventory lists.
type InventoryService interface {
	Parse(text string) inventory.Result
	Record(ctx context.Context, source, text string) (models.InventoryBatch, error)
}

// InventoryHandler exposes inventory parsing over HTTP.
type InventoryHandler struct {
	svc    InventoryService
	logger *zap.Logger
}

// NewInventoryHandler constructs the handler.
func NewInventoryHandler(svc InventoryService, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, logger: logger}
}

// Parse returns the records found in the posted text without storing them.
func (h *InventoryHandler) Parse(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	res := h.svc.Parse(req.Text)
	c.JSON(http.StatusOK, models.ParseInventoryResponse{Records: res.Records, Failures: res.Failures})
}

// Record parses the posted text and stores the batch.
func (h *InventoryHandler) Record(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	batch, err := h.svc.Record(c.Request.Context(), "api", req.Text)
	switch {
	case errors.Is(err, ledger.ErrEmptyList):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("failed recording inventory", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "inventory parsed but not stored", "batch": batch})
		return
	}
	c.JSON(http.StatusCreated, batch)
}

// Export returns the parsed records as an xlsx attachment.
func (h *InventoryHandler) Export(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	data, err := workbook.ExportInventory(h.svc.Parse(req.Text).Records)
	if err != nil {
		h.logger.Error("failed exporting inventory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="inventory.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *InventoryHandler) bind(c *gin.Context) (models.ParseInventoryRequest, bool) {
	var req models.ParseInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid inventory payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return req, false
	}
	return req, true
}
