package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ucfagri/sambot/internal/ledger"
)

// ReceiptsHandler exposes the receipt ledger to the admin dashboard.
type ReceiptsHandler struct {
	ledger *ledger.Service
	logger *slog.Logger
}

type listReceiptsResponse struct {
	Items []ledger.Document `json:"items"`
	Total int               `json:"total"`
}

type receiptStatsResponse struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
}

func NewReceiptsHandler(log *slog.Logger, ledgerService *ledger.Service) *ReceiptsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ReceiptsHandler{
		ledger: ledgerService,
		logger: log.With(slog.String("handler", "receipts")),
	}
}

func (h *ReceiptsHandler) Register(e *echo.Echo) {
	receiptGroup := e.Group("/receipts")
	receiptGroup.GET("", h.ListReceipts)
	receiptGroup.GET("/stats", h.Stats)
}

// ListReceipts returns recorded submissions, optionally filtered by status.
func (h *ReceiptsHandler) ListReceipts(c echo.Context) error {
	status := ledger.Status(c.QueryParam("status"))
	var items []ledger.Document
	for _, doc := range h.ledger.All() {
		if status != "" && doc.Status != status {
			continue
		}
		items = append(items, doc)
	}
	return c.JSON(http.StatusOK, listReceiptsResponse{Items: items, Total: len(items)})
}

func (h *ReceiptsHandler) Stats(c echo.Context) error {
	counts := h.ledger.CountByStatus()
	return c.JSON(http.StatusOK, receiptStatsResponse{
		Total:    counts[ledger.StatusApproved] + counts[ledger.StatusPending] + counts[ledger.StatusRejected],
		Approved: counts[ledger.StatusApproved],
		Pending:  counts[ledger.StatusPending],
		Rejected: counts[ledger.StatusRejected],
	})
}
