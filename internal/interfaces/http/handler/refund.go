package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	transferapp "github.com/horizonbank/backend/internal/application/transfer"
)

// RefundHandler handles refund API endpoints
type RefundHandler struct {
	BaseHandler
	refunds *transferapp.RefundService
}

// NewRefundHandler creates a new RefundHandler
func NewRefundHandler(refunds *transferapp.RefundService) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

// RefundTransaction handles POST /transactions/:id/refund.
// Both legs of a two-leg transfer are reversed together; single rows
// are reversed alone.
func (h *RefundHandler) RefundTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Transaction ID must be a UUID")
		return
	}

	rows, err := h.refunds.RefundTransaction(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rows)
}

// RefundTransferGroup handles POST /transfers/:id/refund
func (h *RefundHandler) RefundTransferGroup(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Transfer ID must be a UUID")
		return
	}

	rows, err := h.refunds.RefundTransferGroup(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rows)
}
