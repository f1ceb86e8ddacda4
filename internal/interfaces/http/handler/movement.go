package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	transferapp "github.com/horizonbank/backend/internal/application/transfer"
	"github.com/horizonbank/backend/internal/domain/ledger"
)

// MovementHandler handles money movement API endpoints
type MovementHandler struct {
	BaseHandler
	movements *transferapp.MovementService
}

// NewMovementHandler creates a new MovementHandler
func NewMovementHandler(movements *transferapp.MovementService) *MovementHandler {
	return &MovementHandler{movements: movements}
}

// ===================== Request DTOs =====================

// InternalTransferRequest moves money between two of the caller's accounts
type InternalTransferRequest struct {
	From   string `json:"from" binding:"required,oneof=checking savings"`
	To     string `json:"to" binding:"required,oneof=checking savings"`
	Amount string `json:"amount" binding:"required"`
	Memo   string `json:"memo" binding:"max=200"`
}

// ExternalTransferRequest sends money to an external bank account
type ExternalTransferRequest struct {
	From          string `json:"from" binding:"required,oneof=checking savings"`
	Amount        string `json:"amount" binding:"required"`
	BankName      string `json:"bank_name" binding:"required,max=100"`
	AccountNumber string `json:"account_number" binding:"required,max=40"`
	Memo          string `json:"memo" binding:"max=200"`
}

// P2PTransferRequest sends money to another customer by email or phone
type P2PTransferRequest struct {
	Recipient string `json:"recipient" binding:"required,max=100"`
	From      string `json:"from" binding:"required,oneof=checking savings"`
	Amount    string `json:"amount" binding:"required"`
	Memo      string `json:"memo" binding:"max=200"`
}

// VerifyMovementRequest carries the one-time code for a staged movement
type VerifyMovementRequest struct {
	Code string `json:"code" binding:"required,max=32"`
}

func parseAmount(h *BaseHandler, c *gin.Context, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		h.BadRequest(c, "Amount must be a decimal number")
		return decimal.Zero, false
	}
	return amount, true
}

// ===================== Endpoints =====================

// RequestInternal handles POST /transfers/internal
func (h *MovementHandler) RequestInternal(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req InternalTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	amount, ok := parseAmount(&h.BaseHandler, c, req.Amount)
	if !ok {
		return
	}

	receipt, err := h.movements.RequestInternal(
		c.Request.Context(),
		ownerID,
		ledger.AccountKind(req.From),
		ledger.AccountKind(req.To),
		amount,
		req.Memo,
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, receipt)
}

// VerifyInternal handles POST /transfers/internal/verify
func (h *MovementHandler) VerifyInternal(c *gin.Context) {
	h.verify(c, h.movements.VerifyInternal)
}

// RequestExternal handles POST /transfers/external
func (h *MovementHandler) RequestExternal(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ExternalTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	amount, ok := parseAmount(&h.BaseHandler, c, req.Amount)
	if !ok {
		return
	}

	receipt, err := h.movements.RequestExternal(
		c.Request.Context(),
		ownerID,
		ledger.AccountKind(req.From),
		amount,
		req.BankName,
		req.AccountNumber,
		req.Memo,
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, receipt)
}

// VerifyExternal handles POST /transfers/external/verify
func (h *MovementHandler) VerifyExternal(c *gin.Context) {
	h.verify(c, h.movements.VerifyExternal)
}

// RequestP2P handles POST /transfers/p2p
func (h *MovementHandler) RequestP2P(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req P2PTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	amount, ok := parseAmount(&h.BaseHandler, c, req.Amount)
	if !ok {
		return
	}

	receipt, err := h.movements.RequestP2P(
		c.Request.Context(),
		ownerID,
		req.Recipient,
		ledger.AccountKind(req.From),
		amount,
		req.Memo,
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, receipt)
}

// VerifyP2P handles POST /transfers/p2p/verify
func (h *MovementHandler) VerifyP2P(c *gin.Context) {
	h.verify(c, h.movements.VerifyP2P)
}

type verifyFunc func(ctx context.Context, ownerID uuid.UUID, code string) (*transferapp.MovementReceipt, error)

func (h *MovementHandler) verify(c *gin.Context, fn verifyFunc) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req VerifyMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	receipt, err := fn(c.Request.Context(), ownerID, req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, receipt)
}
