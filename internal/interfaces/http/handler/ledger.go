package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	transferapp "github.com/horizonbank/backend/internal/application/transfer"
	"github.com/horizonbank/backend/internal/domain/ledger"
)

// LedgerHandler handles transaction history and balance API endpoints
type LedgerHandler struct {
	BaseHandler
	queries    *transferapp.LedgerQueryService
	statements *transferapp.StatementService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(
	queries *transferapp.LedgerQueryService,
	statements *transferapp.StatementService,
) *LedgerHandler {
	return &LedgerHandler{
		queries:    queries,
		statements: statements,
	}
}

// ListTransactionsRequest narrows the transaction listing
type ListTransactionsRequest struct {
	AccountKind string `form:"account_kind" binding:"omitempty,oneof=checking savings crypto"`
	Type        string `form:"type" binding:"omitempty"`
	Status      string `form:"status" binding:"omitempty,oneof=completed pending failed"`
	From        string `form:"from" binding:"omitempty"`
	To          string `form:"to" binding:"omitempty"`
	Page        int    `form:"page" binding:"omitempty,min=1"`
	PageSize    int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// BalancesResponse reports the committed balances for one identity
type BalancesResponse struct {
	OwnerID             string `json:"owner_id"`
	DisplayName         string `json:"display_name"`
	Checking            string `json:"checking"`
	Savings             string `json:"savings"`
	Crypto              string `json:"crypto"`
	VerificationEnabled bool   `json:"verification_enabled"`
	PendingMovement     bool   `json:"pending_movement"`
}

// SetStatusRequest carries the administrative status transition
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=completed failed"`
}

// GenerateStatementRequest selects the statement period
type GenerateStatementRequest struct {
	Year  int `json:"year" binding:"required,min=2000,max=2200"`
	Month int `json:"month" binding:"required,min=1,max=12"`
}

func (r *ListTransactionsRequest) toFilter(ownerID uuid.UUID) (ledger.TransactionFilter, error) {
	filter := ledger.TransactionFilter{
		OwnerID:  &ownerID,
		Page:     r.Page,
		PageSize: r.PageSize,
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	}

	if r.AccountKind != "" {
		kind := ledger.AccountKind(r.AccountKind)
		filter.AccountKind = &kind
	}
	if r.Type != "" {
		txType := ledger.TransactionType(r.Type)
		filter.Type = &txType
	}
	if r.Status != "" {
		status := ledger.TransactionStatus(r.Status)
		filter.Status = &status
	}
	if r.From != "" {
		from, err := time.Parse(time.RFC3339, r.From)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if r.To != "" {
		to, err := time.Parse(time.RFC3339, r.To)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	return filter, nil
}

// ListTransactions handles GET /transactions
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	filter, err := req.toFilter(ownerID)
	if err != nil {
		h.BadRequest(c, "Timestamps must be RFC 3339")
		return
	}

	rows, total, err := h.queries.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, rows, total, filter.Page, filter.PageSize)
}

// ListTransferGroups handles GET /transfers/groups
func (h *LedgerHandler) ListTransferGroups(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	filter, err := req.toFilter(ownerID)
	if err != nil {
		h.BadRequest(c, "Timestamps must be RFC 3339")
		return
	}

	groups, err := h.queries.ListTransferGroups(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, groups)
}

// GetBalances handles GET /balances
func (h *LedgerHandler) GetBalances(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	account, err := h.queries.GetBalances(c.Request.Context(), ownerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, BalancesResponse{
		OwnerID:             account.OwnerID.String(),
		DisplayName:         account.DisplayName,
		Checking:            account.Checking.StringFixed(2),
		Savings:             account.Savings.StringFixed(2),
		Crypto:              account.Crypto.String(),
		VerificationEnabled: account.VerificationEnabled,
		PendingMovement:     account.Pending != nil,
	})
}

// SetTransactionStatus handles PATCH /transactions/:id/status
func (h *LedgerHandler) SetTransactionStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Transaction ID must be a UUID")
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.queries.SetTransactionStatus(c.Request.Context(), id, ledger.TransactionStatus(req.Status)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GenerateStatement handles POST /statements
func (h *LedgerHandler) GenerateStatement(c *gin.Context) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req GenerateStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	statement, err := h.statements.GenerateMonthly(c.Request.Context(), ownerID, req.Year, time.Month(req.Month))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, statement)
}
