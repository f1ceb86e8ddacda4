package handler

import (
	"github.com/gin-gonic/gin"

	transferapp "github.com/horizonbank/backend/internal/application/transfer"
)

// CryptoHandler handles crypto trading API endpoints
type CryptoHandler struct {
	BaseHandler
	trades *transferapp.CryptoService
}

// NewCryptoHandler creates a new CryptoHandler
func NewCryptoHandler(trades *transferapp.CryptoService) *CryptoHandler {
	return &CryptoHandler{trades: trades}
}

// CryptoTradeRequest buys or sells crypto at the quoted unit price
type CryptoTradeRequest struct {
	Quantity string `json:"quantity" binding:"required"`
	Price    string `json:"price" binding:"required"`
}

// Buy handles POST /crypto/buy
func (h *CryptoHandler) Buy(c *gin.Context) {
	h.trade(c, true)
}

// Sell handles POST /crypto/sell
func (h *CryptoHandler) Sell(c *gin.Context) {
	h.trade(c, false)
}

func (h *CryptoHandler) trade(c *gin.Context, buy bool) {
	ownerID, err := getOwnerID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CryptoTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	quantity, ok := parseAmount(&h.BaseHandler, c, req.Quantity)
	if !ok {
		return
	}
	price, ok := parseAmount(&h.BaseHandler, c, req.Price)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if buy {
		row, err := h.trades.Buy(ctx, ownerID, quantity, price)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, row)
		return
	}

	row, err := h.trades.Sell(ctx, ownerID, quantity, price)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, row)
}
