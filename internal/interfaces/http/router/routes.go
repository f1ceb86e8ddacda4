package router

import (
	"github.com/horizonbank/backend/internal/interfaces/http/handler"
)

// NewTransferRoutes builds the money movement route group
func NewTransferRoutes(h *handler.MovementHandler, refunds *handler.RefundHandler, ledgerH *handler.LedgerHandler) *DomainGroup {
	return NewDomainGroup("transfers", "/transfers").
		POST("/internal", h.RequestInternal).
		POST("/internal/verify", h.VerifyInternal).
		POST("/external", h.RequestExternal).
		POST("/external/verify", h.VerifyExternal).
		POST("/p2p", h.RequestP2P).
		POST("/p2p/verify", h.VerifyP2P).
		POST("/:id/refund", refunds.RefundTransferGroup).
		GET("/groups", ledgerH.ListTransferGroups)
}

// NewCryptoRoutes builds the crypto trading route group
func NewCryptoRoutes(h *handler.CryptoHandler) *DomainGroup {
	return NewDomainGroup("crypto", "/crypto").
		POST("/buy", h.Buy).
		POST("/sell", h.Sell)
}

// NewTransactionRoutes builds the transaction history route group
func NewTransactionRoutes(h *handler.LedgerHandler, refunds *handler.RefundHandler) *DomainGroup {
	return NewDomainGroup("transactions", "/transactions").
		GET("", h.ListTransactions).
		POST("/:id/refund", refunds.RefundTransaction).
		PATCH("/:id/status", h.SetTransactionStatus)
}

// NewAccountRoutes builds the balance and statement route group
func NewAccountRoutes(h *handler.LedgerHandler) *DomainGroup {
	return NewDomainGroup("accounts", "").
		GET("/balances", h.GetBalances).
		POST("/statements", h.GenerateStatement)
}

// NewSystemRoutes builds the health route group
func NewSystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "").
		GET("/health", h.Health).
		GET("/ready", h.Ready)
}
