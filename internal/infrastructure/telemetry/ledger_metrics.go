package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when metrics are constructed without a meter.
var ErrMeterNil = errors.New("meter cannot be nil")

// LedgerMetrics tracks movement settlements, crypto trades, refunds, and
// verification outcomes. A nil *LedgerMetrics is valid and records nothing,
// so services can hold it unconditionally.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	settlementTotal    *Counter
	settledAmountTotal *Counter
	cryptoTradeTotal   *Counter
	refundTotal        *Counter
	verifyFailureTotal *Counter
	settleDuration     *Histogram
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error
	lm.settlementTotal, err = NewCounter(
		cfg.Meter,
		"bank_settlement_total",
		"Total number of settled movements",
		"{movements}",
	)
	if err != nil {
		return nil, err
	}

	lm.settledAmountTotal, err = NewCounter(
		cfg.Meter,
		"bank_settled_amount_cents_total",
		"Total settled movement amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	lm.cryptoTradeTotal, err = NewCounter(
		cfg.Meter,
		"bank_crypto_trade_total",
		"Total number of crypto buy/sell trades",
		"{trades}",
	)
	if err != nil {
		return nil, err
	}

	lm.refundTotal, err = NewCounter(
		cfg.Meter,
		"bank_refund_total",
		"Total number of refund reversals",
		"{refunds}",
	)
	if err != nil {
		return nil, err
	}

	lm.verifyFailureTotal, err = NewCounter(
		cfg.Meter,
		"bank_verify_failure_total",
		"Total number of failed verification attempts",
		"{attempts}",
	)
	if err != nil {
		return nil, err
	}

	lm.settleDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "bank_settle_duration_seconds",
		Description: "Settlement unit-of-work duration",
		Unit:        "s",
		Boundaries:  SettleDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Ledger metrics initialized")
	return lm, nil
}

// RecordSettlement records one settled movement and its amount. Amounts
// are exported as integer cents.
func (lm *LedgerMetrics) RecordSettlement(ctx context.Context, kind string, amount decimal.Decimal, took time.Duration) {
	if lm == nil {
		return
	}
	kindAttr := AttrMovementKind.String(kind)
	lm.settlementTotal.Inc(ctx, kindAttr)
	lm.settledAmountTotal.Add(ctx, amount.Mul(decimal.NewFromInt(100)).IntPart(), kindAttr)
	lm.settleDuration.RecordDuration(ctx, took, kindAttr)
}

// RecordCryptoTrade records one buy or sell trade.
func (lm *LedgerMetrics) RecordCryptoTrade(ctx context.Context, side string) {
	if lm == nil {
		return
	}
	lm.cryptoTradeTotal.Inc(ctx, AttrTradeSide.String(side))
}

// RecordRefund records one refund reversal; shape is "single" or "group".
func (lm *LedgerMetrics) RecordRefund(ctx context.Context, shape string) {
	if lm == nil {
		return
	}
	lm.refundTotal.Inc(ctx, AttrRefundShape.String(shape))
}

// RecordVerifyFailure records one failed verification attempt by reason.
func (lm *LedgerMetrics) RecordVerifyFailure(ctx context.Context, reason string) {
	if lm == nil {
		return
	}
	lm.verifyFailureTotal.Inc(ctx, AttrFailureReason.String(reason))
}
