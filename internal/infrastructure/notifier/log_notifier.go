// Package notifier delivers verification codes to account owners.
package notifier

import (
	"context"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/application/transfer"
	"go.uber.org/zap"
)

var _ transfer.Notifier = (*LogNotifier)(nil)

// LogNotifier writes verification codes to the application log.
// It stands in for an SMS or email gateway in development and test
// environments.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier backed by the given logger
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send delivers a verification code for a staged movement
func (n *LogNotifier) Send(ctx context.Context, ownerID uuid.UUID, code string) error {
	n.logger.Info("Verification code issued",
		zap.String("owner_id", ownerID.String()),
		zap.String("code", code),
	)
	return nil
}
