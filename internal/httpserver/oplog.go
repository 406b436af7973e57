package httpserver

import (
	"context"

	"go.uber.org/zap"

	"github.com/escrowhq/escrow/pkg/escrow"
)

// zapOperationLogger forwards domain operation logs to zap.
type zapOperationLogger struct {
	logger *zap.Logger
}

func newZapOperationLogger(logger *zap.Logger) *zapOperationLogger {
	return &zapOperationLogger{logger: logger}
}

func (adapter *zapOperationLogger) LogOperation(_ context.Context, entry escrow.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if entry.ActorID != "" {
		fields = append(fields, zap.String("actor_id", entry.ActorID))
	}
	if entry.ProjectID != "" {
		fields = append(fields, zap.String("project_id", entry.ProjectID))
	}
	if entry.UnitID != "" {
		fields = append(fields, zap.String("unit_id", entry.UnitID))
	}
	if entry.BookingID != "" {
		fields = append(fields, zap.String("booking_id", entry.BookingID))
	}
	if entry.TransactionID != "" {
		fields = append(fields, zap.String("transaction_id", entry.TransactionID))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		adapter.logger.Warn("operation failed", fields...)
		return
	}
	adapter.logger.Info("operation applied", fields...)
}
