// Package receipt renders the server's order summary for the operator.
package receipt

import (
	"context"

	"github.com/wpranata/kasirpos/internal/sales"
	"github.com/wpranata/kasirpos/pkg/logger"
)

// LogPrinter emits the order summary through the structured log. Terminals
// with attached printers swap in a hardware implementation.
type LogPrinter struct {
	logger *logger.Logger
}

func NewLogPrinter(logg *logger.Logger) *LogPrinter {
	return &LogPrinter{logger: logg}
}

func (p *LogPrinter) Print(ctx context.Context, summary *sales.OrderSummary) {
	if p == nil || p.logger == nil || summary == nil {
		return
	}
	ctx = p.logger.WithFields(ctx, map[string]any{
		"order_id":       summary.OrderID,
		"invoice":        summary.InvoiceNumber,
		"total":          summary.Total,
		"payment_amount": summary.PaymentAmount,
		"change":         summary.Change,
		"lines":          len(summary.Lines),
	})
	p.logger.Info(ctx, "receipt")
}
