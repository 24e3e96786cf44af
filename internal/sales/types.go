package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is a selectable tender option, loaded once at session start.
type PaymentMethod struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
}

// TransactionStatus is a selectable order status, loaded once at session
// start.
type TransactionStatus struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
}

// CheckoutItem is one order line in the submit payload. Items keep the
// cart's insertion order.
type CheckoutItem struct {
	ProductID       uuid.UUID       `json:"productId" validate:"required"`
	Barcode         string          `json:"barcode"`
	Name            string          `json:"name" validate:"required"`
	Qty             int             `json:"qty" validate:"min=1"`
	UnitPrice       int64           `json:"unitPrice" validate:"min=0"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Unit            string          `json:"unit"`
}

// CheckoutPayload is the order submitted to the sales API.
type CheckoutPayload struct {
	Date                time.Time      `json:"date" validate:"required"`
	Items               []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	PaymentAmount       int64          `json:"paymentAmount" validate:"min=0"`
	Change              int64          `json:"change" validate:"min=0"`
	PaymentMethodID     uuid.UUID      `json:"paymentMethodId" validate:"required"`
	TransactionStatusID uuid.UUID      `json:"transactionStatusId" validate:"required"`
}

// OrderSummary is the server's receipt-ready result of a checkout.
type OrderSummary struct {
	OrderID       uuid.UUID      `json:"orderId"`
	InvoiceNumber string         `json:"invoiceNumber"`
	Date          time.Time      `json:"date"`
	Lines         []CheckoutItem `json:"lines"`
	Total         int64          `json:"total"`
	PaymentAmount int64          `json:"paymentAmount"`
	Change        int64          `json:"change"`
}
