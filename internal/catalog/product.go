package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a read-only snapshot returned by the catalog API. The engine
// never mutates it; quantities in the cart are bounded by StockQty as known
// at the time of the lookup.
type Product struct {
	ID              uuid.UUID       `json:"productId"`
	Barcode         string          `json:"barcode"`
	Name            string          `json:"name"`
	UnitPrice       int64           `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	StockQty        int             `json:"stockQty"`
	Unit            string          `json:"unit"`
}
