// Package cart holds the in-progress order for one cashier session and
// enforces its quantity and stock invariants. All mutations are synchronous
// and touch nothing but the cart itself.
package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wpranata/kasirpos/internal/catalog"
	pkgerrors "github.com/wpranata/kasirpos/pkg/errors"
)

// Line is one product entry in the cart. Price and discount are snapshots
// taken at add time; StockCeiling bounds quantity edits until the product is
// looked up again.
type Line struct {
	ProductID       uuid.UUID
	Barcode         string
	Name            string
	Unit            string
	Qty             int
	UnitPrice       int64
	DiscountPercent decimal.Decimal
	StockCeiling    int
}

// Snapshot is an immutable copy of the cart handed to checkout.
type Snapshot struct {
	Lines               []Line
	PaymentAmount       int64
	PaymentMethodID     uuid.UUID
	TransactionStatusID uuid.UUID
}

// Cart keeps lines in insertion order with at most one line per product.
type Cart struct {
	lines               []Line
	index               map[uuid.UUID]int
	paymentAmount       int64
	paymentMethodID     uuid.UUID
	transactionStatusID uuid.UUID
}

func New() *Cart {
	return &Cart{index: map[uuid.UUID]int{}}
}

// Add inserts the product as a new line with qty 1, or increments the
// existing line for the same product. The existing line's stock ceiling is
// refreshed to the latest known stock on a successful merge.
func (c *Cart) Add(product catalog.Product) error {
	if product.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if product.StockQty == 0 {
		return pkgerrors.New(pkgerrors.CodeOutOfStock, "product has no stock")
	}

	if pos, ok := c.index[product.ID]; ok {
		line := &c.lines[pos]
		if line.Qty+1 > product.StockQty {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "stock does not cover another unit").WithDetails(map[string]any{
				"product_id": product.ID,
				"qty":        line.Qty,
				"stock":      product.StockQty,
			})
		}
		line.Qty++
		line.StockCeiling = product.StockQty
		return nil
	}

	c.index[product.ID] = len(c.lines)
	c.lines = append(c.lines, Line{
		ProductID:       product.ID,
		Barcode:         product.Barcode,
		Name:            product.Name,
		Unit:            product.Unit,
		Qty:             1,
		UnitPrice:       product.UnitPrice,
		DiscountPercent: product.DiscountPercent,
		StockCeiling:    product.StockQty,
	})
	return nil
}

// SetQty replaces the quantity on an existing line, bounded by the line's
// stock ceiling. The line is left unchanged on error.
func (c *Cart) SetQty(productID uuid.UUID, qty int) error {
	pos, ok := c.index[productID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart")
	}
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeInvalidQty, "quantity must be at least 1")
	}
	line := &c.lines[pos]
	if qty > line.StockCeiling {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "quantity exceeds known stock").WithDetails(map[string]any{
			"product_id": productID,
			"requested":  qty,
			"stock":      line.StockCeiling,
		})
	}
	line.Qty = qty
	return nil
}

// Remove deletes the line for the product, reporting whether it existed.
func (c *Cart) Remove(productID uuid.UUID) bool {
	pos, ok := c.index[productID]
	if !ok {
		return false
	}
	c.lines = append(c.lines[:pos], c.lines[pos+1:]...)
	c.reindex()
	return true
}

// RemoveLast deletes the most recently inserted line. No-op on an empty
// cart.
func (c *Cart) RemoveLast() (uuid.UUID, bool) {
	if len(c.lines) == 0 {
		return uuid.Nil, false
	}
	last := c.lines[len(c.lines)-1]
	c.lines = c.lines[:len(c.lines)-1]
	c.reindex()
	return last.ProductID, true
}

// Clear empties the cart and resets the payment fields.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = map[uuid.UUID]int{}
	c.paymentAmount = 0
	c.paymentMethodID = uuid.Nil
	c.transactionStatusID = uuid.Nil
}

// Line returns a copy of the line for the product.
func (c *Cart) Line(productID uuid.UUID) (Line, bool) {
	pos, ok := c.index[productID]
	if !ok {
		return Line{}, false
	}
	return c.lines[pos], true
}

// Lines returns the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Neighbor returns the product delta positions away from the given line,
// wrapping around cart bounds. Used for cyclic Tab navigation between
// quantity fields.
func (c *Cart) Neighbor(productID uuid.UUID, delta int) (uuid.UUID, bool) {
	pos, ok := c.index[productID]
	if !ok || len(c.lines) == 0 {
		return uuid.Nil, false
	}
	n := len(c.lines)
	next := ((pos+delta)%n + n) % n
	return c.lines[next].ProductID, true
}

func (c *Cart) SetPaymentAmount(amount int64) error {
	if amount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount cannot be negative")
	}
	c.paymentAmount = amount
	return nil
}

func (c *Cart) SetPaymentMethod(id uuid.UUID) {
	c.paymentMethodID = id
}

func (c *Cart) SetTransactionStatus(id uuid.UUID) {
	c.transactionStatusID = id
}

func (c *Cart) PaymentAmount() int64 {
	return c.paymentAmount
}

func (c *Cart) PaymentMethodID() uuid.UUID {
	return c.paymentMethodID
}

func (c *Cart) TransactionStatusID() uuid.UUID {
	return c.transactionStatusID
}

// Snapshot copies the cart state for checkout submission.
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{
		Lines:               c.Lines(),
		PaymentAmount:       c.paymentAmount,
		PaymentMethodID:     c.paymentMethodID,
		TransactionStatusID: c.transactionStatusID,
	}
}

func (c *Cart) reindex() {
	c.index = make(map[uuid.UUID]int, len(c.lines))
	for i, line := range c.lines {
		c.index[line.ProductID] = i
	}
}
