package terminal

import (
	"github.com/google/uuid"

	"github.com/wpranata/kasirpos/internal/catalog"
	"github.com/wpranata/kasirpos/internal/checkout"
	"github.com/wpranata/kasirpos/internal/search"
)

// Key identifies a routed keyboard key. Arrow keys and Enter are shared
// between the search session and the quantity field; the engine routes them
// by whether a quantity field is active.
type Key string

const (
	KeyF1        Key = "F1" // focus barcode entry
	KeyF2        Key = "F2" // focus product search
	KeyF3        Key = "F3" // focus payment amount
	KeyF4        Key = "F4" // submit checkout
	KeyEnter     Key = "Enter"
	KeyDelete    Key = "Delete"
	KeyEscape    Key = "Escape"
	KeyArrowUp   Key = "ArrowUp"
	KeyArrowDown Key = "ArrowDown"
	KeyTab       Key = "Tab"
)

// Focus names the input field the operator is typing into.
type Focus int

const (
	FocusBarcode Focus = iota
	FocusSearch
	FocusPayment
)

// Event is a unit of operator or asynchronous input. All events are applied
// in arrival order by the engine's single loop.
type Event interface{ isTerminalEvent() }

// KeyPressed is a routed keyboard key.
type KeyPressed struct {
	Key   Key
	Shift bool
}

// SearchEdited reports the current content of the search box.
type SearchEdited struct {
	Query string
}

// BarcodeScanned carries a completed barcode entry, whether from a scanner
// or typed and confirmed by hand.
type BarcodeScanned struct {
	Code string
}

// QuantityFocused marks a cart line's quantity field as the active one.
type QuantityFocused struct {
	ProductID uuid.UUID
}

// QuantityBlurred deactivates the quantity field.
type QuantityBlurred struct{}

// QuantitySet is a direct edit of the active line's quantity.
type QuantitySet struct {
	ProductID uuid.UUID
	Qty       int
}

// LineRemoveRequested removes a specific cart line.
type LineRemoveRequested struct {
	ProductID uuid.UUID
}

// PaymentEntered is the tendered amount typed by the operator.
type PaymentEntered struct {
	Amount int64
}

// PaymentMethodChosen selects the tender option.
type PaymentMethodChosen struct {
	ID uuid.UUID
}

// StatusChosen selects the transaction status.
type StatusChosen struct {
	ID uuid.UUID
}

// searchSignal routes the session's timer and lookup events back through
// the loop.
type searchSignal struct {
	inner search.Event
}

// barcodeResolved carries the outcome of an issued barcode lookup.
type barcodeResolved struct {
	code    string
	product *catalog.Product
	err     error
}

// checkoutResolved routes the submission outcome back through the loop.
type checkoutResolved struct {
	inner checkout.Resolved
}

func (KeyPressed) isTerminalEvent()          {}
func (SearchEdited) isTerminalEvent()        {}
func (BarcodeScanned) isTerminalEvent()      {}
func (QuantityFocused) isTerminalEvent()     {}
func (QuantityBlurred) isTerminalEvent()     {}
func (QuantitySet) isTerminalEvent()         {}
func (LineRemoveRequested) isTerminalEvent() {}
func (PaymentEntered) isTerminalEvent()      {}
func (PaymentMethodChosen) isTerminalEvent() {}
func (StatusChosen) isTerminalEvent()        {}
func (searchSignal) isTerminalEvent()        {}
func (barcodeResolved) isTerminalEvent()     {}
func (checkoutResolved) isTerminalEvent()    {}
