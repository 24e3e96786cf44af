// Package terminal runs the cashier interaction loop: one goroutine owns
// the cart, the search session, and the checkout state, and every operator
// key or asynchronous completion is applied to them in arrival order.
package terminal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wpranata/kasirpos/internal/cart"
	"github.com/wpranata/kasirpos/internal/catalog"
	"github.com/wpranata/kasirpos/internal/checkout"
	"github.com/wpranata/kasirpos/internal/sales"
	"github.com/wpranata/kasirpos/internal/search"
	"github.com/wpranata/kasirpos/pkg/affordance"
	"github.com/wpranata/kasirpos/pkg/config"
	pkgerrors "github.com/wpranata/kasirpos/pkg/errors"
	"github.com/wpranata/kasirpos/pkg/logger"
	"github.com/wpranata/kasirpos/pkg/metrics"
)

// CatalogAPI is the slice of the catalog client the engine uses.
type CatalogAPI interface {
	SearchByText(ctx context.Context, query string, limit int) ([]catalog.Product, error)
	FindByBarcode(ctx context.Context, code string) (*catalog.Product, error)
}

// SalesAPI is the slice of the sales client the engine uses.
type SalesAPI interface {
	SubmitOrder(ctx context.Context, payload sales.CheckoutPayload) (*sales.OrderSummary, error)
	PaymentMethods(ctx context.Context) ([]sales.PaymentMethod, error)
	TransactionStatuses(ctx context.Context) ([]sales.TransactionStatus, error)
}

// EngineParams groups the dependencies for NewEngine.
type EngineParams struct {
	Catalog   CatalogAPI
	Sales     SalesAPI
	Receipt   checkout.ReceiptSink
	Redirect  checkout.LoginRedirector
	Logger    *logger.Logger
	Metrics   *metrics.EngineMetrics
	Indicator *affordance.Indicator
	Config    config.EngineConfig
	Now       func() time.Time
}

// Engine owns all interaction state. Dispatch must only be called from the
// goroutine running the loop; external producers hand events in via Post.
type Engine struct {
	catalog   CatalogAPI
	sales     SalesAPI
	logger    *logger.Logger
	metrics   *metrics.EngineMetrics
	indicator *affordance.Indicator

	cart     *cart.Cart
	session  *search.Session
	checkout *checkout.Service

	events chan Event

	methods  []sales.PaymentMethod
	statuses []sales.TransactionStatus

	focus Focus
	// activeQty is the cart line whose quantity field is focused. While it
	// is set, arrow keys adjust that quantity instead of the search
	// highlight, and Delete is inert.
	activeQty uuid.UUID
	lastErr   error
}

// NewEngine wires the interaction loop together.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog API is required")
	}
	if params.Sales == nil {
		return nil, fmt.Errorf("sales API is required")
	}
	if params.Receipt == nil {
		return nil, fmt.Errorf("receipt sink is required")
	}
	if params.Redirect == nil {
		return nil, fmt.Errorf("login redirector is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	indicator := params.Indicator
	if indicator == nil {
		indicator = affordance.NewIndicator()
	}

	debounce := params.Config.SearchDebounce
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	limit := params.Config.SearchResultLimit
	if limit <= 0 {
		limit = 10
	}

	e := &Engine{
		catalog:   params.Catalog,
		sales:     params.Sales,
		logger:    params.Logger,
		metrics:   params.Metrics,
		indicator: indicator,
		cart:      cart.New(),
		events:    make(chan Event, 64),
		focus:     FocusBarcode,
	}
	e.session = search.NewSession(params.Catalog, debounce, limit, func(ev search.Event) {
		e.Post(searchSignal{inner: ev})
	})

	service, err := checkout.NewService(checkout.ServiceParams{
		Sales:    params.Sales,
		Receipt:  params.Receipt,
		Redirect: params.Redirect,
		Logger:   params.Logger,
		Metrics:  params.Metrics,
		Emit:     func(r checkout.Resolved) { e.Post(checkoutResolved{inner: r}) },
		Now:      params.Now,
	})
	if err != nil {
		return nil, err
	}
	e.checkout = service
	return e, nil
}

// Post queues an event for the loop. Safe to call from any goroutine.
func (e *Engine) Post(ev Event) {
	e.events <- ev
}

// Run loads the reference data, then applies queued events until the
// context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.bootstrap(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.events:
			e.Dispatch(ctx, ev)
		}
	}
}

// bootstrap loads payment methods and transaction statuses once at startup
// and preselects the first of each.
func (e *Engine) bootstrap(ctx context.Context) error {
	methods, err := e.sales.PaymentMethods(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeOf(err), err, "load payment methods")
	}
	statuses, err := e.sales.TransactionStatuses(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeOf(err), err, "load transaction statuses")
	}

	e.methods = methods
	e.statuses = statuses
	if len(methods) > 0 {
		e.cart.SetPaymentMethod(methods[0].ID)
	}
	if len(statuses) > 0 {
		e.cart.SetTransactionStatus(statuses[0].ID)
	}
	e.logger.Info(e.logger.WithFields(ctx, map[string]any{
		"payment_methods":      len(methods),
		"transaction_statuses": len(statuses),
	}), "terminal ready")
	return nil
}

// Dispatch applies one event. It never blocks on network work: lookups and
// submissions run on their own goroutines and post completion events back.
func (e *Engine) Dispatch(ctx context.Context, ev Event) {
	switch ev := ev.(type) {
	case KeyPressed:
		e.handleKey(ctx, ev)
	case SearchEdited:
		e.focus = FocusSearch
		e.session.Edit(ev.Query)
	case BarcodeScanned:
		e.lookupBarcode(ctx, ev.Code)
	case QuantityFocused:
		if _, ok := e.cart.Line(ev.ProductID); ok {
			e.activeQty = ev.ProductID
		}
	case QuantityBlurred:
		e.activeQty = uuid.Nil
	case QuantitySet:
		e.applyResult(ctx, e.cart.SetQty(ev.ProductID, ev.Qty), "set_qty")
	case LineRemoveRequested:
		if e.cart.Remove(ev.ProductID) {
			if e.activeQty == ev.ProductID {
				e.activeQty = uuid.Nil
			}
			e.metrics.IncCartMutation("remove")
			e.clearError()
		}
	case PaymentEntered:
		e.applyResult(ctx, e.cart.SetPaymentAmount(ev.Amount), "set_payment")
	case PaymentMethodChosen:
		e.cart.SetPaymentMethod(ev.ID)
	case StatusChosen:
		e.cart.SetTransactionStatus(ev.ID)
	case searchSignal:
		e.handleSearchSignal(ctx, ev.inner)
	case barcodeResolved:
		e.handleBarcodeResolved(ctx, ev)
	case checkoutResolved:
		e.handleCheckoutResolved(ctx, ev.inner)
	}
}

func (e *Engine) handleKey(ctx context.Context, ev KeyPressed) {
	switch ev.Key {
	case KeyF1:
		e.focus = FocusBarcode
		e.activeQty = uuid.Nil
	case KeyF2:
		e.focus = FocusSearch
		e.activeQty = uuid.Nil
	case KeyF3:
		e.focus = FocusPayment
		e.activeQty = uuid.Nil
	case KeyF4:
		e.submitCheckout(ctx)
	case KeyEnter:
		e.addHighlighted(ctx)
	case KeyDelete:
		// Delete pops the newest line, but only when no quantity field is
		// active so an editing operator cannot lose a line by accident.
		if e.activeQty == uuid.Nil {
			if _, ok := e.cart.RemoveLast(); ok {
				e.metrics.IncCartMutation("remove_last")
				e.clearError()
			}
		}
	case KeyEscape:
		// Escape releases the active quantity field first. With none
		// active it clears the search session, and with nothing to clear
		// it dismisses the operator error.
		if e.activeQty != uuid.Nil {
			e.activeQty = uuid.Nil
			return
		}
		if e.session.Query() != "" || len(e.session.Results()) > 0 {
			e.session.Clear()
			return
		}
		e.lastErr = nil
	case KeyArrowUp:
		e.routeArrow(ctx, 1)
	case KeyArrowDown:
		e.routeArrow(ctx, -1)
	case KeyTab:
		e.moveQuantityFocus(ev.Shift)
	}
}

// routeArrow resolves the shared arrow keyspace: with a quantity field
// active the arrows step that quantity, otherwise they move the search
// highlight. Up always means "more" for quantity and "earlier" for the
// result list.
func (e *Engine) routeArrow(ctx context.Context, direction int) {
	if e.activeQty != uuid.Nil {
		e.stepQuantity(ctx, direction)
		return
	}
	e.session.MoveHighlight(-direction)
}

// stepQuantity adjusts the active line by one, clamped to [1, stock]. A
// clamped step is silent, not an error.
func (e *Engine) stepQuantity(ctx context.Context, delta int) {
	line, ok := e.cart.Line(e.activeQty)
	if !ok {
		e.activeQty = uuid.Nil
		return
	}
	next := line.Qty + delta
	if next < 1 {
		next = 1
	}
	if next > line.StockCeiling {
		next = line.StockCeiling
	}
	if next == line.Qty {
		return
	}
	e.applyResult(ctx, e.cart.SetQty(e.activeQty, next), "set_qty")
}

// moveQuantityFocus cycles the quantity focus through the cart lines,
// wrapping at either end.
func (e *Engine) moveQuantityFocus(backward bool) {
	if e.cart.IsEmpty() {
		return
	}
	delta := 1
	if backward {
		delta = -1
	}
	if e.activeQty == uuid.Nil {
		lines := e.cart.Lines()
		if backward {
			e.activeQty = lines[len(lines)-1].ProductID
		} else {
			e.activeQty = lines[0].ProductID
		}
		return
	}
	if next, ok := e.cart.Neighbor(e.activeQty, delta); ok {
		e.activeQty = next
	}
}

// addHighlighted adds the highlighted search result to the cart and resets
// the search box for the next query.
func (e *Engine) addHighlighted(ctx context.Context) {
	product, ok := e.session.Highlighted()
	if !ok {
		return
	}
	if err := e.cart.Add(product); err != nil {
		e.setError(ctx, err)
		return
	}
	e.metrics.IncCartMutation("add")
	e.clearError()
	e.session.Clear()
}

func (e *Engine) lookupBarcode(ctx context.Context, code string) {
	e.indicator.Show()
	go func() {
		product, err := e.catalog.FindByBarcode(ctx, code)
		e.Post(barcodeResolved{code: code, product: product, err: err})
	}()
}

func (e *Engine) handleBarcodeResolved(ctx context.Context, ev barcodeResolved) {
	e.indicator.Hide()
	if ev.err != nil {
		if pkgerrors.CodeOf(ev.err) == pkgerrors.CodeNotFound {
			e.metrics.IncBarcodeLookup("not_found")
		} else {
			e.metrics.IncBarcodeLookup("error")
		}
		e.setError(ctx, ev.err)
		return
	}

	e.metrics.IncBarcodeLookup("hit")
	if err := e.cart.Add(*ev.product); err != nil {
		e.setError(ctx, err)
		return
	}
	e.metrics.IncCartMutation("add")
	e.clearError()
}

func (e *Engine) handleSearchSignal(ctx context.Context, inner search.Event) {
	_, isResolution := inner.(search.LookupResolved)

	outcome, err := e.session.Handle(ctx, inner)
	if isResolution {
		// Every resolution pairs with the Show from its dispatch.
		e.indicator.Hide()
	}

	switch outcome {
	case search.OutcomeDispatched:
		e.metrics.IncSearchRequest()
		e.indicator.Show()
	case search.OutcomeApplied:
		e.clearError()
	case search.OutcomeStale:
		if isResolution {
			e.metrics.IncStaleDropped()
		}
	}
	if err != nil {
		e.setError(ctx, err)
	}
}

func (e *Engine) submitCheckout(ctx context.Context) {
	before := e.checkout.State()
	if err := e.checkout.Submit(ctx, e.cart.Snapshot()); err != nil {
		e.setError(ctx, err)
		return
	}
	if before != checkout.StateSubmitting && e.checkout.State() == checkout.StateSubmitting {
		e.indicator.Show()
	}
}

func (e *Engine) handleCheckoutResolved(ctx context.Context, resolved checkout.Resolved) {
	e.indicator.Hide()
	disposition := e.checkout.HandleResolved(ctx, resolved)
	if disposition.ClearCart || disposition.DropCart {
		e.cart.Clear()
		e.activeQty = uuid.Nil
		e.metrics.IncCartMutation("clear")
	}
	if disposition.Err != nil {
		e.setError(ctx, disposition.Err)
		return
	}
	if disposition.ClearCart {
		// Restore the bootstrap defaults for the next sale.
		if len(e.methods) > 0 {
			e.cart.SetPaymentMethod(e.methods[0].ID)
		}
		if len(e.statuses) > 0 {
			e.cart.SetTransactionStatus(e.statuses[0].ID)
		}
		e.clearError()
	}
}

func (e *Engine) applyResult(ctx context.Context, err error, op string) {
	if err != nil {
		e.setError(ctx, err)
		return
	}
	e.metrics.IncCartMutation(op)
	e.clearError()
}

// setError replaces the single visible operator error and renders its
// operator message. The next successful operation clears it.
func (e *Engine) setError(ctx context.Context, err error) {
	e.lastErr = err
	meta := pkgerrors.MetadataFor(pkgerrors.CodeOf(err))
	ctx = e.logger.WithFields(ctx, map[string]any{
		"code":      pkgerrors.CodeOf(err),
		"retryable": meta.Retryable,
	})
	e.logger.Warn(ctx, meta.OperatorMessage)
}

func (e *Engine) clearError() {
	e.lastErr = nil
}

func (e *Engine) Cart() *cart.Cart {
	return e.cart
}

func (e *Engine) Search() *search.Session {
	return e.session
}

func (e *Engine) CheckoutState() checkout.State {
	return e.checkout.State()
}

func (e *Engine) PaymentMethods() []sales.PaymentMethod {
	return e.methods
}

func (e *Engine) TransactionStatuses() []sales.TransactionStatus {
	return e.statuses
}

func (e *Engine) Focus() Focus {
	return e.focus
}

// ActiveQuantityLine reports which line's quantity field is focused.
func (e *Engine) ActiveQuantityLine() (uuid.UUID, bool) {
	return e.activeQty, e.activeQty != uuid.Nil
}

// OperatorError returns the currently visible error, if any.
func (e *Engine) OperatorError() error {
	return e.lastErr
}
