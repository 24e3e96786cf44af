// Package checkout turns a cart snapshot into exactly one sales API call
// and classifies the outcome for the terminal.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/wpranata/kasirpos/internal/cart"
	"github.com/wpranata/kasirpos/internal/pricing"
	"github.com/wpranata/kasirpos/internal/sales"
	pkgerrors "github.com/wpranata/kasirpos/pkg/errors"
	"github.com/wpranata/kasirpos/pkg/logger"
	"github.com/wpranata/kasirpos/pkg/metrics"
)

// State tracks the submission lifecycle. Submitting is the single-flight
// gate: a second trigger while a request is in flight is a no-op.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

var (
	errEmptyCart           = errors.New("cart is empty")
	errInsufficientPayment = errors.New("payment amount is below the total")
	errMissingMethod       = errors.New("payment method is not selected")
	errMissingStatus       = errors.New("transaction status is not selected")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// SalesAPI submits the order.
type SalesAPI interface {
	SubmitOrder(ctx context.Context, payload sales.CheckoutPayload) (*sales.OrderSummary, error)
}

// ReceiptSink receives the server's order summary after a successful
// checkout.
type ReceiptSink interface {
	Print(ctx context.Context, summary *sales.OrderSummary)
}

// LoginRedirector is invoked when the backend reports an expired session.
type LoginRedirector interface {
	RedirectToLogin(ctx context.Context)
}

// Resolved is posted back into the owner loop when the request completes.
type Resolved struct {
	Summary *sales.OrderSummary
	Err     error
}

// Disposition tells the owner loop what to do with the cart after a
// resolution. ClearCart and DropCart are mutually exclusive: the first
// means a completed sale, the second an expired session.
type Disposition struct {
	Summary   *sales.OrderSummary
	ClearCart bool
	DropCart  bool
	Err       error
}

// ServiceParams groups the dependencies for NewService.
type ServiceParams struct {
	Sales    SalesAPI
	Receipt  ReceiptSink
	Redirect LoginRedirector
	Logger   *logger.Logger
	Metrics  *metrics.EngineMetrics
	Emit     func(Resolved)
	Now      func() time.Time
}

type Service struct {
	sales    SalesAPI
	receipt  ReceiptSink
	redirect LoginRedirector
	logger   *logger.Logger
	metrics  *metrics.EngineMetrics
	emit     func(Resolved)
	now      func() time.Time

	state State
}

// NewService builds the submission service. Like the session, it is owned
// by a single event loop: Submit and HandleResolved must be called from
// that loop.
func NewService(params ServiceParams) (*Service, error) {
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
	if params.Emit == nil {
		return nil, fmt.Errorf("emit callback is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		sales:    params.Sales,
		receipt:  params.Receipt,
		redirect: params.Redirect,
		logger:   params.Logger,
		metrics:  params.Metrics,
		emit:     params.Emit,
		now:      now,
		state:    StateIdle,
	}, nil
}

func (s *Service) State() State {
	return s.state
}

// Submit validates the snapshot and issues the order request. Repeated
// triggers while a request is in flight do nothing, so a burst of checkout
// presses produces exactly one network call. Validation failures return
// before any network activity.
func (s *Service) Submit(ctx context.Context, snapshot cart.Snapshot) error {
	if s.state == StateSubmitting {
		s.logger.Debug(ctx, "checkout already in flight, trigger ignored")
		return nil
	}

	if err := validateSnapshot(snapshot); err != nil {
		s.metrics.IncCheckout("rejected")
		return err
	}

	payload := buildPayload(snapshot, s.now())
	if err := validate.Struct(payload); err != nil {
		s.metrics.IncCheckout("rejected")
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "checkout payload invalid")
	}

	s.state = StateSubmitting
	s.logger.Info(s.logger.WithField(ctx, "items", len(payload.Items)), "submitting checkout")

	go func() {
		summary, err := s.sales.SubmitOrder(ctx, payload)
		s.emit(Resolved{Summary: summary, Err: err})
	}()
	return nil
}

// HandleResolved applies the request outcome. The cart is cleared only on
// success and dropped only on session expiry; every other failure preserves
// it so the operator does not re-enter items.
func (s *Service) HandleResolved(ctx context.Context, resolved Resolved) Disposition {
	if s.state != StateSubmitting {
		return Disposition{}
	}

	if resolved.Err == nil {
		s.state = StateSucceeded
		s.metrics.IncCheckout("succeeded")
		s.logger.Info(s.logger.WithField(ctx, "order_id", resolved.Summary.OrderID), "checkout succeeded")
		s.receipt.Print(ctx, resolved.Summary)
		return Disposition{Summary: resolved.Summary, ClearCart: true}
	}

	s.state = StateFailed
	code := pkgerrors.CodeOf(resolved.Err)
	err := resolved.Err
	switch code {
	case pkgerrors.CodeSessionExpired:
		s.metrics.IncCheckout("session_expired")
		s.logger.Warn(ctx, "checkout session expired")
		s.redirect.RedirectToLogin(ctx)
	case pkgerrors.CodeConflict, pkgerrors.CodeValidation:
		s.metrics.IncCheckout("rejected_by_server")
		s.logger.Warn(s.logger.WithField(ctx, "error", resolved.Err.Error()), "checkout rejected by server")
	default:
		s.metrics.IncCheckout("network_error")
		s.logger.Error(ctx, "checkout request failed", resolved.Err)
		err = pkgerrors.Wrap(pkgerrors.CodeNetwork, resolved.Err, "submit order")
	}

	// Whether the cart survives the failure is a property of the error
	// code, not of this switch.
	return Disposition{DropCart: !pkgerrors.MetadataFor(code).PreservesCart, Err: err}
}

// validateSnapshot enforces the entry guard, enumerating every unmet
// condition rather than stopping at the first.
func validateSnapshot(snapshot cart.Snapshot) error {
	total := pricing.CartTotal(snapshot.Lines)

	var combined error
	if len(snapshot.Lines) == 0 {
		combined = multierr.Append(combined, errEmptyCart)
	}
	if !pricing.IsPaymentSufficient(total, snapshot.PaymentAmount) {
		combined = multierr.Append(combined, errInsufficientPayment)
	}
	if snapshot.PaymentMethodID == uuid.Nil {
		combined = multierr.Append(combined, errMissingMethod)
	}
	if snapshot.TransactionStatusID == uuid.Nil {
		combined = multierr.Append(combined, errMissingStatus)
	}
	if combined == nil {
		return nil
	}

	violations := make([]string, 0, 4)
	for _, err := range multierr.Errors(combined) {
		violations = append(violations, err.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, combined, "checkout rejected").WithDetails(map[string]any{
		"violations": violations,
	})
}

func buildPayload(snapshot cart.Snapshot, date time.Time) sales.CheckoutPayload {
	total := pricing.CartTotal(snapshot.Lines)
	items := make([]sales.CheckoutItem, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		items = append(items, sales.CheckoutItem{
			ProductID:       line.ProductID,
			Barcode:         line.Barcode,
			Name:            line.Name,
			Qty:             line.Qty,
			UnitPrice:       line.UnitPrice,
			DiscountPercent: line.DiscountPercent,
			Unit:            line.Unit,
		})
	}
	return sales.CheckoutPayload{
		Date:                date,
		Items:               items,
		PaymentAmount:       snapshot.PaymentAmount,
		Change:              pricing.Change(total, snapshot.PaymentAmount),
		PaymentMethodID:     snapshot.PaymentMethodID,
		TransactionStatusID: snapshot.TransactionStatusID,
	}
}
