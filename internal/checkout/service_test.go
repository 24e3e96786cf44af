package checkout

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpranata/kasirpos/internal/cart"
	"github.com/wpranata/kasirpos/internal/sales"
	pkgerrors "github.com/wpranata/kasirpos/pkg/errors"
	"github.com/wpranata/kasirpos/pkg/logger"
)

type stubSales struct {
	mu      sync.Mutex
	calls   int
	summary *sales.OrderSummary
	err     error
	release chan struct{}
}

func (s *stubSales) SubmitOrder(ctx context.Context, payload sales.CheckoutPayload) (*sales.OrderSummary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	return s.summary, s.err
}

func (s *stubSales) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubReceipt struct {
	mu        sync.Mutex
	summaries []*sales.OrderSummary
}

func (s *stubReceipt) Print(ctx context.Context, summary *sales.OrderSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
}

type stubRedirect struct {
	mu    sync.Mutex
	calls int
}

func (s *stubRedirect) RedirectToLogin(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
}

type fixture struct {
	service  *Service
	sales    *stubSales
	receipt  *stubReceipt
	redirect *stubRedirect
	resolved chan Resolved
}

func newFixture(t *testing.T, salesStub *stubSales) *fixture {
	t.Helper()

	f := &fixture{
		sales:    salesStub,
		receipt:  &stubReceipt{},
		redirect: &stubRedirect{},
		resolved: make(chan Resolved, 4),
	}
	service, err := NewService(ServiceParams{
		Sales:    f.sales,
		Receipt:  f.receipt,
		Redirect: f.redirect,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Emit:     func(r Resolved) { f.resolved <- r },
	})
	require.NoError(t, err)
	f.service = service
	return f
}

func (f *fixture) awaitResolved(t *testing.T) Resolved {
	t.Helper()
	select {
	case r := <-f.resolved:
		return r
	case <-time.After(time.Second):
		t.Fatal("submission never resolved")
		return Resolved{}
	}
}

func payableSnapshot() cart.Snapshot {
	return cart.Snapshot{
		Lines: []cart.Line{{
			ProductID:       uuid.New(),
			Barcode:         "899100210001",
			Name:            "Teh Botol 350ml",
			Unit:            "pcs",
			Qty:             2,
			UnitPrice:       5000,
			DiscountPercent: decimal.Zero,
			StockCeiling:    10,
		}},
		PaymentAmount:       20000,
		PaymentMethodID:     uuid.New(),
		TransactionStatusID: uuid.New(),
	}
}

func TestSubmitEnumeratesEveryUnmetCondition(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubSales{})
	err := f.service.Submit(context.Background(), cart.Snapshot{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	violations, ok := details["violations"].([]string)
	require.True(t, ok)
	assert.Len(t, violations, 3)
	assert.Contains(t, violations, "cart is empty")
	assert.Contains(t, violations, "payment method is not selected")
	assert.Contains(t, violations, "transaction status is not selected")

	assert.Equal(t, StateIdle, f.service.State())
	assert.Zero(t, f.sales.callCount())
}

func TestSubmitRejectsInsufficientPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubSales{})
	snapshot := payableSnapshot()
	snapshot.PaymentAmount = 9999 // total is 10000

	err := f.service.Submit(context.Background(), snapshot)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "payment amount is below the total")
	assert.Zero(t, f.sales.callCount())
}

func TestRepeatedTriggersIssueOneRequest(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	salesStub := &stubSales{
		summary: &sales.OrderSummary{OrderID: orderID, InvoiceNumber: "INV-2026-000412"},
		release: make(chan struct{}),
	}
	f := newFixture(t, salesStub)
	snapshot := payableSnapshot()

	require.NoError(t, f.service.Submit(context.Background(), snapshot))
	assert.Equal(t, StateSubmitting, f.service.State())

	// Second and third triggers while in flight are no-ops.
	require.NoError(t, f.service.Submit(context.Background(), snapshot))
	require.NoError(t, f.service.Submit(context.Background(), snapshot))

	close(salesStub.release)
	resolved := f.awaitResolved(t)
	disposition := f.service.HandleResolved(context.Background(), resolved)

	assert.Equal(t, 1, salesStub.callCount())
	assert.Equal(t, StateSucceeded, f.service.State())
	assert.True(t, disposition.ClearCart)
	assert.False(t, disposition.DropCart)
	require.Len(t, f.receipt.summaries, 1)
	assert.Equal(t, orderID, f.receipt.summaries[0].OrderID)
}

func TestSessionExpiryDropsCartAndRedirects(t *testing.T) {
	t.Parallel()

	salesStub := &stubSales{err: pkgerrors.New(pkgerrors.CodeSessionExpired, "session expired")}
	f := newFixture(t, salesStub)

	require.NoError(t, f.service.Submit(context.Background(), payableSnapshot()))
	disposition := f.service.HandleResolved(context.Background(), f.awaitResolved(t))

	assert.Equal(t, StateFailed, f.service.State())
	assert.True(t, disposition.DropCart)
	assert.False(t, disposition.ClearCart)
	assert.Equal(t, 1, f.redirect.calls)
	assert.Empty(t, f.receipt.summaries)
}

func TestServerRejectionPreservesCartAndAllowsRetry(t *testing.T) {
	t.Parallel()

	salesStub := &stubSales{err: pkgerrors.New(pkgerrors.CodeConflict, "stock changed for Teh Botol")}
	f := newFixture(t, salesStub)

	require.NoError(t, f.service.Submit(context.Background(), payableSnapshot()))
	disposition := f.service.HandleResolved(context.Background(), f.awaitResolved(t))

	assert.Equal(t, StateFailed, f.service.State())
	assert.False(t, disposition.ClearCart)
	assert.False(t, disposition.DropCart)
	require.Error(t, disposition.Err)
	assert.Equal(t, "stock changed for Teh Botol", pkgerrors.As(disposition.Err).Message())
	assert.Zero(t, f.redirect.calls)

	// The cart survived, so the operator can trigger checkout again.
	salesStub.err = nil
	salesStub.summary = &sales.OrderSummary{OrderID: uuid.New()}
	require.NoError(t, f.service.Submit(context.Background(), payableSnapshot()))
	next := f.service.HandleResolved(context.Background(), f.awaitResolved(t))
	assert.True(t, next.ClearCart)
	assert.Equal(t, 2, salesStub.callCount())
}

func TestTransportFailureMapsToNetwork(t *testing.T) {
	t.Parallel()

	salesStub := &stubSales{err: pkgerrors.New(pkgerrors.CodeNetwork, "sales request failed")}
	f := newFixture(t, salesStub)

	require.NoError(t, f.service.Submit(context.Background(), payableSnapshot()))
	disposition := f.service.HandleResolved(context.Background(), f.awaitResolved(t))

	require.Error(t, disposition.Err)
	assert.Equal(t, pkgerrors.CodeNetwork, pkgerrors.CodeOf(disposition.Err))
	assert.False(t, disposition.ClearCart)
	assert.False(t, disposition.DropCart)
}

func TestFailureDispositionFollowsErrorMetadata(t *testing.T) {
	t.Parallel()

	codes := []pkgerrors.Code{
		pkgerrors.CodeSessionExpired,
		pkgerrors.CodeConflict,
		pkgerrors.CodeValidation,
		pkgerrors.CodeNetwork,
	}
	for _, code := range codes {
		code := code
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, &stubSales{err: pkgerrors.New(code, "submission failed")})
			require.NoError(t, f.service.Submit(context.Background(), payableSnapshot()))
			disposition := f.service.HandleResolved(context.Background(), f.awaitResolved(t))

			wantDrop := !pkgerrors.MetadataFor(code).PreservesCart
			assert.Equal(t, wantDrop, disposition.DropCart)
			assert.False(t, disposition.ClearCart)
			require.Error(t, disposition.Err)
		})
	}
}

func TestLateResolutionWithoutFlightIsIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &stubSales{})
	disposition := f.service.HandleResolved(context.Background(), Resolved{Summary: &sales.OrderSummary{}})
	assert.Equal(t, Disposition{}, disposition)
	assert.Equal(t, StateIdle, f.service.State())
	assert.Empty(t, f.receipt.summaries)
}
