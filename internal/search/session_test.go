package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wpranata/kasirpos/internal/catalog"
	pkgerrors "github.com/wpranata/kasirpos/pkg/errors"
)

type recordingLookup struct {
	mu      sync.Mutex
	queries []string
	results []catalog.Product
	err     error
}

func (r *recordingLookup) SearchByText(ctx context.Context, query string, limit int) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	return r.results, r.err
}

func (r *recordingLookup) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.queries))
	copy(out, r.queries)
	return out
}

func namedProduct(name string) catalog.Product {
	return catalog.Product{ID: uuid.New(), Name: name, StockQty: 1}
}

// drainFired collects timer events for a settling period after a burst of
// edits. Stale fires (a timer that beat its Stop) are fed through Handle
// like the real loop would.
func drainFired(t *testing.T, events chan Event, settle time.Duration) []TimerFired {
	t.Helper()
	var fired []TimerFired
	deadline := time.After(settle)
	for {
		select {
		case ev := <-events:
			if f, ok := ev.(TimerFired); ok {
				fired = append(fired, f)
			}
		case <-deadline:
			return fired
		}
	}
}

func TestDebounceCollapsesBurstIntoOneLookup(t *testing.T) {
	t.Parallel()

	events := make(chan Event, 16)
	lookup := &recordingLookup{results: []catalog.Product{namedProduct("Kopi")}}
	session := NewSession(lookup, 20*time.Millisecond, 10, func(ev Event) { events <- ev })

	session.Edit("k")
	session.Edit("ko")
	session.Edit("kop")
	session.Edit("kopi")

	fired := drainFired(t, events, 300*time.Millisecond)
	if len(fired) == 0 {
		t.Fatal("expected the final edit's timer to fire")
	}

	dispatched := 0
	for _, f := range fired {
		outcome, err := session.Handle(context.Background(), f)
		if err != nil {
			t.Fatalf("handle fire: %v", err)
		}
		if outcome == OutcomeDispatched {
			dispatched++
		}
	}
	if dispatched != 1 {
		t.Fatalf("expected exactly one dispatched lookup, got %d", dispatched)
	}

	// Wait for the lookup goroutine to resolve.
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-events:
			if res, ok := ev.(LookupResolved); ok {
				if _, err := session.Handle(context.Background(), res); err != nil {
					t.Fatalf("handle resolution: %v", err)
				}
				queries := lookup.recorded()
				if len(queries) != 1 || queries[0] != "kopi" {
					t.Fatalf("expected one lookup for final query, got %v", queries)
				}
				return
			}
		case <-deadline:
			t.Fatal("lookup never resolved")
		}
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	t.Parallel()

	events := make(chan Event, 16)
	lookup := &recordingLookup{}
	session := NewSession(lookup, time.Millisecond, 10, func(ev Event) { events <- ev })

	// Two issued requests: tokens 1 and 2.
	if outcome, _ := session.Handle(context.Background(), TimerFired{Gen: 0, Query: "a"}); outcome != OutcomeDispatched {
		t.Fatal("expected first dispatch")
	}
	if outcome, _ := session.Handle(context.Background(), TimerFired{Gen: 0, Query: "ab"}); outcome != OutcomeDispatched {
		t.Fatal("expected second dispatch")
	}

	fresh := []catalog.Product{namedProduct("fresh")}
	stale := []catalog.Product{namedProduct("stale")}

	// Token 2 resolves first, then token 1 arrives late.
	if outcome, err := session.Handle(context.Background(), LookupResolved{Token: 2, Products: fresh}); err != nil || outcome != OutcomeApplied {
		t.Fatalf("fresh resolution: outcome=%v err=%v", outcome, err)
	}
	if outcome, err := session.Handle(context.Background(), LookupResolved{Token: 1, Products: stale}); err != nil || outcome != OutcomeStale {
		t.Fatalf("stale resolution: outcome=%v err=%v", outcome, err)
	}

	results := session.Results()
	if len(results) != 1 || results[0].Name != "fresh" {
		t.Fatalf("visible results must reflect the newest request, got %+v", results)
	}
}

func TestSupersededTimerFireIsIgnored(t *testing.T) {
	t.Parallel()

	session := NewSession(&recordingLookup{}, time.Hour, 10, func(Event) {})
	session.Edit("a")
	session.Edit("ab")

	// A fire from the first edit's generation must not dispatch.
	if outcome, _ := session.Handle(context.Background(), TimerFired{Gen: 1, Query: "a"}); outcome != OutcomeNone {
		t.Fatalf("expected superseded fire to be ignored, got %v", outcome)
	}
}

func TestEmptyQueryClearsWithoutLookup(t *testing.T) {
	t.Parallel()

	events := make(chan Event, 4)
	session := NewSession(&recordingLookup{}, time.Millisecond, 10, func(ev Event) { events <- ev })

	if _, err := session.Handle(context.Background(), TimerFired{Gen: 0, Query: "a"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := session.Handle(context.Background(), LookupResolved{Token: 1, Products: []catalog.Product{namedProduct("x")}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if session.HighlightedIndex() != 0 {
		t.Fatal("expected highlight on first result")
	}

	session.Edit("   ")

	if len(session.Results()) != 0 || session.HighlightedIndex() != -1 {
		t.Fatal("empty query must clear results immediately")
	}
	select {
	case ev := <-events:
		if _, ok := ev.(TimerFired); ok {
			t.Fatal("empty query must not arm the debounce timer")
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHighlightClampsAndResets(t *testing.T) {
	t.Parallel()

	session := NewSession(&recordingLookup{}, time.Millisecond, 10, func(Event) {})
	session.MoveHighlight(1) // no results yet

	products := []catalog.Product{namedProduct("a"), namedProduct("b"), namedProduct("c")}
	if _, err := session.Handle(context.Background(), TimerFired{Gen: 0, Query: "x"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := session.Handle(context.Background(), LookupResolved{Token: 1, Products: products}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	session.MoveHighlight(-1)
	if session.HighlightedIndex() != 0 {
		t.Fatal("highlight must clamp at the first result")
	}
	session.MoveHighlight(1)
	session.MoveHighlight(1)
	session.MoveHighlight(1)
	if session.HighlightedIndex() != 2 {
		t.Fatal("highlight must clamp at the last result")
	}

	got, ok := session.Highlighted()
	if !ok || got.Name != "c" {
		t.Fatalf("unexpected highlighted product: %+v", got)
	}

	// Repopulation resets the highlight to the top.
	if _, err := session.Handle(context.Background(), TimerFired{Gen: 0, Query: "y"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := session.Handle(context.Background(), LookupResolved{Token: 2, Products: products[:2]}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if session.HighlightedIndex() != 0 {
		t.Fatal("highlight must reset to 0 when results repopulate")
	}

	// Empty result set clears the highlight.
	if _, err := session.Handle(context.Background(), TimerFired{Gen: 0, Query: "z"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := session.Handle(context.Background(), LookupResolved{Token: 3, Products: nil}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if session.HighlightedIndex() != -1 {
		t.Fatal("highlight must be -1 with no results")
	}
}

func TestLookupErrorSurfacesAndKeepsResults(t *testing.T) {
	t.Parallel()

	session := NewSession(&recordingLookup{}, time.Millisecond, 10, func(Event) {})
	if _, err := session.Handle(context.Background(), TimerFired{Gen: 0, Query: "x"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if _, err := session.Handle(context.Background(), LookupResolved{Token: 1, Products: []catalog.Product{namedProduct("kept")}}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, err := session.Handle(context.Background(), TimerFired{Gen: 0, Query: "y"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	failure := pkgerrors.New(pkgerrors.CodeNetwork, "catalog API returned 503")
	_, err := session.Handle(context.Background(), LookupResolved{Token: 2, Err: failure})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	if len(session.Results()) != 1 || session.Results()[0].Name != "kept" {
		t.Fatal("failed lookup must not clobber visible results")
	}
}

func TestClearInvalidatesInFlightLookup(t *testing.T) {
	t.Parallel()

	session := NewSession(&recordingLookup{}, time.Millisecond, 10, func(Event) {})
	if _, err := session.Handle(context.Background(), TimerFired{Gen: 0, Query: "x"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	session.Clear()

	outcome, err := session.Handle(context.Background(), LookupResolved{Token: 1, Products: []catalog.Product{namedProduct("late")}})
	if err != nil || outcome != OutcomeStale {
		t.Fatalf("late resolution after clear must be stale, got %v/%v", outcome, err)
	}
	if len(session.Results()) != 0 {
		t.Fatal("cleared session must stay empty")
	}
}
