// Package search wraps catalog text lookup with debouncing and
// stale-response suppression for one cashier session.
//
// The session is owned by a single event loop: every method must be called
// from that loop. The debounce timer and lookup goroutines never touch
// session state directly; they post events through the emit callback and
// the owner feeds them back via Handle, which keeps all transitions ordered.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/wpranata/kasirpos/internal/catalog"
	pkgerrors "github.com/wpranata/kasirpos/pkg/errors"
)

// Lookup issues the remote text search.
type Lookup interface {
	SearchByText(ctx context.Context, query string, limit int) ([]catalog.Product, error)
}

// Event is an asynchronous signal routed back into the owner loop.
type Event interface{ isSearchEvent() }

// TimerFired reports that the debounce window for an edit elapsed.
type TimerFired struct {
	Gen   uint64
	Query string
}

// LookupResolved carries the outcome of an issued search.
type LookupResolved struct {
	Token    uint64
	Products []catalog.Product
	Err      error
}

func (TimerFired) isSearchEvent()     {}
func (LookupResolved) isSearchEvent() {}

// Outcome tells the owner what Handle did with an event.
type Outcome int

const (
	OutcomeNone Outcome = iota
	// OutcomeDispatched means a lookup request was issued.
	OutcomeDispatched
	// OutcomeApplied means fresh results replaced the visible set.
	OutcomeApplied
	// OutcomeStale means a superseded response was discarded.
	OutcomeStale
)

// Session tracks the query, visible results, and the highlighted result.
type Session struct {
	lookup   Lookup
	emit     func(Event)
	debounce time.Duration
	limit    int

	timer       *time.Timer
	gen         uint64
	token       uint64
	query       string
	results     []catalog.Product
	highlighted int
}

func NewSession(lookup Lookup, debounce time.Duration, limit int, emit func(Event)) *Session {
	return &Session{
		lookup:      lookup,
		emit:        emit,
		debounce:    debounce,
		limit:       limit,
		highlighted: -1,
	}
}

// Edit registers a query change. Each edit supersedes the pending debounce
// timer; only the last keystroke within the window issues a lookup. An
// empty query clears the results immediately without a remote call.
func (s *Session) Edit(query string) {
	s.stopTimer()
	s.gen++
	s.query = query

	if strings.TrimSpace(query) == "" {
		s.token++
		s.results = nil
		s.highlighted = -1
		return
	}

	gen := s.gen
	s.timer = time.AfterFunc(s.debounce, func() {
		s.emit(TimerFired{Gen: gen, Query: query})
	})
}

// Handle applies a posted event. Timer fires for superseded edits and
// resolutions for superseded requests are discarded without side effects.
func (s *Session) Handle(ctx context.Context, ev Event) (Outcome, error) {
	switch ev := ev.(type) {
	case TimerFired:
		if ev.Gen != s.gen {
			return OutcomeNone, nil
		}
		s.token++
		token := s.token
		go func() {
			products, err := s.lookup.SearchByText(ctx, ev.Query, s.limit)
			s.emit(LookupResolved{Token: token, Products: products, Err: err})
		}()
		return OutcomeDispatched, nil

	case LookupResolved:
		if ev.Token != s.token {
			return OutcomeStale, nil
		}
		if ev.Err != nil {
			return OutcomeNone, pkgerrors.Wrap(pkgerrors.CodeOf(ev.Err), ev.Err, "search products")
		}
		s.results = ev.Products
		if len(s.results) > 0 {
			s.highlighted = 0
		} else {
			s.highlighted = -1
		}
		return OutcomeApplied, nil
	}
	return OutcomeNone, nil
}

// Clear drops the query, results, and any pending or in-flight lookup.
func (s *Session) Clear() {
	s.stopTimer()
	s.gen++
	s.token++
	s.query = ""
	s.results = nil
	s.highlighted = -1
}

// MoveHighlight shifts the highlighted result, clamped to bounds.
func (s *Session) MoveHighlight(delta int) {
	if len(s.results) == 0 {
		return
	}
	next := s.highlighted + delta
	if next < 0 {
		next = 0
	}
	if next > len(s.results)-1 {
		next = len(s.results) - 1
	}
	s.highlighted = next
}

// Highlighted returns the currently highlighted product.
func (s *Session) Highlighted() (catalog.Product, bool) {
	if s.highlighted < 0 || s.highlighted >= len(s.results) {
		return catalog.Product{}, false
	}
	return s.results[s.highlighted], true
}

func (s *Session) HighlightedIndex() int {
	return s.highlighted
}

func (s *Session) Results() []catalog.Product {
	return s.results
}

func (s *Session) Query() string {
	return s.query
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
