// Package affordance holds process-wide UI affordance state behind an
// explicit registration contract instead of a bare module-level variable.
package affordance

import "sync"

// Handler reacts to indicator visibility changes.
type Handler interface {
	Show()
	Hide()
}

// HandlerFuncs adapts plain functions to the Handler interface.
type HandlerFuncs struct {
	OnShow func()
	OnHide func()
}

func (h HandlerFuncs) Show() {
	if h.OnShow != nil {
		h.OnShow()
	}
}

func (h HandlerFuncs) Hide() {
	if h.OnHide != nil {
		h.OnHide()
	}
}

// Indicator fans Show/Hide out to registered handlers. Show calls nest:
// the indicator hides only when every Show has been matched by a Hide.
type Indicator struct {
	mu       sync.Mutex
	handlers []Handler
	depth    int
}

func NewIndicator() *Indicator {
	return &Indicator{}
}

// Register attaches a handler. Handlers are registered at startup by the
// composition root; registration is not revocable.
func (i *Indicator) Register(h Handler) {
	if h == nil {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.handlers = append(i.handlers, h)
}

func (i *Indicator) Show() {
	i.mu.Lock()
	i.depth++
	notify := i.depth == 1
	handlers := i.snapshot()
	i.mu.Unlock()

	if !notify {
		return
	}
	for _, h := range handlers {
		h.Show()
	}
}

func (i *Indicator) Hide() {
	i.mu.Lock()
	if i.depth > 0 {
		i.depth--
	}
	notify := i.depth == 0
	handlers := i.snapshot()
	i.mu.Unlock()

	if !notify {
		return
	}
	for _, h := range handlers {
		h.Hide()
	}
}

// Visible reports whether at least one Show is outstanding.
func (i *Indicator) Visible() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.depth > 0
}

func (i *Indicator) snapshot() []Handler {
	out := make([]Handler, len(i.handlers))
	copy(out, i.handlers)
	return out
}
