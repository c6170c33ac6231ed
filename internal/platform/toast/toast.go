// Package toast holds short-lived user-facing notices. Each toast expires on
// its own timer unless it was added as sticky.
package toast

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// DefaultDuration applies when Add is called with a zero duration.
const DefaultDuration = 3 * time.Second

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSuccess, KindError, KindWarning, KindInfo:
		return true
	}
	return false
}

type Toast struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	Kind       Kind      `json:"type"`
	DurationMs int64     `json:"duration"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Notifier is the write side used by workflow services.
type Notifier interface {
	Add(message string, kind Kind, d time.Duration) Toast
}

// Nop drops every toast.
type Nop struct{}

func (Nop) Add(message string, kind Kind, _ time.Duration) Toast {
	return Toast{Message: message, Kind: kind}
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

type timer interface{ Stop() bool }

type entry struct {
	toast Toast
	timer timer
}

type Store struct {
	mu       sync.Mutex
	order    []string
	entries  map[string]*entry
	fallback time.Duration
	closed   bool

	afterFunc func(time.Duration, func()) timer
	now       func() time.Time
}

// NewStore returns a Store whose zero-duration toasts last fallback. A
// non-positive fallback selects DefaultDuration.
func NewStore(fallback time.Duration) *Store {
	if fallback <= 0 {
		fallback = DefaultDuration
	}
	return &Store{
		entries:  make(map[string]*entry),
		fallback: fallback,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		now: time.Now,
	}
}

// Add records a toast. d == 0 uses the default lifetime and d < 0 keeps the
// toast until Dismiss. Unknown kinds are stored as info.
func (s *Store) Add(message string, kind Kind, d time.Duration) Toast {
	if !kind.Valid() {
		kind = KindInfo
	}
	if d == 0 {
		d = s.fallback
	}
	t := Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		CreatedAt: s.now(),
	}
	if d > 0 {
		t.DurationMs = d.Milliseconds()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return t
	}
	e := &entry{toast: t}
	if d > 0 {
		id := t.ID
		e.timer = s.afterFunc(d, func() { s.Dismiss(id) })
	}
	s.entries[t.ID] = e
	s.order = append(s.order, t.ID)
	return t
}

func (s *Store) Success(message string) Toast { return s.Add(message, KindSuccess, 0) }
func (s *Store) Error(message string) Toast   { return s.Add(message, KindError, 0) }
func (s *Store) Warning(message string) Toast { return s.Add(message, KindWarning, 0) }
func (s *Store) Info(message string) Toast    { return s.Add(message, KindInfo, 0) }

// Dismiss removes the toast with id. Unknown ids are ignored.
func (s *Store) Dismiss(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(s.entries, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns live toasts in insertion order.
func (s *Store) List() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Toast, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].toast)
	}
	return out
}

// Close stops every pending timer and drops all toasts.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	s.entries = make(map[string]*entry)
	s.order = nil
	s.closed = true
}

// ---------------------------------------------------------------------------
// HTTP Handler
// ---------------------------------------------------------------------------

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/toasts", h.HandleList)
	g.DELETE("/toasts/:id", h.HandleDismiss)
}

func (h *Handler) HandleList(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.List())
}

func (h *Handler) HandleDismiss(c echo.Context) error {
	if !h.store.Dismiss(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "toast not found")
	}
	return c.NoContent(http.StatusNoContent)
}
