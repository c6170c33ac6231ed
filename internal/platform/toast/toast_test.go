package toast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type fakeTimer struct {
	d       time.Duration
	fire    func()
	stopped bool
}

func (f *fakeTimer) Stop() bool {
	was := !f.stopped
	f.stopped = true
	return was
}

// newTestStore returns a store whose timers only fire when the test says so.
func newTestStore() (*Store, *[]*fakeTimer) {
	var mu sync.Mutex
	timers := []*fakeTimer{}
	s := NewStore(0)
	s.afterFunc = func(d time.Duration, f func()) timer {
		mu.Lock()
		defer mu.Unlock()
		ft := &fakeTimer{d: d, fire: f}
		timers = append(timers, ft)
		return ft
	}
	return s, &timers
}

func TestAdd_DefaultDuration(t *testing.T) {
	s, timers := newTestStore()
	to := s.Add("Vitals recorded", KindSuccess, 0)

	if to.DurationMs != 3000 {
		t.Errorf("expected 3000ms, got %d", to.DurationMs)
	}
	if len(*timers) != 1 || (*timers)[0].d != DefaultDuration {
		t.Fatalf("expected one timer for the default duration, got %+v", *timers)
	}
}

func TestAdd_ExpiresOnTimer(t *testing.T) {
	s, timers := newTestStore()
	s.Add("first", KindInfo, 0)
	s.Add("second", KindInfo, 5*time.Second)

	(*timers)[0].fire()

	list := s.List()
	if len(list) != 1 || list[0].Message != "second" {
		t.Errorf("expected only second left, got %+v", list)
	}
}

func TestAdd_NegativeDurationIsSticky(t *testing.T) {
	s, timers := newTestStore()
	to := s.Add("Check-in failed", KindError, -1)

	if len(*timers) != 0 {
		t.Error("sticky toast must not start a timer")
	}
	if to.DurationMs != 0 {
		t.Errorf("sticky toast should report 0 duration, got %d", to.DurationMs)
	}
	if !s.Dismiss(to.ID) {
		t.Error("expected dismiss to find sticky toast")
	}
	if len(s.List()) != 0 {
		t.Error("expected empty list after dismiss")
	}
}

func TestAdd_UnknownKindBecomesInfo(t *testing.T) {
	s, _ := newTestStore()
	if got := s.Add("x", Kind("shout"), 0).Kind; got != KindInfo {
		t.Errorf("expected info, got %s", got)
	}
}

func TestList_InsertionOrder(t *testing.T) {
	s, _ := newTestStore()
	s.Success("a")
	s.Warning("b")
	s.Error("c")

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 toasts, got %d", len(list))
	}
	for i, want := range []string{"a", "b", "c"} {
		if list[i].Message != want {
			t.Errorf("position %d: got %s, want %s", i, list[i].Message, want)
		}
	}
}

func TestDismiss_StopsTimer(t *testing.T) {
	s, timers := newTestStore()
	to := s.Info("bye")
	s.Dismiss(to.ID)

	if !(*timers)[0].stopped {
		t.Error("expected timer to be stopped on dismiss")
	}
	if s.Dismiss(to.ID) {
		t.Error("second dismiss should report false")
	}
}

func TestClose_StopsAllTimers(t *testing.T) {
	s, timers := newTestStore()
	s.Info("a")
	s.Info("b")
	s.Close()

	for i, ft := range *timers {
		if !ft.stopped {
			t.Errorf("timer %d still running after close", i)
		}
	}
	s.Info("after close")
	if len(s.List()) != 0 {
		t.Error("closed store should not accept toasts")
	}
}

func TestRealTimerExpiry(t *testing.T) {
	s := NewStore(0)
	defer s.Close()
	s.Add("quick", KindInfo, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(s.List()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("toast did not expire")
}

func TestHandler_ListAndDismiss(t *testing.T) {
	s, _ := newTestStore()
	to := s.Success("Patient registered")
	h := NewHandler(s)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/toasts", nil)
	rec := httptest.NewRecorder()
	if err := h.HandleList(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []Toast
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Kind != KindSuccess {
		t.Errorf("unexpected list %+v", got)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/toasts/"+to.ID, nil)
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(to.ID)
	if err := h.HandleDismiss(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("missing")
	err := h.HandleDismiss(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
