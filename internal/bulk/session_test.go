package bulk

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func cleanResult(t *testing.T) *Result {
	t.Helper()
	res := newTestParser(testStores()).Parse(lineA)
	if res.Blocked() {
		t.Fatalf("fixture result is blocked: %+v", res.Errors)
	}
	return res
}

func TestSession_HappyPath(t *testing.T) {
	s := NewSession()
	if s.State() != StateEmpty {
		t.Fatalf("initial state: got %v", s.State())
	}

	s.SetResult(cleanResult(t))
	if s.State() != StateParsed {
		t.Fatalf("after parse: got %v", s.State())
	}

	ticket, err := s.BeginSubmit()
	if err != nil {
		t.Fatalf("BeginSubmit: %v", err)
	}
	if len(ticket.Batch.Orders) != 1 {
		t.Errorf("ticket batch: got %d orders", len(ticket.Batch.Orders))
	}
	if s.State() != StateSubmitting {
		t.Fatalf("after begin: got %v", s.State())
	}

	if !s.Finish(ticket, nil) {
		t.Fatal("Finish on current ticket returned false")
	}
	if s.State() != StateSubmitted {
		t.Fatalf("after finish: got %v", s.State())
	}

	if _, err := s.BeginSubmit(); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("resubmit: got %v, want ErrAlreadySubmitted", err)
	}
}

func TestSession_BeginSubmitGuards(t *testing.T) {
	s := NewSession()
	if _, err := s.BeginSubmit(); !errors.Is(err, ErrNothingParsed) {
		t.Errorf("empty: got %v, want ErrNothingParsed", err)
	}

	p := newTestParser(testStores())
	s.SetResult(p.Parse(lineA + "\nbad"))
	if _, err := s.BeginSubmit(); !errors.Is(err, ErrRowErrors) {
		t.Errorf("row errors: got %v, want ErrRowErrors", err)
	}

	s.SetResult(p.Parse(""))
	if _, err := s.BeginSubmit(); !errors.Is(err, ErrNoOrders) {
		t.Errorf("no orders: got %v, want ErrNoOrders", err)
	}
}

func TestSession_NoConcurrentSubmission(t *testing.T) {
	s := NewSession()
	s.SetResult(cleanResult(t))

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.BeginSubmit(); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 1 {
		t.Fatalf("granted submissions: got %d, want 1", granted)
	}
}

func TestSession_FailureAllowsRetry(t *testing.T) {
	s := NewSession()
	s.SetResult(cleanResult(t))

	ticket, err := s.BeginSubmit()
	if err != nil {
		t.Fatalf("BeginSubmit: %v", err)
	}
	s.Finish(ticket, errors.New("backend down"))

	if s.State() != StateSubmitFailed {
		t.Fatalf("state: got %v, want submit_failed", s.State())
	}
	if snap := s.Snapshot(); snap.LastError != "backend down" {
		t.Errorf("last error: got %q", snap.LastError)
	}

	retry, err := s.BeginSubmit()
	if err != nil {
		t.Fatalf("retry BeginSubmit: %v", err)
	}
	if retry.ID == ticket.ID {
		t.Error("retry should get a new ticket id")
	}
	if len(retry.Batch.Orders) != len(ticket.Batch.Orders) {
		t.Error("retry should resubmit the whole batch")
	}
}

func TestSession_StaleResponseIgnored(t *testing.T) {
	s := NewSession()
	s.SetResult(cleanResult(t))

	ticket, err := s.BeginSubmit()
	if err != nil {
		t.Fatalf("BeginSubmit: %v", err)
	}

	// Operator edits and re-parses while the call is in flight.
	s.SetResult(cleanResult(t))
	if _, err := s.BeginSubmit(); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("submit during flight: got %v, want ErrSubmitInFlight", err)
	}

	if s.Finish(ticket, nil) {
		t.Fatal("stale Finish should report false")
	}
	if s.State() != StateParsed {
		t.Fatalf("state after stale finish: got %v, want parsed", s.State())
	}

	if _, err := s.BeginSubmit(); err != nil {
		t.Errorf("new batch should be submittable after stale finish: %v", err)
	}
}

func TestRegistry_GetAndEvict(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	r := NewRegistry(time.Hour)
	r.now = func() time.Time { return now }

	a := r.Get("a")
	if r.Get("a") != a {
		t.Fatal("Get should return the same session for a key")
	}
	a.mu.Lock()
	a.updatedAt = now
	a.mu.Unlock()

	now = now.Add(2 * time.Hour)
	r.Get("b")

	if r.Len() != 1 {
		t.Fatalf("sessions after sweep: got %d, want 1", r.Len())
	}
	if r.Get("a") == a {
		t.Error("idle session should have been replaced")
	}
}
