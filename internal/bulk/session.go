package bulk

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the stage of one operator's bulk ingestion.
type State int

const (
	StateEmpty State = iota
	StateParsed
	StateSubmitting
	StateSubmitted
	StateSubmitFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateParsed:
		return "parsed"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateSubmitFailed:
		return "submit_failed"
	default:
		return "unknown"
	}
}

// Errors returned by Session.BeginSubmit.
var (
	ErrNothingParsed    = errors.New("nothing has been parsed yet")
	ErrRowErrors        = errors.New("fix row errors before submitting")
	ErrNoOrders         = errors.New("no valid orders to submit")
	ErrSubmitInFlight   = errors.New("a submission is already in progress")
	ErrAlreadySubmitted = errors.New("this batch was already submitted")
)

// Ticket identifies one submission attempt. Its generation ties the attempt
// to the parse it was started from.
type Ticket struct {
	ID         uuid.UUID
	Generation uint64
	Batch      BulkCreateRequest
}

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	State       string    `json:"state"`
	Generation  uint64    `json:"generation"`
	InFlight    bool      `json:"in_flight"`
	Result      *Result   `json:"result,omitempty"`
	LastBatchID string    `json:"last_batch_id,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Session tracks Empty → Parsed → Submitting → Submitted | SubmitFailed for
// one operator. Re-parsing is allowed at any time; a submission started
// from an older parse finishes in the background and its outcome is
// discarded.
type Session struct {
	mu          sync.Mutex
	state       State
	generation  uint64
	result      *Result
	inFlight    bool
	lastBatchID uuid.UUID
	lastErr     error
	updatedAt   time.Time
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{updatedAt: time.Now()}
}

// SetResult stores a fresh parse result, replacing any previous one.
func (s *Session) SetResult(res *Result) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.result = res
	s.state = StateParsed
	s.lastErr = nil
	s.updatedAt = time.Now()
	return s.snapshotLocked()
}

// BeginSubmit moves the session to Submitting and returns the batch to send.
func (s *Session) BeginSubmit() (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.inFlight:
		return Ticket{}, ErrSubmitInFlight
	case s.result == nil:
		return Ticket{}, ErrNothingParsed
	case s.state == StateSubmitted:
		return Ticket{}, ErrAlreadySubmitted
	case len(s.result.Errors) > 0:
		return Ticket{}, ErrRowErrors
	case len(s.result.Orders) == 0:
		return Ticket{}, ErrNoOrders
	}

	t := Ticket{
		ID:         uuid.New(),
		Generation: s.generation,
		Batch:      s.result.Batch(),
	}
	s.inFlight = true
	s.state = StateSubmitting
	s.lastBatchID = t.ID
	s.updatedAt = time.Now()
	return t, nil
}

// Finish records the outcome of a submission. It returns false when the
// input was re-parsed after the ticket was issued; the outcome is then
// ignored and the session keeps its newer result.
func (s *Session) Finish(t Ticket, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false
	s.updatedAt = time.Now()
	if t.Generation != s.generation {
		return false
	}

	if err != nil {
		s.state = StateSubmitFailed
		s.lastErr = err
		return true
	}
	s.state = StateSubmitted
	s.lastErr = nil
	return true
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the session for display.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      s.state.String(),
		Generation: s.generation,
		InFlight:   s.inFlight,
		Result:     s.result,
		UpdatedAt:  s.updatedAt,
	}
	if s.lastBatchID != uuid.Nil {
		snap.LastBatchID = s.lastBatchID.String()
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Registry holds one Session per login session, evicting idle ones.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRegistry creates a Registry that drops sessions idle for idleTTL.
func NewRegistry(idleTTL time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Get returns the session for key, creating it if needed.
func (r *Registry) Get(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	s, ok := r.sessions[key]
	if !ok {
		s = NewSession()
		r.sessions[key] = s
	}
	return s
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) sweepLocked() {
	now := r.now()
	if r.idleTTL <= 0 || now.Sub(r.lastSweep) < r.idleTTL/4 {
		return
	}
	r.lastSweep = now
	for key, s := range r.sessions {
		if s.inFlightNow() {
			continue
		}
		if now.Sub(s.idleSince()) > r.idleTTL {
			delete(r.sessions, key)
		}
	}
}

func (s *Session) inFlightNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}
