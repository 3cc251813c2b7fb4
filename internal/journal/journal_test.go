package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestOutcomeStatus(t *testing.T) {
	tests := []struct {
		name string
		o    Outcome
		want string
	}{
		{"success", Outcome{Created: 3}, StatusSucceeded},
		{"failure", Outcome{Err: errors.New("502")}, StatusFailed},
		{"stale wins", Outcome{Err: errors.New("late"), Stale: true}, StatusStale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.o.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNop(t *testing.T) {
	var j Journal = Nop{}
	ctx := context.Background()

	id, err := j.Start(ctx, Entry{VendorID: "V1"})
	if err != nil || id == uuid.Nil {
		t.Fatalf("Start = %v, %v", id, err)
	}
	if err := j.Finish(ctx, id, Outcome{}); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	entries, err := j.Recent(ctx, "V1", 10)
	if err != nil || entries == nil || len(entries) != 0 {
		t.Fatalf("Recent = %v, %v", entries, err)
	}
}
