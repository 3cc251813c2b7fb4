package bulk

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// MatchStatus is the outcome of resolving a store name.
type MatchStatus int

const (
	Matched MatchStatus = iota
	Ambiguous
	Unmatched
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "Matched"
	case Ambiguous:
		return "Ambiguous"
	case Unmatched:
		return "Unmatched"
	default:
		return "Unknown"
	}
}

// DuplicatePolicy decides what happens when several stores share a
// normalized name.
type DuplicatePolicy int

const (
	// DuplicateFirst picks the first store in list order.
	DuplicateFirst DuplicatePolicy = iota
	// DuplicateReject refuses to guess and rejects the row.
	DuplicateReject
)

// ParseDuplicatePolicy maps "first" / "reject" to a policy. Empty means first.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return DuplicateFirst, nil
	case "reject":
		return DuplicateReject, nil
	}
	return 0, fmt.Errorf("unknown duplicate store policy %q", s)
}

// Resolution is the result of a Resolve call.
type Resolution struct {
	Status     MatchStatus
	Store      *StoreRecord  // when Matched
	Candidates []StoreRecord // when Ambiguous
}

// Resolver maps free-text store names to store records by exact,
// case-insensitive, whitespace-trimmed equality. It never mutates the list
// it was built from.
type Resolver struct {
	policy DuplicatePolicy
	byName map[string][]StoreRecord
	count  int
}

// NewResolver indexes stores by normalized name, keeping list order within
// each name.
func NewResolver(stores []StoreRecord, policy DuplicatePolicy) *Resolver {
	r := &Resolver{
		policy: policy,
		byName: make(map[string][]StoreRecord, len(stores)),
		count:  len(stores),
	}
	for _, s := range stores {
		key := normalizeName(s.Name)
		if key == "" {
			continue
		}
		r.byName[key] = append(r.byName[key], s)
	}
	return r
}

// Len returns the number of stores the resolver was built from.
func (r *Resolver) Len() int { return r.count }

// Resolve finds the store whose normalized name equals name.
func (r *Resolver) Resolve(name string) Resolution {
	matches := r.byName[normalizeName(name)]
	switch {
	case len(matches) == 0:
		return Resolution{Status: Unmatched}
	case len(matches) == 1 || r.policy == DuplicateFirst:
		store := matches[0]
		return Resolution{Status: Matched, Store: &store}
	default:
		return Resolution{Status: Ambiguous, Candidates: append([]StoreRecord(nil), matches...)}
	}
}

// normalizeName trims and case-folds a store name.
func normalizeName(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// resolveRow turns a resolution into the row's store or its RowError.
func resolveRow(r *Resolver, f Fields) (StoreRecord, *RowError) {
	res := r.Resolve(f.StoreName)
	switch res.Status {
	case Matched:
		return *res.Store, nil
	case Ambiguous:
		return StoreRecord{}, rowErrorf(f.Line, "Store %q is ambiguous (%d matches)", f.StoreName, len(res.Candidates))
	default:
		return StoreRecord{}, rowErrorf(f.Line, "Store %q not found", f.StoreName)
	}
}
