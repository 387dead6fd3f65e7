// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import "sort"

// Set is an unordered set of strings.
type Set map[string]struct{}

// NewSet returns a set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	s.Add(items...)
	return s
}

// Add inserts items.
func (s Set) Add(items ...string) {
	for _, it := range items {
		s[it] = struct{}{}
	}
}

// Clone returns an independent copy of s. A nil set clones to an empty one.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Has reports whether item is present.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the members present in both a and b. It is commutative
// and idempotent and never modifies its inputs.
func Intersect(a, b Set) Set {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(Set, len(a))
	for k := range a {
		if b.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// DimensionState distinguishes an unqueried dimension from one that was
// queried and matched nothing.
type DimensionState int

const (
	// NotQueried means the caller supplied no term for the dimension; it
	// places no constraint on the result.
	NotQueried DimensionState = iota

	// QueriedEmpty means the dimension was searched and yielded no candidates.
	QueriedEmpty

	// QueriedMatched means the dimension was searched and yielded candidates.
	QueriedMatched
)

// String returns the state name.
func (s DimensionState) String() string {
	switch s {
	case NotQueried:
		return "not-queried"
	case QueriedEmpty:
		return "queried-empty"
	case QueriedMatched:
		return "queried-matched"
	}
	return "unknown"
}

// Dimension is the candidate constraint contributed by one query dimension
// (taxonomy or locality) for one source.
type Dimension struct {
	queried bool
	ids     Set
}

// Unconstrained returns a dimension that was not queried.
func Unconstrained() Dimension {
	return Dimension{}
}

// Constrained returns a queried dimension restricted to ids.
func Constrained(ids Set) Dimension {
	if ids == nil {
		ids = Set{}
	}
	return Dimension{queried: true, ids: ids}
}

// State reports the tri-state of the dimension.
func (d Dimension) State() DimensionState {
	switch {
	case !d.queried:
		return NotQueried
	case len(d.ids) == 0:
		return QueriedEmpty
	default:
		return QueriedMatched
	}
}

// IDs returns the candidate set. It is nil for an unqueried dimension.
func (d Dimension) IDs() Set {
	return d.ids
}

// Combine intersects two dimensions. An unqueried dimension acts as the
// universal set, so combining it with d yields d.
func Combine(a, b Dimension) Dimension {
	switch {
	case !a.queried:
		return b
	case !b.queried:
		return a
	default:
		return Constrained(Intersect(a.ids, b.ids))
	}
}
