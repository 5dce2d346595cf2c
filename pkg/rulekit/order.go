package rulekit

import (
	"fmt"
	"sort"
	"strings"
)

// PriorityOrder selects how rules are sorted by Priority before evaluation.
type PriorityOrder int

const (
	// Unordered keeps insertion order. It is the zero value.
	Unordered PriorityOrder = iota

	// Ascending evaluates lower priority values first.
	Ascending

	// Descending evaluates higher priority values first.
	Descending
)

// String returns the canonical name of the order.
func (o PriorityOrder) String() string {
	switch o {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	case Unordered:
		return "unordered"
	default:
		return fmt.Sprintf("PriorityOrder(%d)", int(o))
	}
}

// ParsePriorityOrder converts a textual order into a PriorityOrder.
// The empty string maps to Unordered.
func ParsePriorityOrder(value string) (PriorityOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "unordered", "none", "insertion":
		return Unordered, nil
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return Unordered, fmt.Errorf("unknown priority order %q: must be one of asc, desc, unordered", value)
	}
}

// Order returns the rules in evaluation order for the given policy.
// The input slice is not modified. Rules with equal priority keep their
// relative order.
func Order[T any](rules []Rule[T], order PriorityOrder) []Rule[T] {
	ordered := make([]Rule[T], len(rules))
	copy(ordered, rules)

	switch order {
	case Ascending:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Priority() < ordered[j].Priority()
		})
	case Descending:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Priority() > ordered[j].Priority()
		})
	}

	return ordered
}
