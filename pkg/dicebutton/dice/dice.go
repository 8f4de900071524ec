// Package dice implements the raw die rolling used by the transition
// engines, plus the result-set helpers shared across command kinds.
//
// The Roller interface exists so transitions stay deterministic in tests:
// production code uses a randomly seeded roller, tests inject a fixed seed
// or a scripted fake. All set comparisons work on rolled values, never on
// die identity.
package dice

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Roller produces die results.
type Roller interface {
	// Roll returns a single result in [1, sides].
	Roll(sides int) int

	// RollN returns count results in [1, sides].
	RollN(count, sides int) []int
}

// NewRoller creates a Roller seeded from the given source.
// Pass a fixed seed for deterministic tests.
func NewRoller(seed int64) Roller {
	return &lockedRoller{rng: rand.New(rand.NewSource(seed))}
}

// lockedRoller serializes access to a single rand.Rand.
type lockedRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (r *lockedRoller) Roll(sides int) int {
	if sides < 1 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(sides) + 1
}

func (r *lockedRoller) RollN(count, sides int) []int {
	results := make([]int, 0, count)
	for i := 0; i < count; i++ {
		results = append(results, r.Roll(sides))
	}
	return results
}

// CountEqual returns how many results are members of the given set.
func CountEqual(results []int, set map[int]bool) int {
	n := 0
	for _, r := range results {
		if set[r] {
			n++
		}
	}
	return n
}

// CountGreaterEqual returns how many results reach the target number.
func CountGreaterEqual(results []int, target int) int {
	n := 0
	for _, r := range results {
		if r >= target {
			n++
		}
	}
	return n
}

// AnyIn reports whether any result is a member of the given set.
func AnyIn(results []int, set map[int]bool) bool {
	for _, r := range results {
		if set[r] {
			return true
		}
	}
	return false
}

// RerollMatching re-rolls every result that is a member of rerollSet,
// keeping the others in place.
func RerollMatching(roller Roller, results []int, rerollSet map[int]bool, sides int) []int {
	out := make([]int, len(results))
	for i, r := range results {
		if rerollSet[r] {
			out[i] = roller.Roll(sides)
		} else {
			out[i] = r
		}
	}
	return out
}

// ExplodingReroll keeps re-rolling results that land in rerollSet,
// appending the extra dice to the result list, until no new result is a
// member of the set. This is the "always reroll tens" style used by pool
// systems.
func ExplodingReroll(roller Roller, results []int, rerollSet map[int]bool, sides int) []int {
	out := append([]int(nil), results...)
	pending := CountEqual(results, rerollSet)
	// Each exploded die can itself explode.
	for pending > 0 {
		extra := roller.RollN(pending, sides)
		out = append(out, extra...)
		pending = CountEqual(extra, rerollSet)
	}
	return out
}

// Set builds a membership set from a value list.
func Set(values []int) map[int]bool {
	set := make(map[int]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// SortedMembers returns the set members in ascending order.
func SortedMembers(set map[int]bool) []int {
	members := make([]int, 0, len(set))
	for v := range set {
		members = append(members, v)
	}
	sort.Ints(members)
	return members
}

// MarkIn renders results as "[a,b,c]" with members of toMark bolded.
func MarkIn(results []int, toMark map[int]bool) string {
	var b strings.Builder
	b.WriteString("[")
	for i, r := range results {
		if i > 0 {
			b.WriteString(",")
		}
		if toMark[r] {
			b.WriteString("**")
			b.WriteString(strconv.Itoa(r))
			b.WriteString("**")
		} else {
			b.WriteString(strconv.Itoa(r))
		}
	}
	b.WriteString("]")
	return b.String()
}
