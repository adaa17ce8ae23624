package engine

import "github.com/hazyhaar/pagecraft/locator"

// SelectionSet is the transient, ordered, deduplicated set of locators
// the user has picked. It lives in the engine, never in storage, and is
// dropped on mode exit, explicit clear, or navigation.
type SelectionSet struct {
	order []locator.Locator
	seen  map[locator.Locator]bool
}

func NewSelectionSet() *SelectionSet {
	return &SelectionSet{seen: make(map[locator.Locator]bool)}
}

// Toggle flips membership: absent appends at the end, present removes
// while preserving the order of the rest. Returns true when the locator
// is a member after the call.
func (s *SelectionSet) Toggle(loc locator.Locator) bool {
	if s.seen[loc] {
		delete(s.seen, loc)
		for i, l := range s.order {
			if l == loc {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return false
	}
	s.seen[loc] = true
	s.order = append(s.order, loc)
	return true
}

// Locators returns the members in insertion order.
func (s *SelectionSet) Locators() []locator.Locator {
	out := make([]locator.Locator, len(s.order))
	copy(out, s.order)
	return out
}

func (s *SelectionSet) Len() int { return len(s.order) }

func (s *SelectionSet) Clear() {
	s.order = s.order[:0]
	s.seen = make(map[locator.Locator]bool)
}
