package symbols

import (
	"slices"
)

// ActorSet holds the actor names used by the direct dialogue of one label.
type ActorSet map[string]struct{}

func (s ActorSet) Add(name string) {
	s[name] = struct{}{}
}

func (s ActorSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexicographic order, the order they are emitted in.
func (s ActorSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
