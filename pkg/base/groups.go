package base

import "slices"

// Groups is an ordered set of tags.
type Groups []string

// Add appends tag unless it is already present.
func (g *Groups) Add(tag string) {
	if !g.Has(tag) {
		*g = append(*g, tag)
	}
}

// Has reports membership.
func (g Groups) Has(tag string) bool {
	return slices.Contains(g, tag)
}

// Remove deletes tag if present.
func (g *Groups) Remove(tag string) {
	*g = slices.DeleteFunc(*g, func(s string) bool { return s == tag })
}
