package site

import (
	"slices"
	"strings"
)

type identified interface {
	ID() string
}

// Collection is an identifier-ordered set of items or layouts.
type Collection[T identified] struct {
	members []T
	byID    map[string]T
}

// NewCollection builds a collection. Later duplicates replace earlier ones.
func NewCollection[T identified](members ...T) *Collection[T] {
	c := &Collection[T]{byID: make(map[string]T, len(members))}
	for _, m := range members {
		c.Add(m)
	}
	return c
}

// Add inserts or replaces a member, keeping identifier order.
func (c *Collection[T]) Add(m T) {
	id := m.ID()
	if _, ok := c.byID[id]; ok {
		i := slices.IndexFunc(c.members, func(x T) bool { return x.ID() == id })
		c.members[i] = m
	} else {
		i, _ := slices.BinarySearchFunc(c.members, id, func(x T, id string) int {
			return strings.Compare(x.ID(), id)
		})
		c.members = slices.Insert(c.members, i, m)
	}
	c.byID[id] = m
}

// Get returns the member with the given identifier.
func (c *Collection[T]) Get(identifier string) (T, bool) {
	m, ok := c.byID[identifier]
	return m, ok
}

// All returns every member in identifier order.
func (c *Collection[T]) All() []T {
	return slices.Clone(c.members)
}

// Len returns the number of members.
func (c *Collection[T]) Len() int { return len(c.members) }

// Find returns the members whose identifier matches pattern.
func (c *Collection[T]) Find(pattern Pattern) []T {
	var out []T
	for _, m := range c.members {
		if pattern.Match(m.ID()) {
			out = append(out, m)
		}
	}
	return out
}

// Identifiers returns every identifier in order.
func (c *Collection[T]) Identifiers() []string {
	out := make([]string, len(c.members))
	for i, m := range c.members {
		out[i] = m.ID()
	}
	return out
}
