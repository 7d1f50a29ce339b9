// Package collection maintains ordered, uniquely identified sequences of
// content items. Every mutation ends in Renumber, so item i always carries
// order i.
package collection

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotFound           = errors.New("item not found")
	ErrDuplicateID        = errors.New("duplicate item id")
	ErrInvalidPermutation = errors.New("order must list every item exactly once")
)

// Item is implemented by anything that can live in a Collection.
type Item[T any] interface {
	Key() string
	Position() int
	WithPosition(order int) T
}

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func ParseDirection(raw string) (Direction, bool) {
	switch Direction(raw) {
	case Up, Down:
		return Direction(raw), true
	default:
		return "", false
	}
}

// Renumber returns a copy of items whose order matches their index.
func Renumber[T Item[T]](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = item.WithPosition(i)
	}
	return out
}

// SortByPosition returns a copy of items stably sorted by their stored order.
func SortByPosition[T Item[T]](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Position() < out[j].Position()
	})
	return out
}

// Collection is an in-memory ordered sequence. It is owned by a single
// editing session and is not safe for concurrent use.
type Collection[T Item[T]] struct {
	items []T
}

// New builds a collection from stored items, sorted by their order field.
// Stored orders are kept as-is until the first mutation.
func New[T Item[T]](items []T) *Collection[T] {
	return &Collection[T]{items: SortByPosition(items)}
}

// FromSequence builds a collection whose order is the slice order.
func FromSequence[T Item[T]](items []T) (*Collection[T], error) {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.Key()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, item.Key())
		}
		seen[item.Key()] = struct{}{}
	}
	return &Collection[T]{items: Renumber(items)}, nil
}

func (c *Collection[T]) Len() int {
	return len(c.items)
}

// Items returns a copy of the current sequence.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) IDs() []string {
	ids := make([]string, len(c.items))
	for i, item := range c.items {
		ids[i] = item.Key()
	}
	return ids
}

func (c *Collection[T]) Get(id string) (T, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Append adds item at the end with order equal to the previous length.
func (c *Collection[T]) Append(item T) (T, error) {
	if c.index(item.Key()) >= 0 {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrDuplicateID, item.Key())
	}
	c.items = Renumber(append(c.items, item))
	return c.items[len(c.items)-1], nil
}

// UpdateByID replaces the item with fn's result. The item keeps its id and
// position whatever fn returns.
func (c *Collection[T]) UpdateByID(id string, fn func(T) (T, error)) (T, error) {
	var zero T
	i := c.index(id)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	updated, err := fn(c.items[i])
	if err != nil {
		return zero, err
	}
	if updated.Key() != id {
		return zero, fmt.Errorf("update changed id %s to %s", id, updated.Key())
	}
	c.items[i] = updated
	c.items = Renumber(c.items)
	return c.items[i], nil
}

// RemoveByID drops the item and closes the gap. Removing an unknown id is a
// no-op and reports false.
func (c *Collection[T]) RemoveByID(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	next := make([]T, 0, len(c.items)-1)
	next = append(next, c.items[:i]...)
	next = append(next, c.items[i+1:]...)
	c.items = Renumber(next)
	return true
}

// Reorder arranges the items in the order of ids, which must be a
// permutation of the current ids.
func (c *Collection[T]) Reorder(ids []string) error {
	if len(ids) != len(c.items) {
		return fmt.Errorf("%w: got %d ids for %d items", ErrInvalidPermutation, len(ids), len(c.items))
	}
	byID := make(map[string]T, len(c.items))
	for _, item := range c.items {
		byID[item.Key()] = item
	}
	next := make([]T, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: unknown or repeated id %s", ErrInvalidPermutation, id)
		}
		delete(byID, id)
		next = append(next, item)
	}
	c.items = Renumber(next)
	return nil
}

// MoveAdjacent swaps the item with its neighbour. It reports false when the
// item is unknown or already at the boundary.
func (c *Collection[T]) MoveAdjacent(id string, dir Direction) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if j < 0 || j >= len(c.items) {
		return false
	}
	c.items[i], c.items[j] = c.items[j], c.items[i]
	c.items = Renumber(c.items)
	return true
}

// MoveTo places the item at index, shifting the others. Out-of-range indexes
// are clamped.
func (c *Collection[T]) MoveTo(id string, index int) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	if index < 0 {
		index = 0
	}
	if index >= len(c.items) {
		index = len(c.items) - 1
	}
	if index == i {
		return false
	}
	item := c.items[i]
	rest := make([]T, 0, len(c.items))
	rest = append(rest, c.items[:i]...)
	rest = append(rest, c.items[i+1:]...)
	next := make([]T, 0, len(c.items))
	next = append(next, rest[:index]...)
	next = append(next, item)
	next = append(next, rest[index:]...)
	c.items = Renumber(next)
	return true
}

func (c *Collection[T]) index(id string) int {
	for i, item := range c.items {
		if item.Key() == id {
			return i
		}
	}
	return -1
}
