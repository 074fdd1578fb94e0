package collection

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrTypeMismatch is matched by every *TypeMismatchError.
var ErrTypeMismatch = errors.New("collection: type mismatch")

// TypeMismatchError reports the first candidate that does not conform to
// the collection's element type.
type TypeMismatchError struct {
	Index    int
	Expected reflect.Type
	Got      reflect.Type
}

func (e *TypeMismatchError) Error() string {
	got := "nil"
	if e.Got != nil {
		got = e.Got.String()
	}
	return fmt.Sprintf("collection: element %d is %s, want %s", e.Index, got, e.Expected)
}

// Is reports whether target is ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// Collection is an ordered sequence of T. It is never mutated after
// construction.
type Collection[T any] struct {
	items []T
}

// New builds a collection from untyped candidates. Every candidate must be
// assignable to T; otherwise a *TypeMismatchError for the first offender is
// returned together with a nil collection.
func New[T any](candidates ...any) (*Collection[T], error) {
	items := make([]T, 0, len(candidates))
	for i, c := range candidates {
		v, ok := c.(T)
		if !ok {
			return nil, &TypeMismatchError{
				Index:    i,
				Expected: reflect.TypeOf((*T)(nil)).Elem(),
				Got:      reflect.TypeOf(c),
			}
		}
		items = append(items, v)
	}
	return &Collection[T]{items: items}, nil
}

// Of builds a collection from already typed items.
func Of[T any](items ...T) *Collection[T] {
	return &Collection[T]{items: append([]T(nil), items...)}
}

// Len returns the number of elements. A nil collection is empty.
func (c *Collection[T]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// At returns the element at index i. It panics if i is out of range.
func (c *Collection[T]) At(i int) T {
	return c.items[i]
}

// Items returns a copy of the elements in insertion order.
func (c *Collection[T]) Items() []T {
	if c == nil {
		return nil
	}
	return append([]T(nil), c.items...)
}

// Each calls fn for every element in order.
func (c *Collection[T]) Each(fn func(i int, v T)) {
	if c == nil {
		return
	}
	for i, v := range c.items {
		fn(i, v)
	}
}
