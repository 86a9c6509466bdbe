// Package reorder recomputes priorities after a drag-and-drop move in a list
// whose items may belong to different parents.
package reorder

// Keys tells Apply how to read and write the fields it needs on T.
type Keys[T any] struct {
	ID    func(T) string
	Group func(T) string
	// WithPriority returns a copy of the item with its priority set.
	WithPriority func(T, int) T
}

// Result is the outcome of a non-trivial move.
type Result[T any] struct {
	// Order is the new global order with priorities already assigned.
	Order []T
	// Groups holds Order partitioned by parent, each group in global order.
	Groups map[string][]T
	// GroupOrder lists group keys by first appearance in Order.
	GroupOrder []string
	From, To   int
}

// Move removes the element at from and reinserts it at to. It returns a new
// slice; items keeps its order. Out-of-range indexes return a plain copy.
func Move[T any](items []T, from, to int) []T {
	out := make([]T, len(items))
	copy(out, items)
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) || from == to {
		return out
	}
	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out
}

// IndexOf returns the position of id in order, or -1.
func IndexOf[T any](order []T, id string, idOf func(T) string) int {
	for i, it := range order {
		if idOf(it) == id {
			return i
		}
	}
	return -1
}

// Apply handles a drag end: the item activeID was dropped onto overID.
//
// Dropping an item on itself, outside any target (overID == "") or on an id
// that is not in order is a no-op: it returns (zero Result, false) and the
// caller must not persist anything.
//
// Otherwise every item gets priority = its index in the new global order.
// Priorities form one ranking across all groups, so a single group's values
// are increasing but may skip the numbers held by other groups.
func Apply[T any](order []T, activeID, overID string, keys Keys[T]) (Result[T], bool) {
	if activeID == "" || overID == "" || activeID == overID {
		return Result[T]{}, false
	}
	from := IndexOf(order, activeID, keys.ID)
	to := IndexOf(order, overID, keys.ID)
	if from < 0 || to < 0 {
		return Result[T]{}, false
	}

	moved := Move(order, from, to)
	res := Result[T]{
		Order:  make([]T, len(moved)),
		Groups: map[string][]T{},
		From:   from,
		To:     to,
	}
	for i, it := range moved {
		if keys.WithPriority != nil {
			it = keys.WithPriority(it, i)
		}
		res.Order[i] = it

		g := ""
		if keys.Group != nil {
			g = keys.Group(it)
		}
		if _, ok := res.Groups[g]; !ok {
			res.GroupOrder = append(res.GroupOrder, g)
		}
		res.Groups[g] = append(res.Groups[g], it)
	}
	return res, true
}
