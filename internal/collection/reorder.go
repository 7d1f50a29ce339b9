package collection

type Placement string

const (
	Before Placement = "before"
	After  Placement = "after"
)

func ParsePlacement(raw string) (Placement, bool) {
	switch Placement(raw) {
	case Before, After:
		return Placement(raw), true
	default:
		return "", false
	}
}

// Controller turns editor gestures into collection moves. Its only state is
// the id currently being dragged; it never persists anything.
type Controller[T Item[T]] struct {
	coll     *Collection[T]
	dragging string
}

func NewController[T Item[T]](coll *Collection[T]) *Controller[T] {
	return &Controller[T]{coll: coll}
}

// BeginDrag starts dragging id. Unknown ids are ignored.
func (c *Controller[T]) BeginDrag(id string) bool {
	if _, ok := c.coll.Get(id); !ok {
		return false
	}
	c.dragging = id
	return true
}

func (c *Controller[T]) Dragging() string {
	return c.dragging
}

func (c *Controller[T]) CancelDrag() {
	c.dragging = ""
}

// Drop places the dragged item before or after target and ends the drag.
// Dropping onto itself, onto an unknown target or without an active drag
// changes nothing.
func (c *Controller[T]) Drop(targetID string, placement Placement) bool {
	dragged := c.dragging
	c.dragging = ""
	if dragged == "" || dragged == targetID {
		return false
	}
	return DropOnto(c.coll, dragged, targetID, placement)
}

func (c *Controller[T]) MoveUp(id string) bool {
	return c.coll.MoveAdjacent(id, Up)
}

func (c *Controller[T]) MoveDown(id string) bool {
	return c.coll.MoveAdjacent(id, Down)
}

// DropOnto moves id next to target in a single step. It is the stateless
// form of a drag gesture used by the HTTP API.
func DropOnto[T Item[T]](coll *Collection[T], id, targetID string, placement Placement) bool {
	if id == targetID {
		return false
	}
	if _, ok := coll.Get(id); !ok {
		return false
	}
	if _, ok := coll.Get(targetID); !ok {
		return false
	}
	ids := coll.IDs()
	next := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing == id {
			continue
		}
		if existing == targetID && placement == Before {
			next = append(next, id)
		}
		next = append(next, existing)
		if existing == targetID && placement != Before {
			next = append(next, id)
		}
	}
	if equalIDs(ids, next) {
		return false
	}
	return coll.Reorder(next) == nil
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
