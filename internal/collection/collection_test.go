package collection

import (
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type entry struct {
	ID    string
	Order int
	Text  string
}

func (e entry) Key() string                  { return e.ID }
func (e entry) Position() int                { return e.Order }
func (e entry) WithPosition(order int) entry { e.Order = order; return e }

func entries(ids ...string) []entry {
	out := make([]entry, len(ids))
	for i, id := range ids {
		out[i] = entry{ID: id, Order: i}
	}
	return out
}

func snapshot(c *Collection[entry]) []entry {
	out := c.Items()
	for i := range out {
		out[i].Text = ""
	}
	return out
}

func assertContiguous(t *testing.T, c *Collection[entry]) {
	t.Helper()
	for i, item := range c.Items() {
		if item.Order != i {
			t.Fatalf("item %s at index %d has order %d", item.ID, i, item.Order)
		}
	}
}

func TestAppendThenRemoveRenumbers(t *testing.T) {
	c := New(entries("a", "b"))
	added, err := c.Append(entry{ID: "c", Text: "Q3"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if added.Order != 2 {
		t.Fatalf("expected appended order 2, got %d", added.Order)
	}
	if !c.RemoveByID("b") {
		t.Fatal("expected RemoveByID(b) to report a removal")
	}
	want := []entry{{ID: "a", Order: 0}, {ID: "c", Order: 1}}
	if diff := cmp.Diff(want, snapshot(c)); diff != "" {
		t.Fatalf("unexpected items (-want +got):\n%s", diff)
	}
}

func TestMoveUpTwice(t *testing.T) {
	c := New(entries("a", "b", "c"))
	c.MoveAdjacent("c", Up)
	c.MoveAdjacent("c", Up)
	want := []entry{{ID: "c", Order: 0}, {ID: "a", Order: 1}, {ID: "b", Order: 2}}
	if diff := cmp.Diff(want, snapshot(c)); diff != "" {
		t.Fatalf("unexpected items (-want +got):\n%s", diff)
	}
}

func TestMoveAtBoundaryIsNoop(t *testing.T) {
	c := New(entries("a", "b", "c"))
	before := c.Items()
	if c.MoveAdjacent("a", Up) {
		t.Fatal("moving the first item up should be a no-op")
	}
	if c.MoveAdjacent("c", Down) {
		t.Fatal("moving the last item down should be a no-op")
	}
	if c.MoveAdjacent("zzz", Down) {
		t.Fatal("moving an unknown item should be a no-op")
	}
	if diff := cmp.Diff(before, c.Items()); diff != "" {
		t.Fatalf("collection changed (-want +got):\n%s", diff)
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	c := New(entries("a", "b"))
	if c.RemoveByID("zzz") {
		t.Fatal("expected no removal for unknown id")
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", c.Len())
	}
}

func TestAppendRejectsDuplicateID(t *testing.T) {
	c := New(entries("a"))
	if _, err := c.Append(entry{ID: "a"}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestUpdateByID(t *testing.T) {
	c := New(entries("a", "b"))
	got, err := c.UpdateByID("b", func(e entry) (entry, error) {
		e.Text = "edited"
		e.Order = 99
		return e, nil
	})
	if err != nil {
		t.Fatalf("UpdateByID() error = %v", err)
	}
	if got.Text != "edited" || got.Order != 1 {
		t.Fatalf("unexpected updated item %+v", got)
	}
	if _, err := c.UpdateByID("zzz", func(e entry) (entry, error) { return e, nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.UpdateByID("a", func(e entry) (entry, error) { e.ID = "x"; return e, nil }); err == nil {
		t.Fatal("expected an error when the update changes the id")
	}
}

func TestReorderValidatesPermutation(t *testing.T) {
	c := New(entries("a", "b", "c"))
	cases := [][]string{
		{"a", "b"},
		{"a", "b", "b"},
		{"a", "b", "d"},
	}
	for _, ids := range cases {
		if err := c.Reorder(ids); !errors.Is(err, ErrInvalidPermutation) {
			t.Fatalf("Reorder(%v) error = %v, want ErrInvalidPermutation", ids, err)
		}
	}
	if err := c.Reorder([]string{"c", "a", "b"}); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	if diff := cmp.Diff([]string{"c", "a", "b"}, c.IDs()); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}
	assertContiguous(t, c)
}

func TestNewSortsByStoredOrder(t *testing.T) {
	c := New([]entry{{ID: "x", Order: 7}, {ID: "y", Order: 2}, {ID: "z", Order: 5}})
	if diff := cmp.Diff([]string{"y", "z", "x"}, c.IDs()); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}
	c.RemoveByID("z")
	assertContiguous(t, c)
}

func TestFromSequenceRejectsDuplicates(t *testing.T) {
	if _, err := FromSequence([]entry{{ID: "a"}, {ID: "a"}}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	c, err := FromSequence([]entry{{ID: "b", Order: 9}, {ID: "a", Order: 3}})
	if err != nil {
		t.Fatalf("FromSequence() error = %v", err)
	}
	if diff := cmp.Diff([]entry{{ID: "b", Order: 0}, {ID: "a", Order: 1}}, c.Items()); diff != "" {
		t.Fatalf("unexpected items (-want +got):\n%s", diff)
	}
}

func TestMoveTo(t *testing.T) {
	c := New(entries("a", "b", "c", "d"))
	c.MoveTo("a", 2)
	if diff := cmp.Diff([]string{"b", "c", "a", "d"}, c.IDs()); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}
	c.MoveTo("d", -5)
	if diff := cmp.Diff([]string{"d", "b", "c", "a"}, c.IDs()); diff != "" {
		t.Fatalf("unexpected ids (-want +got):\n%s", diff)
	}
	assertContiguous(t, c)
}

func TestRandomOperationsKeepOrderContiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := New(entries("a", "b", "c"))
	next := 0
	for step := 0; step < 500; step++ {
		ids := c.IDs()
		switch rng.Intn(5) {
		case 0:
			next++
			_, _ = c.Append(entry{ID: "n" + strconv.Itoa(next)})
		case 1:
			if len(ids) > 0 {
				c.RemoveByID(ids[rng.Intn(len(ids))])
			}
		case 2:
			rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
			if err := c.Reorder(ids); err != nil {
				t.Fatalf("Reorder() error = %v", err)
			}
		case 3:
			if len(ids) > 0 {
				dir := Up
				if rng.Intn(2) == 0 {
					dir = Down
				}
				c.MoveAdjacent(ids[rng.Intn(len(ids))], dir)
			}
		case 4:
			if len(ids) > 1 {
				DropOnto(c, ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))], Before)
			}
		}
		assertContiguous(t, c)
	}
}
