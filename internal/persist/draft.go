package persist

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"ridepool/cms/internal/collection"
)

var ErrTerminalState = errors.New("item was deleted")

// State is the lifecycle of one item inside an editing session.
type State string

const (
	StateNew     State = "new"
	StateSaved   State = "saved"
	StateDirty   State = "dirty"
	StateDeleted State = "deleted"
)

// Tracker records item states. New items stay new when edited; Deleted is
// terminal.
type Tracker struct {
	states map[string]State
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]State)}
}

func (t *Tracker) State(id string) (State, bool) {
	s, ok := t.states[id]
	return s, ok
}

func (t *Tracker) Created(id string) error {
	if err := t.live(id); err != nil {
		return err
	}
	t.states[id] = StateNew
	return nil
}

func (t *Tracker) Edited(id string) error {
	if err := t.live(id); err != nil {
		return err
	}
	if t.states[id] != StateNew {
		t.states[id] = StateDirty
	}
	return nil
}

func (t *Tracker) Saved(id string) error {
	if err := t.live(id); err != nil {
		return err
	}
	t.states[id] = StateSaved
	return nil
}

func (t *Tracker) Deleted(id string) error {
	if err := t.live(id); err != nil {
		return err
	}
	t.states[id] = StateDeleted
	return nil
}

// Pending lists ids that are new or dirty.
func (t *Tracker) Pending() []string {
	var ids []string
	for id, s := range t.states {
		if s == StateNew || s == StateDirty {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (t *Tracker) live(id string) error {
	if t.states[id] == StateDeleted {
		return fmt.Errorf("%s: %w", id, ErrTerminalState)
	}
	return nil
}

// Draft is one editing session over a collection.
type Draft[T Record[T]] struct {
	sync    *Synchronizer[T]
	coll    *collection.Collection[T]
	tracker *Tracker
	source  Source
}

// Load starts a session from the stored collection. Items that came from the
// defaults start as new because nothing has been written yet.
func Load[T Record[T]](ctx context.Context, s *Synchronizer[T]) (*Draft[T], Snapshot[T]) {
	snap := s.LoadAll(ctx)
	d := &Draft[T]{
		sync:    s,
		coll:    collection.New(snap.Items),
		tracker: NewTracker(),
		source:  snap.Source,
	}
	for _, item := range snap.Items {
		if snap.Source == SourceStore {
			_ = d.tracker.Saved(item.Key())
		} else {
			_ = d.tracker.Created(item.Key())
		}
	}
	return d, snap
}

func (d *Draft[T]) Items() []T {
	return d.coll.Items()
}

func (d *Draft[T]) Collection() *collection.Collection[T] {
	return d.coll
}

func (d *Draft[T]) Tracker() *Tracker {
	return d.tracker
}

// Source reports where the session's items came from. It becomes
// SourceStore after the first successful Save.
func (d *Draft[T]) Source() Source {
	return d.source
}

func (d *Draft[T]) Dirty() bool {
	return len(d.tracker.Pending()) > 0
}

func (d *Draft[T]) Add(item T) (T, error) {
	before := d.positions()
	added, err := d.coll.Append(item)
	if err != nil {
		return added, err
	}
	d.markMoved(before)
	return added, d.tracker.Created(added.Key())
}

func (d *Draft[T]) Update(id string, fn func(T) (T, error)) (T, error) {
	before := d.positions()
	updated, err := d.coll.UpdateByID(id, fn)
	if err != nil {
		return updated, err
	}
	d.markMoved(before)
	return updated, d.tracker.Edited(id)
}

// Remove deletes the item. A stored item is deleted from the store at once
// and every stored item it shifted is written back. Items that were never
// saved, and every item of a draft still showing defaults, are removed in
// memory only and reach the store with the next Save.
func (d *Draft[T]) Remove(ctx context.Context, id string) (bool, error) {
	if _, ok := d.coll.Get(id); !ok {
		return false, nil
	}
	before := d.positions()
	if state, _ := d.tracker.State(id); state == StateNew || d.source != SourceStore {
		d.coll.RemoveByID(id)
		d.markMoved(before)
		return true, d.tracker.Deleted(id)
	}

	if err := d.sync.DeleteOne(ctx, id); err != nil {
		return false, err
	}
	d.coll.RemoveByID(id)
	if err := d.tracker.Deleted(id); err != nil {
		return true, err
	}
	written, err := d.sync.SaveChanged(ctx, d.coll, before)
	d.markMoved(before)
	for _, item := range written {
		_ = d.tracker.Saved(item.Key())
	}
	return true, err
}

func (d *Draft[T]) Move(id string, dir collection.Direction) bool {
	before := d.positions()
	if !d.coll.MoveAdjacent(id, dir) {
		return false
	}
	d.markMoved(before)
	return true
}

func (d *Draft[T]) Drop(id, targetID string, placement collection.Placement) bool {
	before := d.positions()
	if !collection.DropOnto(d.coll, id, targetID, placement) {
		return false
	}
	d.markMoved(before)
	return true
}

func (d *Draft[T]) Reorder(ids []string) error {
	before := d.positions()
	if err := d.coll.Reorder(ids); err != nil {
		return err
	}
	d.markMoved(before)
	return nil
}

// Save writes the whole collection and marks every item saved.
func (d *Draft[T]) Save(ctx context.Context) error {
	if err := d.sync.SaveAll(ctx, d.coll); err != nil {
		var saveErr *SaveError
		if errors.As(err, &saveErr) {
			for _, item := range d.coll.Items()[:saveErr.Written] {
				_ = d.tracker.Saved(item.Key())
			}
		}
		return err
	}
	for _, item := range d.coll.Items() {
		_ = d.tracker.Saved(item.Key())
	}
	d.source = SourceStore
	return nil
}

func (d *Draft[T]) positions() map[string]int {
	return Positions(d.coll.Items())
}

func (d *Draft[T]) markMoved(before map[string]int) {
	for _, item := range d.coll.Items() {
		if before[item.Key()] != item.Position() {
			_ = d.tracker.Edited(item.Key())
		}
	}
}
