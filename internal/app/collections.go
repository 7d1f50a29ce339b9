package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ridepool/cms/internal/collection"
	"ridepool/cms/internal/content"
	"ridepool/cms/internal/history"
	"ridepool/cms/internal/persist"
	"ridepool/cms/internal/util"
)

// Collection names exposed under /api/collections/{name}.
const (
	CollectionBlogs      = "blogs"
	CollectionFAQ        = "faq"
	CollectionFeatures   = "features"
	CollectionHowItWorks = "howItWorks"
	CollectionInstagram  = "instagram"
)

// CollectionView is the admin listing of a collection. Source tells whether
// the items came from the store or from the built-in defaults.
type CollectionView struct {
	Name    string         `json:"name"`
	Items   any            `json:"items"`
	Source  persist.Source `json:"source"`
	Warning string         `json:"warning,omitempty"`
}

// contentCollection is the type-erased surface the HTTP layer works with.
type contentCollection interface {
	Name() string
	View(ctx context.Context) CollectionView
	ReplaceAll(ctx context.Context, raw json.RawMessage, actor string) (CollectionView, error)
	Create(ctx context.Context, raw json.RawMessage, actor string) (any, error)
	Update(ctx context.Context, id string, patch json.RawMessage, actor string) (any, error)
	Delete(ctx context.Context, id, actor string) error
	Reorder(ctx context.Context, ids []string, actor string) (CollectionView, error)
	Move(ctx context.Context, id string, dir collection.Direction, actor string) (CollectionView, error)
	Drop(ctx context.Context, id, targetID string, placement collection.Placement, actor string) (CollectionView, error)
	Seed(ctx context.Context, actor string) (int, error)
	History(limit int) ([]history.Revision, error)
	Revision(hash string) (json.RawMessage, history.Revision, error)
	Restore(ctx context.Context, hash, actor string) (CollectionView, error)
}

type validRecord[T any] interface {
	persist.Record[T]
	Validate() error
}

// managed binds a synchronizer to validation, history and search hooks.
// Mutations always start from the stored items, never from defaults.
type managed[T validRecord[T]] struct {
	name      string
	idPrefix  string
	blank     T
	sync      *persist.Synchronizer[T]
	history   *history.Service
	log       *zap.Logger
	onSaved   func(items []T)
	onRemoved func(ids []string)
}

func (m *managed[T]) Name() string { return m.name }

func (m *managed[T]) View(ctx context.Context) CollectionView {
	snap := m.sync.LoadAll(ctx)
	view := CollectionView{Name: m.name, Items: orEmpty(snap.Items), Source: snap.Source}
	if snap.Err != nil {
		view.Warning = "Failed to load " + m.name
	}
	return view
}

// Live returns the items the public site shows: stored items, or the
// defaults when the store is empty or unreachable.
func (m *managed[T]) Live(ctx context.Context) []T {
	return m.sync.LoadAll(ctx).Items
}

func (m *managed[T]) stored(ctx context.Context) (*collection.Collection[T], error) {
	items, err := m.sync.Stored(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", m.name, err)
	}
	return collection.New(items), nil
}

func (m *managed[T]) storedView(coll *collection.Collection[T]) CollectionView {
	return CollectionView{Name: m.name, Items: orEmpty(coll.Items()), Source: persist.SourceStore}
}

// decodeItem reads a new item over the collection's blank item, so fields
// the body leaves out keep their blank value.
func (m *managed[T]) decodeItem(raw json.RawMessage) (T, error) {
	item, err := content.MergeWithDefaults(raw, m.blank)
	if err != nil {
		return item, &content.ValidationError{Field: "body", Reason: "body must be a JSON object"}
	}
	if item.Key() == "" {
		item = item.WithKey(util.NewID(m.idPrefix))
	}
	return item, nil
}

func (m *managed[T]) Create(ctx context.Context, raw json.RawMessage, actor string) (any, error) {
	item, err := m.decodeItem(raw)
	if err != nil {
		return nil, err
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	coll, err := m.stored(ctx)
	if err != nil {
		return nil, err
	}
	before := persist.Positions(coll.Items())
	appended, err := coll.Append(item)
	if err != nil {
		return nil, err
	}
	if err := m.commit(ctx, coll, before, actor, "add "+appended.Key(), appended.Key()); err != nil {
		return nil, err
	}
	return appended, nil
}

func (m *managed[T]) Update(ctx context.Context, id string, patch json.RawMessage, actor string) (any, error) {
	coll, err := m.stored(ctx)
	if err != nil {
		return nil, err
	}
	before := persist.Positions(coll.Items())
	updated, err := coll.UpdateByID(id, func(current T) (T, error) {
		next, err := content.Patch(current, patch)
		if err != nil {
			return next, err
		}
		return next, next.Validate()
	})
	if err != nil {
		return nil, err
	}
	if err := m.commit(ctx, coll, before, actor, "update "+id, id); err != nil {
		return nil, err
	}
	return updated, nil
}

func (m *managed[T]) Delete(ctx context.Context, id, actor string) error {
	coll, err := m.stored(ctx)
	if err != nil {
		return err
	}
	removed, err := m.sync.Remove(ctx, coll, id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s", collection.ErrNotFound, id)
	}
	m.record(coll.Items(), actor, "remove "+id)
	m.removed([]string{id})
	return nil
}

// ReplaceAll stores raw, an ordered array, as the whole collection. Array
// position wins over any order field; stored items missing from raw are
// deleted after the bulk write succeeds.
func (m *managed[T]) ReplaceAll(ctx context.Context, raw json.RawMessage, actor string) (CollectionView, error) {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		return CollectionView{}, &content.ValidationError{Field: "body", Reason: "body must be a JSON array"}
	}
	items := make([]T, 0, len(rawItems))
	for i, rawItem := range rawItems {
		item, err := m.decodeItem(rawItem)
		if err != nil {
			return CollectionView{}, &content.ValidationError{Field: fmt.Sprintf("[%d]", i), Reason: "item must be a JSON object"}
		}
		if err := item.Validate(); err != nil {
			var verr *content.ValidationError
			if errors.As(err, &verr) {
				return CollectionView{}, &content.ValidationError{Field: fmt.Sprintf("[%d].%s", i, verr.Field), Reason: verr.Reason}
			}
			return CollectionView{}, err
		}
		items = append(items, item)
	}
	return m.replace(ctx, items, actor, "save all")
}

func (m *managed[T]) replace(ctx context.Context, items []T, actor, message string) (CollectionView, error) {
	coll, err := collection.FromSequence(items)
	if err != nil {
		return CollectionView{}, err
	}
	existing, err := m.sync.Stored(ctx)
	if err != nil {
		return CollectionView{}, fmt.Errorf("load %s: %w", m.name, err)
	}
	if err := m.sync.SaveAll(ctx, coll); err != nil {
		return CollectionView{}, err
	}
	var stale []string
	for _, item := range existing {
		if _, ok := coll.Get(item.Key()); ok {
			continue
		}
		if err := m.sync.DeleteOne(ctx, item.Key()); err != nil {
			return CollectionView{}, err
		}
		stale = append(stale, item.Key())
	}
	m.record(coll.Items(), actor, message)
	m.saved(coll.Items())
	m.removed(stale)
	return m.storedView(coll), nil
}

func (m *managed[T]) Reorder(ctx context.Context, ids []string, actor string) (CollectionView, error) {
	coll, err := m.stored(ctx)
	if err != nil {
		return CollectionView{}, err
	}
	if err := coll.Reorder(ids); err != nil {
		return CollectionView{}, err
	}
	return m.saveOrder(ctx, coll, actor, "reorder")
}

// Move swaps id with its neighbour. Moving past either end changes nothing.
func (m *managed[T]) Move(ctx context.Context, id string, dir collection.Direction, actor string) (CollectionView, error) {
	coll, err := m.stored(ctx)
	if err != nil {
		return CollectionView{}, err
	}
	if _, ok := coll.Get(id); !ok {
		return CollectionView{}, fmt.Errorf("%w: %s", collection.ErrNotFound, id)
	}
	if !coll.MoveAdjacent(id, dir) {
		return m.storedView(coll), nil
	}
	return m.saveOrder(ctx, coll, actor, fmt.Sprintf("move %s %s", id, dir))
}

func (m *managed[T]) Drop(ctx context.Context, id, targetID string, placement collection.Placement, actor string) (CollectionView, error) {
	coll, err := m.stored(ctx)
	if err != nil {
		return CollectionView{}, err
	}
	if _, ok := coll.Get(id); !ok {
		return CollectionView{}, fmt.Errorf("%w: %s", collection.ErrNotFound, id)
	}
	if !collection.DropOnto(coll, id, targetID, placement) {
		return m.storedView(coll), nil
	}
	return m.saveOrder(ctx, coll, actor, fmt.Sprintf("drop %s %s %s", id, placement, targetID))
}

func (m *managed[T]) saveOrder(ctx context.Context, coll *collection.Collection[T], actor, message string) (CollectionView, error) {
	if err := m.sync.SaveAll(ctx, coll); err != nil {
		return CollectionView{}, err
	}
	m.record(coll.Items(), actor, message)
	return m.storedView(coll), nil
}

func (m *managed[T]) Seed(ctx context.Context, actor string) (int, error) {
	n, err := m.sync.InitializeDefaults(ctx)
	if err != nil {
		return 0, err
	}
	items := collection.Renumber(m.sync.Defaults())
	m.record(items, actor, "seed defaults")
	m.saved(items)
	return n, nil
}

func (m *managed[T]) History(limit int) ([]history.Revision, error) {
	if m.history == nil {
		return []history.Revision{}, nil
	}
	return m.history.History(m.sync.Path(), limit)
}

func (m *managed[T]) Revision(hash string) (json.RawMessage, history.Revision, error) {
	if m.history == nil {
		return nil, history.Revision{}, history.ErrRevisionNotFound
	}
	return m.history.Snapshot(m.sync.Path(), hash)
}

// Restore writes the items of a past revision back as the whole collection.
func (m *managed[T]) Restore(ctx context.Context, hash, actor string) (CollectionView, error) {
	raw, rev, err := m.Revision(hash)
	if err != nil {
		return CollectionView{}, err
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return CollectionView{}, fmt.Errorf("decode revision %s: %w", rev.Hash, err)
	}
	return m.replace(ctx, items, actor, "restore "+rev.Hash)
}

// commit writes the touched ids and every item the mutation renumbered,
// then records coll, which matches the store once every write succeeded.
func (m *managed[T]) commit(ctx context.Context, coll *collection.Collection[T], before map[string]int, actor, message string, touched ...string) error {
	written, err := m.sync.SaveChanged(ctx, coll, before, touched...)
	m.saved(written)
	if err != nil {
		return err
	}
	m.record(coll.Items(), actor, message)
	return nil
}

func (m *managed[T]) record(items []T, actor, message string) {
	if m.history == nil {
		return
	}
	raw, err := json.Marshal(orEmpty(items))
	if err != nil {
		m.log.Warn("encode history snapshot", zap.Error(err))
		return
	}
	if _, err := m.history.Record(m.sync.Path(), raw, actor, message); err != nil && !errors.Is(err, history.ErrUnchanged) {
		m.log.Warn("record history", zap.String("collection", m.name), zap.Error(err))
	}
}

func (m *managed[T]) saved(items []T) {
	if m.onSaved != nil && len(items) > 0 {
		m.onSaved(items)
	}
}

func (m *managed[T]) removed(ids []string) {
	if m.onRemoved != nil && len(ids) > 0 {
		m.onRemoved(ids)
	}
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
