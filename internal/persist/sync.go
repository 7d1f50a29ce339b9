// Package persist keeps ordered collections in step with the document store.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ridepool/cms/internal/collection"
	"ridepool/cms/internal/lock"
	"ridepool/cms/internal/store"
)

var (
	ErrSaveInProgress = errors.New("a save of this collection is already running")
	ErrNotEmpty       = errors.New("collection already has documents")
)

// DocumentStore is the slice of the document database the synchronizer needs.
type DocumentStore interface {
	ListDocuments(ctx context.Context, collection string) ([]store.Document, error)
	GetDocument(ctx context.Context, collection, id string) (store.Document, error)
	PutDocument(ctx context.Context, collection, id string, data json.RawMessage) error
	DeleteDocument(ctx context.Context, collection, id string) error
}

// Record is an item that can be stored as a document keyed by its id.
type Record[T any] interface {
	collection.Item[T]
	WithKey(id string) T
}

type Source string

const (
	SourceStore    Source = "store"
	SourceDefaults Source = "defaults"
)

// Snapshot is the result of a load. Err is set when the store could not be
// read and Items holds the defaults instead.
type Snapshot[T any] struct {
	Items  []T
	Source Source
	Err    error
}

// SaveError reports a bulk save that stopped part way. Documents before
// Written were stored; nothing is rolled back.
type SaveError struct {
	Written int
	Total   int
	ID      string
	Err     error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("saved %d of %d items, %s failed: %v", e.Written, e.Total, e.ID, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

type Options[T any] struct {
	Store    DocumentStore
	Path     string
	Defaults func() []T
	Locker   lock.Locker
	Logger   *zap.Logger
}

type Synchronizer[T Record[T]] struct {
	store    DocumentStore
	path     string
	defaults func() []T
	locker   lock.Locker
	log      *zap.Logger
}

func New[T Record[T]](opts Options[T]) *Synchronizer[T] {
	s := &Synchronizer[T]{
		store:    opts.Store,
		path:     opts.Path,
		defaults: opts.Defaults,
		locker:   opts.Locker,
		log:      opts.Logger,
	}
	if s.defaults == nil {
		s.defaults = func() []T { return nil }
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.With(zap.String("collection", opts.Path))
	return s
}

func (s *Synchronizer[T]) Path() string {
	return s.path
}

// Defaults returns the fallback items sorted by order.
func (s *Synchronizer[T]) Defaults() []T {
	return collection.SortByPosition(s.defaults())
}

// LoadAll reads every document of the collection sorted by order. It never
// fails: an empty or unreadable collection yields the defaults.
func (s *Synchronizer[T]) LoadAll(ctx context.Context) Snapshot[T] {
	items, err := s.load(ctx)
	if err != nil {
		s.log.Warn("load failed, serving defaults", zap.Error(err))
		return Snapshot[T]{Items: s.Defaults(), Source: SourceDefaults, Err: err}
	}
	if len(items) == 0 {
		return Snapshot[T]{Items: s.Defaults(), Source: SourceDefaults}
	}
	return Snapshot[T]{Items: collection.SortByPosition(items), Source: SourceStore}
}

// Stored reads the collection without falling back to defaults.
func (s *Synchronizer[T]) Stored(ctx context.Context) ([]T, error) {
	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return collection.SortByPosition(items), nil
}

func (s *Synchronizer[T]) load(ctx context.Context) ([]T, error) {
	docs, err := s.store.ListDocuments(ctx, s.path)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := decode[T](doc)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// SaveAll writes every item in collection order, one document at a time.
// Only one bulk save per path runs at once.
func (s *Synchronizer[T]) SaveAll(ctx context.Context, coll *collection.Collection[T]) error {
	release, err := s.locker.Acquire(ctx, s.path)
	if errors.Is(err, lock.ErrHeld) {
		return ErrSaveInProgress
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	defer release()

	items := coll.Items()
	for i, item := range items {
		if err := s.put(ctx, item); err != nil {
			s.log.Error("bulk save stopped", zap.Int("written", i), zap.Int("total", len(items)), zap.Error(err))
			return &SaveError{Written: i, Total: len(items), ID: item.Key(), Err: err}
		}
	}
	s.log.Info("collection saved", zap.Int("items", len(items)))
	return nil
}

func (s *Synchronizer[T]) SaveOne(ctx context.Context, item T) error {
	if err := s.put(ctx, item); err != nil {
		return fmt.Errorf("save %s/%s: %w", s.path, item.Key(), err)
	}
	return nil
}

// DeleteOne removes the remote document only.
func (s *Synchronizer[T]) DeleteOne(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, s.path, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.path, id, err)
	}
	return nil
}

// Remove deletes id remotely, closes the gap in coll and writes back every
// item whose order moved, so the stored orders stay contiguous.
func (s *Synchronizer[T]) Remove(ctx context.Context, coll *collection.Collection[T], id string) (bool, error) {
	if _, ok := coll.Get(id); !ok {
		return false, nil
	}
	if err := s.DeleteOne(ctx, id); err != nil {
		return false, err
	}
	before := Positions(coll.Items())
	coll.RemoveByID(id)
	_, err := s.SaveChanged(ctx, coll, before)
	return true, err
}

// Positions maps every item id to its current order.
func Positions[T collection.Item[T]](items []T) map[string]int {
	out := make(map[string]int, len(items))
	for _, item := range items {
		out[item.Key()] = item.Position()
	}
	return out
}

// SaveChanged writes, in collection order, every item whose order differs
// from before, every item missing from before, and the touched ids. It
// returns the items it wrote, including those written before a failure.
func (s *Synchronizer[T]) SaveChanged(ctx context.Context, coll *collection.Collection[T], before map[string]int, touched ...string) ([]T, error) {
	force := make(map[string]bool, len(touched))
	for _, id := range touched {
		force[id] = true
	}
	var written []T
	for _, item := range coll.Items() {
		old, known := before[item.Key()]
		if known && old == item.Position() && !force[item.Key()] {
			continue
		}
		if err := s.SaveOne(ctx, item); err != nil {
			return written, err
		}
		written = append(written, item)
	}
	return written, nil
}

// InitializeDefaults writes the defaults into an empty collection and reports
// how many documents were created.
func (s *Synchronizer[T]) InitializeDefaults(ctx context.Context) (int, error) {
	existing, err := s.store.ListDocuments(ctx, s.path)
	if err != nil {
		return 0, fmt.Errorf("seed %s: %w", s.path, err)
	}
	if len(existing) > 0 {
		return 0, ErrNotEmpty
	}
	coll, err := collection.FromSequence(s.Defaults())
	if err != nil {
		return 0, fmt.Errorf("seed %s: %w", s.path, err)
	}
	if err := s.SaveAll(ctx, coll); err != nil {
		return 0, err
	}
	s.log.Info("collection seeded", zap.Int("items", coll.Len()))
	return coll.Len(), nil
}

func (s *Synchronizer[T]) put(ctx context.Context, item T) error {
	data, err := encode(item)
	if err != nil {
		return err
	}
	return s.store.PutDocument(ctx, s.path, item.Key(), data)
}

// encode drops the id from the body; the document key carries it.
func encode[T any](item T) (json.RawMessage, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	delete(fields, "id")
	return json.Marshal(fields)
}

func decode[T Record[T]](doc store.Document) (T, error) {
	var item T
	if err := json.Unmarshal(doc.Data, &item); err != nil {
		return item, fmt.Errorf("decode %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return item.WithKey(doc.ID), nil
}
