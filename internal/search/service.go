package search

import (
	"context"

	"go.uber.org/zap"
)

// Service is the facade that tries Meilisearch first and falls back to the
// secondary searcher (PostgreSQL FTS or the local index).
type Service struct {
	meili    *Meili
	fallback Searcher
	log      *zap.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured. A fallback that also implements Indexer is kept in step
// with every index call.
func NewService(meili *Meili, fallback Searcher, logger *zap.Logger) *Service {
	return &Service{meili: meili, fallback: fallback, log: logger.Named("search")}
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn("meilisearch error, falling back", zap.Error(err))
	}
	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.log.Error("fallback search failed", zap.Error(err))
		return Response{Results: []Result{}, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPost indexes a post (fire-and-forget to Meilisearch).
func (s *Service) IndexPost(p PostRecord) {
	s.each(func(ix Indexer) error { return ix.IndexPosts([]PostRecord{p}) }, "index post", p.ID)
}

func (s *Service) IndexFAQ(f FAQRecord) {
	s.each(func(ix Indexer) error { return ix.IndexFAQs([]FAQRecord{f}) }, "index faq", f.ID)
}

func (s *Service) DeletePost(id string) {
	s.each(func(ix Indexer) error { return ix.DeletePost(id) }, "delete post", id)
}

func (s *Service) DeleteFAQ(id string) {
	s.each(func(ix Indexer) error { return ix.DeleteFAQ(id) }, "delete faq", id)
}

// ReindexAll pushes the full content set. Called at boot and after bulk
// saves or restores.
func (s *Service) ReindexAll(posts []PostRecord, faqs []FAQRecord) {
	if local, ok := s.fallback.(Indexer); ok {
		_ = local.IndexPosts(posts)
		_ = local.IndexFAQs(faqs)
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexPosts(posts); err != nil {
		s.log.Warn("reindex posts", zap.Error(err))
	}
	if err := s.meili.IndexFAQs(faqs); err != nil {
		s.log.Warn("reindex faqs", zap.Error(err))
	}
}

func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}

// each applies op to the local index synchronously and to Meilisearch in
// the background.
func (s *Service) each(op func(Indexer) error, what, id string) {
	if local, ok := s.fallback.(Indexer); ok {
		if err := op(local); err != nil {
			s.log.Warn(what, zap.String("id", id), zap.Error(err))
		}
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := op(s.meili); err != nil {
			s.log.Warn(what, zap.String("id", id), zap.Error(err))
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
