package search

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Local is an in-process index used with the memory store. It matches
// every query word as a case-insensitive substring.
type Local struct {
	mu    sync.RWMutex
	posts map[string]PostRecord
	faqs  map[string]FAQRecord
}

func NewLocal() *Local {
	return &Local{posts: make(map[string]PostRecord), faqs: make(map[string]FAQRecord)}
}

func (l *Local) Healthy() bool { return true }

func (l *Local) IndexPosts(posts []PostRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range posts {
		l.posts[p.ID] = p
	}
	return nil
}

func (l *Local) IndexFAQs(faqs []FAQRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range faqs {
		l.faqs[f.ID] = f
	}
	return nil
}

func (l *Local) DeletePost(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.posts, id)
	return nil
}

func (l *Local) DeleteFAQ(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.faqs, id)
	return nil
}

func (l *Local) Search(_ context.Context, q Query) ([]Result, int, error) {
	terms := strings.Fields(strings.ToLower(q.Text))
	if len(terms) == 0 {
		return nil, 0, nil
	}
	l.mu.RLock()
	var results []Result
	if q.FilterType == "" || q.FilterType == ResultPost {
		for _, p := range l.posts {
			if q.PublicOnly && !p.public() {
				continue
			}
			if matches(terms, p.Title, p.Excerpt, p.Body) {
				results = append(results, p.result())
			}
		}
	}
	if q.FilterType == "" || q.FilterType == ResultFAQ {
		for _, f := range l.faqs {
			if q.PublicOnly && !f.Visible {
				continue
			}
			if matches(terms, f.Question, f.Answer) {
				results = append(results, f.result())
			}
		}
	}
	l.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Type != results[j].Type {
			return results[i].Type < results[j].Type
		}
		return results[i].Title < results[j].Title
	})
	total := len(results)
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	start := min(max(q.Offset, 0), total)
	end := min(start+limit, total)
	return results[start:end], total, nil
}

func matches(terms []string, fields ...string) bool {
	text := strings.ToLower(strings.Join(fields, " "))
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}
