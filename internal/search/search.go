package search

import (
	"context"
	"strings"

	"ridepool/cms/internal/content"
)

// ResultType identifies the kind of content in a search result.
type ResultType string

const (
	ResultPost ResultType = "post"
	ResultFAQ  ResultType = "faq"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	Slug    string     `json:"slug,omitempty"`
}

// Query describes a search request. PublicOnly restricts hits to published
// posts and visible FAQs.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
	PublicOnly bool
}

// Response is the envelope returned by the search endpoints.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push content into a search index.
type Indexer interface {
	IndexPosts(posts []PostRecord) error
	IndexFAQs(faqs []FAQRecord) error
	DeletePost(id string) error
	DeleteFAQ(id string) error
}

// PostRecord is the data we index for a blog post.
type PostRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Excerpt  string `json:"excerpt"`
	Body     string `json:"body"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

// FAQRecord is the data we index for a FAQ entry.
type FAQRecord struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
	Visible  bool   `json:"visible"`
}

func NewPostRecord(p content.BlogPost) PostRecord {
	return PostRecord{
		ID:       p.ID,
		Title:    p.Title,
		Slug:     p.Slug,
		Excerpt:  p.Excerpt,
		Body:     content.PlainText(p.Content),
		Category: p.Category,
		Status:   string(p.Status),
	}
}

func NewFAQRecord(f content.FAQ) FAQRecord {
	return FAQRecord{ID: f.ID, Question: f.Question, Answer: f.Answer, Category: f.Category, Visible: f.Visible}
}

func (r PostRecord) public() bool { return r.Status == string(content.StatusPublished) }

func (r PostRecord) result() Result {
	return Result{Type: ResultPost, ID: r.ID, Title: r.Title, Snippet: firstNonBlank(r.Excerpt, snippet(r.Body)), Slug: r.Slug}
}

func (r FAQRecord) result() Result {
	return Result{Type: ResultFAQ, ID: r.ID, Title: r.Question, Snippet: snippet(r.Answer)}
}

func snippet(text string) string {
	words := strings.Fields(text)
	if len(words) > 30 {
		words = append(words[:30], "…")
	}
	return strings.Join(words, " ")
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
