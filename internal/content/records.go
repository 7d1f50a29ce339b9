package content

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusScheduled PostStatus = "scheduled"
	StatusPublished PostStatus = "published"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type BlogPost struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt"`
	Status      PostStatus `json:"status"`
	Category    string     `json:"category,omitempty"`
	Tags        []string   `json:"tags"`
	Author      string     `json:"author,omitempty"`
	CoverImage  string     `json:"coverImage,omitempty"`
	MetaDesc    string     `json:"metaDesc,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Content     Blocks     `json:"content"`
	Order       int        `json:"order"`
}

func (p BlogPost) Key() string                     { return p.ID }
func (p BlogPost) Position() int                   { return p.Order }
func (p BlogPost) WithPosition(order int) BlogPost { p.Order = order; return p }
func (p BlogPost) WithKey(id string) BlogPost      { p.ID = id; return p }

func (p BlogPost) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return invalid("title", "title is required")
	}
	if !slugPattern.MatchString(p.Slug) {
		return invalid("slug", "slug must be lowercase words joined by hyphens")
	}
	switch p.Status {
	case StatusDraft, StatusPublished:
	case StatusScheduled:
		if p.ScheduledAt == nil {
			return invalid("scheduledAt", "scheduled posts need a publish time")
		}
	default:
		return invalid("status", fmt.Sprintf("unknown status %q", p.Status))
	}
	for i, block := range p.Content {
		if err := Validate(block); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				return invalid(fmt.Sprintf("content[%d].%s", i, verr.Field), verr.Reason)
			}
			return err
		}
	}
	return nil
}

// Live reports whether the post is visible on the public site at now.
func (p BlogPost) Live(now time.Time) bool {
	switch p.Status {
	case StatusPublished:
		return true
	case StatusScheduled:
		return p.ScheduledAt != nil && !p.ScheduledAt.After(now)
	default:
		return false
	}
}

// Slugify derives a URL slug from a title.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

type FAQ struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
	Visible  bool   `json:"visible"`
	Order    int    `json:"order"`
}

func (f FAQ) Key() string                { return f.ID }
func (f FAQ) Position() int              { return f.Order }
func (f FAQ) WithPosition(order int) FAQ { f.Order = order; return f }
func (f FAQ) WithKey(id string) FAQ      { f.ID = id; return f }

func (f FAQ) Validate() error {
	if strings.TrimSpace(f.Question) == "" {
		return invalid("question", "question is required")
	}
	if strings.TrimSpace(f.Answer) == "" {
		return invalid("answer", "answer is required")
	}
	return nil
}

type Feature struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
	Visible     bool   `json:"visible"`
	Order       int    `json:"order"`
}

func (f Feature) Key() string                    { return f.ID }
func (f Feature) Position() int                  { return f.Order }
func (f Feature) WithPosition(order int) Feature { f.Order = order; return f }
func (f Feature) WithKey(id string) Feature      { f.ID = id; return f }

func (f Feature) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return invalid("title", "title is required")
	}
	return nil
}

type Audience string

const (
	AudienceRider  Audience = "rider"
	AudienceDriver Audience = "driver"
)

type HowItWorksStep struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon,omitempty"`
	Audience    Audience `json:"audience"`
	Order       int      `json:"order"`
}

func (s HowItWorksStep) Key() string                           { return s.ID }
func (s HowItWorksStep) Position() int                         { return s.Order }
func (s HowItWorksStep) WithPosition(order int) HowItWorksStep { s.Order = order; return s }
func (s HowItWorksStep) WithKey(id string) HowItWorksStep      { s.ID = id; return s }

func (s HowItWorksStep) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return invalid("title", "title is required")
	}
	if s.Audience != AudienceRider && s.Audience != AudienceDriver {
		return invalid("audience", "audience must be rider or driver")
	}
	return nil
}

type InstagramPost struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
	Caption   string `json:"caption,omitempty"`
	Visible   bool   `json:"visible"`
	Order     int    `json:"order"`
}

func (p InstagramPost) Key() string                          { return p.ID }
func (p InstagramPost) Position() int                        { return p.Order }
func (p InstagramPost) WithPosition(order int) InstagramPost { p.Order = order; return p }
func (p InstagramPost) WithKey(id string) InstagramPost      { p.ID = id; return p }

func (p InstagramPost) Validate() error {
	if !strings.HasPrefix(p.Permalink, "https://") {
		return invalid("permalink", "permalink must be an https url")
	}
	return nil
}
