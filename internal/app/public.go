package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ridepool/cms/internal/content"
	"ridepool/cms/internal/store"
)

const homeLatestPosts = 3

// PostSummary is a blog post without its body, as listed on the site.
type PostSummary struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	Excerpt     string             `json:"excerpt"`
	Category    string             `json:"category,omitempty"`
	Tags        []string           `json:"tags"`
	Author      string             `json:"author,omitempty"`
	CoverImage  string             `json:"coverImage,omitempty"`
	PublishedAt *time.Time         `json:"publishedAt,omitempty"`
	Status      content.PostStatus `json:"status"`
}

type HomePage struct {
	Settings    content.SiteSettings       `json:"settings"`
	Images      content.ImageConfig        `json:"images"`
	Environment content.EnvironmentContent `json:"environment"`
	Features    []content.Feature          `json:"features"`
	HowItWorks  HowItWorks                 `json:"howItWorks"`
	FAQ         []content.FAQ              `json:"faq"`
	Instagram   []content.InstagramPost    `json:"instagram"`
	LatestPosts []PostSummary              `json:"latestPosts"`
}

type HowItWorks struct {
	Rider  []content.HowItWorksStep `json:"rider"`
	Driver []content.HowItWorksStep `json:"driver"`
}

// PublicHome gathers everything the landing page renders. Each part loads
// independently and falls back to its defaults, so this never fails on a
// store outage.
func (s *Service) PublicHome(ctx context.Context) (HomePage, error) {
	var page HomePage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page.Settings, _ = s.settings.Load(gctx)
		return nil
	})
	g.Go(func() error {
		page.Images, _ = s.images.Load(gctx)
		return nil
	})
	g.Go(func() error {
		page.Environment, _ = s.environment.Load(gctx)
		return nil
	})
	g.Go(func() error {
		page.Features = visibleFeatures(s.features.Live(gctx))
		return nil
	})
	g.Go(func() error {
		page.HowItWorks = s.PublicHowItWorks(gctx)
		return nil
	})
	g.Go(func() error {
		page.FAQ = s.PublicFAQ(gctx)
		return nil
	})
	g.Go(func() error {
		page.Instagram = visibleInstagram(s.instagram.Live(gctx))
		return nil
	})
	g.Go(func() error {
		posts := s.PublicPosts(gctx)
		if len(posts) > homeLatestPosts {
			posts = posts[:homeLatestPosts]
		}
		page.LatestPosts = posts
		return nil
	})
	if err := g.Wait(); err != nil {
		return HomePage{}, err
	}
	return page, nil
}

// PublicPosts lists the posts that are live now, in collection order.
func (s *Service) PublicPosts(ctx context.Context) []PostSummary {
	now := s.now()
	out := []PostSummary{}
	for _, post := range s.blogs.Live(ctx) {
		if !post.Live(now) {
			continue
		}
		out = append(out, summarize(post))
	}
	return out
}

func (s *Service) PublicPost(ctx context.Context, slug string) (content.BlogPost, error) {
	now := s.now()
	for _, post := range s.blogs.Live(ctx) {
		if post.Slug == slug && post.Live(now) {
			return post, nil
		}
	}
	return content.BlogPost{}, fmt.Errorf("post %q: %w", slug, store.ErrNotFound)
}

func (s *Service) PublicFAQ(ctx context.Context) []content.FAQ {
	out := []content.FAQ{}
	for _, f := range s.faq.Live(ctx) {
		if f.Visible {
			out = append(out, f)
		}
	}
	return out
}

func (s *Service) PublicHowItWorks(ctx context.Context) HowItWorks {
	steps := HowItWorks{Rider: []content.HowItWorksStep{}, Driver: []content.HowItWorksStep{}}
	for _, step := range s.howItWorks.Live(ctx) {
		switch step.Audience {
		case content.AudienceRider:
			steps.Rider = append(steps.Rider, step)
		case content.AudienceDriver:
			steps.Driver = append(steps.Driver, step)
		}
	}
	return steps
}

func visibleFeatures(features []content.Feature) []content.Feature {
	out := []content.Feature{}
	for _, f := range features {
		if f.Visible {
			out = append(out, f)
		}
	}
	return out
}

func visibleInstagram(posts []content.InstagramPost) []content.InstagramPost {
	out := []content.InstagramPost{}
	for _, p := range posts {
		if p.Visible {
			out = append(out, p)
		}
	}
	return out
}

func summarize(post content.BlogPost) PostSummary {
	summary := PostSummary{
		ID:         post.ID,
		Title:      post.Title,
		Slug:       post.Slug,
		Excerpt:    post.Excerpt,
		Category:   post.Category,
		Tags:       orEmpty(post.Tags),
		Author:     post.Author,
		CoverImage: post.CoverImage,
		Status:     post.Status,
	}
	switch {
	case post.PublishedAt != nil:
		summary.PublishedAt = post.PublishedAt
	case post.ScheduledAt != nil:
		summary.PublishedAt = post.ScheduledAt
	}
	return summary
}
