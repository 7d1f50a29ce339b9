package export

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"ridepool/cms/internal/content"
)

// Service renders exports. artifacts may be nil, in which case results are
// returned inline only.
type Service struct {
	renderPDF PDFRenderer
	artifacts ArtifactStore
	log       *zap.Logger
	now       func() time.Time
}

func NewService(renderPDF PDFRenderer, artifacts ArtifactStore, logger *zap.Logger) *Service {
	if renderPDF == nil {
		renderPDF = ChromePDF
	}
	return &Service{renderPDF: renderPDF, artifacts: artifacts, log: logger.Named("export"), now: time.Now}
}

func (s *Service) ExportPost(ctx context.Context, post content.BlogPost, siteName string, format Format) (*Result, error) {
	body, err := BlocksToHTML(post.Content)
	if err != nil {
		return nil, err
	}
	meta := post.Author
	if post.PublishedAt != nil {
		meta = strings.TrimPrefix(meta+" | "+post.PublishedAt.Format("January 2, 2006"), " | ")
	}
	page, err := RenderDocumentHTML(TemplateData{
		Title:    post.Title,
		Subtitle: post.Excerpt,
		Meta:     meta,
		SiteName: siteName,
		Body:     body,
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, KindBlog, page, post.Slug, format)
}

func (s *Service) ExportLegal(ctx context.Context, legalType content.LegalType, doc content.LegalPage, siteName string, format Format) (*Result, error) {
	sections := make([]TemplateSection, 0, len(doc.Sections))
	for _, section := range doc.Sections {
		sections = append(sections, TemplateSection{Heading: section.Heading, Body: section.Body})
	}
	meta := ""
	if doc.LastUpdated != "" {
		meta = "Last updated " + doc.LastUpdated
	}
	page, err := RenderDocumentHTML(TemplateData{
		Title:    doc.Title,
		Meta:     meta,
		SiteName: siteName,
		Sections: sections,
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, KindLegal, page, string(legalType), format)
}

func (s *Service) finish(ctx context.Context, kind Kind, page, name string, format Format) (*Result, error) {
	var result *Result
	switch format {
	case FormatHTML:
		result = &Result{Data: []byte(page), Filename: sanitizeFilename(name) + ".html", MimeType: "text/html; charset=utf-8"}
	case FormatPDF:
		pdf, err := s.renderPDF(ctx, page)
		if err != nil {
			return nil, err
		}
		result = &Result{Data: pdf, Filename: sanitizeFilename(name) + ".pdf", MimeType: "application/pdf"}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if s.artifacts == nil {
		return result, nil
	}
	key := path.Join("exports", string(kind), s.now().UTC().Format("20060102T150405Z")+"-"+result.Filename)
	link, err := s.artifacts.Put(ctx, key, result.Data, result.MimeType)
	if err != nil {
		// The inline result is still usable.
		s.log.Warn("artifact upload failed", zap.String("key", key), zap.Error(err))
		return result, nil
	}
	result.URL = link
	return result, nil
}
