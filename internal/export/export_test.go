package export

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"ridepool/cms/internal/content"
)

func TestBlocksToHTML(t *testing.T) {
	tests := []struct {
		name     string
		block    content.Block
		expected string
	}{
		{name: "paragraph escapes", block: content.Paragraph{Content: "Fares <50%"}, expected: "<p>Fares &lt;50%</p>"},
		{name: "heading level 3", block: content.Heading{Content: "Why", Level: 3}, expected: "<h3>Why</h3>"},
		{name: "heading bad level", block: content.Heading{Content: "Why", Level: 7}, expected: "<h2>Why</h2>"},
		{name: "image with caption", block: content.Image{URL: "/a.png", Alt: "A", Caption: "Cap"}, expected: `<figure><img src="/a.png" alt="A"><figcaption>Cap</figcaption></figure>`},
		{name: "image without url", block: content.Image{Alt: "A"}, expected: ""},
		{name: "quote", block: content.Quote{Content: "Go", Attribution: "Rider"}, expected: "<blockquote><p>Go</p><footer>Rider</footer></blockquote>"},
		{name: "ordered list skips blanks", block: content.List{Ordered: true, Items: []string{"one", "", "two"}}, expected: "<ol><li>one</li><li>two</li></ol>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BlocksToHTML([]content.Block{tt.block})
			if err != nil {
				t.Fatalf("BlocksToHTML() error = %v", err)
			}
			if strings.TrimSpace(string(got)) != tt.expected {
				t.Errorf("BlocksToHTML() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"why-we-pool", "why-we-pool"},
		{"My Document v1.2", "My-Document-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "document"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := sanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"é", "%C3%A9"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := percentEncodeForDataURL(tt.input); got != tt.expected {
			t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderDocumentHTML(t *testing.T) {
	page, err := RenderDocumentHTML(TemplateData{
		Title:    "Terms <b>",
		SiteName: "Pooled",
		Body:     template.HTML("<p>Body</p>"),
		Sections: []TemplateSection{{Heading: "Payments", Body: "Charged at the end."}},
	})
	if err != nil {
		t.Fatalf("RenderDocumentHTML() error = %v", err)
	}
	if !strings.Contains(page, "<p>Body</p>") {
		t.Error("body HTML should not be escaped")
	}
	if !strings.Contains(page, "Terms &lt;b&gt;") {
		t.Error("title must be escaped")
	}
	if !strings.Contains(page, "<h2>Payments</h2>") {
		t.Error("sections missing")
	}
}

type fakeArtifacts struct {
	keys []string
	fail bool
}

func (f *fakeArtifacts) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	if f.fail {
		return "", errors.New("bucket offline")
	}
	f.keys = append(f.keys, key)
	return "https://files.example.com/" + key, nil
}

func TestExportPostHTMLAndUpload(t *testing.T) {
	artifacts := &fakeArtifacts{}
	svc := NewService(nil, artifacts, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	published := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	res, err := svc.ExportPost(context.Background(), content.BlogPost{
		Title: "Why pool", Slug: "why-pool", Author: "Team", PublishedAt: &published,
		Content: content.Blocks{content.Paragraph{Content: "Hello"}},
	}, "Pooled", FormatHTML)
	if err != nil {
		t.Fatalf("ExportPost() error = %v", err)
	}
	if res.Filename != "why-pool.html" || !strings.Contains(string(res.Data), "<p>Hello</p>") {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(string(res.Data), "Team | February 1, 2024") {
		t.Fatal("expected author and date in meta line")
	}
	if res.URL != "https://files.example.com/exports/blog/20240301T120000Z-why-pool.html" {
		t.Fatalf("unexpected url %q", res.URL)
	}
}

func TestExportLegalPDFUsesRenderer(t *testing.T) {
	var rendered string
	svc := NewService(func(_ context.Context, html string) ([]byte, error) {
		rendered = html
		return []byte("%PDF-1.7"), nil
	}, &fakeArtifacts{fail: true}, zap.NewNop())

	res, err := svc.ExportLegal(context.Background(), content.LegalTerms, content.LegalPage{
		Title: "Terms", LastUpdated: "2024-01-01",
		Sections: []content.LegalSection{{ID: "s", Heading: "Use", Body: "Be kind."}},
	}, "Pooled", FormatPDF)
	if err != nil {
		t.Fatalf("ExportLegal() error = %v", err)
	}
	if res.MimeType != "application/pdf" || res.Filename != "terms.pdf" || res.URL != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(rendered, "Last updated 2024-01-01") {
		t.Fatal("renderer should receive the legal page HTML")
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewService(nil, nil, zap.NewNop())
	_, err := svc.ExportLegal(context.Background(), content.LegalPrivacy, content.LegalPage{Title: "P"}, "", Format("docx"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, ok := ParseFormat("docx"); ok {
		t.Fatal("docx is not a supported format")
	}
}
