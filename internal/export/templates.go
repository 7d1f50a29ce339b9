package export

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"strings"

	"ridepool/cms/internal/content"
)

//go:embed templates/*.html
var templateFS embed.FS

var documentTemplate = template.Must(template.ParseFS(templateFS, "templates/document.html"))

// TemplateData holds data for document template rendering
type TemplateData struct {
	Title    string
	Subtitle string
	Meta     string
	SiteName string
	Body     template.HTML
	Sections []TemplateSection
}

type TemplateSection struct {
	Heading string
	Body    string
}

func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.ExecuteTemplate(&buf, "document.html", data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

// BlocksToHTML renders post blocks in order. Every text value is escaped.
func BlocksToHTML(blocks []content.Block) (template.HTML, error) {
	var b strings.Builder
	for _, block := range blocks {
		switch v := block.(type) {
		case content.Paragraph:
			fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(v.Content))
		case content.Heading:
			level := v.Level
			if level != 3 {
				level = 2
			}
			fmt.Fprintf(&b, "<h%d>%s</h%d>\n", level, html.EscapeString(v.Content), level)
		case content.Image:
			if v.URL == "" {
				continue
			}
			fmt.Fprintf(&b, `<figure><img src="%s" alt="%s">`, html.EscapeString(v.URL), html.EscapeString(v.Alt))
			if v.Caption != "" {
				fmt.Fprintf(&b, "<figcaption>%s</figcaption>", html.EscapeString(v.Caption))
			}
			b.WriteString("</figure>\n")
		case content.Quote:
			fmt.Fprintf(&b, "<blockquote><p>%s</p>", html.EscapeString(v.Content))
			if v.Attribution != "" {
				fmt.Fprintf(&b, "<footer>%s</footer>", html.EscapeString(v.Attribution))
			}
			b.WriteString("</blockquote>\n")
		case content.List:
			tag := "ul"
			if v.Ordered {
				tag = "ol"
			}
			fmt.Fprintf(&b, "<%s>", tag)
			for _, item := range v.Items {
				if strings.TrimSpace(item) == "" {
					continue
				}
				fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(item))
			}
			fmt.Fprintf(&b, "</%s>\n", tag)
		default:
			return "", fmt.Errorf("%w: %T", content.ErrUnknownBlockType, block)
		}
	}
	return template.HTML(b.String()), nil
}
