// Package export renders blog posts and legal pages to standalone HTML or
// PDF and optionally uploads the result to object storage.
package export

import "errors"

type Kind string

const (
	KindBlog  Kind = "blog"
	KindLegal Kind = "legal"
)

type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

func ParseFormat(raw string) (Format, bool) {
	switch Format(raw) {
	case FormatHTML, FormatPDF:
		return Format(raw), true
	case "":
		return FormatHTML, true
	default:
		return "", false
	}
}

// Result contains the export output. URL is set when the artifact was
// uploaded.
type Result struct {
	Data     []byte `json:"-"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	URL      string `json:"url,omitempty"`
}

var (
	// ErrPDFDependencyMissing indicates no headless Chrome is installed.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	ErrUnsupportedFormat    = errors.New("unsupported export format")
)
