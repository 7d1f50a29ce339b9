// Package content holds the marketing site's content model: the blog body
// blocks, the ordered records behind the admin lists and the singleton
// configuration documents.
package content

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"ridepool/cms/internal/util"
)

type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockHeading   BlockType = "heading"
	BlockImage     BlockType = "image"
	BlockQuote     BlockType = "quote"
	BlockList      BlockType = "list"
)

// BlockTypes lists every block variant in editor menu order.
var BlockTypes = []BlockType{BlockParagraph, BlockHeading, BlockImage, BlockQuote, BlockList}

var ErrUnknownBlockType = errors.New("unknown block type")

// Block is one entry of a blog post body. The set of implementations is
// closed: Paragraph, Heading, Image, Quote and List.
type Block interface {
	Key() string
	Position() int
	WithPosition(order int) Block
	Type() BlockType
	isBlock()
}

// Meta carries the identity and position shared by every block.
type Meta struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

func (m Meta) Key() string   { return m.ID }
func (m Meta) Position() int { return m.Order }

type Paragraph struct {
	Meta
	Content string `json:"content"`
}

type Heading struct {
	Meta
	Content string `json:"content"`
	Level   int    `json:"level"`
}

type Image struct {
	Meta
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption,omitempty"`
}

type Quote struct {
	Meta
	Content     string `json:"content"`
	Attribution string `json:"attribution,omitempty"`
}

type List struct {
	Meta
	Ordered bool     `json:"ordered"`
	Items   []string `json:"items"`
}

func (Paragraph) Type() BlockType { return BlockParagraph }
func (Heading) Type() BlockType   { return BlockHeading }
func (Image) Type() BlockType     { return BlockImage }
func (Quote) Type() BlockType     { return BlockQuote }
func (List) Type() BlockType      { return BlockList }

func (b Paragraph) WithPosition(order int) Block { b.Order = order; return b }
func (b Heading) WithPosition(order int) Block   { b.Order = order; return b }
func (b Image) WithPosition(order int) Block     { b.Order = order; return b }
func (b Quote) WithPosition(order int) Block     { b.Order = order; return b }
func (b List) WithPosition(order int) Block      { b.Order = order; return b }

func (Paragraph) isBlock() {}
func (Heading) isBlock()   {}
func (Image) isBlock()     {}
func (Quote) isBlock()     {}
func (List) isBlock()      {}

// NewBlock returns an empty block of the given type with a fresh id. The
// owning collection assigns its order on append.
func NewBlock(blockType BlockType) (Block, error) {
	meta := Meta{ID: util.NewID("blk")}
	switch blockType {
	case BlockParagraph:
		return Paragraph{Meta: meta}, nil
	case BlockHeading:
		return Heading{Meta: meta, Level: 2}, nil
	case BlockImage:
		return Image{Meta: meta}, nil
	case BlockQuote:
		return Quote{Meta: meta}, nil
	case BlockList:
		return List{Meta: meta, Items: []string{""}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, blockType)
	}
}

// Validate applies the per-variant rules. Empty text is allowed everywhere so
// a freshly inserted block can be saved before the editor fills it in.
func Validate(block Block) error {
	switch b := block.(type) {
	case Paragraph, Quote:
		return nil
	case Heading:
		if b.Level != 2 && b.Level != 3 {
			return invalid("level", "heading level must be 2 or 3")
		}
		return nil
	case Image:
		if b.URL != "" && !validImageURL(b.URL) {
			return invalid("url", "image url must be absolute http(s) or site-relative")
		}
		return nil
	case List:
		if len(b.Items) == 0 {
			return invalid("items", "list must keep at least one entry")
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownBlockType, block)
	}
}

// AddListEntry appends an empty entry to the list.
func AddListEntry(list List) List {
	items := make([]string, 0, len(list.Items)+1)
	items = append(items, list.Items...)
	list.Items = append(items, "")
	return list
}

// RemoveListEntry drops the entry at index. A list never becomes empty:
// removing the last entry leaves a single blank one.
func RemoveListEntry(list List, index int) List {
	if index < 0 || index >= len(list.Items) {
		return list
	}
	items := make([]string, 0, len(list.Items))
	items = append(items, list.Items[:index]...)
	items = append(items, list.Items[index+1:]...)
	if len(items) == 0 {
		items = []string{""}
	}
	list.Items = items
	return list
}

// PlainText flattens blocks into searchable text, one block per line.
func PlainText(blocks []Block) string {
	lines := make([]string, 0, len(blocks))
	for _, block := range blocks {
		switch b := block.(type) {
		case Paragraph:
			lines = append(lines, b.Content)
		case Heading:
			lines = append(lines, b.Content)
		case Image:
			lines = append(lines, strings.TrimSpace(b.Alt+" "+b.Caption))
		case Quote:
			lines = append(lines, strings.TrimSpace(b.Content+" "+b.Attribution))
		case List:
			lines = append(lines, strings.Join(b.Items, "\n"))
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func validImageURL(raw string) bool {
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return true
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
