package content

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Blocks is a post body. It encodes each block with a "type" discriminator.
type Blocks []Block

func (b Blocks) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	encoded := make([]json.RawMessage, 0, len(b))
	for i, block := range b {
		raw, err := MarshalBlock(block)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		encoded = append(encoded, raw)
	}
	return json.Marshal(encoded)
}

func (b *Blocks) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = Blocks{}
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Blocks, 0, len(raws))
	for i, raw := range raws {
		block, err := UnmarshalBlock(raw)
		if err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		out = append(out, block)
	}
	*b = out
	return nil
}

func MarshalBlock(block Block) (json.RawMessage, error) {
	switch b := block.(type) {
	case Paragraph:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			Paragraph
		}{BlockParagraph, b})
	case Heading:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			Heading
		}{BlockHeading, b})
	case Image:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			Image
		}{BlockImage, b})
	case Quote:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			Quote
		}{BlockQuote, b})
	case List:
		return json.Marshal(struct {
			Type BlockType `json:"type"`
			List
		}{BlockList, b})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownBlockType, block)
	}
}

func UnmarshalBlock(raw json.RawMessage) (Block, error) {
	var head struct {
		Type BlockType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	switch head.Type {
	case BlockParagraph:
		var b Paragraph
		err := json.Unmarshal(raw, &b)
		return b, err
	case BlockHeading:
		var b Heading
		err := json.Unmarshal(raw, &b)
		return b, err
	case BlockImage:
		var b Image
		err := json.Unmarshal(raw, &b)
		return b, err
	case BlockQuote:
		var b Quote
		err := json.Unmarshal(raw, &b)
		return b, err
	case BlockList:
		var b List
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		if len(b.Items) == 0 {
			b.Items = []string{""}
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockType, head.Type)
	}
}

// PatchBlock shallow-merges the keys of patch over the block's fields. The
// block's id, order and type cannot be changed through a patch.
func PatchBlock(block Block, patch json.RawMessage) (Block, error) {
	raw, err := MarshalBlock(block)
	if err != nil {
		return nil, err
	}
	merged, err := mergeObjects(raw, patch, "id", "order", "type")
	if err != nil {
		return nil, err
	}
	return UnmarshalBlock(merged)
}

// Patch shallow-merges the keys of patch over item. Top-level keys present in
// patch replace the item's value wholesale; id and order are protected.
func Patch[T any](item T, patch json.RawMessage) (T, error) {
	var zero T
	raw, err := json.Marshal(item)
	if err != nil {
		return zero, fmt.Errorf("encode item: %w", err)
	}
	merged, err := mergeObjects(raw, patch, "id", "order")
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return zero, fmt.Errorf("decode patched item: %w", err)
	}
	return out, nil
}

func mergeObjects(base, patch json.RawMessage, protected ...string) (json.RawMessage, error) {
	var target map[string]json.RawMessage
	if err := json.Unmarshal(base, &target); err != nil {
		return nil, fmt.Errorf("decode base: %w", err)
	}
	var changes map[string]json.RawMessage
	if err := json.Unmarshal(patch, &changes); err != nil {
		return nil, invalid("body", "patch must be a JSON object")
	}
	for _, key := range protected {
		delete(changes, key)
	}
	for key, value := range changes {
		target[key] = value
	}
	return json.Marshal(target)
}
