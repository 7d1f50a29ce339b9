package content

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNewBlockDefaults(t *testing.T) {
	heading, err := NewBlock(BlockHeading)
	require.NoError(t, err)
	require.Equal(t, 2, heading.(Heading).Level)
	require.NotEmpty(t, heading.Key())

	list, err := NewBlock(BlockList)
	require.NoError(t, err)
	require.Equal(t, []string{""}, list.(List).Items)
	require.False(t, list.(List).Ordered)

	_, err = NewBlock("video")
	require.ErrorIs(t, err, ErrUnknownBlockType)
}

func TestNewBlockIDsAreUnique(t *testing.T) {
	a, _ := NewBlock(BlockParagraph)
	b, _ := NewBlock(BlockParagraph)
	require.NotEqual(t, a.Key(), b.Key())
}

func TestValidateRules(t *testing.T) {
	require.NoError(t, Validate(Paragraph{}))
	require.NoError(t, Validate(Image{}))
	require.NoError(t, Validate(Image{URL: "/img/hero.png"}))

	var verr *ValidationError
	require.ErrorAs(t, Validate(Heading{Level: 4}), &verr)
	require.Equal(t, "level", verr.Field)

	require.ErrorAs(t, Validate(Image{URL: "javascript:alert(1)"}), &verr)
	require.Equal(t, "url", verr.Field)

	require.ErrorAs(t, Validate(List{Items: nil}), &verr)
	require.Equal(t, "items", verr.Field)
}

func TestRemoveLastListEntryLeavesBlank(t *testing.T) {
	list := List{Items: []string{"x"}}
	got := RemoveListEntry(list, 0)
	require.Equal(t, []string{""}, got.Items)
	require.Equal(t, []string{"x"}, list.Items, "input must not be mutated")
}

func TestRemoveListEntryMiddleAndOutOfRange(t *testing.T) {
	list := List{Items: []string{"a", "b", "c"}}
	require.Equal(t, []string{"a", "c"}, RemoveListEntry(list, 1).Items)
	require.Equal(t, []string{"a", "b", "c"}, RemoveListEntry(list, 7).Items)
	require.Equal(t, []string{"a", "b", "c", ""}, AddListEntry(list).Items)
}

func TestBlogPostBodyRoundTrip(t *testing.T) {
	scheduled := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	post := BlogPost{
		ID:          "post-1",
		Title:       "Sharing the ride",
		Slug:        "sharing-the-ride",
		Status:      StatusScheduled,
		ScheduledAt: &scheduled,
		Tags:        []string{"city"},
		Content: Blocks{
			Heading{Meta: Meta{ID: "h", Order: 0}, Content: "Why pool", Level: 2},
			List{Meta: Meta{ID: "l", Order: 1}, Ordered: true, Items: []string{"cheaper", "greener"}},
			Quote{Meta: Meta{ID: "q", Order: 2}, Content: "Fewer cars", Attribution: "A rider"},
		},
	}
	raw, err := json.Marshal(post)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"type":"heading"`)

	var decoded BlogPost
	require.NoError(t, json.Unmarshal(raw, &decoded))
	if diff := cmp.Diff(post, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, decoded.Validate())
}

func TestUnmarshalUnknownBlock(t *testing.T) {
	var blocks Blocks
	err := json.Unmarshal([]byte(`[{"type":"video","id":"v"}]`), &blocks)
	require.ErrorIs(t, err, ErrUnknownBlockType)
}

func TestPatchBlockKeepsIdentity(t *testing.T) {
	block := Heading{Meta: Meta{ID: "h1", Order: 3}, Content: "Old", Level: 2}
	patched, err := PatchBlock(block, json.RawMessage(`{"content":"New","id":"evil","type":"list","level":3}`))
	require.NoError(t, err)
	heading, ok := patched.(Heading)
	require.True(t, ok)
	require.Equal(t, "h1", heading.ID)
	require.Equal(t, 3, heading.Order)
	require.Equal(t, "New", heading.Content)
	require.Equal(t, 3, heading.Level)
}

func TestPatchShallowMerge(t *testing.T) {
	faq := FAQ{ID: "a", Question: "Q", Answer: "A", Visible: true, Order: 4}
	patched, err := Patch(faq, json.RawMessage(`{"answer":"Better","order":0}`))
	require.NoError(t, err)
	require.Equal(t, FAQ{ID: "a", Question: "Q", Answer: "Better", Visible: true, Order: 4}, patched)

	_, err = Patch(faq, json.RawMessage(`[1,2]`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestMergeWithDefaultsKeepsMissingFields(t *testing.T) {
	defaults := SafetyContent{
		SchemaVersion: SchemaVersion,
		Headline:      "Safety first",
		Intro:         "Every ride is tracked.",
		Sections:      []SafetySection{{ID: "s1", Title: "Verified drivers", Order: 0}},
	}
	merged, err := MergeWithDefaults(json.RawMessage(`{"headline":"Ride safe","sections":[{"id":"x","title":"Share trip","order":0}]}`), defaults)
	require.NoError(t, err)
	require.Equal(t, "Ride safe", merged.Headline)
	require.Equal(t, "Every ride is tracked.", merged.Intro)
	require.Equal(t, SchemaVersion, merged.SchemaVersion)
	require.Len(t, merged.Sections, 1)
	require.Equal(t, "x", merged.Sections[0].ID)
	require.Equal(t, "s1", defaults.Sections[0].ID, "defaults must not be mutated")

	empty, err := MergeWithDefaults(nil, defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, empty)
}

func TestDecodeEnvironment(t *testing.T) {
	env, err := DecodeEnvironment(json.RawMessage(`{"headline":"Greener","description":"Shared rides","co2SavedKg":120.5,"ridesShared":40,"treesEquivalent":3,"carsOffRoad":12}`))
	require.NoError(t, err)
	require.Equal(t, 40, env.RidesShared)
	require.Equal(t, SchemaVersion, env.SchemaVersion)

	var verr *ValidationError
	_, err = DecodeEnvironment(json.RawMessage(`{"description":"x","co2SavedKg":1,"ridesShared":1,"treesEquivalent":1,"carsOffRoad":1}`))
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "headline", verr.Field)

	_, err = DecodeEnvironment(json.RawMessage(`{"headline":"h","description":"d","co2SavedKg":"lots","ridesShared":1,"treesEquivalent":1,"carsOffRoad":1}`))
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "co2SavedKg", verr.Field)
}

func TestBlogPostValidate(t *testing.T) {
	post := BlogPost{Title: "Hello", Slug: "Hello World", Status: StatusDraft}
	var verr *ValidationError
	require.ErrorAs(t, post.Validate(), &verr)
	require.Equal(t, "slug", verr.Field)

	post.Slug = Slugify("Hello, World!")
	require.Equal(t, "hello-world", post.Slug)
	require.NoError(t, post.Validate())

	post.Status = StatusScheduled
	require.ErrorAs(t, post.Validate(), &verr)
	require.Equal(t, "scheduledAt", verr.Field)

	post.Status = StatusDraft
	post.Content = Blocks{Heading{Level: 5}}
	require.ErrorAs(t, post.Validate(), &verr)
	require.Equal(t, "content[0].level", verr.Field)
	require.False(t, errors.Is(post.Validate(), ErrUnknownBlockType))
}

func TestPlainText(t *testing.T) {
	text := PlainText([]Block{
		Paragraph{Content: "One"},
		List{Items: []string{"a", "b"}},
	})
	require.Equal(t, "One\na\nb", text)
}
