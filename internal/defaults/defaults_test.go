package defaults

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ridepool/cms/internal/collection"
	"ridepool/cms/internal/content"
)

func requireContiguous[T collection.Item[T]](t *testing.T, items []T) {
	t.Helper()
	seen := map[string]bool{}
	for i, item := range items {
		require.Equal(t, i, item.Position(), "item %s", item.Key())
		require.NotEmpty(t, item.Key())
		require.False(t, seen[item.Key()], "duplicate id %s", item.Key())
		seen[item.Key()] = true
	}
}

func TestCollectionsAreValidAndOrdered(t *testing.T) {
	for _, f := range FAQs() {
		require.NoError(t, f.Validate())
	}
	requireContiguous(t, FAQs())

	for _, f := range Features() {
		require.NoError(t, f.Validate())
	}
	requireContiguous(t, Features())

	for _, s := range HowItWorks() {
		require.NoError(t, s.Validate())
	}
	requireContiguous(t, HowItWorks())

	require.Empty(t, Instagram())

	posts := BlogPosts()
	requireContiguous(t, posts)
	for _, p := range posts {
		require.NoError(t, p.Validate())
	}
	require.Len(t, posts[0].Content, 3)
	require.IsType(t, content.List{}, posts[0].Content[2])
	require.NotNil(t, posts[0].PublishedAt)
}

func TestSingletonsAreValid(t *testing.T) {
	require.NoError(t, Settings().Validate())
	require.NoError(t, Images().Validate())
	require.NoError(t, Safety().Validate())
	for _, lt := range content.LegalTypes {
		page := Legal(lt)
		require.NoError(t, page.Validate(), string(lt))
		require.Equal(t, content.SchemaVersion, page.SchemaVersion)
	}
	env := Environment()
	require.NotEmpty(t, env.Headline)
	require.Equal(t, content.SchemaVersion, env.SchemaVersion)
}

func TestEachCallReturnsAFreshCopy(t *testing.T) {
	first := FAQs()
	first[0].Question = "changed"
	require.NotEqual(t, "changed", FAQs()[0].Question)
}

func TestDecodeUnknownFile(t *testing.T) {
	var out []content.FAQ
	require.Error(t, Decode("nope", &out))
}
