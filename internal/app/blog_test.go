package app

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ridepool/cms/internal/content"
	"ridepool/cms/internal/rbac"
)

type postBody struct {
	ID      string           `json:"id"`
	Status  string           `json:"status"`
	Content []map[string]any `json:"content"`
}

func blockIDs(post postBody) []string {
	ids := make([]string, 0, len(post.Content))
	for _, block := range post.Content {
		ids = append(ids, block["id"].(string))
	}
	return ids
}

func TestAddAndEditBlocks(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)
	e.seed(CollectionBlogs)

	rr := e.do(http.MethodPost, "/api/blog/post-welcome/blocks", editor.Token, `{"type":"quote"}`)
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	post := decodeJSON[postBody](t, rr)
	require.Len(t, post.Content, 4)
	added := post.Content[3]
	require.Equal(t, "quote", added["type"])
	require.EqualValues(t, 3, added["order"])
	quoteID := added["id"].(string)

	rr = e.do(http.MethodPut, "/api/blog/post-welcome/blocks/"+quoteID, editor.Token, `{"content":"Share the ride.","type":"image","id":"other"}`)
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	post = decodeJSON[postBody](t, rr)
	edited := post.Content[3]
	require.Equal(t, quoteID, edited["id"])
	require.Equal(t, "quote", edited["type"], "a patch cannot change the block type")
	require.Equal(t, "Share the ride.", edited["content"])

	rr = e.do(http.MethodPut, "/api/blog/post-welcome/blocks/blk-welcome-2", editor.Token, `{"level":5}`)
	requireError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")

	rr = e.do(http.MethodPost, "/api/blog/post-welcome/blocks", editor.Token, `{"type":"video"}`)
	requireError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestRemoveMoveAndReorderBlocks(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)
	e.seed(CollectionBlogs)

	rr := e.do(http.MethodPost, "/api/blog/post-welcome/blocks/blk-welcome-1/move", editor.Token, `{"direction":"down"}`)
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	require.Equal(t, []string{"blk-welcome-2", "blk-welcome-1", "blk-welcome-3"}, blockIDs(decodeJSON[postBody](t, rr)))

	rr = e.do(http.MethodPost, "/api/blog/post-welcome/blocks/reorder", editor.Token, `{"ids":["blk-welcome-3"]}`)
	requireError(t, rr, http.StatusBadRequest, "INVALID_ORDER")

	rr = e.do(http.MethodPost, "/api/blog/post-welcome/blocks/reorder", editor.Token, `{"ids":["blk-welcome-3","blk-welcome-1","blk-welcome-2"]}`)
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	require.Equal(t, []string{"blk-welcome-3", "blk-welcome-1", "blk-welcome-2"}, blockIDs(decodeJSON[postBody](t, rr)))

	rr = e.do(http.MethodDelete, "/api/blog/post-welcome/blocks/blk-welcome-1", editor.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	post := decodeJSON[postBody](t, rr)
	require.Equal(t, []string{"blk-welcome-3", "blk-welcome-2"}, blockIDs(post))
	for i, block := range post.Content {
		require.EqualValues(t, i, block["order"])
	}

	rr = e.do(http.MethodDelete, "/api/blog/post-welcome/blocks/blk-welcome-1", editor.Token, "")
	requireError(t, rr, http.StatusNotFound, "NOT_FOUND")

	rr = e.do(http.MethodPost, "/api/blog/post-missing/blocks", editor.Token, `{"type":"paragraph"}`)
	requireError(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestRemoveListEntry(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)
	e.seed(CollectionBlogs)

	rr := e.do(http.MethodDelete, "/api/blog/post-welcome/blocks/blk-welcome-3/items/0", editor.Token, "")
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	list := decodeJSON[postBody](t, rr).Content[2]
	require.Equal(t, []any{"Fewer cars on the road", "The same door-to-door trip"}, list["items"])

	for range 2 {
		rr = e.do(http.MethodDelete, "/api/blog/post-welcome/blocks/blk-welcome-3/items/0", editor.Token, "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	list = decodeJSON[postBody](t, rr).Content[2]
	require.Equal(t, []any{""}, list["items"], "a list keeps one blank entry")

	rr = e.do(http.MethodDelete, "/api/blog/post-welcome/blocks/blk-welcome-1/items/0", editor.Token, "")
	payload := requireError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
	require.Equal(t, "Block is not a list", payload["error"])

	rr = e.do(http.MethodDelete, "/api/blog/post-welcome/blocks/blk-welcome-3/items/first", editor.Token, "")
	requireError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestBlockEditsRequireWriteRole(t *testing.T) {
	e := newTestEnv(t)
	viewer := e.signIn(rbac.RoleViewer)
	e.seed(CollectionBlogs)

	rr := e.do(http.MethodPost, "/api/blog/post-welcome/blocks", viewer.Token, `{"type":"paragraph"}`)
	requireError(t, rr, http.StatusForbidden, "FORBIDDEN")

	rr = e.do(http.MethodPost, "/api/blog/publish-due", viewer.Token, "")
	requireError(t, rr, http.StatusForbidden, "FORBIDDEN")
}

func createPost(t *testing.T, e *testEnv, slug string, status content.PostStatus, scheduledAt *time.Time) string {
	t.Helper()
	post := content.BlogPost{Title: "Post " + slug, Slug: slug, Status: status, ScheduledAt: scheduledAt}
	raw, err := json.Marshal(post)
	require.NoError(t, err)
	blogs, err := e.svc.Collection(CollectionBlogs)
	require.NoError(t, err)
	created, err := blogs.Create(context.Background(), raw, "test")
	require.NoError(t, err)
	return created.(content.BlogPost).ID
}

func TestPublishDue(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)
	e.seed(CollectionBlogs)
	ctx := context.Background()

	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(24 * time.Hour)
	dueID := createPost(t, e, "night-rides", content.StatusScheduled, &past)
	createPost(t, e, "winter-routes", content.StatusScheduled, &future)
	createPost(t, e, "draft-notes", content.StatusDraft, nil)

	published, err := e.svc.PublishDue(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, published)

	for _, post := range e.svc.blogs.Live(ctx) {
		switch post.ID {
		case dueID:
			require.Equal(t, content.StatusPublished, post.Status)
			require.NotNil(t, post.PublishedAt)
			require.True(t, post.PublishedAt.Equal(now))
		case "post-welcome":
			require.Equal(t, content.StatusPublished, post.Status)
		default:
			require.NotEqual(t, content.StatusPublished, post.Status, post.Slug)
		}
	}

	published, err = e.svc.PublishDue(ctx, now)
	require.NoError(t, err)
	require.Zero(t, published)

	rr := e.do(http.MethodPost, "/api/blog/publish-due", editor.Token, "")
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	require.EqualValues(t, 0, decodeJSON[map[string]any](t, rr)["published"])
}

func TestRunPublisherStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e := newTestEnv(t)
	e.seed(CollectionBlogs)
	past := time.Now().Add(-time.Minute)
	dueID := createPost(t, e, "morning-rides", content.StatusScheduled, &past)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.svc.RunPublisher(ctx, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		for _, post := range e.svc.blogs.Live(context.Background()) {
			if post.ID == dueID {
				return post.Status == content.StatusPublished
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher did not stop after cancel")
	}
}

func TestRunPublisherDisabledWithoutInterval(t *testing.T) {
	e := newTestEnv(t)
	finished := make(chan struct{})
	go func() {
		e.svc.RunPublisher(context.Background(), 0)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("publisher with zero interval should return immediately")
	}
}

func TestPublishDueRenumbersStoredPosts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	posts := []content.BlogPost{
		{ID: "post-a", Title: "A", Slug: "post-a", Status: content.StatusPublished, Order: 2},
		{ID: "post-b", Title: "B", Slug: "post-b", Status: content.StatusScheduled, ScheduledAt: &past, Order: 5},
	}
	for _, post := range posts {
		data, err := json.Marshal(post)
		require.NoError(t, err)
		require.NoError(t, e.store.PutDocument(ctx, e.svc.dataPath(CollectionBlogs), post.ID, data))
	}

	published, err := e.svc.PublishDue(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 1, published)

	stored, err := e.svc.blogs.sync.Stored(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for i, post := range stored {
		require.Equal(t, i, post.Order, "stored order of %s", post.ID)
	}
	require.Equal(t, content.StatusPublished, stored[1].Status)
}
