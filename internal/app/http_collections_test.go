package app

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ridepool/cms/internal/persist"
	"ridepool/cms/internal/rbac"
)

var defaultFAQIDs = []string{"faq-what-is-pooling", "faq-how-much", "faq-detour", "faq-safety", "faq-drive"}

func storedIDs(t *testing.T, e *testEnv, name string) []string {
	t.Helper()
	coll, err := e.svc.Collection(name)
	require.NoError(t, err)
	view := coll.View(context.Background())
	require.Equal(t, persist.SourceStore, view.Source)
	docs, err := e.store.ListDocuments(context.Background(), e.svc.dataPath(name))
	require.NoError(t, err)
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	slices.Sort(ids)
	return ids
}

func TestCollectionListFallsBackToDefaults(t *testing.T) {
	e := newTestEnv(t)
	viewer := e.signIn(rbac.RoleViewer)

	rr := e.do(http.MethodGet, "/api/collections/faq", viewer.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	view := decodeJSON[map[string]any](t, rr)
	require.Equal(t, "defaults", view["source"])
	require.Equal(t, defaultFAQIDs, itemIDs(t, rr))

	e.store.failDocs.Store(true)
	rr = e.do(http.MethodGet, "/api/collections/faq", viewer.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	view = decodeJSON[map[string]any](t, rr)
	require.Equal(t, "defaults", view["source"])
	require.Equal(t, "Failed to load faq", view["warning"])
}

func TestUnknownCollection(t *testing.T) {
	e := newTestEnv(t)
	viewer := e.signIn(rbac.RoleViewer)
	rr := e.do(http.MethodGet, "/api/collections/testimonials", viewer.Token, "")
	requireError(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestSeedRequiresAdminAndEmptyCollection(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)
	admin := e.signIn(rbac.RoleAdmin)

	rr := e.do(http.MethodPost, "/api/collections/faq/seed", editor.Token, "")
	requireError(t, rr, http.StatusForbidden, "FORBIDDEN")

	rr = e.do(http.MethodPost, "/api/collections/faq/seed", admin.Token, "")
	require.Equal(t, http.StatusCreated, rr.Code, "body=%s", rr.Body.String())
	require.EqualValues(t, len(defaultFAQIDs), decodeJSON[map[string]any](t, rr)["created"])

	rr = e.do(http.MethodPost, "/api/collections/faq/seed", admin.Token, "")
	requireError(t, rr, http.StatusConflict, "NOT_EMPTY")
}

func TestViewerCannotWriteCollections(t *testing.T) {
	e := newTestEnv(t)
	viewer := e.signIn(rbac.RoleViewer)
	rr := e.do(http.MethodPost, "/api/collections/faq/items", viewer.Token, `{"question":"Q?","answer":"A"}`)
	requireError(t, rr, http.StatusForbidden, "FORBIDDEN")
}

func TestCreateUpdateDeleteItem(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)

	rr := e.do(http.MethodPost, "/api/collections/faq/items", editor.Token, `{"question":"Can I bring luggage?","answer":"One bag each.","visible":true}`)
	require.Equal(t, http.StatusCreated, rr.Code, "body=%s", rr.Body.String())
	created := decodeJSON[map[string]any](t, rr)
	id, _ := created["id"].(string)
	require.True(t, strings.HasPrefix(id, "faq"), "generated id %q", id)
	require.EqualValues(t, 0, created["order"])

	rr = e.do(http.MethodPut, "/api/collections/faq/items/"+id, editor.Token, `{"answer":"Two small bags each.","id":"hijack"}`)
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	updated := decodeJSON[map[string]any](t, rr)
	require.Equal(t, id, updated["id"])
	require.Equal(t, "Two small bags each.", updated["answer"])
	require.Equal(t, "Can I bring luggage?", updated["question"])

	rr = e.do(http.MethodPut, "/api/collections/faq/items/"+id, editor.Token, `{"answer":""}`)
	payload := requireError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
	require.Equal(t, "answer", payload["details"].(map[string]any)["field"])

	rr = e.do(http.MethodPost, "/api/collections/faq/items", editor.Token, `{"id":"`+id+`","question":"Dup?","answer":"Dup."}`)
	requireError(t, rr, http.StatusConflict, "DUPLICATE_ID")

	rr = e.do(http.MethodDelete, "/api/collections/faq/items/"+id, editor.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "defaults", decodeJSON[map[string]any](t, rr)["source"], "an emptied collection lists the defaults again")

	rr = e.do(http.MethodDelete, "/api/collections/faq/items/"+id, editor.Token, "")
	requireError(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestDeleteRenumbersRemainingItems(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)
	e.seed(CollectionFAQ)

	rr := e.do(http.MethodDelete, "/api/collections/faq/items/faq-how-much", editor.Token, "")
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	require.Equal(t, []string{"faq-what-is-pooling", "faq-detour", "faq-safety", "faq-drive"}, itemIDs(t, rr))
}

func TestReorderCollection(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)
	e.seed(CollectionFAQ)

	rr := e.do(http.MethodPost, "/api/collections/faq/reorder", editor.Token, `{"ids":["faq-drive","faq-detour"]}`)
	requireError(t, rr, http.StatusBadRequest, "INVALID_ORDER")

	rr = e.do(http.MethodPost, "/api/collections/faq/reorder", editor.Token, `{"ids":["faq-drive","faq-drive","faq-detour","faq-safety","faq-how-much"]}`)
	requireError(t, rr, http.StatusBadRequest, "INVALID_ORDER")

	reversed := slices.Clone(defaultFAQIDs)
	slices.Reverse(reversed)
	rr = e.do(http.MethodPost, "/api/collections/faq/reorder", editor.Token, `{"ids":["`+strings.Join(reversed, `","`)+`"]}`)
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	require.Equal(t, reversed, itemIDs(t, rr))

	rr = e.do(http.MethodGet, "/api/collections/faq", editor.Token, "")
	require.Equal(t, reversed, itemIDs(t, rr))
}

func TestMoveAndDropItems(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)
	e.seed(CollectionFAQ)

	rr := e.do(http.MethodPost, "/api/collections/faq/items/faq-what-is-pooling/move", editor.Token, `{"direction":"up"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, defaultFAQIDs, itemIDs(t, rr), "moving the first item up changes nothing")

	rr = e.do(http.MethodPost, "/api/collections/faq/items/faq-what-is-pooling/move", editor.Token, `{"direction":"down"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{"faq-how-much", "faq-what-is-pooling", "faq-detour", "faq-safety", "faq-drive"}, itemIDs(t, rr))

	rr = e.do(http.MethodPost, "/api/collections/faq/items/faq-drive/drop", editor.Token, `{"targetId":"faq-how-much","placement":"before"}`)
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	require.Equal(t, []string{"faq-drive", "faq-how-much", "faq-what-is-pooling", "faq-detour", "faq-safety"}, itemIDs(t, rr))

	rr = e.do(http.MethodPost, "/api/collections/faq/items/faq-drive/drop", editor.Token, `{"targetId":"faq-drive","placement":"after"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []string{"faq-drive", "faq-how-much", "faq-what-is-pooling", "faq-detour", "faq-safety"}, itemIDs(t, rr))

	rr = e.do(http.MethodPost, "/api/collections/faq/items/faq-missing/move", editor.Token, `{"direction":"down"}`)
	requireError(t, rr, http.StatusNotFound, "NOT_FOUND")

	rr = e.do(http.MethodPost, "/api/collections/faq/items/faq-drive/move", editor.Token, `{"direction":"sideways"}`)
	requireError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")

	rr = e.do(http.MethodPost, "/api/collections/faq/items/faq-drive/drop", editor.Token, `{"targetId":"faq-detour","placement":"inside"}`)
	requireError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestReplaceAllDeletesStaleItems(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)
	e.seed(CollectionFAQ)

	body := `[
		{"id":"faq-safety","question":"Is it safe?","answer":"Yes.","visible":true,"order":9},
		{"question":"New one?","answer":"Indeed.","visible":false,"order":3}
	]`
	rr := e.do(http.MethodPut, "/api/collections/faq", editor.Token, body)
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	ids := itemIDs(t, rr)
	require.Len(t, ids, 2)
	require.Equal(t, "faq-safety", ids[0])

	require.NotEqual(t, "faq-safety", ids[1])
	require.ElementsMatch(t, ids, storedIDs(t, e, CollectionFAQ))

	rr = e.do(http.MethodPut, "/api/collections/faq", editor.Token, `[{"id":"a","question":"","answer":"x"}]`)
	payload := requireError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
	require.Equal(t, "[0].question", payload["details"].(map[string]any)["field"])

	rr = e.do(http.MethodPut, "/api/collections/faq", editor.Token, `{"not":"an array"}`)
	requireError(t, rr, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestCollectionSaveFailureReportsSaveFailed(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)
	e.seed(CollectionFAQ)
	e.store.failDocs.Store(true)

	rr := e.do(http.MethodPost, "/api/collections/faq/items", editor.Token, `{"question":"Q?","answer":"A."}`)
	payload := requireError(t, rr, http.StatusInternalServerError, "SAVE_FAILED")
	require.Equal(t, "Failed to save faq", payload["error"])
}

func TestCollectionHistoryAndRestore(t *testing.T) {
	e := newTestEnv(t)
	editor := e.signIn(rbac.RoleEditor)
	admin := e.signIn(rbac.RoleAdmin)
	e.seed(CollectionFAQ)

	rr := e.do(http.MethodDelete, "/api/collections/faq/items/faq-drive", editor.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = e.do(http.MethodGet, "/api/collections/faq/history", editor.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	listing := decodeJSON[struct {
		Revisions []struct {
			Hash    string `json:"hash"`
			Message string `json:"message"`
			Author  string `json:"author"`
		} `json:"revisions"`
	}](t, rr)
	require.Len(t, listing.Revisions, 2)
	require.Equal(t, "remove faq-drive", listing.Revisions[0].Message)
	require.Equal(t, "Test editor", listing.Revisions[0].Author)
	require.Equal(t, "seed defaults", listing.Revisions[1].Message)
	seeded := listing.Revisions[1].Hash

	rr = e.do(http.MethodGet, "/api/collections/faq/history/"+seeded, editor.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, defaultFAQIDs, itemIDs(t, rr))

	rr = e.do(http.MethodPost, "/api/collections/faq/history/"+seeded+"/restore", editor.Token, "")
	requireError(t, rr, http.StatusForbidden, "FORBIDDEN")

	rr = e.do(http.MethodPost, "/api/collections/faq/history/"+seeded+"/restore", admin.Token, "")
	require.Equal(t, http.StatusOK, rr.Code, "body=%s", rr.Body.String())
	require.Equal(t, defaultFAQIDs, itemIDs(t, rr))

	rr = e.do(http.MethodGet, "/api/collections/faq/history/0000000", editor.Token, "")
	requireError(t, rr, http.StatusNotFound, "NOT_FOUND")
}
