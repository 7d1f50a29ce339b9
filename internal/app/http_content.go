package app

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ridepool/cms/internal/collection"
	"ridepool/cms/internal/content"
	"ridepool/cms/internal/export"
	"ridepool/cms/internal/rbac"
	"ridepool/cms/internal/search"
)

// handleContentRead serves the singleton documents. The environment document
// reports a store outage as 500; the others fall back to their defaults.
func (s *HTTPServer) handleContentRead(w http.ResponseWriter, r *http.Request, parts []string) {
	ctx := r.Context()
	var (
		doc  any
		err  error
		name string
	)
	switch {
	case len(parts) == 1 && parts[0] == "environment":
		env, loadErr := s.service.Environment(ctx)
		if loadErr != nil {
			s.log.Error("load environment", zap.String("request_id", requestID(ctx)), zap.Error(loadErr))
			writeError(w, http.StatusInternalServerError, "LOAD_FAILED", "Failed to load environment", nil)
			return
		}
		writeJSON(w, http.StatusOK, env)
		return
	case len(parts) == 1 && parts[0] == "settings":
		doc, err = s.service.Settings(ctx)
		name = "settings"
	case len(parts) == 1 && parts[0] == "images":
		doc, err = s.service.Images(ctx)
		name = "images"
	case len(parts) == 1 && parts[0] == "safety":
		doc, err = s.service.Safety(ctx)
		name = "safety"
	case len(parts) == 2 && parts[0] == "legal":
		legalType, ok := content.ParseLegalType(parts[1])
		if !ok {
			s.writeServiceError(w, r, errUnknownLegalType)
			return
		}
		doc, err = s.service.Legal(ctx, legalType)
		name = string(legalType)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if err != nil {
		writeWarning(w, "Failed to load "+name)
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *HTTPServer) handleContentWrite(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	raw, err := readRaw(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	ctx := r.Context()
	actor := session.UserName
	var (
		doc  any
		name string
	)
	switch {
	case len(parts) == 1 && parts[0] == "environment":
		doc, err = s.service.SaveEnvironment(ctx, raw, actor)
		name = "environment"
	case len(parts) == 1 && parts[0] == "settings":
		doc, err = s.service.SaveSettings(ctx, raw, actor)
		name = "settings"
	case len(parts) == 1 && parts[0] == "images":
		doc, err = s.service.SaveImages(ctx, raw, actor)
		name = "images"
	case len(parts) == 1 && parts[0] == "safety":
		doc, err = s.service.SaveSafety(ctx, raw, actor)
		name = "safety"
	case len(parts) == 2 && parts[0] == "legal":
		legalType, ok := content.ParseLegalType(parts[1])
		if !ok {
			s.writeServiceError(w, r, errUnknownLegalType)
			return
		}
		doc, err = s.service.SaveLegal(ctx, legalType, raw, actor)
		name = string(legalType)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if err != nil {
		s.writeSaveError(w, r, err, name)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *HTTPServer) handleCollections(w http.ResponseWriter, r *http.Request, session Session, name string, parts []string) {
	coll, err := s.service.Collection(name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ctx := r.Context()
	actor := session.UserName

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		if !s.authorize(w, session, rbac.ActionRead) {
			return
		}
		writeJSON(w, http.StatusOK, coll.View(ctx))

	case len(parts) == 0 && r.Method == http.MethodPut:
		if !s.authorize(w, session, rbac.ActionWrite) {
			return
		}
		raw, err := readRaw(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		view, err := coll.ReplaceAll(ctx, raw, actor)
		if err != nil {
			s.writeSaveError(w, r, err, name)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case len(parts) == 1 && parts[0] == "items" && r.Method == http.MethodPost:
		if !s.authorize(w, session, rbac.ActionWrite) {
			return
		}
		raw, err := readRaw(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := coll.Create(ctx, raw, actor)
		if err != nil {
			s.writeSaveError(w, r, err, name)
			return
		}
		writeJSON(w, http.StatusCreated, item)

	case len(parts) == 2 && parts[0] == "items" && r.Method == http.MethodPut:
		if !s.authorize(w, session, rbac.ActionWrite) {
			return
		}
		raw, err := readRaw(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := coll.Update(ctx, parts[1], raw, actor)
		if err != nil {
			s.writeSaveError(w, r, err, name)
			return
		}
		writeJSON(w, http.StatusOK, item)

	case len(parts) == 2 && parts[0] == "items" && r.Method == http.MethodDelete:
		if !s.authorize(w, session, rbac.ActionWrite) {
			return
		}
		if err := coll.Delete(ctx, parts[1], actor); err != nil {
			s.writeSaveError(w, r, err, name)
			return
		}
		writeJSON(w, http.StatusOK, coll.View(ctx))

	case len(parts) == 1 && parts[0] == "reorder" && r.Method == http.MethodPost:
		if !s.authorize(w, session, rbac.ActionWrite) {
			return
		}
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		view, err := coll.Reorder(ctx, body.IDs, actor)
		if err != nil {
			s.writeSaveError(w, r, err, name)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case len(parts) == 3 && parts[0] == "items" && parts[2] == "move" && r.Method == http.MethodPost:
		if !s.authorize(w, session, rbac.ActionWrite) {
			return
		}
		var body struct {
			Direction string `json:"direction"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		dir, ok := collection.ParseDirection(body.Direction)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "direction must be up or down", nil)
			return
		}
		view, err := coll.Move(ctx, parts[1], dir, actor)
		if err != nil {
			s.writeSaveError(w, r, err, name)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case len(parts) == 3 && parts[0] == "items" && parts[2] == "drop" && r.Method == http.MethodPost:
		if !s.authorize(w, session, rbac.ActionWrite) {
			return
		}
		var body struct {
			TargetID  string `json:"targetId"`
			Placement string `json:"placement"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		placement, ok := collection.ParsePlacement(body.Placement)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "placement must be before or after", nil)
			return
		}
		view, err := coll.Drop(ctx, parts[1], body.TargetID, placement, actor)
		if err != nil {
			s.writeSaveError(w, r, err, name)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case len(parts) == 1 && parts[0] == "seed" && r.Method == http.MethodPost:
		if !s.authorize(w, session, rbac.ActionAdmin) {
			return
		}
		created, err := coll.Seed(ctx, actor)
		if err != nil {
			s.writeSaveError(w, r, err, name)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"created": created, "collection": coll.View(ctx)})

	case len(parts) == 1 && parts[0] == "history" && r.Method == http.MethodGet:
		if !s.authorize(w, session, rbac.ActionRead) {
			return
		}
		limit, err := queryInt(r, "limit", 50)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		revisions, err := coll.History(limit)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"revisions": revisions})

	case len(parts) == 2 && parts[0] == "history" && r.Method == http.MethodGet:
		if !s.authorize(w, session, rbac.ActionRead) {
			return
		}
		snapshot, rev, err := coll.Revision(parts[1])
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"revision": rev, "items": snapshot})

	case len(parts) == 3 && parts[0] == "history" && parts[2] == "restore" && r.Method == http.MethodPost:
		if !s.authorize(w, session, rbac.ActionAdmin) {
			return
		}
		view, err := coll.Restore(ctx, parts[1], actor)
		if err != nil {
			s.writeSaveError(w, r, err, name)
			return
		}
		writeJSON(w, http.StatusOK, view)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleBlog(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	ctx := r.Context()
	actor := session.UserName

	if len(parts) == 1 && parts[0] == "publish-due" && r.Method == http.MethodPost {
		if !s.authorize(w, session, rbac.ActionPublish) {
			return
		}
		published, err := s.service.PublishDue(ctx, s.service.now())
		if err != nil {
			s.writeSaveError(w, r, err, CollectionBlogs)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"published": published})
		return
	}

	if len(parts) < 2 || parts[1] != "blocks" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if !s.authorize(w, session, rbac.ActionWrite) {
		return
	}
	postID := parts[0]
	var (
		post content.BlogPost
		err  error
	)

	switch {
	case len(parts) == 2 && r.Method == http.MethodPost:
		var body struct {
			Type string `json:"type"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		post, err = s.service.AddBlock(ctx, postID, content.BlockType(body.Type), actor)

	case len(parts) == 3 && parts[2] == "reorder" && r.Method == http.MethodPost:
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		post, err = s.service.ReorderBlocks(ctx, postID, body.IDs, actor)

	case len(parts) == 3 && r.Method == http.MethodPut:
		raw, readErr := readRaw(r)
		if readErr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", readErr.Error(), nil)
			return
		}
		post, err = s.service.UpdateBlock(ctx, postID, parts[2], raw, actor)

	case len(parts) == 3 && r.Method == http.MethodDelete:
		post, err = s.service.RemoveBlock(ctx, postID, parts[2], actor)

	case len(parts) == 4 && parts[3] == "move" && r.Method == http.MethodPost:
		var body struct {
			Direction string `json:"direction"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		dir, ok := collection.ParseDirection(body.Direction)
		if !ok {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "direction must be up or down", nil)
			return
		}
		post, err = s.service.MoveBlock(ctx, postID, parts[2], dir, actor)

	case len(parts) == 5 && parts[3] == "items" && r.Method == http.MethodDelete:
		index, convErr := strconv.Atoi(parts[4])
		if convErr != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "index must be an integer", nil)
			return
		}
		post, err = s.service.RemoveListEntry(ctx, postID, parts[2], index, actor)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	if err != nil {
		s.writeSaveError(w, r, err, "post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Kind   string `json:"kind"`
		ID     string `json:"id"`
		Format string `json:"format"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	format, ok := export.ParseFormat(strings.ToLower(strings.TrimSpace(body.Format)))
	if !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "format must be html or pdf", nil)
		return
	}
	result, err := s.service.Export(r.Context(), export.Kind(body.Kind), body.ID, format)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if result.URL != "" {
		writeJSON(w, http.StatusOK, result)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, publicOnly bool) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, search.Response{Results: []search.Result{}})
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	var filter search.ResultType
	switch strings.TrimSpace(r.URL.Query().Get("type")) {
	case "":
	case string(search.ResultPost):
		filter = search.ResultPost
	case string(search.ResultFAQ):
		filter = search.ResultFAQ
	default:
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "type must be post or faq", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Search(r.Context(), search.Query{
		Text:       q,
		FilterType: filter,
		Limit:      min(max(limit, 1), 50),
		Offset:     max(offset, 0),
		PublicOnly: publicOnly,
	}))
}
