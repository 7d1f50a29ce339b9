package app

import (
	"net/http"

	"ridepool/cms/internal/content"
)

// handlePublic serves the read-only endpoints the marketing site renders
// from. Nothing here needs a session and nothing here fails on a store
// outage except single-post lookups.
func (s *HTTPServer) handlePublic(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	ctx := r.Context()
	w.Header().Set("Cache-Control", "public, max-age=60")

	switch {
	case len(parts) == 1 && parts[0] == "home":
		page, err := s.service.PublicHome(ctx)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)

	case len(parts) == 1 && parts[0] == "blog":
		writeJSON(w, http.StatusOK, map[string]any{"posts": s.service.PublicPosts(ctx)})

	case len(parts) == 2 && parts[0] == "blog":
		post, err := s.service.PublicPost(ctx, parts[1])
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, post)

	case len(parts) == 1 && parts[0] == "faq":
		writeJSON(w, http.StatusOK, map[string]any{"faq": s.service.PublicFAQ(ctx)})

	case len(parts) == 1 && parts[0] == "how-it-works":
		writeJSON(w, http.StatusOK, s.service.PublicHowItWorks(ctx))

	case len(parts) == 2 && parts[0] == "legal":
		legalType, ok := content.ParseLegalType(parts[1])
		if !ok {
			s.writeServiceError(w, r, errUnknownLegalType)
			return
		}
		page, _ := s.service.Legal(ctx, legalType)
		writeJSON(w, http.StatusOK, page)

	case len(parts) == 1 && parts[0] == "search":
		s.handleSearch(w, r, true)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}
