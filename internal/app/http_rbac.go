package app

import (
	"net/http"
)

// routeAdmin handles /api/admin/*. The caller has already checked the admin
// role. It reports false when no route matched.
func (s *HTTPServer) routeAdmin(w http.ResponseWriter, r *http.Request, session Session, parts []string) bool {
	switch {
	case len(parts) == 1 && parts[0] == "users" && r.Method == http.MethodGet:
		s.handleAdminUsers(w, r)
	case len(parts) == 1 && parts[0] == "users" && r.Method == http.MethodPost:
		s.handleAdminCreateUser(w, r)
	case len(parts) == 3 && parts[0] == "users" && parts[2] == "role" && r.Method == http.MethodPut:
		s.handleAdminUserRole(w, r, session, parts[1])
	case len(parts) == 3 && parts[0] == "users" && parts[2] == "deactivate" && r.Method == http.MethodPost:
		s.handleAdminUserDeactivate(w, r, session, parts[1])
	default:
		return false
	}
	return true
}

func (s *HTTPServer) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *HTTPServer) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
		Role        string `json:"role"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	user, err := s.service.CreateUser(r.Context(), body.Email, body.Password, body.DisplayName, body.Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) handleAdminUserRole(w http.ResponseWriter, r *http.Request, session Session, userID string) {
	var body struct {
		Role string `json:"role"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	user, err := s.service.SetUserRole(r.Context(), session, userID, body.Role)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleAdminUserDeactivate(w http.ResponseWriter, r *http.Request, session Session, userID string) {
	if err := s.service.DeactivateUser(r.Context(), session, userID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
