package app

import (
	"context"
	"net/http"
	"time"

	"ridepool/cms/internal/authpw"
	"ridepool/cms/internal/rbac"
	"ridepool/cms/internal/store"
)

// AdminUser is the public view of a CMS account.
type AdminUser struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"displayName"`
	Role          string     `json:"role"`
	Deactivated   bool       `json:"deactivated"`
	CreatedAt     time.Time  `json:"createdAt"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}

func toAdminUser(u store.User) AdminUser {
	return AdminUser{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		Role:          u.Role,
		Deactivated:   u.DeactivatedAt != nil,
		CreatedAt:     u.CreatedAt,
		DeactivatedAt: u.DeactivatedAt,
	}
}

func (s *Service) ListUsers(ctx context.Context) ([]AdminUser, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AdminUser, 0, len(users))
	for _, u := range users {
		out = append(out, toAdminUser(u))
	}
	return out, nil
}

func (s *Service) CreateUser(ctx context.Context, email, password, displayName, role string) (AdminUser, error) {
	parsed, err := parseRole(role, rbac.RoleEditor)
	if err != nil {
		return AdminUser{}, err
	}
	user, err := s.passwords.CreateAdmin(ctx, authpw.CreateRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
		Role:        parsed,
	})
	if err != nil {
		return AdminUser{}, err
	}
	return toAdminUser(user), nil
}

// SetUserRole changes a role. Admins cannot demote themselves so the CMS
// always keeps at least the acting admin.
func (s *Service) SetUserRole(ctx context.Context, actor Session, userID, role string) (AdminUser, error) {
	parsed, err := parseRole(role, "")
	if err != nil {
		return AdminUser{}, err
	}
	if userID == actor.UserID && parsed != rbac.RoleAdmin {
		return AdminUser{}, domainError(http.StatusConflict, "SELF_DEMOTION", "Admins cannot remove their own admin role", nil)
	}
	if err := s.store.SetUserRole(ctx, userID, string(parsed)); err != nil {
		return AdminUser{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return AdminUser{}, err
	}
	return toAdminUser(user), nil
}

func (s *Service) DeactivateUser(ctx context.Context, actor Session, userID string) error {
	if userID == actor.UserID {
		return domainError(http.StatusConflict, "SELF_DEACTIVATION", "Admins cannot deactivate themselves", nil)
	}
	return s.store.DeactivateUser(ctx, userID)
}

func parseRole(raw string, fallback rbac.Role) (rbac.Role, error) {
	if raw == "" && fallback != "" {
		return fallback, nil
	}
	role, ok := rbac.Parse(raw)
	if !ok {
		return "", domainError(http.StatusBadRequest, "VALIDATION_ERROR", "role must be viewer, editor or admin", nil)
	}
	return role, nil
}
