package app

import (
	"errors"
	"fmt"
	"net/http"

	"ridepool/cms/internal/auth"
	"ridepool/cms/internal/authpw"
	"ridepool/cms/internal/collection"
	"ridepool/cms/internal/content"
	"ridepool/cms/internal/export"
	"ridepool/cms/internal/history"
	"ridepool/cms/internal/persist"
	"ridepool/cms/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

var (
	errUnknownCollection = domainError(http.StatusNotFound, "NOT_FOUND", "Unknown collection", nil)
	errUnknownLegalType  = domainError(http.StatusNotFound, "NOT_FOUND", "Unknown legal page", nil)
	errNotAList          = domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Block is not a list", nil)
)

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *content.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Error(), map[string]any{"field": validationErr.Field}
	}
	// Checked before the sentinels it may wrap.
	var saveErr *persist.SaveError
	if errors.As(err, &saveErr) {
		return http.StatusInternalServerError, "SAVE_FAILED", "Failed to save", map[string]any{
			"written": saveErr.Written,
			"total":   saveErr.Total,
		}
	}
	switch {
	case errors.Is(err, content.ErrUnknownBlockType):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, collection.ErrInvalidPermutation):
		return http.StatusBadRequest, "INVALID_ORDER", err.Error(), nil
	case errors.Is(err, collection.ErrDuplicateID):
		return http.StatusConflict, "DUPLICATE_ID", err.Error(), nil
	case errors.Is(err, collection.ErrNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, history.ErrRevisionNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, persist.ErrSaveInProgress):
		return http.StatusConflict, "SAVE_IN_PROGRESS", err.Error(), nil
	case errors.Is(err, persist.ErrNotEmpty):
		return http.StatusConflict, "NOT_EMPTY", err.Error(), nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, authpw.ErrDeactivated):
		return http.StatusForbidden, "DEACTIVATED", "Account is deactivated", nil
	case errors.Is(err, authpw.ErrWeakPassword), errors.Is(err, authpw.ErrMissingFields):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, store.ErrEmailTaken):
		return http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, export.ErrPDFDependencyMissing):
		return http.StatusServiceUnavailable, "PDF_UNAVAILABLE", "PDF export is not available on this server", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
