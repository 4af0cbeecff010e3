package app

import (
	"errors"
	"fmt"
	"net/http"

	"jobfolio/web/internal/backend"
	"jobfolio/web/internal/export"
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

// exportFailedMessage is what users see for any failure after validation.
const exportFailedMessage = "Export failed, please try again"

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	var validationErr *export.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", validationErr.Message, nil
	}
	if errors.Is(err, export.ErrBusy) {
		return http.StatusConflict, "EXPORT_IN_PROGRESS", "An export is already running", nil
	}
	var renderingErr *export.RenderingError
	if errors.As(err, &renderingErr) {
		return http.StatusInternalServerError, "EXPORT_FAILED", exportFailedMessage, map[string]any{"format": renderingErr.Format}
	}

	if errors.Is(err, backend.ErrLoginRequired) {
		return http.StatusUnauthorized, "LOGIN_REQUIRED", "Login required", nil
	}
	var extErr *backend.ExternalServiceError
	if errors.As(err, &extErr) {
		if extErr.Status == http.StatusNotFound {
			return http.StatusNotFound, "NOT_FOUND", extErr.Message, nil
		}
		return http.StatusBadGateway, "BACKEND_ERROR", extErr.Message, nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
