package response

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/aaravmahajanofficial/itemstore/internal/errors"
	"github.com/go-playground/validator/v10"
)

type APIResponse struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func write(w http.ResponseWriter, statusCode int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", slog.Int("status", statusCode), slog.String("error", err.Error()))
	}
}

func Success(w http.ResponseWriter, statusCode int, data any) {
	write(w, statusCode, APIResponse{Success: true, Data: data})
}

// Error renders an AppError with its own status. Anything else is reported as a bare 500
// so internal messages never reach the client.
func Error(w http.ResponseWriter, err error) {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		write(w, http.StatusInternalServerError, APIResponse{Error: &ErrorResponse{
			Code:    errors.ErrCodeInternal,
			Message: "An unexpected error occurred",
		}})
		return
	}

	body := &ErrorResponse{Code: appErr.Code, Message: appErr.Message}
	if appErr.Detail != "" {
		body.Details = []string{appErr.Detail}
	}

	write(w, appErr.StatusCode, APIResponse{Error: body})
}

func ValidationError(w http.ResponseWriter, errs validator.ValidationErrors) {
	details := make([]string, 0, len(errs))
	for _, fe := range errs {
		details = append(details, fieldMessage(fe))
	}

	write(w, http.StatusBadRequest, APIResponse{Error: &ErrorResponse{
		Code:    errors.ErrCodeValidation,
		Message: "Validation failed",
		Details: details,
	}})
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field %s is required", field)
	case "email":
		return fmt.Sprintf("Field %s must be a valid email address", field)
	case "numeric":
		return fmt.Sprintf("Field %s must be a number", field)
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Field %s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("Field %s must be at least %s", field, fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Field %s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("Field %s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("Field %s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("Field %s is invalid: %s=%s", field, fe.Tag(), fe.Param())
	}
}
