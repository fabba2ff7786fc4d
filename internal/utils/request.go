package utils

import (
	stdErrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aaravmahajanofficial/itemstore/internal/api/middleware"
	"github.com/aaravmahajanofficial/itemstore/internal/errors"
	"github.com/aaravmahajanofficial/itemstore/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ParseAndValidate decodes the JSON body into dest and validates it. On failure the
// error response has already been written.
func ParseAndValidate(r *http.Request, w http.ResponseWriter, dest any, validate *validator.Validate) bool {

	logger := middleware.LoggerFromContext(r.Context())

	if err := DecodeJSONBody(r, dest); err != nil {
		logger.Warn("Invalid request", slog.String("error", err.Error()))
		response.Error(w, errors.BadRequestError("Invalid request body").WithDetail(err.Error()))
		return false
	}

	if err := ValidateStruct(validate, dest); err != nil {
		logger.Warn("Validation failed", slog.String("error", err.Error()))

		var validationErrs validator.ValidationErrors
		if stdErrors.As(err, &validationErrs) {
			response.ValidationError(w, validationErrs)
		} else {
			response.Error(w, errors.BadRequestError("Invalid input data"))
		}
		return false
	}

	return true
}

// ParseInt64ID reads a positive integer path parameter.
func ParseInt64ID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.BadRequestError("Invalid " + name + " format").WithDetail(raw)
	}

	return id, nil
}

func ParseUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.BadRequestError("Invalid " + name + " format").WithDetail(raw).WithError(err)
	}

	return id, nil
}
