package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
	ErrCodeThirdPartyError    = "THIRD_PARTY_ERROR"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeNotEnoughItems     = "NOT_ENOUGH_ITEMS"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodePaymentFailed      = "PAYMENT_FAILED"
	ErrCodeProductUnavailable = "PRODUCT_UNAVAILABLE"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeForbidden          = "FORBIDDEN"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message, http.StatusInternalServerError)
}

func ThirdPartyError(message string) *AppError {
	return NewAppError(ErrCodeThirdPartyError, message, http.StatusInternalServerError)
}

// InvalidQuantityError is returned before any side effect when a non-positive quantity is requested.
func InvalidQuantityError(message string) *AppError {
	return NewAppError(ErrCodeInvalidQuantity, message, http.StatusBadRequest)
}

// NotEnoughItemsError means the ledger was left exactly as it was before the call.
func NotEnoughItemsError(message string) *AppError {
	return NewAppError(ErrCodeNotEnoughItems, message, http.StatusConflict)
}

func InvalidAmountError(message string) *AppError {
	return NewAppError(ErrCodeInvalidAmount, message, http.StatusBadRequest)
}

func PaymentFailedError(message string) *AppError {
	return NewAppError(ErrCodePaymentFailed, message, http.StatusPaymentRequired)
}

func ProductUnavailableError(message string) *AppError {
	return NewAppError(ErrCodeProductUnavailable, message, http.StatusNotFound)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrCodeForbidden, message, http.StatusForbidden)
}

func TooManyRequestsError(message string) *AppError {
	return NewAppError(ErrCodeTooManyRequests, message, http.StatusTooManyRequests)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := IsAppError(err)

	return ok && appErr.Code == code
}

// field validation error.
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}
