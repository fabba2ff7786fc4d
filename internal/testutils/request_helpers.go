package testutils

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/aaravmahajanofficial/itemstore/internal/api/middleware"
	"github.com/aaravmahajanofficial/itemstore/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateTestRequestWithContext builds a request that already carries the cart owner resolved by the identity middleware.
func CreateTestRequestWithContext(method, target string, body io.Reader, cc models.CartContext, pathParams map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)

	for key, value := range pathParams {
		req.SetPathValue(key, value)
	}

	ctx := middleware.WithLogger(req.Context(), discardLogger())
	ctx = middleware.WithCartContext(ctx, cc)

	return req.WithContext(ctx)
}

// CreateAuthenticatedRequest builds a request as it looks after Authenticate accepted claims.
func CreateAuthenticatedRequest(method, target string, body io.Reader, claims *models.Claims, pathParams map[string]string) *http.Request {
	req := CreateTestRequestWithContext(method, target, body, models.UserContext(claims.UserID), pathParams)

	ctx := context.WithValue(req.Context(), middleware.UserContextKey, claims)

	return req.WithContext(ctx)
}

func CreateTestRequestWithoutContext(method, target string, body io.Reader, pathParams map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)

	for key, value := range pathParams {
		req.SetPathValue(key, value)
	}

	ctx := middleware.WithLogger(req.Context(), discardLogger())

	return req.WithContext(ctx)
}
