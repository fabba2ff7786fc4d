package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/itemstore/internal/errors"
	"github.com/aaravmahajanofficial/itemstore/internal/models"
	"github.com/aaravmahajanofficial/itemstore/internal/utils/response"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserContextKey = contextKey("user")
	cartContextKey = contextKey("cart")

	// SessionCookieName carries the guest cart session between requests.
	SessionCookieName = "cart_session"
	sessionCookieTTL  = 7 * 24 * time.Hour
)

// CartMerger folds a guest session cart into the user's cart when the user signs in.
type CartMerger interface {
	MergeOnLogin(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Cart, error)
}

type AuthMiddleware struct {
	jwtKey []byte
	merger CartMerger
}

// NewAuthMiddleware verifies HS256 bearer tokens signed with jwtKey. merger may be nil.
func NewAuthMiddleware(jwtKey []byte, merger CartMerger) *AuthMiddleware {
	return &AuthMiddleware{jwtKey: jwtKey, merger: merger}
}

func WithCartContext(ctx context.Context, cc models.CartContext) context.Context {
	return context.WithValue(ctx, cartContextKey, cc)
}

func CartContextFromContext(ctx context.Context) (models.CartContext, bool) {
	cc, ok := ctx.Value(cartContextKey).(models.CartContext)
	return cc, ok
}

func ClaimsFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)
	return claims, ok
}

// parseClaims returns nil claims and a nil error when the request carries no Authorization header.
func (m *AuthMiddleware) parseClaims(r *http.Request, logger *slog.Logger) (*models.Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil
	}

	// Token is of format : "Bearer <token>"
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		logger.Warn("Invalid authorization header format")
		return nil, errors.UnauthorizedError("Invalid authorization format")
	}

	claims := &models.Claims{}

	token, err := jwt.ParseWithClaims(tokenParts[1], claims, func(t *jwt.Token) (any, error) {
		return m.jwtKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		logger.Warn("JWT parsing failed", slog.String("error", err.Error()))
		return nil, errors.UnauthorizedError("Invalid or expired token").WithError(err)
	}

	if !token.Valid || claims.UserID == uuid.Nil {
		logger.Warn("Invalid token")
		return nil, errors.UnauthorizedError("Invalid token")
	}

	return claims, nil
}

func (m *AuthMiddleware) withUser(ctx context.Context, claims *models.Claims, logger *slog.Logger) (context.Context, *slog.Logger) {
	logger = logger.With(slog.String("userId", claims.UserID.String()))

	ctx = context.WithValue(ctx, UserContextKey, claims)
	ctx = WithCartContext(ctx, models.UserContext(claims.UserID))

	return WithLogger(ctx, logger), logger
}

// Authenticate rejects requests without a valid bearer token.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := LoggerFromContext(r.Context())

		claims, err := m.parseClaims(r, logger)
		if err != nil {
			response.Error(w, err)
			return
		}

		if claims == nil {
			logger.Warn("Missing authorization header")
			response.Error(w, errors.UnauthorizedError("Authorization header is required"))
			return
		}

		ctx, logger := m.withUser(r.Context(), claims, logger)
		logger.Info("User authenticated")

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// Identify resolves the cart owner of every request. A valid bearer token selects the
// user's cart, and a guest cart left in the session cookie is merged into it once.
// Without a token the session cookie selects a guest cart, and a new session is issued when missing.
func (m *AuthMiddleware) Identify(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := LoggerFromContext(r.Context())

		claims, err := m.parseClaims(r, logger)
		if err != nil {
			response.Error(w, err)
			return
		}

		sessionID := ""
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			sessionID = cookie.Value
		}

		if claims == nil {
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(sessionCookieTTL.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithCartContext(r.Context(), models.GuestContext(sessionID))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ctx, logger := m.withUser(r.Context(), claims, logger)

		if sessionID != "" && m.merger != nil {
			if _, err := m.merger.MergeOnLogin(ctx, sessionID, claims.UserID); err != nil {
				logger.Error("Failed to merge guest cart", slog.String("error", err.Error()))
				response.Error(w, err)
				return
			}

			// the guest session is spent once merged
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
