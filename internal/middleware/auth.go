package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/opsdesk/deskd/internal/domain"
	"github.com/opsdesk/deskd/internal/repository"
)

type contextKey string

const (
	// ContextKeyPrincipal is the key for storing the principal in request context.
	ContextKeyPrincipal contextKey = "principal"
)

// AuthMiddleware handles Bearer token authentication. Token validation
// itself happens upstream of the engine; this layer only turns an
// authenticated user row into the per-request principal.
type AuthMiddleware struct {
	userRepo *repository.UserRepository
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(userRepo *repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo: userRepo,
	}
}

// Authenticate validates the Bearer token and adds the principal to
// the request context. The principal is rebuilt on every request and
// never cached.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
			return
		}

		token := parts[1]
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		user, err := m.userRepo.GetByToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		if !user.IsActive {
			http.Error(w, "user inactive", http.StatusUnauthorized)
			return
		}

		principal := domain.Principal{
			UserID:       user.ID,
			IsAdmin:      user.IsAdmin,
			IsManager:    user.IsManager,
			DepartmentID: user.DepartmentID,
		}

		ctx := context.WithValue(r.Context(), ContextKeyPrincipal, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPrincipalFromContext retrieves the authenticated principal from
// the request context.
func GetPrincipalFromContext(ctx context.Context) (domain.Principal, error) {
	principal, ok := ctx.Value(ContextKeyPrincipal).(domain.Principal)
	if !ok {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return principal, nil
}
