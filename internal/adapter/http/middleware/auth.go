package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/google/uuid"
)

// --- base auth middleware ---

// Auth verifies the bearer token and injects the caller into the context.
// A request without Authorization header continues as anonymous; an invalid token is 401.
func (h *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r.WithContext(models.WithUser(ctx, models.AnonymousUser())))
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}

		user, err := h.auth.Verify(ctx, token)
		if err != nil || user == nil {
			h.log.Warn(ctx, "failed to authenticate user", "error", fmt.Sprint(err))
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx = wrap.WithUserID(ctx, user.ID.String())
		next.ServeHTTP(w, r.WithContext(models.WithUser(ctx, user)))
	})
}

// RequireRoles allows only authenticated users with one of the given roles.
// Usage: mux.Handle("POST /payments/{id}/refund", m.RequireRoles(h.Refund, types.AdminRole))
func (h *Middleware) RequireRoles(next http.HandlerFunc, allowedRoles ...types.UserRole) http.Handler {
	allowed := make(map[types.UserRole]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := models.UserFromContext(r.Context())
		if user.IsAnonymous() {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}
		if len(allowed) > 0 {
			if _, ok := allowed[user.Role]; !ok {
				errorResponse(w, http.StatusForbidden, "forbidden: insufficient role")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// RequireSelf allows the user whose id is in the path parameter, and admins.
func (h *Middleware) RequireSelf(param string, next http.HandlerFunc, allowedRoles ...types.UserRole) http.Handler {
	return h.RequireRoles(func(w http.ResponseWriter, r *http.Request) {
		user := models.UserFromContext(r.Context())
		if user.Is(types.AdminRole) {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(r.PathValue(param))
		if err != nil {
			errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid %s format", param))
			return
		}
		if id != user.ID {
			errorResponse(w, http.StatusForbidden, "forbidden: not your resource")
			return
		}

		next.ServeHTTP(w, r)
	}, append(allowedRoles, types.AdminRole)...)
}

// --- header parser ---
func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
