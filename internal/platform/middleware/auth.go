package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	jwttoken "losflow/internal/jwt_token"
	id "losflow/pkg/domain"
	dErrors "losflow/pkg/domain-errors"
	"losflow/pkg/platform/httputil"
	"losflow/pkg/requestcontext"
)

// JWTValidator defines the interface for validating dashboard tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// RequireDepartment authenticates the request and injects the department and
// actor into the context. Handlers downstream never read the token themselves.
func RequireDepartment(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID, "error", err)
				httputil.WriteError(w, err)
				return
			}

			dept, err := id.ParseDepartment(claims.Department)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token carries no valid department"))
				return
			}

			ctx = requestcontext.WithDepartment(ctx, dept)
			ctx = requestcontext.WithActor(ctx, claims.Actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
