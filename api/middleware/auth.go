package middleware

import (
	"net/http"
	"strings"

	"github.com/emersonbarrios/fooddash-backend/api/responses"
	pkgauth "github.com/emersonbarrios/fooddash-backend/pkg/auth"
	"github.com/emersonbarrios/fooddash-backend/pkg/config"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
)

// Auth authenticates the request from the Authorization bearer token and
// seeds the context with the actor's id and role.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing authorization header"))
				return
			}

			token := header
			if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
				token = strings.TrimSpace(header[7:])
			}
			if token == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
				return
			}
			if !claims.Role.IsValid() {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "token carries an unknown role"))
				return
			}

			ctx = WithActor(ctx, claims.ActorID, claims.Role)
			ctx = logg.WithFields(ctx, map[string]any{
				"actor_id":   claims.ActorID.String(),
				"actor_role": string(claims.Role),
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
