package middleware

import (
	"net/http"

	"github.com/emersonbarrios/fooddash-backend/api/responses"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/enums"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
)

// RequireRole gates a route to actors holding one of the given roles.
func RequireRole(logg *logger.Logger, roles ...enums.ActorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			role, ok := RoleFromContext(ctx)
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor role"))
				return
			}

			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			responses.WriteError(ctx, logg, w, pkgerrors.Newf(pkgerrors.CodeForbidden, "%s is not allowed here", role))
		})
	}
}
