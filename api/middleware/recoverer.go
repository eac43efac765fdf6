package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/emersonbarrios/fooddash-backend/api/responses"
	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
	"github.com/emersonbarrios/fooddash-backend/pkg/logger"
)

// Recoverer converts panics into 500 responses instead of dropping the
// connection mid-flight.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := logg.WithField(r.Context(), "stack", string(debug.Stack()))
					err := pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("panic: %v", rec))
					responses.WriteError(ctx, logg, w, err)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
