package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/eventtix-backend/api/responses"
	pkgerrors "github.com/angelmondragon/eventtix-backend/pkg/errors"
	"github.com/angelmondragon/eventtix-backend/pkg/logger"
)

func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err := fmt.Errorf("panic: %v", rec)
					ctx := logg.WithField(r.Context(), "panic", rec)
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
