package middlewarex

import (
	"log/slog"
	"net/http"

	"tranquiltaiwan/pkg/contextx"
	"tranquiltaiwan/pkg/logx"
)

const headerNameUserID = "X-User-Id"

// UserID propagates the optional caller identity header. Requests without
// the header stay anonymous.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(headerNameUserID)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := contextx.WithUserID(r.Context(), contextx.UserID(userID))
		ctx = contextx.WithLogger(ctx, logger(ctx).With(slog.String(logx.FieldUserID, userID)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
