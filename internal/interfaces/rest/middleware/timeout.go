package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/interfaces/rest"
)

// Timeout bounds callback handling. The canned body matches the JSON error
// envelope the rest of the service answers with, so processor-side retry
// logic sees a consistent shape.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(rest.ErrorResponse{
		Error: rest.ErrorDetail{
			Code:    "CALLBACK_TIMEOUT",
			Message: "callback processing exceeded the server deadline",
		},
	})

	return func(next http.Handler) http.Handler {
		handler := http.TimeoutHandler(next, timeout, string(body))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			handler.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
