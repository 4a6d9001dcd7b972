package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/PxPatel/auction-engine/internal/api/models"
	"github.com/PxPatel/auction-engine/internal/logger"
)

// Recovery middleware recovers from panics and returns a 500 error.
// A panic inside an engine call happens before commit, so nothing was applied.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Panic recovered", map[string]interface{}{
					"error":      fmt.Sprintf("%v", rec),
					"request_id": w.Header().Get(RequestIDHeader),
					"method":     r.Method,
					"path":       r.URL.Path,
					"stacktrace": string(debug.Stack()),
				})

				httpErr := models.ErrInternal("An unexpected error occurred")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(httpErr.StatusCode)
				_ = json.NewEncoder(w).Encode(models.BaseResponse{
					Success:   false,
					Timestamp: time.Now().UTC(),
					Message:   "Internal server error",
					Error:     &httpErr.Error,
				})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
