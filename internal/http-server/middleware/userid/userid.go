package userid

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"flowengine/internal/lib/api/cont"
	"flowengine/internal/lib/api/response"
	"flowengine/internal/lib/sl"
)

const headerUserID = "x-user-id"

// New authenticates authoring requests by the x-user-id header and logs
// every request with its final status.
func New(log *slog.Logger) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.userid")
	log.With(mod).Info("user id middleware initialized")

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			id := middleware.GetReqID(r.Context())
			remote := r.RemoteAddr
			// if the request is coming from a proxy, use the X-Forwarded-For header
			xRemote := r.Header.Get("X-Forwarded-For")
			if xRemote != "" {
				remote = xRemote
			}
			logger := log.With(
				mod,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", remote),
				slog.String("request_id", id),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			t1 := time.Now()
			loggerPtr := &logger
			defer func() {
				(*loggerPtr).With(
					slog.Int("status", ww.Status()),
					slog.Int("size", ww.BytesWritten()),
					slog.Float64("duration", time.Since(t1).Seconds()),
				).Info("incoming request")
			}()

			header := r.Header.Get(headerUserID)
			if header == "" {
				*loggerPtr = (*loggerPtr).With(sl.Err(fmt.Errorf("x-user-id header not found")))
				authFailed(ww, r, "x-user-id header required")
				return
			}
			userID, err := strconv.ParseInt(header, 10, 64)
			if err != nil || userID <= 0 {
				*loggerPtr = (*loggerPtr).With(sl.Err(fmt.Errorf("invalid x-user-id: %s", header)))
				authFailed(ww, r, "invalid x-user-id header")
				return
			}
			*loggerPtr = (*loggerPtr).With(slog.Int64("user_id", userID))

			ctx := cont.PutUserID(r.Context(), userID)

			ww.Header().Set("X-Request-ID", id)
			next.ServeHTTP(ww, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func authFailed(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(message))
}
