package flow

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func Detail(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authorID(r, w)
		if !ok {
			return
		}

		detail, err := handler.FlowDetail(r.Context(), userID, chi.URLParam(r, "flow_id"))
		if err != nil {
			writeError(log, w, r, err)
			return
		}

		render.JSON(w, r, detail)
	}
}
