package flow

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"flowengine/entity"
	"flowengine/internal/lib/api/response"
)

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authorID(r, w)
		if !ok {
			return
		}

		var req entity.Flow
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return
		}

		updated, err := handler.UpdateFlow(r.Context(), userID, chi.URLParam(r, "flow_id"), &req)
		if err != nil {
			writeError(log, w, r, err)
			return
		}

		render.JSON(w, r, updated)
	}
}
