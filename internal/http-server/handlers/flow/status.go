package flow

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"flowengine/internal/lib/api/response"
)

type StatusRequest struct {
	Status string `json:"status"`
}

func Status(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authorID(r, w)
		if !ok {
			return
		}

		var req StatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("status required"))
			return
		}

		updated, err := handler.SetFlowStatus(r.Context(), userID, chi.URLParam(r, "flow_id"), req.Status)
		if err != nil {
			writeError(log, w, r, err)
			return
		}

		render.JSON(w, r, updated)
	}
}
