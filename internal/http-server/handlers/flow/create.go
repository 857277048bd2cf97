package flow

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"flowengine/entity"
	"flowengine/internal/lib/api/response"
)

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
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

		created, err := handler.CreateFlow(r.Context(), userID, &req)
		if err != nil {
			writeError(log, w, r, err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, created)
	}
}
