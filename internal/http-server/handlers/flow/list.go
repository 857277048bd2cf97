package flow

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"flowengine/entity"
)

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authorID(r, w)
		if !ok {
			return
		}

		list, err := handler.ListFlows(r.Context(), userID)
		if err != nil {
			writeError(log, w, r, err)
			return
		}
		if list == nil {
			list = []entity.Flow{}
		}

		render.JSON(w, r, list)
	}
}
