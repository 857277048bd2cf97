package nodedetail

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"flowengine/entity"
	"flowengine/internal/lib/api/response"
	"flowengine/internal/lib/sl"
)

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details, err := handler.NodeDetails(r.Context())
		if err != nil {
			log.Error("list node details", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
			return
		}
		render.JSON(w, r, details)
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodeID := chi.URLParam(r, "node_id")

		detail, err := handler.NodeDetailByID(r.Context(), nodeID)
		if err != nil {
			log.Error("get node detail", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
			return
		}
		if detail == nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("node type not found"))
			return
		}
		render.JSON(w, r, detail)
	}
}

func ByCategory(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := chi.URLParam(r, "category")
		if !entity.ValidCategory(category) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid category"))
			return
		}

		details, err := handler.NodeDetailsByCategory(r.Context(), category)
		if err != nil {
			log.Error("node details by category", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
			return
		}
		render.JSON(w, r, details)
	}
}
