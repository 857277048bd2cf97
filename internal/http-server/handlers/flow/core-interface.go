package flow

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"flowengine/entity"
	"flowengine/internal/lib/api/cont"
	"flowengine/internal/lib/api/response"
	"flowengine/internal/lib/sl"
	"flowengine/internal/service/flows"
)

type Core interface {
	CreateFlow(ctx context.Context, userID int64, flow *entity.Flow) (*entity.Flow, error)
	ListFlows(ctx context.Context, userID int64) ([]entity.Flow, error)
	FlowDetail(ctx context.Context, userID int64, flowID string) (*flows.Detail, error)
	UpdateFlow(ctx context.Context, userID int64, flowID string, flow *entity.Flow) (*entity.Flow, error)
	SetFlowStatus(ctx context.Context, userID int64, flowID, status string) (*entity.Flow, error)
}

// authorID reads the user id the middleware put into the context; a missing
// id means the route was mounted without the middleware.
func authorID(r *http.Request, w http.ResponseWriter) (int64, bool) {
	userID, ok := cont.GetUserID(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("x-user-id header required"))
		return 0, false
	}
	return userID, true
}

// writeError maps service errors onto HTTP statuses.
func writeError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, flows.ErrNotFound):
		render.Status(r, http.StatusNotFound)
	case errors.Is(err, flows.ErrForbidden):
		render.Status(r, http.StatusForbidden)
	case errors.Is(err, flows.ErrInvalidTransition), errors.Is(err, flows.ErrInvalidFlow):
		render.Status(r, http.StatusBadRequest)
	default:
		log.Error("flow handler error", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	render.JSON(w, r, response.Error(err.Error()))
}
