package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"flowengine/entity"
	"flowengine/internal/lib/api/response"
	"flowengine/internal/lib/sl"
	"flowengine/internal/service/userstate"
)

type Core interface {
	SaveWebhookMessage(ctx context.Context, msg *entity.WebhookMessage) error
	UpdateWebhookStatus(ctx context.Context, id, status, detail string) error
	Normalize(channel, messageType string, body map[string]any) entity.NormalizedMessage
	ProcessEvent(ctx context.Context, meta entity.EventMetadata, msg entity.NormalizedMessage) userstate.Outcome
}

type Response struct {
	Status string `json:"status"` // accepted, dropped, error
	Detail string `json:"detail,omitempty"`
}

var validate = validator.New()

// Handle ingests one connector webhook: store raw, normalize, run the state
// machine, record the outcome.
func Handle(log *slog.Logger, handler Core) http.HandlerFunc {
	lg := log.With(sl.Module("handlers.webhook"))

	return func(w http.ResponseWriter, r *http.Request) {
		var req entity.WebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return
		}
		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("missing required fields: "+err.Error()))
			return
		}

		stored := entity.NewWebhookMessage(req)
		if err := handler.SaveWebhookMessage(r.Context(), stored); err != nil {
			lg.Error("save webhook", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, Response{Status: "error", Detail: "store unavailable"})
			return
		}

		normalized := handler.Normalize(req.Channel, req.MessageType, req.MessageBody)
		outcome := handler.ProcessEvent(r.Context(), req.Metadata(), normalized)

		resp := Response{Status: "accepted", Detail: outcome.Detail}
		webhookStatus := entity.WebhookStatusProcessed
		switch outcome.Status {
		case userstate.OutcomeError:
			resp.Status = "error"
			webhookStatus = entity.WebhookStatusError
		case userstate.OutcomeNoTrigger, userstate.OutcomeDropped:
			resp.Status = "dropped"
		}

		if err := handler.UpdateWebhookStatus(r.Context(), stored.ID, webhookStatus, outcome.Detail); err != nil {
			lg.Error("update webhook status", sl.Err(err))
		}

		if resp.Status == "error" {
			render.Status(r, http.StatusInternalServerError)
		}
		render.JSON(w, r, resp)
	}
}
