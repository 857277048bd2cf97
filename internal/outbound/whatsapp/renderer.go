package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
)

// Renderer posts outbound intents to the WhatsApp connector service, which
// owns the channel credentials and delivery.
type Renderer struct {
	connectorURL string
	apiKey       string
	client       *http.Client
	log          *slog.Logger
}

func New(connectorURL, apiKey string, log *slog.Logger) *Renderer {
	return &Renderer{
		connectorURL: connectorURL,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 15 * time.Second},
		log:          log.With(sl.Module("outbound.whatsapp")),
	}
}

type buttonPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type sendRequest struct {
	To      string          `json:"to"`
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Header  string          `json:"header,omitempty"`
	Footer  string          `json:"footer,omitempty"`
	Buttons []buttonPayload `json:"buttons,omitempty"`
	Media   []mediaPayload  `json:"media,omitempty"`
}

type mediaPayload struct {
	Type    string `json:"type"`
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

func (r *Renderer) Render(ctx context.Context, intent entity.OutboundIntent) error {
	req := sendRequest{
		To:     intent.Recipient,
		Type:   "text",
		Text:   strings.Join(intent.TextParts(), "\n\n"),
		Footer: intent.Footer,
	}
	if intent.Header != nil && intent.Header.Type == "text" {
		req.Header = intent.Header.Text
	}
	if len(intent.Choices) > 0 {
		req.Type = "interactive"
		for _, choice := range intent.Choices {
			req.Buttons = append(req.Buttons, buttonPayload{ID: choice.ID, Title: choice.ExpectedInput})
		}
	}
	for _, reply := range intent.Replies {
		if reply.FlowReplyType != "text" && reply.Data != "" {
			req.Media = append(req.Media, mediaPayload{
				Type:    reply.FlowReplyType,
				URL:     reply.Data,
				Caption: reply.Caption,
			})
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("whatsapp payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.connectorURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp connector status %d", resp.StatusCode)
	}
	r.log.Debug("message sent", slog.String("to", intent.Recipient), slog.String("node_id", intent.NodeID))
	return nil
}
