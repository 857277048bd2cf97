package entity

import (
	"time"

	"github.com/google/uuid"
)

// Webhook processing statuses.
const (
	WebhookStatusPending   = "pending"
	WebhookStatusProcessed = "processed"
	WebhookStatusError     = "error"
)

// WebhookRequest is the inbound connector payload. message_body is kept
// opaque; the channel adapter knows how to read it per channel.
type WebhookRequest struct {
	Sender            string         `json:"sender" validate:"required"`
	BrandID           int64          `json:"brand_id" validate:"required"`
	UserID            int64          `json:"user_id"`
	Channel           string         `json:"channel" validate:"required"`
	ChannelIdentifier string         `json:"channel_identifier"`
	ChannelAccountID  string         `json:"channel_account_id"`
	MessageType       string         `json:"message_type" validate:"required"`
	MessageBody       map[string]any `json:"message_body"`
	Status            string         `json:"status"`
}

// WebhookMessage is the stored copy of a raw webhook plus its processing
// status.
type WebhookMessage struct {
	ID         string         `json:"id" bson:"id"`
	Request    WebhookRequest `json:"request" bson:"request"`
	Status     string         `json:"status" bson:"status"`
	Detail     string         `json:"detail,omitempty" bson:"detail,omitempty"`
	ReceivedAt time.Time      `json:"received_at" bson:"received_at"`
	UpdatedAt  time.Time      `json:"updated_at" bson:"updated_at"`
}

func NewWebhookMessage(req WebhookRequest) *WebhookMessage {
	now := time.Now().UTC()
	return &WebhookMessage{
		ID:         uuid.NewString(),
		Request:    req,
		Status:     WebhookStatusPending,
		ReceivedAt: now,
		UpdatedAt:  now,
	}
}

// Metadata extracts the routing fields of the webhook.
func (r WebhookRequest) Metadata() EventMetadata {
	return EventMetadata{
		Sender:           r.Sender,
		BrandID:          r.BrandID,
		UserID:           r.UserID,
		Channel:          r.Channel,
		ChannelAccountID: r.ChannelAccountID,
		MessageType:      r.MessageType,
	}
}
