package entity

import "strings"

// Interactive reply kinds produced by channel normalizers.
const (
	InteractiveNone        = "none"
	InteractiveButtonReply = "button_reply"
	InteractiveListReply   = "list_reply"
)

// Message types on inbound events.
const (
	MessageTypeText             = "text"
	MessageTypeDelayComplete    = "delay_complete"
	MessageTypeScheduledTrigger = "scheduled_trigger"
)

// NormalizedMessage is the canonical shape every channel payload collapses
// into. All components downstream of the adapter treat it as a value.
type NormalizedMessage struct {
	Text             string         `json:"text,omitempty"`
	Subject          string         `json:"subject,omitempty"`
	Body             string         `json:"body,omitempty"`
	ButtonText       string         `json:"button_text,omitempty"`
	ButtonPayload    string         `json:"button_payload,omitempty"`
	InteractiveType  string         `json:"interactive_type"`
	InteractiveValue string         `json:"interactive_value,omitempty"`
	MediaURL         string         `json:"media_url,omitempty"`
	MediaType        string         `json:"media_type,omitempty"`
	Raw              map[string]any `json:"raw,omitempty"`
}

// GetTextContent returns the single string that participates in trigger
// matching and reply validation. Interactive selections win over button
// text, button text over plain text, and email concatenates subject and
// body.
func (m NormalizedMessage) GetTextContent() string {
	if m.InteractiveValue != "" {
		return m.InteractiveValue
	}
	if m.ButtonText != "" {
		return m.ButtonText
	}
	if m.Text != "" {
		return m.Text
	}
	if m.Subject != "" || m.Body != "" {
		return strings.TrimSpace(m.Subject + "\n" + m.Body)
	}
	return ""
}

// EventMetadata carries the routing fields of an inbound event alongside the
// normalized payload.
type EventMetadata struct {
	Sender           string `json:"sender"`
	BrandID          int64  `json:"brand_id"`
	UserID           int64  `json:"user_id"`
	Channel          string `json:"channel"`
	ChannelAccountID string `json:"channel_account_id"`
	MessageType      string `json:"message_type"`
}

// Key builds the user state key for this event.
func (m EventMetadata) Key() UserKey {
	return UserKey{
		UserIdentifier:   m.Sender,
		BrandID:          m.BrandID,
		Channel:          m.Channel,
		ChannelAccountID: m.ChannelAccountID,
	}
}
