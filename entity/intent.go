package entity

import "time"

// OutboundIntent is one rendering instruction emitted by the node
// identifier. Renderers translate it to channel-specific delivery;
// delivery is fire-and-forget.
type OutboundIntent struct {
	Channel         string             `json:"channel"`
	Recipient       string             `json:"recipient"`
	BrandID         int64              `json:"brand_id"`
	FlowID          string             `json:"flow_id"`
	NodeID          string             `json:"node_id"`
	NodeType        string             `json:"node_type"`
	Replies         []FlowReply        `json:"replies,omitempty"`
	Header          *InteractiveHeader `json:"header,omitempty"`
	Body            string             `json:"body,omitempty"`
	Footer          string             `json:"footer,omitempty"`
	Choices         []ExpectedAnswer   `json:"choices,omitempty"`
	FallbackMessage string             `json:"fallback_message,omitempty"`
	At              time.Time          `json:"at"`
}

// TextParts returns the renderable text payloads in order, with the
// validation fallback prepended when present.
func (i OutboundIntent) TextParts() []string {
	var parts []string
	if i.FallbackMessage != "" {
		parts = append(parts, i.FallbackMessage)
	}
	for _, r := range i.Replies {
		if r.FlowReplyType == "text" && r.Data != "" {
			parts = append(parts, r.Data)
		}
	}
	if i.Body != "" {
		parts = append(parts, i.Body)
	}
	return parts
}
