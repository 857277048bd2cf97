package adapter

import (
	"log/slog"
	"strconv"
	"strings"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
)

// Adapter collapses heterogeneous channel payloads into the canonical
// NormalizedMessage. Channel variance lives here and nowhere else.
type Adapter struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Adapter {
	return &Adapter{log: log.With(sl.Module("service.adapter"))}
}

// Normalize dispatches on channel; synthetic message types bypass the
// channel normalizers entirely.
func (a *Adapter) Normalize(channel, messageType string, body map[string]any) entity.NormalizedMessage {
	switch messageType {
	case entity.MessageTypeDelayComplete, entity.MessageTypeScheduledTrigger:
		return entity.NormalizedMessage{InteractiveType: entity.InteractiveNone, Raw: body}
	}

	var msg entity.NormalizedMessage
	switch strings.ToLower(channel) {
	case "whatsapp":
		msg = normalizeWhatsApp(messageType, body)
	case "email":
		msg = normalizeEmail(body)
	case "telegram":
		msg = normalizeTelegram(body)
	case "sms":
		msg = normalizeSMS(body)
	case "instagram":
		msg = normalizeInstagram(body)
	case "facebook":
		msg = normalizeFacebook(body)
	default:
		a.log.Debug("unknown channel, using generic normalizer", slog.String("channel", channel))
		msg = normalizeGeneric(body)
	}
	msg.Raw = body
	if msg.InteractiveType == "" {
		msg.InteractiveType = entity.InteractiveNone
	}
	return msg
}

func normalizeWhatsApp(messageType string, body map[string]any) entity.NormalizedMessage {
	var msg entity.NormalizedMessage
	switch messageType {
	case "text":
		msg.Text = stringAt(body, "text", "body")
	case "button":
		msg.ButtonText = stringAt(body, "button", "text")
		msg.ButtonPayload = stringAt(body, "button", "payload")
	case "interactive":
		kind := stringAt(body, "interactive", "type")
		switch kind {
		case "button_reply":
			msg.InteractiveType = entity.InteractiveButtonReply
			msg.InteractiveValue = stringAt(body, "interactive", "button_reply", "title")
			msg.ButtonPayload = stringAt(body, "interactive", "button_reply", "id")
		case "list_reply":
			msg.InteractiveType = entity.InteractiveListReply
			msg.InteractiveValue = stringAt(body, "interactive", "list_reply", "title")
			msg.ButtonPayload = stringAt(body, "interactive", "list_reply", "id")
		}
	case "image", "video", "audio", "document", "sticker":
		msg.MediaType = messageType
		msg.MediaURL = stringAt(body, messageType, "link")
		msg.Text = stringAt(body, messageType, "caption")
	default:
		msg.Text = stringAt(body, "text", "body")
	}
	return msg
}

func normalizeEmail(body map[string]any) entity.NormalizedMessage {
	return entity.NormalizedMessage{
		Subject: stringAt(body, "subject"),
		Body:    firstString(body, "body", "text", "snippet"),
	}
}

func normalizeTelegram(body map[string]any) entity.NormalizedMessage {
	if data := stringAt(body, "callback_query", "data"); data != "" {
		return entity.NormalizedMessage{
			InteractiveType:  entity.InteractiveButtonReply,
			InteractiveValue: data,
			ButtonPayload:    data,
		}
	}
	text := stringAt(body, "message", "text")
	if text == "" {
		text = stringAt(body, "text")
	}
	return entity.NormalizedMessage{Text: text}
}

func normalizeSMS(body map[string]any) entity.NormalizedMessage {
	return entity.NormalizedMessage{Text: firstString(body, "text", "body", "message")}
}

func normalizeInstagram(body map[string]any) entity.NormalizedMessage {
	return entity.NormalizedMessage{Text: firstString(body, "text", "message")}
}

func normalizeFacebook(body map[string]any) entity.NormalizedMessage {
	if payload := stringAt(body, "postback", "payload"); payload != "" {
		return entity.NormalizedMessage{
			ButtonText:    stringAt(body, "postback", "title"),
			ButtonPayload: payload,
		}
	}
	return entity.NormalizedMessage{Text: firstString(body, "text", "message")}
}

func normalizeGeneric(body map[string]any) entity.NormalizedMessage {
	return entity.NormalizedMessage{Text: firstString(body, "text", "body", "message", "content")}
}

// stringAt walks nested maps and returns the leaf as a string, empty on any
// miss.
func stringAt(body map[string]any, path ...string) string {
	current := any(body)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current, ok = m[key]
		if !ok {
			return ""
		}
	}
	switch v := current.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func firstString(body map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := stringAt(body, key); v != "" {
			return v
		}
	}
	return ""
}
