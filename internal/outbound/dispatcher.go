package outbound

import (
	"context"
	"log/slog"
	"strings"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
)

// Renderer delivers one outbound intent on a specific channel.
type Renderer interface {
	Render(ctx context.Context, intent entity.OutboundIntent) error
}

// Broadcaster mirrors intents to live observers.
type Broadcaster interface {
	BroadcastIntent(intent entity.OutboundIntent)
}

// Dispatcher routes intents to the channel renderer. Channels without a
// registered renderer are logged only; delivery stays fire-and-forget
// either way.
type Dispatcher struct {
	renderers   map[string]Renderer
	broadcaster Broadcaster
	log         *slog.Logger
}

func NewDispatcher(log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		renderers: make(map[string]Renderer),
		log:       log.With(sl.Module("outbound")),
	}
}

func (d *Dispatcher) Register(channel string, renderer Renderer) {
	d.renderers[strings.ToLower(channel)] = renderer
	d.log.Info("renderer registered", slog.String("channel", channel))
}

func (d *Dispatcher) SetBroadcaster(b Broadcaster) {
	d.broadcaster = b
}

func (d *Dispatcher) Render(ctx context.Context, intent entity.OutboundIntent) error {
	if d.broadcaster != nil {
		d.broadcaster.BroadcastIntent(intent)
	}

	renderer, ok := d.renderers[strings.ToLower(intent.Channel)]
	if !ok {
		d.log.Info("outbound intent",
			slog.String("channel", intent.Channel),
			slog.String("recipient", intent.Recipient),
			slog.String("node_id", intent.NodeID),
			slog.String("node_type", intent.NodeType),
			slog.Any("text", intent.TextParts()),
		)
		return nil
	}
	return renderer.Render(ctx, intent)
}
