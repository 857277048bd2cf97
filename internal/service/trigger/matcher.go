package trigger

import (
	"context"
	"log/slog"
	"strings"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
)

type Store interface {
	GetPublishedFlows(ctx context.Context, brandID int64) ([]entity.Flow, error)
}

// Match names the flow and trigger node an inbound message starts.
type Match struct {
	FlowID        string
	TriggerNodeID string
}

// Matcher finds the published flow whose trigger matches an inbound
// message. Only published flows participate; ties go to the most recently
// updated flow (the store returns them in that order).
type Matcher struct {
	store Store
	log   *slog.Logger
}

func New(store Store, log *slog.Logger) *Matcher {
	return &Matcher{
		store: store,
		log:   log.With(sl.Module("service.trigger")),
	}
}

func (m *Matcher) Match(ctx context.Context, brandID int64, messageType string, msg entity.NormalizedMessage) (*Match, error) {
	flows, err := m.store.GetPublishedFlows(ctx, brandID)
	if err != nil {
		return nil, err
	}

	text := strings.ToLower(strings.TrimSpace(msg.GetTextContent()))
	if text == "" {
		return nil, nil
	}

	for i := range flows {
		flow := &flows[i]
		start := flow.StartNode()
		if start == nil || !start.IsTrigger() {
			continue
		}

		switch start.Type {
		case entity.NodeTriggerKeyword:
			if messageType != entity.MessageTypeText {
				continue
			}
			for _, keyword := range start.TriggerKeywords {
				keyword = strings.ToLower(strings.TrimSpace(keyword))
				if keyword != "" && strings.Contains(text, keyword) {
					m.log.Debug("keyword trigger matched",
						slog.String("flow_id", flow.ID),
						slog.String("keyword", keyword),
					)
					return &Match{FlowID: flow.ID, TriggerNodeID: start.ID}, nil
				}
			}
		case entity.NodeTriggerTemplate:
			if strings.EqualFold(strings.TrimSpace(msg.GetTextContent()), start.TriggerTemplateID) {
				return &Match{FlowID: flow.ID, TriggerNodeID: start.ID}, nil
			}
			for _, answer := range start.ExpectedAnswers {
				if strings.EqualFold(strings.TrimSpace(answer.ExpectedInput), strings.TrimSpace(msg.GetTextContent())) {
					return &Match{FlowID: flow.ID, TriggerNodeID: start.ID}, nil
				}
			}
		}
	}
	return nil, nil
}
