package trigger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowengine/entity"
)

type fakeStore struct {
	flows []entity.Flow
}

func (f *fakeStore) GetPublishedFlows(context.Context, int64) ([]entity.Flow, error) {
	return f.flows, nil
}

func keywordFlow(id string, keywords ...string) entity.Flow {
	return entity.Flow{
		ID:     id,
		Status: entity.FlowStatusPublished,
		Nodes: []entity.Node{
			{ID: id + "-t", Type: entity.NodeTriggerKeyword, IsStartNode: true, TriggerKeywords: keywords},
		},
	}
}

func newTestMatcher(flows ...entity.Flow) *Matcher {
	return New(&fakeStore{flows: flows}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMatchKeywordContainment(t *testing.T) {
	m := newTestMatcher(keywordFlow("f1", "order status"))

	match, err := m.Match(context.Background(), 1, entity.MessageTypeText,
		entity.NormalizedMessage{Text: "hi, what is my ORDER STATUS please"})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "f1", match.FlowID)
	assert.Equal(t, "f1-t", match.TriggerNodeID)
}

func TestMatchKeywordRequiresTextType(t *testing.T) {
	m := newTestMatcher(keywordFlow("f1", "hello"))

	match, err := m.Match(context.Background(), 1, "image",
		entity.NormalizedMessage{Text: "hello"})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMatchNoKeyword(t *testing.T) {
	m := newTestMatcher(keywordFlow("f1", "hello"))

	match, err := m.Match(context.Background(), 1, entity.MessageTypeText,
		entity.NormalizedMessage{Text: "goodbye"})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMatchEmptyMessage(t *testing.T) {
	m := newTestMatcher(keywordFlow("f1", "hello"))

	match, err := m.Match(context.Background(), 1, entity.MessageTypeText, entity.NormalizedMessage{})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMatchFirstFlowWins(t *testing.T) {
	// the store returns flows newest first; the first match takes the event
	m := newTestMatcher(keywordFlow("newer", "hello"), keywordFlow("older", "hello"))

	match, err := m.Match(context.Background(), 1, entity.MessageTypeText,
		entity.NormalizedMessage{Text: "hello"})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "newer", match.FlowID)
}

func TestMatchTemplateTrigger(t *testing.T) {
	flow := entity.Flow{
		ID:     "f2",
		Status: entity.FlowStatusPublished,
		Nodes: []entity.Node{
			{
				ID:                "t2",
				Type:              entity.NodeTriggerTemplate,
				IsStartNode:       true,
				TriggerTemplateID: "welcome_tpl",
				ExpectedAnswers: []entity.ExpectedAnswer{
					{ID: "a1", ExpectedInput: "Start now"},
				},
			},
		},
	}
	m := newTestMatcher(flow)

	match, err := m.Match(context.Background(), 1, "button",
		entity.NormalizedMessage{Text: "Welcome_TPL"})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "f2", match.FlowID)

	match, err = m.Match(context.Background(), 1, "button",
		entity.NormalizedMessage{ButtonText: "start now"})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "t2", match.TriggerNodeID)
}
