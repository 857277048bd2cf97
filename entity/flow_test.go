package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{FlowStatusDraft, FlowStatusPublished, true},
		{FlowStatusPublished, FlowStatusStop, true},
		{FlowStatusStop, FlowStatusPublished, true},
		{FlowStatusDraft, FlowStatusStop, false},
		{FlowStatusPublished, FlowStatusDraft, false},
		{FlowStatusStop, FlowStatusDraft, false},
		{FlowStatusPublished, FlowStatusPublished, false},
	}
	for _, c := range cases {
		f := Flow{Status: c.from}
		assert.Equal(t, c.want, f.CanTransition(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestFlowStartNode(t *testing.T) {
	f := Flow{Nodes: []Node{
		{ID: "m1", Type: NodeMessage},
		{ID: "t1", Type: NodeTriggerKeyword, IsStartNode: true},
	}}

	start := f.StartNode()
	require.NotNil(t, start)
	assert.Equal(t, "t1", start.ID)

	assert.Nil(t, (&Flow{}).StartNode())
}

func TestNewFlowDefaults(t *testing.T) {
	f := NewFlow("welcome", 7, 42)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, FlowStatusDraft, f.Status)
	assert.Equal(t, int64(7), f.BrandID)
	assert.Equal(t, int64(42), f.UserID)
	assert.False(t, f.CreatedAt.IsZero())
}

func TestTriggersFromFlow(t *testing.T) {
	f := &Flow{
		ID:      "f1",
		BrandID: 3,
		Nodes: []Node{
			{ID: "t1", Type: NodeTriggerKeyword, IsStartNode: true, TriggerKeywords: []string{"hi", "hello"}},
		},
	}

	triggers := TriggersFromFlow(f)
	require.Len(t, triggers, 1)
	assert.Equal(t, TriggerTypeKeyword, triggers[0].TriggerType)
	assert.Equal(t, []string{"hi", "hello"}, triggers[0].TriggerValues)
	assert.Equal(t, "t1", triggers[0].NodeID)

	f.Nodes[0] = Node{ID: "t2", Type: NodeTriggerTemplate, IsStartNode: true, TriggerTemplateID: "tpl-9"}
	triggers = TriggersFromFlow(f)
	require.Len(t, triggers, 1)
	assert.Equal(t, TriggerTypeTemplate, triggers[0].TriggerType)
	assert.Equal(t, []string{"tpl-9"}, triggers[0].TriggerValues)

	// message start node yields nothing
	f.Nodes[0] = Node{ID: "m1", Type: NodeMessage, IsStartNode: true}
	assert.Empty(t, TriggersFromFlow(f))
}

func TestEdgesFromStableOrder(t *testing.T) {
	edges := []Edge{
		{ID: "e3", SourceNodeID: "n1", TargetNodeID: "c"},
		{ID: "e1", SourceNodeID: "n1", TargetNodeID: "a"},
		{ID: "e2", SourceNodeID: "n2", TargetNodeID: "b"},
	}

	out := EdgesFrom(edges, "n1")
	require.Len(t, out, 2)
	assert.Equal(t, "e1", out[0].ID)
	assert.Equal(t, "e3", out[1].ID)

	assert.Empty(t, EdgesFrom(edges, "missing"))
}

func TestNodeSubEntry(t *testing.T) {
	n := Node{
		ID:   "bq1",
		Type: NodeButtonQuestion,
		ExpectedAnswers: []ExpectedAnswer{
			{ID: "b1", ExpectedInput: "Yes", NodeResultID: "m2"},
			{ID: "b2", ExpectedInput: "No"},
		},
		ConditionResult: []ResultEntry{
			{ID: "c1__true", NodeResultID: "m3"},
		},
		DelayResult: []ResultEntry{
			{ID: "d1__not_interrupted", NodeResultID: "m4"},
		},
	}

	target, ok := n.SubEntry("b1")
	require.True(t, ok)
	assert.Equal(t, "m2", target)

	target, ok = n.SubEntry("b2")
	require.True(t, ok)
	assert.Empty(t, target)

	target, ok = n.SubEntry("c1__true")
	require.True(t, ok)
	assert.Equal(t, "m3", target)

	target, ok = n.SubEntry("d1__not_interrupted")
	require.True(t, ok)
	assert.Equal(t, "m4", target)

	_, ok = n.SubEntry("nope")
	assert.False(t, ok)
}

func TestResultBySuffix(t *testing.T) {
	n := Node{ID: "c1", Type: NodeCondition}
	entries := []ResultEntry{
		{ID: "c1__false", NodeResultID: "mF"},
		{ID: "c1__true", NodeResultID: "mT"},
	}

	entry := n.ResultBySuffix(entries, BranchTrue)
	require.NotNil(t, entry)
	assert.Equal(t, "mT", entry.NodeResultID)

	assert.Nil(t, n.ResultBySuffix(entries, BranchNotInterrupted))
}

func TestGetTextContentPrecedence(t *testing.T) {
	assert.Equal(t, "picked", NormalizedMessage{
		InteractiveValue: "picked",
		ButtonText:       "btn",
		Text:             "plain",
	}.GetTextContent())

	assert.Equal(t, "btn", NormalizedMessage{ButtonText: "btn", Text: "plain"}.GetTextContent())
	assert.Equal(t, "plain", NormalizedMessage{Text: "plain"}.GetTextContent())
	assert.Equal(t, "Subj\nBody", NormalizedMessage{Subject: "Subj", Body: "Body"}.GetTextContent())
	assert.Equal(t, "Body", NormalizedMessage{Body: "Body"}.GetTextContent())
	assert.Empty(t, NormalizedMessage{}.GetTextContent())
}

func TestUserStateExitAutomation(t *testing.T) {
	u := UserState{
		IsInAutomation: true,
		CurrentFlowID:  "f1",
		CurrentNodeID:  "n1",
		DelayNodeData:  &Node{ID: "d1"},
		Validation:     Validation{FailureCount: 2, Failed: true, FailureMessage: "try again"},
	}

	u.ExitAutomation()

	assert.False(t, u.IsInAutomation)
	assert.Equal(t, "f1", u.LastFlowID)
	assert.Empty(t, u.CurrentFlowID)
	assert.Empty(t, u.CurrentNodeID)
	assert.Nil(t, u.DelayNodeData)
	assert.Zero(t, u.Validation)
}

func TestEventMetadataKey(t *testing.T) {
	meta := EventMetadata{
		Sender:           "+15550001",
		BrandID:          9,
		Channel:          "whatsapp",
		ChannelAccountID: "acct-1",
		MessageType:      MessageTypeText,
	}
	key := meta.Key()
	assert.Equal(t, "+15550001|9|whatsapp|acct-1", key.String())
}
