package userstate

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowengine/entity"
	"flowengine/internal/service/condition"
	"flowengine/internal/service/internalnode"
	"flowengine/internal/service/nodeident"
	"flowengine/internal/service/trigger"
	"flowengine/internal/service/validation"
	"flowengine/internal/service/variables"
)

// fakeStore backs every store interface the engine touches with in-memory
// maps.
type fakeStore struct {
	mu           sync.Mutex
	flows        map[string]*entity.Flow
	users        map[string]entity.UserState
	usersByID    map[string]string
	details      map[string]entity.NodeDetail
	vars         map[string]string
	timers       []entity.DelayTimer
	transactions []entity.Transaction
}

func newFakeStore(flows ...*entity.Flow) *fakeStore {
	s := &fakeStore{
		flows:     map[string]*entity.Flow{},
		users:     map[string]entity.UserState{},
		usersByID: map[string]string{},
		details:   map[string]entity.NodeDetail{},
		vars:      map[string]string{},
	}
	for _, f := range flows {
		s.flows[f.ID] = f
	}
	for _, d := range entity.DefaultNodeCatalog() {
		s.details[d.NodeID] = d
	}
	return s
}

func (s *fakeStore) GetUserState(_ context.Context, key entity.UserKey) (*entity.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[key.String()]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *fakeStore) GetUserStateByID(_ context.Context, id string) (*entity.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.usersByID[id]; ok {
		u := s.users[key]
		return &u, nil
	}
	return nil, nil
}

func (s *fakeStore) SaveUserState(_ context.Context, state *entity.UserState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[state.Key.String()] = *state
	s.usersByID[state.ID] = state.Key.String()
	return nil
}

func (s *fakeStore) GetFlowByID(_ context.Context, flowID string) (*entity.Flow, error) {
	return s.flows[flowID], nil
}

func (s *fakeStore) GetFlowEdges(_ context.Context, flowID string) ([]entity.Edge, error) {
	if f := s.flows[flowID]; f != nil {
		return f.Edges, nil
	}
	return nil, nil
}

func (s *fakeStore) GetPublishedFlows(context.Context, int64) ([]entity.Flow, error) {
	var out []entity.Flow
	for _, f := range s.flows {
		if f.Status == entity.FlowStatusPublished {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *fakeStore) GetNodeDetail(_ context.Context, nodeID string) (*entity.NodeDetail, error) {
	if d, ok := s.details[nodeID]; ok {
		return &d, nil
	}
	return nil, nil
}

func (s *fakeStore) SaveDelayTimer(_ context.Context, timer *entity.DelayTimer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers = append(s.timers, *timer)
	return nil
}

func (s *fakeStore) SaveTransaction(_ context.Context, tx *entity.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, *tx)
	return nil
}

func (s *fakeStore) GetFlowVariables(_ context.Context, key entity.UserKey, flowID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]string{}
	prefix := key.String() + "|" + flowID + "|"
	for k, v := range s.vars {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out[k[len(prefix):]] = v
		}
	}
	return out, nil
}

func (s *fakeStore) SaveFlowVariable(_ context.Context, key entity.UserKey, flowID, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[key.String()+"|"+flowID+"|"+name] = value
	return nil
}

type recordingRenderer struct {
	mu      sync.Mutex
	intents []entity.OutboundIntent
}

func (r *recordingRenderer) Render(_ context.Context, intent entity.OutboundIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, intent)
	return nil
}

func (r *recordingRenderer) nodeIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.intents))
	for _, i := range r.intents {
		out = append(out, i.NodeID)
	}
	return out
}

func newTestEngine(flows ...*entity.Flow) (*Service, *fakeStore, *recordingRenderer) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newFakeStore(flows...)
	renderer := &recordingRenderer{}

	vars := variables.New(store, log)
	processor := internalnode.New(vars, log)
	identifier := nodeident.New(store, processor, renderer, log)
	matcher := trigger.New(store, log)
	validator := validation.New(log)

	return New(store, matcher, validator, identifier, vars, log), store, renderer
}

func textEvent(text string) (entity.EventMetadata, entity.NormalizedMessage) {
	meta := entity.EventMetadata{
		Sender:           "+15550001",
		BrandID:          1,
		Channel:          "whatsapp",
		ChannelAccountID: "acct-1",
		MessageType:      entity.MessageTypeText,
	}
	return meta, entity.NormalizedMessage{Text: text, InteractiveType: entity.InteractiveNone}
}

func (s *fakeStore) mustUser(t *testing.T, key entity.UserKey) entity.UserState {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[key.String()]
	require.True(t, ok, "user state not saved")
	return u
}

func TestTriggerTerminalFlow(t *testing.T) {
	flow := &entity.Flow{
		ID:      "f1",
		BrandID: 1,
		Status:  entity.FlowStatusPublished,
		Nodes: []entity.Node{
			{ID: "t1", Type: entity.NodeTriggerKeyword, IsStartNode: true, TriggerKeywords: []string{"hi"}},
			{ID: "m1", Type: entity.NodeMessage},
		},
		Edges: []entity.Edge{{ID: "e1", SourceNodeID: "t1", TargetNodeID: "m1"}},
	}
	engine, store, renderer := newTestEngine(flow)
	meta, msg := textEvent("hi there")

	outcome := engine.ProcessEvent(context.Background(), meta, msg)

	assert.Equal(t, OutcomeTriggered, outcome.Status)
	assert.Equal(t, "flow completed", outcome.Detail)
	assert.Equal(t, []string{"m1"}, renderer.nodeIDs())

	user := store.mustUser(t, meta.Key())
	assert.False(t, user.IsInAutomation)
	assert.Equal(t, "f1", user.LastFlowID)
	assert.Empty(t, user.CurrentNodeID)
}

func TestNoTriggerCreatesIdleUser(t *testing.T) {
	engine, store, renderer := newTestEngine()
	meta, msg := textEvent("nothing matches this")

	outcome := engine.ProcessEvent(context.Background(), meta, msg)

	assert.Equal(t, OutcomeNoTrigger, outcome.Status)
	assert.Empty(t, renderer.nodeIDs())
	user := store.mustUser(t, meta.Key())
	assert.False(t, user.IsInAutomation)
}

func buttonQuestionFlow() *entity.Flow {
	return &entity.Flow{
		ID:      "f1",
		BrandID: 1,
		Status:  entity.FlowStatusPublished,
		Nodes: []entity.Node{
			{ID: "t1", Type: entity.NodeTriggerKeyword, IsStartNode: true, TriggerKeywords: []string{"hi"}},
			{
				ID:   "bq1",
				Type: entity.NodeButtonQuestion,
				ExpectedAnswers: []entity.ExpectedAnswer{
					{ID: "b1", ExpectedInput: "Yes", NodeResultID: "m2"},
					{ID: "b2", ExpectedInput: "No", NodeResultID: "m3"},
				},
			},
			{ID: "m2", Type: entity.NodeMessage},
			{ID: "m3", Type: entity.NodeMessage},
		},
		Edges: []entity.Edge{{ID: "e1", SourceNodeID: "t1", TargetNodeID: "bq1"}},
	}
}

func TestButtonQuestionRoundTrip(t *testing.T) {
	engine, store, renderer := newTestEngine(buttonQuestionFlow())
	ctx := context.Background()

	meta, msg := textEvent("hi")
	outcome := engine.ProcessEvent(ctx, meta, msg)
	assert.Equal(t, OutcomeTriggered, outcome.Status)

	user := store.mustUser(t, meta.Key())
	assert.True(t, user.IsInAutomation)
	assert.Equal(t, "f1", user.CurrentFlowID)
	assert.Equal(t, "bq1", user.CurrentNodeID)

	// matched answer resolves through its nodeResultId
	meta, msg = textEvent("Yes")
	outcome = engine.ProcessEvent(ctx, meta, msg)
	assert.Equal(t, OutcomeProcessed, outcome.Status)
	assert.Equal(t, "flow completed", outcome.Detail)
	assert.Equal(t, []string{"bq1", "m2"}, renderer.nodeIDs())

	user = store.mustUser(t, meta.Key())
	assert.False(t, user.IsInAutomation)
}

func TestButtonQuestionPayloadMatch(t *testing.T) {
	engine, store, renderer := newTestEngine(buttonQuestionFlow())
	ctx := context.Background()

	meta, msg := textEvent("hi")
	engine.ProcessEvent(ctx, meta, msg)

	msg = entity.NormalizedMessage{
		InteractiveType:  entity.InteractiveButtonReply,
		InteractiveValue: "No",
		ButtonPayload:    "b2",
	}
	outcome := engine.ProcessEvent(ctx, meta, msg)
	assert.Equal(t, OutcomeProcessed, outcome.Status)
	assert.Equal(t, []string{"bq1", "m3"}, renderer.nodeIDs())

	user := store.mustUser(t, meta.Key())
	assert.False(t, user.IsInAutomation)
}

func TestCrossNodeMatchJumps(t *testing.T) {
	flow := buttonQuestionFlow()
	flow.Nodes = append(flow.Nodes, entity.Node{
		ID:   "bq2",
		Type: entity.NodeButtonQuestion,
		ExpectedAnswers: []entity.ExpectedAnswer{
			{ID: "p1", ExpectedInput: "Pricing"},
		},
	})
	engine, store, renderer := newTestEngine(flow)
	ctx := context.Background()

	meta, msg := textEvent("hi")
	engine.ProcessEvent(ctx, meta, msg)

	// the reply matches another node's expected answer, not bq1's
	meta, msg = textEvent("Pricing")
	outcome := engine.ProcessEvent(ctx, meta, msg)
	assert.Equal(t, OutcomeProcessed, outcome.Status)
	assert.Equal(t, []string{"bq1", "bq2"}, renderer.nodeIDs())

	user := store.mustUser(t, meta.Key())
	assert.True(t, user.IsInAutomation)
	assert.Equal(t, "bq2", user.CurrentNodeID)
}

func TestValidationRetryThenExit(t *testing.T) {
	flow := &entity.Flow{
		ID:      "f1",
		BrandID: 1,
		Status:  entity.FlowStatusPublished,
		Nodes: []entity.Node{
			{ID: "t1", Type: entity.NodeTriggerKeyword, IsStartNode: true, TriggerKeywords: []string{"age"}},
			{
				ID:                "q1",
				Type:              entity.NodeQuestion,
				UserInputVariable: "@age",
				AnswerValidation: &entity.AnswerValidation{
					Type:       "Number",
					Fallback:   "numbers only",
					FailsCount: 2,
				},
			},
		},
		Edges: []entity.Edge{{ID: "e1", SourceNodeID: "t1", TargetNodeID: "q1"}},
	}
	engine, store, renderer := newTestEngine(flow)
	ctx := context.Background()

	meta, msg := textEvent("age")
	engine.ProcessEvent(ctx, meta, msg)

	// first bad reply re-renders the question with the fallback
	meta, msg = textEvent("abc")
	outcome := engine.ProcessEvent(ctx, meta, msg)
	assert.Equal(t, OutcomeProcessed, outcome.Status)

	user := store.mustUser(t, meta.Key())
	assert.True(t, user.IsInAutomation)
	assert.Equal(t, 1, user.Validation.FailureCount)
	assert.True(t, user.Validation.Failed)

	intents := renderer.intents
	require.Len(t, intents, 2)
	assert.Equal(t, "q1", intents[1].NodeID)
	assert.Equal(t, "numbers only", intents[1].FallbackMessage)

	// second bad reply exhausts the attempts and exits the automation
	meta, msg = textEvent("still not a number")
	outcome = engine.ProcessEvent(ctx, meta, msg)
	assert.Equal(t, OutcomeProcessed, outcome.Status)
	assert.Equal(t, "validation exit", outcome.Detail)

	// the fallback rendered one last time on the way out
	require.Len(t, renderer.intents, 3)
	assert.Equal(t, "q1", renderer.intents[2].NodeID)
	assert.Equal(t, "numbers only", renderer.intents[2].FallbackMessage)

	user = store.mustUser(t, meta.Key())
	assert.False(t, user.IsInAutomation)
	assert.Zero(t, user.Validation)
}

func TestValidReplyStoresVariable(t *testing.T) {
	flow := &entity.Flow{
		ID:      "f1",
		BrandID: 1,
		Status:  entity.FlowStatusPublished,
		Nodes: []entity.Node{
			{ID: "t1", Type: entity.NodeTriggerKeyword, IsStartNode: true, TriggerKeywords: []string{"age"}},
			{ID: "q1", Type: entity.NodeQuestion, UserInputVariable: "@age"},
			{ID: "m1", Type: entity.NodeMessage},
		},
		Edges: []entity.Edge{
			{ID: "e1", SourceNodeID: "t1", TargetNodeID: "q1"},
			{ID: "e2", SourceNodeID: "q1", TargetNodeID: "m1"},
		},
	}
	engine, store, renderer := newTestEngine(flow)
	ctx := context.Background()

	meta, msg := textEvent("age")
	engine.ProcessEvent(ctx, meta, msg)

	meta, msg = textEvent("42")
	outcome := engine.ProcessEvent(ctx, meta, msg)
	assert.Equal(t, OutcomeProcessed, outcome.Status)
	assert.Equal(t, "flow completed", outcome.Detail)
	assert.Equal(t, []string{"q1", "m1"}, renderer.nodeIDs())

	vars, err := store.GetFlowVariables(ctx, meta.Key(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "42", vars["age"])
}

func TestConditionBranching(t *testing.T) {
	flow := &entity.Flow{
		ID:      "f1",
		BrandID: 1,
		Status:  entity.FlowStatusPublished,
		Nodes: []entity.Node{
			{ID: "t1", Type: entity.NodeTriggerKeyword, IsStartNode: true, TriggerKeywords: []string{"start"}},
			{ID: "q1", Type: entity.NodeQuestion, UserInputVariable: "@answer"},
			{
				ID:   "c1",
				Type: entity.NodeCondition,
				Conditions: []entity.Condition{
					{CondType: condition.Contains, Variable: "@answer", Value: "yes"},
				},
				ConditionResult: []entity.ResultEntry{
					{ID: "c1__true", NodeResultID: "mYes"},
					{ID: "c1__false", NodeResultID: "mNo"},
				},
			},
			{ID: "mYes", Type: entity.NodeMessage},
			{ID: "mNo", Type: entity.NodeMessage},
		},
		Edges: []entity.Edge{
			{ID: "e1", SourceNodeID: "t1", TargetNodeID: "q1"},
			{ID: "e2", SourceNodeID: "q1", TargetNodeID: "c1"},
		},
	}
	engine, store, renderer := newTestEngine(flow)
	ctx := context.Background()

	meta, msg := textEvent("start")
	engine.ProcessEvent(ctx, meta, msg)

	meta, msg = textEvent("Myes")
	outcome := engine.ProcessEvent(ctx, meta, msg)
	assert.Equal(t, OutcomeProcessed, outcome.Status)

	// the condition is silent; only q1 and the true branch render
	assert.Equal(t, []string{"q1", "mYes"}, renderer.nodeIDs())
	user := store.mustUser(t, meta.Key())
	assert.False(t, user.IsInAutomation)
}

func delayFlow() *entity.Flow {
	return &entity.Flow{
		ID:      "f1",
		BrandID: 1,
		Status:  entity.FlowStatusPublished,
		Nodes: []entity.Node{
			{ID: "t1", Type: entity.NodeTriggerKeyword, IsStartNode: true, TriggerKeywords: []string{"wait"}},
			{ID: "m1", Type: entity.NodeMessage},
			{
				ID:            "d1",
				Type:          entity.NodeDelay,
				DelayDuration: 1,
				DelayUnit:     "minutes",
				DelayResult: []entity.ResultEntry{
					{ID: "d1__interrupted"},
					{ID: "d1__not_interrupted", NodeResultID: "m2"},
				},
			},
			{ID: "m2", Type: entity.NodeMessage},
		},
		Edges: []entity.Edge{
			{ID: "e1", SourceNodeID: "t1", TargetNodeID: "m1"},
			{ID: "e2", SourceNodeID: "m1", TargetNodeID: "d1"},
		},
	}
}

func TestDelaySuspendAndResume(t *testing.T) {
	engine, store, renderer := newTestEngine(delayFlow())
	ctx := context.Background()

	meta, msg := textEvent("wait")
	outcome := engine.ProcessEvent(ctx, meta, msg)
	assert.Equal(t, OutcomeTriggered, outcome.Status)
	assert.Equal(t, "delay scheduled", outcome.Detail)
	assert.Equal(t, []string{"m1"}, renderer.nodeIDs())

	user := store.mustUser(t, meta.Key())
	assert.True(t, user.IsInAutomation)
	require.NotNil(t, user.DelayNodeData)
	assert.Equal(t, "d1", user.DelayNodeData.ID)

	require.Len(t, store.timers, 1)
	timer := store.timers[0]
	assert.Equal(t, "d1", timer.DelayNodeID)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Minute), timer.CompletesAt, 5*time.Second)

	// replies during the delay are swallowed
	meta, msg = textEvent("are you there?")
	outcome = engine.ProcessEvent(ctx, meta, msg)
	assert.Equal(t, OutcomeIgnored, outcome.Status)

	// timer fires
	delayMeta := entity.EventMetadata{
		Sender:           meta.Sender,
		BrandID:          meta.BrandID,
		Channel:          meta.Channel,
		ChannelAccountID: meta.ChannelAccountID,
		MessageType:      entity.MessageTypeDelayComplete,
	}
	delayMsg := entity.NormalizedMessage{
		InteractiveType: entity.InteractiveNone,
		Raw:             map[string]any{"user_state_id": user.ID},
	}
	outcome = engine.ProcessEvent(ctx, delayMeta, delayMsg)
	assert.Equal(t, OutcomeProcessed, outcome.Status)
	assert.Equal(t, "flow completed", outcome.Detail)
	assert.Equal(t, []string{"m1", "m2"}, renderer.nodeIDs())

	user = store.mustUser(t, meta.Key())
	assert.False(t, user.IsInAutomation)
	assert.Nil(t, user.DelayNodeData)
}

func TestDelayCompleteWithoutPendingDelay(t *testing.T) {
	engine, store, _ := newTestEngine(delayFlow())
	ctx := context.Background()

	user := &entity.UserState{ID: "u1", Key: entity.UserKey{UserIdentifier: "x", BrandID: 1, Channel: "whatsapp"}}
	require.NoError(t, store.SaveUserState(ctx, user))

	outcome := engine.ProcessEvent(ctx,
		entity.EventMetadata{MessageType: entity.MessageTypeDelayComplete},
		entity.NormalizedMessage{Raw: map[string]any{"user_state_id": "u1"}},
	)
	assert.Equal(t, OutcomeDropped, outcome.Status)
}

func TestScheduledTrigger(t *testing.T) {
	flow := &entity.Flow{
		ID:      "f1",
		BrandID: 1,
		Status:  entity.FlowStatusPublished,
		Nodes: []entity.Node{
			{ID: "t1", Type: entity.NodeTriggerKeyword, IsStartNode: true, TriggerKeywords: []string{"hi"}},
			{ID: "m1", Type: entity.NodeMessage},
		},
		Edges: []entity.Edge{{ID: "e1", SourceNodeID: "t1", TargetNodeID: "m1"}},
	}
	engine, _, renderer := newTestEngine(flow)

	meta := entity.EventMetadata{
		Sender:      "+15550001",
		BrandID:     1,
		Channel:     "whatsapp",
		MessageType: entity.MessageTypeScheduledTrigger,
	}
	msg := entity.NormalizedMessage{Raw: map[string]any{"flow_id": "f1"}}

	outcome := engine.ProcessEvent(context.Background(), meta, msg)
	assert.Equal(t, OutcomeTriggered, outcome.Status)
	assert.Equal(t, []string{"m1"}, renderer.nodeIDs())
}

func TestScheduledTriggerUnpublishedFlow(t *testing.T) {
	flow := &entity.Flow{
		ID:      "f1",
		BrandID: 1,
		Status:  entity.FlowStatusDraft,
		Nodes: []entity.Node{
			{ID: "t1", Type: entity.NodeTriggerKeyword, IsStartNode: true},
		},
	}
	engine, _, _ := newTestEngine(flow)

	outcome := engine.ProcessEvent(context.Background(),
		entity.EventMetadata{MessageType: entity.MessageTypeScheduledTrigger},
		entity.NormalizedMessage{Raw: map[string]any{"flow_id": "f1"}},
	)
	assert.Equal(t, OutcomeDropped, outcome.Status)
}
