package userstate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"flowengine/entity"
	"flowengine/internal/lib/keymutex"
	"flowengine/internal/lib/sl"
	"flowengine/internal/service/internalnode"
	"flowengine/internal/service/nodeident"
	"flowengine/internal/service/trigger"
	"flowengine/internal/service/validation"
	"flowengine/internal/service/variables"
)

// Outcome statuses reported to the webhook layer.
const (
	OutcomeTriggered = "triggered"
	OutcomeProcessed = "processed"
	OutcomeNoTrigger = "no_trigger"
	OutcomeIgnored   = "ignored"
	OutcomeDropped   = "dropped"
	OutcomeError     = "error"
)

// maxReconcile bounds the auto-advance loop across internal nodes within
// one event.
const maxReconcile = 20

type Outcome struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type Store interface {
	GetUserState(ctx context.Context, key entity.UserKey) (*entity.UserState, error)
	GetUserStateByID(ctx context.Context, id string) (*entity.UserState, error)
	SaveUserState(ctx context.Context, state *entity.UserState) error
	GetFlowByID(ctx context.Context, flowID string) (*entity.Flow, error)
	GetFlowEdges(ctx context.Context, flowID string) ([]entity.Edge, error)
	GetNodeDetail(ctx context.Context, nodeID string) (*entity.NodeDetail, error)
	SaveDelayTimer(ctx context.Context, timer *entity.DelayTimer) error
}

// Service is the per-event dispatcher owning the user state machine. All
// processing for one user key runs under that key's mutex; distinct users
// proceed in parallel.
type Service struct {
	store      Store
	matcher    *trigger.Matcher
	validator  *validation.Validator
	identifier *nodeident.Identifier
	vars       *variables.Service
	locks      *keymutex.KeyMutex
	log        *slog.Logger
}

func New(store Store, matcher *trigger.Matcher, validator *validation.Validator, identifier *nodeident.Identifier, vars *variables.Service, log *slog.Logger) *Service {
	return &Service{
		store:      store,
		matcher:    matcher,
		validator:  validator,
		identifier: identifier,
		vars:       vars,
		locks:      keymutex.New(1024),
		log:        log.With(sl.Module("service.userstate")),
	}
}

// ProcessEvent is the single entry point for inbound and synthetic events.
func (s *Service) ProcessEvent(ctx context.Context, meta entity.EventMetadata, msg entity.NormalizedMessage) Outcome {
	if meta.MessageType == entity.MessageTypeDelayComplete {
		return s.processDelayComplete(ctx, msg)
	}

	unlock := s.locks.Lock(meta.Key().String())
	defer unlock()

	if meta.MessageType == entity.MessageTypeScheduledTrigger {
		return s.processScheduledTrigger(ctx, meta, msg)
	}

	user, err := s.store.GetUserState(ctx, meta.Key())
	if err != nil {
		return s.fail(err, "load user state")
	}
	if user == nil {
		if user, err = s.createUser(ctx, meta); err != nil {
			return s.fail(err, "create user state")
		}
		return s.tryTrigger(ctx, user, meta, msg)
	}
	user.LastEventAt = time.Now().UTC()

	if !user.IsInAutomation {
		return s.tryTrigger(ctx, user, meta, msg)
	}

	if user.DelayNodeData != nil {
		// interrupt is not implemented: the message is swallowed and the
		// timer fires later as scheduled
		s.log.Debug("reply during delay ignored",
			slog.String("user", user.Key.String()),
			slog.String("delay_node", user.DelayNodeData.ID),
		)
		return Outcome{Status: OutcomeIgnored, Detail: "delay in progress"}
	}

	return s.processInAutomation(ctx, user, meta, msg)
}

func (s *Service) createUser(ctx context.Context, meta entity.EventMetadata) (*entity.UserState, error) {
	now := time.Now().UTC()
	user := &entity.UserState{
		ID:          uuid.NewString(),
		Key:         meta.Key(),
		UserID:      meta.UserID,
		LastEventAt: now,
		CreatedAt:   now,
	}
	if err := s.store.SaveUserState(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user created", slog.String("user", user.Key.String()))
	return user, nil
}

// tryTrigger matches the message against published flows and enters the
// winning one, or drops the event.
func (s *Service) tryTrigger(ctx context.Context, user *entity.UserState, meta entity.EventMetadata, msg entity.NormalizedMessage) Outcome {
	match, err := s.matcher.Match(ctx, meta.BrandID, meta.MessageType, msg)
	if err != nil {
		return s.fail(err, "trigger match")
	}
	if match == nil {
		s.log.Debug("no trigger matched", slog.String("user", user.Key.String()))
		if err = s.store.SaveUserState(ctx, user); err != nil {
			return s.fail(err, "save user state")
		}
		return Outcome{Status: OutcomeNoTrigger}
	}

	flow, err := s.store.GetFlowByID(ctx, match.FlowID)
	if err != nil || flow == nil {
		return Outcome{Status: OutcomeError, Detail: "matched flow not found"}
	}

	result := s.identifier.IdentifyAndProcess(ctx, nodeident.Request{
		Metadata:      meta,
		CurrentNodeID: match.TriggerNodeID,
		FlowID:        flow.ID,
	})
	outcome := s.reconcile(ctx, user, flow, meta, result, "", "")
	if outcome.Status == OutcomeProcessed {
		outcome.Status = OutcomeTriggered
	}
	return outcome
}

func (s *Service) processScheduledTrigger(ctx context.Context, meta entity.EventMetadata, msg entity.NormalizedMessage) Outcome {
	flowID, _ := msg.Raw["flow_id"].(string)
	if flowID == "" {
		return Outcome{Status: OutcomeDropped, Detail: "scheduled trigger without flow_id"}
	}

	flow, err := s.store.GetFlowByID(ctx, flowID)
	if err != nil {
		return s.fail(err, "load flow")
	}
	if flow == nil || flow.Status != entity.FlowStatusPublished {
		return Outcome{Status: OutcomeDropped, Detail: "flow not published"}
	}
	start := flow.StartNode()
	if start == nil {
		return Outcome{Status: OutcomeDropped, Detail: "flow has no start node"}
	}

	user, err := s.store.GetUserState(ctx, meta.Key())
	if err != nil {
		return s.fail(err, "load user state")
	}
	if user == nil {
		if user, err = s.createUser(ctx, meta); err != nil {
			return s.fail(err, "create user state")
		}
	}

	result := s.identifier.IdentifyAndProcess(ctx, nodeident.Request{
		Metadata:      meta,
		CurrentNodeID: start.ID,
		FlowID:        flow.ID,
	})
	outcome := s.reconcile(ctx, user, flow, meta, result, "", "")
	if outcome.Status == OutcomeProcessed {
		outcome.Status = OutcomeTriggered
	}
	return outcome
}

// processInAutomation routes the reply through the validator when the
// current node expects input, straight to traversal otherwise.
func (s *Service) processInAutomation(ctx context.Context, user *entity.UserState, meta entity.EventMetadata, msg entity.NormalizedMessage) Outcome {
	flow, err := s.store.GetFlowByID(ctx, user.CurrentFlowID)
	if err != nil || flow == nil {
		return Outcome{Status: OutcomeError, Detail: "current flow not found"}
	}

	node := flow.FindNode(user.CurrentNodeID)
	if node == nil {
		return Outcome{Status: OutcomeError, Detail: "current node not found"}
	}

	detail, err := s.store.GetNodeDetail(ctx, node.Type)
	if err != nil {
		return s.fail(err, "load node detail")
	}
	inputRequired := detail != nil && detail.UserInputRequired

	if !inputRequired {
		result := s.identifier.IdentifyAndProcess(ctx, nodeident.Request{
			Metadata:      meta,
			CurrentNodeID: user.CurrentNodeID,
			FlowID:        flow.ID,
		})
		return s.reconcile(ctx, user, flow, meta, result, "", "")
	}

	verdict := s.validator.Validate(flow, user.CurrentNodeID, msg, user.Validation.FailureCount)
	switch verdict.Status {
	case validation.StatusMatched:
		result := s.identifier.IdentifyAndProcess(ctx, nodeident.Request{
			Metadata:      meta,
			CurrentNodeID: verdict.MatchedAnswerID,
			FlowID:        flow.ID,
		})
		return s.reconcile(ctx, user, flow, meta, result, verdict.Status, "")

	case validation.StatusMatchedOtherNode:
		result := s.identifier.IdentifyAndProcess(ctx, nodeident.Request{
			Metadata:        meta,
			NodeIDToProcess: verdict.MatchedNodeID,
			CurrentNodeID:   user.CurrentNodeID,
			FlowID:          flow.ID,
		})
		return s.reconcile(ctx, user, flow, meta, result, verdict.Status, "")

	case validation.StatusUseDefaultEdge:
		if verdict.Variable != "" {
			if err = s.vars.Set(ctx, user.Key, flow.ID, verdict.Variable, verdict.Value); err != nil {
				return s.fail(err, "save variable")
			}
		}
		result := s.identifier.IdentifyAndProcess(ctx, nodeident.Request{
			Metadata:      meta,
			CurrentNodeID: user.CurrentNodeID,
			FlowID:        flow.ID,
		})
		return s.reconcile(ctx, user, flow, meta, result, verdict.Status, "")

	case validation.StatusMismatchRetry:
		result := s.identifier.IdentifyAndProcess(ctx, nodeident.Request{
			Metadata:          meta,
			IsValidationError: true,
			FallbackMessage:   verdict.FallbackMessage,
			NodeIDToProcess:   user.CurrentNodeID,
			CurrentNodeID:     user.CurrentNodeID,
			FlowID:            flow.ID,
		})
		return s.reconcile(ctx, user, flow, meta, result, verdict.Status, verdict.FallbackMessage)

	case validation.StatusValidationExit:
		// the fallback renders one last time, then the user leaves the flow
		result := s.identifier.IdentifyAndProcess(ctx, nodeident.Request{
			Metadata:          meta,
			IsValidationError: true,
			FallbackMessage:   verdict.FallbackMessage,
			NodeIDToProcess:   user.CurrentNodeID,
			CurrentNodeID:     user.CurrentNodeID,
			FlowID:            flow.ID,
		})
		if result.Status != nodeident.StatusSuccess {
			s.log.Warn("validation exit rendering failed",
				slog.String("status", result.Status),
				slog.String("detail", result.Message),
			)
		}
		user.ExitAutomation()
		if err = s.store.SaveUserState(ctx, user); err != nil {
			return s.fail(err, "save user state")
		}
		return Outcome{Status: OutcomeProcessed, Detail: "validation exit"}

	default:
		return Outcome{Status: OutcomeError, Detail: verdict.Message}
	}
}

// processDelayComplete resumes a user whose timer expired. The event
// carries the user state id; a user without delay state means the timer was
// interrupted and the event is a no-op.
func (s *Service) processDelayComplete(ctx context.Context, msg entity.NormalizedMessage) Outcome {
	userStateID, _ := msg.Raw["user_state_id"].(string)
	if userStateID == "" {
		return Outcome{Status: OutcomeDropped, Detail: "delay complete without user_state_id"}
	}

	user, err := s.store.GetUserStateByID(ctx, userStateID)
	if err != nil {
		return s.fail(err, "load user state")
	}
	if user == nil {
		return Outcome{Status: OutcomeDropped, Detail: "user not found"}
	}

	unlock := s.locks.Lock(user.Key.String())
	defer unlock()

	// re-read under the lock; an interleaved event may have advanced state
	if user, err = s.store.GetUserStateByID(ctx, userStateID); err != nil || user == nil {
		return Outcome{Status: OutcomeDropped, Detail: "user not found"}
	}
	if user.DelayNodeData == nil {
		return Outcome{Status: OutcomeDropped, Detail: "no pending delay"}
	}

	flow, err := s.store.GetFlowByID(ctx, user.CurrentFlowID)
	if err != nil || flow == nil {
		return Outcome{Status: OutcomeError, Detail: "current flow not found"}
	}

	delayNode := user.DelayNodeData
	handle := delayNode.ID
	if entry := delayNode.ResultBySuffix(delayNode.DelayResult, entity.BranchNotInterrupted); entry != nil {
		handle = entry.ID
	}

	meta := entity.EventMetadata{
		Sender:           user.Key.UserIdentifier,
		BrandID:          user.Key.BrandID,
		UserID:           user.UserID,
		Channel:          user.Key.Channel,
		ChannelAccountID: user.Key.ChannelAccountID,
		MessageType:      entity.MessageTypeDelayComplete,
	}

	user.DelayNodeData = nil
	user.LastEventAt = time.Now().UTC()

	result := s.identifier.IdentifyAndProcess(ctx, nodeident.Request{
		Metadata:      meta,
		CurrentNodeID: handle,
		FlowID:        flow.ID,
	})
	return s.reconcile(ctx, user, flow, meta, result, "", "")
}

// reconcile applies an identifier result to the user state and keeps
// advancing through internal nodes and message chains until the flow parks
// on a question, suspends on a delay, or exits.
func (s *Service) reconcile(ctx context.Context, user *entity.UserState, flow *entity.Flow, meta entity.EventMetadata, result nodeident.Result, verdictStatus, fallback string) Outcome {
	if verdictStatus == validation.StatusMismatchRetry {
		user.Validation.Failed = true
		user.Validation.FailureMessage = fallback
		user.Validation.FailureCount++
	} else {
		user.ResetValidation()
	}

	for range maxReconcile {
		switch result.Status {
		case nodeident.StatusInternalNode:
			internal := result.Internal
			if internal == nil {
				return Outcome{Status: OutcomeError, Detail: "internal node without result"}
			}
			if internal.Delay != nil {
				return s.enterDelay(ctx, user, flow, result.NextNodeID, internal.Delay)
			}
			result = s.identifier.IdentifyAndProcess(ctx, nodeident.Request{
				Metadata:        meta,
				NodeIDToProcess: internal.BranchHandle,
				FlowID:          flow.ID,
			})
			continue

		case nodeident.StatusSuccess:
			detail, err := s.store.GetNodeDetail(ctx, result.NodeType)
			if err != nil {
				return s.fail(err, "load node detail")
			}
			if detail != nil && detail.UserInputRequired {
				user.IsInAutomation = true
				user.CurrentFlowID = flow.ID
				user.CurrentNodeID = result.NextNodeID
				if err = s.store.SaveUserState(ctx, user); err != nil {
					return s.fail(err, "save user state")
				}
				return Outcome{Status: OutcomeProcessed}
			}

			edges, err := s.edgesOf(ctx, flow)
			if err != nil {
				return s.fail(err, "load flow edges")
			}
			if len(entity.EdgesFrom(edges, result.NextNodeID)) == 0 {
				user.ExitAutomation()
				if err = s.store.SaveUserState(ctx, user); err != nil {
					return s.fail(err, "save user state")
				}
				return Outcome{Status: OutcomeProcessed, Detail: "flow completed"}
			}
			result = s.identifier.IdentifyAndProcess(ctx, nodeident.Request{
				Metadata:      meta,
				CurrentNodeID: result.NextNodeID,
				FlowID:        flow.ID,
			})
			continue

		default:
			s.log.Error("node processing aborted",
				slog.String("status", result.Status),
				slog.String("detail", result.Message),
				slog.String("user", user.Key.String()),
			)
			return Outcome{Status: OutcomeError, Detail: result.Message}
		}
	}

	s.log.Error("reconciliation depth exceeded", slog.String("user", user.Key.String()))
	return Outcome{Status: OutcomeError, Detail: "traversal depth exceeded"}
}

// enterDelay suspends the user on a delay node. The timer is written before
// the user state so the scheduler never sees delay state without a timer.
func (s *Service) enterDelay(ctx context.Context, user *entity.UserState, flow *entity.Flow, delayNodeID string, info *internalnode.DelayInfo) Outcome {
	delayNode := flow.FindNode(delayNodeID)
	if delayNode == nil {
		return Outcome{Status: OutcomeError, Detail: "delay node not found"}
	}

	now := time.Now().UTC()
	timer := &entity.DelayTimer{
		ID:            uuid.NewString(),
		UserKey:       user.Key,
		FlowID:        flow.ID,
		DelayNodeID:   delayNode.ID,
		DelayDuration: info.Duration,
		DelayUnit:     info.Unit,
		StartedAt:     now,
		CompletesAt:   now.Add(time.Duration(info.WaitSeconds) * time.Second),
	}
	if err := s.store.SaveDelayTimer(ctx, timer); err != nil {
		return s.fail(err, "save delay timer")
	}

	user.IsInAutomation = true
	user.CurrentFlowID = flow.ID
	user.DelayNodeData = delayNode
	if err := s.store.SaveUserState(ctx, user); err != nil {
		return s.fail(err, "save user state")
	}

	s.log.Info("delay scheduled",
		slog.String("user", user.Key.String()),
		slog.String("node_id", delayNode.ID),
		slog.Int("wait_seconds", info.WaitSeconds),
	)
	return Outcome{Status: OutcomeProcessed, Detail: "delay scheduled"}
}

func (s *Service) edgesOf(ctx context.Context, flow *entity.Flow) ([]entity.Edge, error) {
	if len(flow.Edges) > 0 {
		return flow.Edges, nil
	}
	return s.store.GetFlowEdges(ctx, flow.ID)
}

func (s *Service) fail(err error, op string) Outcome {
	s.log.Error(op, sl.Err(err))
	return Outcome{Status: OutcomeError, Detail: op + ": " + err.Error()}
}
