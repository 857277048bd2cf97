package nodeident

import (
	"context"
	"log/slog"
	"time"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
	"flowengine/internal/service/internalnode"
)

// Result statuses. Everything that is not success or internal_node is a
// failure mode surfaced to the user state service, which logs and aborts
// the event.
const (
	StatusSuccess             = "success"
	StatusInternalNode        = "internal_node"
	StatusFlowNotFound        = "flow_not_found"
	StatusCurrentNodeNotFound = "current_node_not_found"
	StatusNextNodeNotFound    = "next_node_not_found"
	StatusProcessingFailed    = "node_processing_failed"
)

// maxChain bounds message-to-message chaining within one event.
const maxChain = 20

type Store interface {
	GetFlowByID(ctx context.Context, flowID string) (*entity.Flow, error)
	GetFlowEdges(ctx context.Context, flowID string) ([]entity.Edge, error)
	SaveTransaction(ctx context.Context, tx *entity.Transaction) error
}

// Renderer delivers an outbound intent. Delivery errors do not fail the
// traversal step.
type Renderer interface {
	Render(ctx context.Context, intent entity.OutboundIntent) error
}

type Request struct {
	Metadata          entity.EventMetadata
	IsValidationError bool
	FallbackMessage   string
	NodeIDToProcess   string
	CurrentNodeID     string
	FlowID            string
}

type Result struct {
	Status     string
	Message    string
	NextNodeID string
	NodeType   string
	Internal   *internalnode.Result
}

func errorResult(status, message string) Result {
	return Result{Status: status, Message: message}
}

// Identifier resolves traversal handles to the next reachable node,
// processes internal nodes, and emits outbound intents for actionable ones.
type Identifier struct {
	store     Store
	processor *internalnode.Processor
	renderer  Renderer
	log       *slog.Logger
}

func New(store Store, processor *internalnode.Processor, renderer Renderer, log *slog.Logger) *Identifier {
	return &Identifier{
		store:     store,
		processor: processor,
		renderer:  renderer,
		log:       log.With(sl.Module("service.nodeident")),
	}
}

// IdentifyAndProcess finds the target node for the request and acts on it:
// internal nodes are evaluated and returned for the caller to reconcile,
// actionable nodes are recorded and rendered, and message nodes chain to
// their message successors within the same event.
func (s *Identifier) IdentifyAndProcess(ctx context.Context, req Request) Result {
	flow, err := s.store.GetFlowByID(ctx, req.FlowID)
	if err != nil || flow == nil {
		return errorResult(StatusFlowNotFound, "flow not found: "+req.FlowID)
	}

	edges := flow.Edges
	if len(edges) == 0 {
		if edges, err = s.store.GetFlowEdges(ctx, req.FlowID); err != nil {
			return errorResult(StatusFlowNotFound, "flow edges unavailable: "+err.Error())
		}
	}

	var target *entity.Node
	if req.NodeIDToProcess != "" {
		if target = flow.FindNode(req.NodeIDToProcess); target == nil {
			target = s.resolveReference(flow, edges, req.NodeIDToProcess)
		}
		if target == nil {
			return errorResult(StatusCurrentNodeNotFound, "node to process not found: "+req.NodeIDToProcess)
		}
	} else {
		target = s.resolveSuccessor(ctx, flow, edges, req.CurrentNodeID, req.Metadata)
		if target == nil {
			return errorResult(StatusNextNodeNotFound, "no next node from: "+req.CurrentNodeID)
		}
	}

	if target.IsInternal() {
		processed, err := s.processor.Process(ctx, req.Metadata.Key(), flow.ID, target)
		if err != nil {
			s.log.Error("internal node processing failed",
				slog.String("node_id", target.ID),
				sl.Err(err),
			)
			return errorResult(StatusProcessingFailed, err.Error())
		}
		s.recordTransaction(ctx, flow, target.ID, req.Metadata)
		return Result{
			Status:     StatusInternalNode,
			NextNodeID: target.ID,
			NodeType:   target.Type,
			Internal:   processed,
		}
	}

	return s.processActionable(ctx, flow, edges, target, req)
}

// resolveSuccessor follows the handle one step forward. A real node id
// follows its unique outgoing edge; a sub-id (expected answer, condition or
// delay result entry) resolves through its owner's nodeResultId.
func (s *Identifier) resolveSuccessor(ctx context.Context, flow *entity.Flow, edges []entity.Edge, handle string, meta entity.EventMetadata) *entity.Node {
	if node := flow.FindNode(handle); node != nil {
		if node.IsTrigger() {
			// the trigger itself counts as entered when a flow starts
			s.recordTransaction(ctx, flow, node.ID, meta)
		}
		out := entity.EdgesFrom(edges, handle)
		if len(out) == 0 {
			return nil
		}
		if len(out) > 1 {
			s.log.Warn("node has multiple outgoing edges, taking first by id",
				slog.String("node_id", handle),
				slog.Int("edges", len(out)),
			)
		}
		return flow.FindNode(out[0].TargetNodeID)
	}
	return s.resolveReference(flow, edges, handle)
}

// resolveReference resolves a sub-id through the owning node's entry; flows
// authored with edges keyed by sub-ids fall back to the edge lookup.
func (s *Identifier) resolveReference(flow *entity.Flow, edges []entity.Edge, handle string) *entity.Node {
	for i := range flow.Nodes {
		if resultID, ok := flow.Nodes[i].SubEntry(handle); ok {
			if resultID != "" {
				return flow.FindNode(resultID)
			}
			break
		}
	}
	out := entity.EdgesFrom(edges, handle)
	if len(out) == 0 {
		return nil
	}
	return flow.FindNode(out[0].TargetNodeID)
}

func (s *Identifier) processActionable(ctx context.Context, flow *entity.Flow, edges []entity.Edge, target *entity.Node, req Request) Result {
	s.recordTransaction(ctx, flow, target.ID, req.Metadata)
	s.emit(ctx, flow, target, req)

	last := target
	if target.Type == entity.NodeMessage {
		// chain consecutive message nodes in one event
		for range maxChain {
			out := entity.EdgesFrom(edges, last.ID)
			if len(out) == 0 {
				break
			}
			next := flow.FindNode(out[0].TargetNodeID)
			if next == nil || next.Type != entity.NodeMessage {
				break
			}
			s.recordTransaction(ctx, flow, next.ID, req.Metadata)
			s.emit(ctx, flow, next, Request{Metadata: req.Metadata})
			last = next
		}
	}

	return Result{
		Status:     StatusSuccess,
		NextNodeID: last.ID,
		NodeType:   last.Type,
	}
}

func (s *Identifier) recordTransaction(ctx context.Context, flow *entity.Flow, nodeID string, meta entity.EventMetadata) {
	tx := entity.NewTransaction(flow.ID, nodeID, meta.Key())
	if err := s.store.SaveTransaction(ctx, tx); err != nil {
		s.log.Error("failed to record transaction",
			slog.String("flow_id", flow.ID),
			slog.String("node_id", nodeID),
			sl.Err(err),
		)
	}
}

// emit renders the node. Rendering failures are logged and swallowed so a
// flapping outbound channel cannot wedge a user mid-flow.
func (s *Identifier) emit(ctx context.Context, flow *entity.Flow, node *entity.Node, req Request) {
	intent := entity.OutboundIntent{
		Channel:   req.Metadata.Channel,
		Recipient: req.Metadata.Sender,
		BrandID:   req.Metadata.BrandID,
		FlowID:    flow.ID,
		NodeID:    node.ID,
		NodeType:  node.Type,
		Replies:   node.Replies,
		Header:    node.InteractiveHeader,
		Body:      node.InteractiveBody,
		Footer:    node.InteractiveFooter,
		Choices:   node.ExpectedAnswers,
		At:        time.Now().UTC(),
	}
	if req.IsValidationError {
		intent.FallbackMessage = req.FallbackMessage
	}

	if err := s.renderer.Render(ctx, intent); err != nil {
		s.log.Error("rendering failed",
			slog.String("channel", intent.Channel),
			slog.String("node_id", node.ID),
			sl.Err(err),
		)
	}
}
