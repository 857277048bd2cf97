package internalnode

import (
	"context"
	"fmt"
	"log/slog"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
	"flowengine/internal/service/condition"
)

var ErrMalformedResult = fmt.Errorf("malformed condition result")

// DelayInfo is the computed schedule for a delay node.
type DelayInfo struct {
	Duration     int
	Unit         string
	WaitSeconds  int
	WaitForReply bool
}

// Result of processing an internal node. Exactly one of BranchHandle and
// Delay is set, matching the node type.
type Result struct {
	NodeID       string
	NodeType     string
	BranchHandle string
	Delay        *DelayInfo
}

type VariableSnapshotter interface {
	Snapshot(ctx context.Context, key entity.UserKey, flowID string) (map[string]string, error)
}

// Processor evaluates condition and delay nodes. It never mutates state;
// callers act on the returned data.
type Processor struct {
	vars VariableSnapshotter
	log  *slog.Logger
}

func New(vars VariableSnapshotter, log *slog.Logger) *Processor {
	return &Processor{
		vars: vars,
		log:  log.With(sl.Module("service.internalnode")),
	}
}

func (p *Processor) Process(ctx context.Context, key entity.UserKey, flowID string, node *entity.Node) (*Result, error) {
	switch node.Type {
	case entity.NodeCondition:
		return p.processCondition(ctx, key, flowID, node)
	case entity.NodeDelay:
		return p.processDelay(node), nil
	}
	return nil, fmt.Errorf("node %s is not an internal node", node.ID)
}

func (p *Processor) processCondition(ctx context.Context, key entity.UserKey, flowID string, node *entity.Node) (*Result, error) {
	vars, err := p.vars.Snapshot(ctx, key, flowID)
	if err != nil {
		return nil, fmt.Errorf("variable snapshot: %w", err)
	}

	outcome := condition.Evaluate(node.Conditions, node.ConditionOperator, vars, p.log)

	suffix := entity.BranchFalse
	if outcome {
		suffix = entity.BranchTrue
	}
	entry := node.ResultBySuffix(node.ConditionResult, suffix)
	if entry == nil {
		return nil, fmt.Errorf("%w: node %s has no %s entry", ErrMalformedResult, node.ID, suffix)
	}

	handle := entry.NodeResultID
	if handle == "" {
		handle = entry.ID
	}

	p.log.Debug("condition evaluated",
		slog.String("node_id", node.ID),
		slog.Bool("outcome", outcome),
		slog.String("branch", handle),
	)

	return &Result{
		NodeID:       node.ID,
		NodeType:     entity.NodeCondition,
		BranchHandle: handle,
	}, nil
}

var unitSeconds = map[string]int{
	"seconds": 1,
	"minutes": 60,
	"hours":   3600,
	"days":    86400,
}

func (p *Processor) processDelay(node *entity.Node) *Result {
	wait := 0
	if node.DelayDuration > 0 {
		wait = node.DelayDuration * unitSeconds[node.DelayUnit]
	}
	// zero wait fires on the next scheduler tick

	return &Result{
		NodeID:   node.ID,
		NodeType: entity.NodeDelay,
		Delay: &DelayInfo{
			Duration:     node.DelayDuration,
			Unit:         node.DelayUnit,
			WaitSeconds:  wait,
			WaitForReply: node.WaitForReply,
		},
	}
}
