package flows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
)

var (
	ErrNotFound          = errors.New("flow not found")
	ErrForbidden         = errors.New("flow does not belong to user")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidFlow       = errors.New("invalid flow")
)

type Store interface {
	SaveFlow(ctx context.Context, flow *entity.Flow) error
	GetFlowByID(ctx context.Context, flowID string) (*entity.Flow, error)
	GetFlowsByAuthor(ctx context.Context, userID int64) ([]entity.Flow, error)
	UpdateFlowStatus(ctx context.Context, flowID, status string) error
	CountTransactionsByNode(ctx context.Context, flowID string) (map[string]int64, error)
}

// DetailNode augments a node with its transaction count for reporting.
type DetailNode struct {
	entity.Node
	TransactionCount int64 `json:"transactionCount"`
}

// Detail is a flow with per-node transaction counts. Counts are attached
// only for flows that ran (published or stopped).
type Detail struct {
	entity.Flow
	Nodes []DetailNode `json:"flowNodes"`
}

// Service owns flow authoring: create, list, detail, update and status
// transitions.
type Service struct {
	store    Store
	validate *validator.Validate
	log      *slog.Logger
}

func New(store Store, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		validate: validator.New(),
		log:      log.With(sl.Module("service.flows")),
	}
}

func (s *Service) Create(ctx context.Context, userID int64, flow *entity.Flow) (*entity.Flow, error) {
	created := entity.NewFlow(flow.Name, flow.BrandID, userID)
	created.Nodes = flow.Nodes
	created.Edges = flow.Edges
	created.Transform = flow.Transform
	created.IsPro = flow.IsPro

	if err := s.validate.Struct(created); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFlow, err)
	}
	if err := s.store.SaveFlow(ctx, created); err != nil {
		return nil, err
	}

	s.log.Info("flow created",
		slog.String("flow_id", created.ID),
		slog.Int64("user_id", userID),
	)
	return created, nil
}

func (s *Service) List(ctx context.Context, userID int64) ([]entity.Flow, error) {
	return s.store.GetFlowsByAuthor(ctx, userID)
}

func (s *Service) Update(ctx context.Context, userID int64, flowID string, update *entity.Flow) (*entity.Flow, error) {
	existing, err := s.ownedFlow(ctx, userID, flowID)
	if err != nil {
		return nil, err
	}

	existing.Name = update.Name
	existing.Nodes = update.Nodes
	existing.Edges = update.Edges
	existing.Transform = update.Transform
	existing.IsPro = update.IsPro
	existing.UpdatedAt = time.Now().UTC()

	if err = s.validate.Struct(existing); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFlow, err)
	}
	if err = s.store.SaveFlow(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// GetDetail returns the flow with per-node transaction counts when the flow
// has run.
func (s *Service) GetDetail(ctx context.Context, userID int64, flowID string) (*Detail, error) {
	flow, err := s.ownedFlow(ctx, userID, flowID)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Flow: *flow}
	var counts map[string]int64
	if flow.Status == entity.FlowStatusPublished || flow.Status == entity.FlowStatusStop {
		if counts, err = s.store.CountTransactionsByNode(ctx, flowID); err != nil {
			return nil, err
		}
	}
	for _, node := range flow.Nodes {
		detail.Nodes = append(detail.Nodes, DetailNode{
			Node:             node,
			TransactionCount: counts[node.ID],
		})
	}
	return detail, nil
}

// SetStatus applies a status transition. Allowed moves are draft→published,
// published→stop and stop→published; everything else is rejected.
func (s *Service) SetStatus(ctx context.Context, userID int64, flowID, status string) (*entity.Flow, error) {
	if status != entity.FlowStatusPublished && status != entity.FlowStatusStop {
		return nil, fmt.Errorf("%w: target %q", ErrInvalidTransition, status)
	}

	flow, err := s.ownedFlow(ctx, userID, flowID)
	if err != nil {
		return nil, err
	}
	if !flow.CanTransition(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, flow.Status, status)
	}

	if err = s.store.UpdateFlowStatus(ctx, flowID, status); err != nil {
		return nil, err
	}
	flow.Status = status

	s.log.Info("flow status changed",
		slog.String("flow_id", flowID),
		slog.String("status", status),
	)
	return flow, nil
}

func (s *Service) ownedFlow(ctx context.Context, userID int64, flowID string) (*entity.Flow, error) {
	flow, err := s.store.GetFlowByID(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return nil, ErrNotFound
	}
	if flow.UserID != userID {
		return nil, ErrForbidden
	}
	return flow, nil
}
