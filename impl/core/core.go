package core

import (
	"context"
	"fmt"
	"log/slog"

	"flowengine/entity"
	repository "flowengine/internal/database"
	"flowengine/internal/lib/sl"
	"flowengine/internal/service/adapter"
	"flowengine/internal/service/flows"
	"flowengine/internal/service/userstate"
)

// Core is the composition root behind the HTTP API: it wires the flow
// authoring service, the node catalog, the channel adapter and the state
// engine into the handler interfaces.
type Core struct {
	log     *slog.Logger
	repo    *repository.MongoDB
	flows   *flows.Service
	adapter *adapter.Adapter
	engine  *userstate.Service
}

func New(log *slog.Logger) *Core {
	return &Core{log: log.With(sl.Module("core"))}
}

func (c *Core) SetRepository(repo *repository.MongoDB) {
	c.repo = repo
}

func (c *Core) SetFlowService(service *flows.Service) {
	c.flows = service
}

func (c *Core) SetAdapter(a *adapter.Adapter) {
	c.adapter = a
}

func (c *Core) SetEngine(engine *userstate.Service) {
	c.engine = engine
}

// Init verifies wiring and seeds the node-type catalog.
func (c *Core) Init(ctx context.Context) error {
	if c.repo == nil || c.flows == nil || c.adapter == nil || c.engine == nil {
		return fmt.Errorf("core not fully wired")
	}
	return c.repo.EnsureNodeDetails(ctx)
}

// flow authoring

func (c *Core) CreateFlow(ctx context.Context, userID int64, flow *entity.Flow) (*entity.Flow, error) {
	return c.flows.Create(ctx, userID, flow)
}

func (c *Core) ListFlows(ctx context.Context, userID int64) ([]entity.Flow, error) {
	return c.flows.List(ctx, userID)
}

func (c *Core) FlowDetail(ctx context.Context, userID int64, flowID string) (*flows.Detail, error) {
	return c.flows.GetDetail(ctx, userID, flowID)
}

func (c *Core) UpdateFlow(ctx context.Context, userID int64, flowID string, flow *entity.Flow) (*entity.Flow, error) {
	return c.flows.Update(ctx, userID, flowID, flow)
}

func (c *Core) SetFlowStatus(ctx context.Context, userID int64, flowID, status string) (*entity.Flow, error) {
	return c.flows.SetStatus(ctx, userID, flowID, status)
}

// node-type catalog

func (c *Core) NodeDetails(ctx context.Context) ([]entity.NodeDetail, error) {
	return c.repo.GetNodeDetails(ctx)
}

func (c *Core) NodeDetailByID(ctx context.Context, nodeID string) (*entity.NodeDetail, error) {
	return c.repo.GetNodeDetail(ctx, nodeID)
}

func (c *Core) NodeDetailsByCategory(ctx context.Context, category string) ([]entity.NodeDetail, error) {
	return c.repo.GetNodeDetailsByCategory(ctx, category)
}

// webhook intake

func (c *Core) SaveWebhookMessage(ctx context.Context, msg *entity.WebhookMessage) error {
	return c.repo.SaveWebhookMessage(ctx, msg)
}

func (c *Core) UpdateWebhookStatus(ctx context.Context, id, status, detail string) error {
	return c.repo.UpdateWebhookStatus(ctx, id, status, detail)
}

func (c *Core) Normalize(channel, messageType string, body map[string]any) entity.NormalizedMessage {
	return c.adapter.Normalize(channel, messageType, body)
}

func (c *Core) ProcessEvent(ctx context.Context, meta entity.EventMetadata, msg entity.NormalizedMessage) userstate.Outcome {
	return c.engine.ProcessEvent(ctx, meta, msg)
}
