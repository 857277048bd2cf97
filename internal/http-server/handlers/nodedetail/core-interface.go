package nodedetail

import (
	"context"

	"flowengine/entity"
)

type Core interface {
	NodeDetails(ctx context.Context) ([]entity.NodeDetail, error)
	NodeDetailByID(ctx context.Context, nodeID string) (*entity.NodeDetail, error)
	NodeDetailsByCategory(ctx context.Context, category string) ([]entity.NodeDetail, error)
}
