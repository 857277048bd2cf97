package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	FlowStatusDraft     = "draft"
	FlowStatusPublished = "published"
	FlowStatusStop      = "stop"
)

type Flow struct {
	ID        string     `json:"id" bson:"id"`
	Name      string     `json:"name" bson:"name" validate:"required"`
	BrandID   int64      `json:"brand_id" bson:"brand_id" validate:"required"`
	UserID    int64      `json:"user_id" bson:"user_id"`
	Status    string     `json:"status" bson:"status"`
	Nodes     []Node     `json:"flowNodes" bson:"flowNodes"`
	Edges     []Edge     `json:"flowEdges" bson:"flowEdges"`
	Transform *Transform `json:"transform,omitempty" bson:"transform,omitempty"`
	IsPro     bool       `json:"isPro" bson:"isPro"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// Transform stores the editor viewport so the authoring UI reopens a flow
// where the operator left it.
type Transform struct {
	X    float64 `json:"x" bson:"x"`
	Y    float64 `json:"y" bson:"y"`
	Zoom float64 `json:"zoom" bson:"zoom"`
}

func NewFlow(name string, brandID, userID int64) *Flow {
	now := time.Now().UTC()
	return &Flow{
		ID:        uuid.NewString(),
		Name:      name,
		BrandID:   brandID,
		UserID:    userID,
		Status:    FlowStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanTransition reports whether the status change is allowed. Allowed moves
// are draft->published, published->stop and stop->published; nothing returns
// to draft.
func (f *Flow) CanTransition(target string) bool {
	switch {
	case f.Status == FlowStatusDraft && target == FlowStatusPublished:
		return true
	case f.Status == FlowStatusPublished && target == FlowStatusStop:
		return true
	case f.Status == FlowStatusStop && target == FlowStatusPublished:
		return true
	}
	return false
}

func (f *Flow) FindNode(id string) *Node {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return &f.Nodes[i]
		}
	}
	return nil
}

// StartNode returns the node flagged as the flow entry point.
func (f *Flow) StartNode() *Node {
	for i := range f.Nodes {
		if f.Nodes[i].IsStartNode {
			return &f.Nodes[i]
		}
	}
	return nil
}
