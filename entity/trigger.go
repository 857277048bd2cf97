package entity

import "time"

const (
	TriggerTypeKeyword  = "keyword"
	TriggerTypeTemplate = "template"
)

// FlowTrigger is the denormalized trigger record derived from a flow's start
// node, stored per flow for fast matching.
type FlowTrigger struct {
	FlowID        string    `json:"flow_id" bson:"flow_id"`
	BrandID       int64     `json:"brand_id" bson:"brand_id"`
	NodeID        string    `json:"node_id" bson:"node_id"`
	TriggerType   string    `json:"trigger_type" bson:"trigger_type"`
	TriggerValues []string  `json:"trigger_values" bson:"trigger_values"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// TriggersFromFlow derives the trigger records for a flow from its start
// node. Non-trigger start nodes yield nothing.
func TriggersFromFlow(f *Flow) []FlowTrigger {
	start := f.StartNode()
	if start == nil || !start.IsTrigger() {
		return nil
	}

	now := time.Now().UTC()
	trigger := FlowTrigger{
		FlowID:    f.ID,
		BrandID:   f.BrandID,
		NodeID:    start.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch start.Type {
	case NodeTriggerKeyword:
		trigger.TriggerType = TriggerTypeKeyword
		trigger.TriggerValues = start.TriggerKeywords
	case NodeTriggerTemplate:
		trigger.TriggerType = TriggerTypeTemplate
		trigger.TriggerValues = []string{start.TriggerTemplateID}
	}
	return []FlowTrigger{trigger}
}
