package entity

const (
	CategoryTrigger   = "Trigger"
	CategoryAction    = "Action"
	CategoryCondition = "Condition"
	CategoryDelay     = "Delay"
)

// NodeDetail is one catalog row describing a node type. The catalog is the
// authoritative signal for whether a node expects a user reply.
type NodeDetail struct {
	NodeID            string `json:"node_id" bson:"node_id"`
	NodeName          string `json:"node_name" bson:"node_name"`
	Category          string `json:"category" bson:"category"`
	UserInputRequired bool   `json:"user_input_required" bson:"user_input_required"`
	IsInternal        bool   `json:"is_internal" bson:"is_internal"`
}

func ValidCategory(category string) bool {
	switch category {
	case CategoryTrigger, CategoryAction, CategoryCondition, CategoryDelay:
		return true
	}
	return false
}

// DefaultNodeCatalog lists the built-in node types seeded at startup.
func DefaultNodeCatalog() []NodeDetail {
	return []NodeDetail{
		{NodeID: NodeTriggerKeyword, NodeName: "Keyword Trigger", Category: CategoryTrigger},
		{NodeID: NodeTriggerTemplate, NodeName: "Template Trigger", Category: CategoryTrigger, UserInputRequired: true},
		{NodeID: NodeMessage, NodeName: "Message", Category: CategoryAction},
		{NodeID: NodeQuestion, NodeName: "Question", Category: CategoryAction, UserInputRequired: true},
		{NodeID: NodeButtonQuestion, NodeName: "Button Question", Category: CategoryAction, UserInputRequired: true},
		{NodeID: NodeListQuestion, NodeName: "List Question", Category: CategoryAction, UserInputRequired: true},
		{NodeID: NodeCondition, NodeName: "Condition", Category: CategoryCondition, IsInternal: true},
		{NodeID: NodeDelay, NodeName: "Delay", Category: CategoryDelay, IsInternal: true},
	}
}
