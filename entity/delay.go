package entity

import "time"

// DelayTimer is a persisted pending delay for one user. At most one
// unprocessed timer exists per user.
type DelayTimer struct {
	ID            string    `json:"id" bson:"id"`
	UserKey       UserKey   `json:"user_key" bson:"user_key"`
	FlowID        string    `json:"flow_id" bson:"flow_id"`
	DelayNodeID   string    `json:"delay_node_id" bson:"delay_node_id"`
	DelayDuration int       `json:"delay_duration" bson:"delay_duration"`
	DelayUnit     string    `json:"delay_unit" bson:"delay_unit"`
	StartedAt     time.Time `json:"started_at" bson:"started_at"`
	CompletesAt   time.Time `json:"completes_at" bson:"completes_at"`
	Processed     bool      `json:"processed" bson:"processed"`
}
