package entity

import "time"

// FlowUserContext is one stored variable for a (user, flow) pair. Variables
// survive flow re-entries for the same user.
type FlowUserContext struct {
	UserKey   UserKey   `json:"user_key" bson:"user_key"`
	FlowID    string    `json:"flow_id" bson:"flow_id"`
	Name      string    `json:"name" bson:"name"`
	Value     string    `json:"value" bson:"value"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}
