package entity

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is an append-only record of a node being entered, used for
// per-node counts on flow detail reporting.
type Transaction struct {
	ID      string    `json:"id" bson:"id"`
	FlowID  string    `json:"flow_id" bson:"flow_id"`
	NodeID  string    `json:"node_id" bson:"node_id"`
	BrandID int64     `json:"brand_id" bson:"brand_id"`
	UserKey UserKey   `json:"user_key" bson:"user_key"`
	At      time.Time `json:"at" bson:"at"`
}

func NewTransaction(flowID, nodeID string, key UserKey) *Transaction {
	return &Transaction{
		ID:      uuid.NewString(),
		FlowID:  flowID,
		NodeID:  nodeID,
		BrandID: key.BrandID,
		UserKey: key,
		At:      time.Now().UTC(),
	}
}
