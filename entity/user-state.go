package entity

import (
	"fmt"
	"time"
)

// UserKey identifies an end user within a channel context.
type UserKey struct {
	UserIdentifier   string `json:"user_identifier" bson:"user_identifier"`
	BrandID          int64  `json:"brand_id" bson:"brand_id"`
	Channel          string `json:"channel" bson:"channel"`
	ChannelAccountID string `json:"channel_account_id" bson:"channel_account_id"`
}

func (k UserKey) String() string {
	return fmt.Sprintf("%s|%d|%s|%s", k.UserIdentifier, k.BrandID, k.Channel, k.ChannelAccountID)
}

// Validation tracks the retry counter for the pending reply on the current
// node.
type Validation struct {
	FailureCount   int    `json:"failure_count" bson:"failure_count"`
	Failed         bool   `json:"validation_failed" bson:"validation_failed"`
	FailureMessage string `json:"failure_message,omitempty" bson:"failure_message,omitempty"`
}

// UserState is the persistent per-user automation state. Created on first
// inbound message, never deleted, only toggled in and out of automation.
type UserState struct {
	ID             string     `json:"id" bson:"id"`
	Key            UserKey    `json:"key" bson:",inline"`
	UserID         int64      `json:"user_id" bson:"user_id"`
	IsInAutomation bool       `json:"is_in_automation" bson:"is_in_automation"`
	CurrentFlowID  string     `json:"current_flow_id,omitempty" bson:"current_flow_id,omitempty"`
	LastFlowID     string     `json:"last_flow_id,omitempty" bson:"last_flow_id,omitempty"`
	CurrentNodeID  string     `json:"current_node_id,omitempty" bson:"current_node_id,omitempty"`
	DelayNodeData  *Node      `json:"delay_node_data,omitempty" bson:"delay_node_data,omitempty"`
	Validation     Validation `json:"validation" bson:"validation"`
	LastEventAt    time.Time  `json:"last_event_at" bson:"last_event_at"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updated_at"`
}

// ExitAutomation drops the user back to idle and resets validation.
func (u *UserState) ExitAutomation() {
	if u.CurrentFlowID != "" {
		u.LastFlowID = u.CurrentFlowID
	}
	u.IsInAutomation = false
	u.CurrentFlowID = ""
	u.CurrentNodeID = ""
	u.DelayNodeData = nil
	u.ResetValidation()
}

func (u *UserState) ResetValidation() {
	u.Validation = Validation{}
}
