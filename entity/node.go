package entity

import "strings"

// Node types. A closed set: the catalog, the internal-node processor and the
// node identifier all branch on these.
const (
	NodeTriggerKeyword  = "trigger_keyword"
	NodeTriggerTemplate = "trigger_template"
	NodeMessage         = "message"
	NodeQuestion        = "question"
	NodeButtonQuestion  = "button_question"
	NodeListQuestion    = "list_question"
	NodeCondition       = "condition"
	NodeDelay           = "delay"
)

// Branch entry id suffixes used by condition and delay nodes.
const (
	BranchTrue           = "__true"
	BranchFalse          = "__false"
	BranchInterrupted    = "__interrupted"
	BranchNotInterrupted = "__not_interrupted"
)

type Node struct {
	ID           string   `json:"id" bson:"id"`
	Type         string   `json:"type" bson:"type"`
	FlowNodeType string   `json:"flowNodeType" bson:"flowNodeType"`
	Position     Position `json:"position" bson:"position"`
	IsStartNode  bool     `json:"isStartNode" bson:"isStartNode"`

	// trigger_keyword / trigger_template
	TriggerKeywords   []string `json:"triggerKeywords,omitempty" bson:"triggerKeywords,omitempty"`
	TriggerTemplateID string   `json:"triggerTemplateId,omitempty" bson:"triggerTemplateId,omitempty"`

	// message / question bodies
	Replies           []FlowReply       `json:"flowReplies,omitempty" bson:"flowReplies,omitempty"`
	UserInputVariable string            `json:"userInputVariable,omitempty" bson:"userInputVariable,omitempty"`
	AnswerValidation  *AnswerValidation `json:"answerValidation,omitempty" bson:"answerValidation,omitempty"`
	IsMediaAccepted   bool              `json:"isMediaAccepted,omitempty" bson:"isMediaAccepted,omitempty"`

	// button_question / list_question
	InteractiveHeader   *InteractiveHeader `json:"interactiveButtonsHeader,omitempty" bson:"interactiveButtonsHeader,omitempty"`
	InteractiveBody     string             `json:"interactiveButtonsBody,omitempty" bson:"interactiveButtonsBody,omitempty"`
	InteractiveFooter   string             `json:"interactiveButtonsFooter,omitempty" bson:"interactiveButtonsFooter,omitempty"`
	ExpectedAnswers     []ExpectedAnswer   `json:"expectedAnswers,omitempty" bson:"expectedAnswers,omitempty"`
	DefaultNodeResultID string             `json:"defaultNodeResultId,omitempty" bson:"defaultNodeResultId,omitempty"`

	// condition
	Conditions        []Condition   `json:"flowNodeConditions,omitempty" bson:"flowNodeConditions,omitempty"`
	ConditionOperator string        `json:"conditionOperator,omitempty" bson:"conditionOperator,omitempty"`
	ConditionResult   []ResultEntry `json:"conditionResult,omitempty" bson:"conditionResult,omitempty"`

	// delay
	DelayDuration  int           `json:"delayDuration,omitempty" bson:"delayDuration,omitempty"`
	DelayUnit      string        `json:"delayUnit,omitempty" bson:"delayUnit,omitempty"`
	WaitForReply   bool          `json:"waitForReply,omitempty" bson:"waitForReply,omitempty"`
	DelayInterrupt bool          `json:"delayInterrupt,omitempty" bson:"delayInterrupt,omitempty"`
	DelayResult    []ResultEntry `json:"delayResult,omitempty" bson:"delayResult,omitempty"`
}

type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

type FlowReply struct {
	FlowReplyType string `json:"flowReplyType" bson:"flowReplyType"`
	Data          string `json:"data" bson:"data"`
	Caption       string `json:"caption,omitempty" bson:"caption,omitempty"`
	MimeType      string `json:"mimeType,omitempty" bson:"mimeType,omitempty"`
}

type ExpectedAnswer struct {
	ID            string `json:"id" bson:"id"`
	ExpectedInput string `json:"expectedInput" bson:"expectedInput"`
	IsDefault     bool   `json:"isDefault" bson:"isDefault"`
	NodeResultID  string `json:"nodeResultId,omitempty" bson:"nodeResultId,omitempty"`
}

// AnswerValidation constrains free-text answers on question nodes.
type AnswerValidation struct {
	Type       string  `json:"type" bson:"type"` // Number, Text, Email, Phone
	MinValue   float64 `json:"minValue,omitempty" bson:"minValue,omitempty"`
	MaxValue   float64 `json:"maxValue,omitempty" bson:"maxValue,omitempty"`
	Regex      string  `json:"regex,omitempty" bson:"regex,omitempty"`
	Fallback   string  `json:"fallback,omitempty" bson:"fallback,omitempty"`
	FailsCount int     `json:"failsCount,omitempty" bson:"failsCount,omitempty"`
}

type InteractiveHeader struct {
	Type string `json:"type" bson:"type"`
	Text string `json:"text,omitempty" bson:"text,omitempty"`
	URL  string `json:"url,omitempty" bson:"url,omitempty"`
}

type Condition struct {
	ID       string `json:"id" bson:"id"`
	CondType string `json:"flowConditionType" bson:"flowConditionType"`
	Variable string `json:"variable" bson:"variable"`
	Value    string `json:"value" bson:"value"`
}

// ResultEntry is a branch outcome of a condition or delay node. The id ends
// in one of the Branch* suffixes; NodeResultID names the target node.
type ResultEntry struct {
	ID           string `json:"id" bson:"id"`
	NodeResultID string `json:"nodeResultId,omitempty" bson:"nodeResultId,omitempty"`
}

func (n *Node) IsTrigger() bool {
	return n.Type == NodeTriggerKeyword || n.Type == NodeTriggerTemplate
}

// IsInternal reports whether the node is evaluated silently and never
// rendered.
func (n *Node) IsInternal() bool {
	return n.Type == NodeCondition || n.Type == NodeDelay
}

// IsTextQuestion reports whether the node takes free text rather than a
// choice from expected answers.
func (n *Node) IsTextQuestion() bool {
	return n.Type == NodeQuestion
}

// ResultBySuffix returns the condition/delay result entry whose id carries
// the given Branch* suffix.
func (n *Node) ResultBySuffix(entries []ResultEntry, suffix string) *ResultEntry {
	for i := range entries {
		if strings.HasSuffix(entries[i].ID, suffix) {
			return &entries[i]
		}
	}
	return nil
}

// SubEntry resolves an embedded id (expected answer or result entry) owned
// by this node and returns its nodeResultId target, if any.
func (n *Node) SubEntry(id string) (nodeResultID string, ok bool) {
	for i := range n.ExpectedAnswers {
		if n.ExpectedAnswers[i].ID == id {
			return n.ExpectedAnswers[i].NodeResultID, true
		}
	}
	for i := range n.ConditionResult {
		if n.ConditionResult[i].ID == id {
			return n.ConditionResult[i].NodeResultID, true
		}
	}
	for i := range n.DelayResult {
		if n.DelayResult[i].ID == id {
			return n.DelayResult[i].NodeResultID, true
		}
	}
	return "", false
}
