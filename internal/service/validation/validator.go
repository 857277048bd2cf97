package validation

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
)

// Verdict statuses.
const (
	StatusMatched          = "matched"
	StatusMatchedOtherNode = "matched_other_node"
	StatusUseDefaultEdge   = "use_default_edge"
	StatusMismatchRetry    = "mismatch_retry"
	StatusValidationExit   = "validation_exit"
	StatusError            = "error"
)

// DefaultFallback is sent when a node carries no fallback of its own.
const DefaultFallback = "This is not the valid response. Please try again below"

const defaultFailsCount = 3

// Verdict is the validator's answer. The validator never mutates user
// state; the user state service acts on the verdict.
type Verdict struct {
	Status          string
	MatchedAnswerID string
	MatchedNodeID   string
	FallbackMessage string
	Variable        string
	Value           string
	Message         string
}

type Validator struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Validator {
	return &Validator{log: log.With(sl.Module("service.validation"))}
}

// Validate matches the inbound reply against the current node's expected
// answers, or runs free-text validation for text questions.
func (v *Validator) Validate(flow *entity.Flow, currentNodeID string, msg entity.NormalizedMessage, failureCount int) Verdict {
	node := flow.FindNode(currentNodeID)
	if node == nil {
		return Verdict{Status: StatusError, Message: "current node not found in flow"}
	}

	reply := strings.TrimSpace(msg.GetTextContent())

	if node.IsTextQuestion() {
		return v.validateText(node, reply, failureCount)
	}

	// current node expected answers first
	for _, answer := range node.ExpectedAnswers {
		if strings.EqualFold(strings.TrimSpace(answer.ExpectedInput), reply) ||
			(msg.ButtonPayload != "" && msg.ButtonPayload == answer.ID) {
			return Verdict{Status: StatusMatched, MatchedAnswerID: answer.ID}
		}
	}

	// then any other interactive node of the same flow
	for i := range flow.Nodes {
		other := &flow.Nodes[i]
		if other.ID == node.ID {
			continue
		}
		switch other.Type {
		case entity.NodeButtonQuestion, entity.NodeListQuestion, entity.NodeTriggerTemplate:
		default:
			continue
		}
		for _, answer := range other.ExpectedAnswers {
			if strings.EqualFold(strings.TrimSpace(answer.ExpectedInput), reply) {
				return Verdict{Status: StatusMatchedOtherNode, MatchedNodeID: other.ID}
			}
		}
	}

	return v.mismatch(node, failureCount)
}

func (v *Validator) validateText(node *entity.Node, reply string, failureCount int) Verdict {
	if valid := textAnswerValid(node.AnswerValidation, reply); !valid {
		return v.mismatch(node, failureCount)
	}
	return Verdict{
		Status:   StatusUseDefaultEdge,
		Variable: node.UserInputVariable,
		Value:    reply,
	}
}

// mismatch decides between another retry and exiting the flow. A node
// without failsCount retries indefinitely; a node with answer validation
// but no explicit count gets the default of three attempts.
func (v *Validator) mismatch(node *entity.Node, failureCount int) Verdict {
	fallback := DefaultFallback
	fails := 0
	if node.AnswerValidation != nil {
		if node.AnswerValidation.Fallback != "" {
			fallback = node.AnswerValidation.Fallback
		}
		fails = node.AnswerValidation.FailsCount
		if fails <= 0 {
			fails = defaultFailsCount
		}
	}

	if fails > 0 && failureCount+1 >= fails {
		v.log.Debug("validation attempts exhausted",
			slog.String("node_id", node.ID),
			slog.Int("failure_count", failureCount+1),
		)
		return Verdict{Status: StatusValidationExit, FallbackMessage: fallback}
	}
	return Verdict{Status: StatusMismatchRetry, FallbackMessage: fallback}
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

func textAnswerValid(rules *entity.AnswerValidation, reply string) bool {
	if rules == nil {
		return reply != ""
	}

	switch rules.Type {
	case "Number":
		n, err := strconv.ParseFloat(reply, 64)
		if err != nil {
			return false
		}
		if rules.MinValue != 0 && n < rules.MinValue {
			return false
		}
		if rules.MaxValue != 0 && n > rules.MaxValue {
			return false
		}
	case "Email":
		if !emailPattern.MatchString(reply) {
			return false
		}
	case "Phone":
		if !phonePattern.MatchString(strings.ReplaceAll(reply, " ", "")) {
			return false
		}
	default: // Text
		if reply == "" {
			return false
		}
		length := float64(len(reply))
		if rules.MinValue != 0 && length < rules.MinValue {
			return false
		}
		if rules.MaxValue != 0 && length > rules.MaxValue {
			return false
		}
	}

	if rules.Regex != "" {
		re, err := regexp.Compile(rules.Regex)
		if err != nil || !re.MatchString(reply) {
			return false
		}
	}
	return true
}
