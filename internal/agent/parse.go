package agent

import (
	"errors"
	"strings"
)

const (
	finalAnswerMarker = "Final Answer:"
	thoughtMarker     = "Thought:"
	actionMarker      = "Action:"
	actionInputMarker = "Action Input:"
)

var errUnparseable = errors.New("output matches neither an action nor a final answer")

// decision is one parsed model turn: either a final answer or a tool action.
type decision struct {
	Thought     string
	Final       bool
	FinalAnswer string
	Action      string
	ActionInput string
}

// parseDecision extracts the next move from raw model output.
//
// A final answer wins over an action when both appear, matching how the
// prompt instructs the model to terminate. Action output needs both an
// "Action:" and an "Action Input:" line.
func parseDecision(output string) (*decision, error) {
	text := strings.TrimSpace(output)

	if idx := strings.Index(text, finalAnswerMarker); idx >= 0 {
		return &decision{
			Thought:     extractThought(text[:idx]),
			Final:       true,
			FinalAnswer: strings.TrimSpace(text[idx+len(finalAnswerMarker):]),
		}, nil
	}

	actionIdx := strings.Index(text, actionMarker)
	if actionIdx < 0 {
		return nil, errUnparseable
	}

	rest := text[actionIdx:]
	inputIdx := strings.Index(rest, actionInputMarker)
	if inputIdx < 0 {
		return nil, errUnparseable
	}

	action := strings.TrimSpace(strings.TrimPrefix(rest[:inputIdx], actionMarker))
	action = firstLine(action)
	if action == "" {
		return nil, errUnparseable
	}

	input := strings.TrimSpace(rest[inputIdx+len(actionInputMarker):])
	input = firstLine(input)

	return &decision{
		Thought:     extractThought(text[:actionIdx]),
		Action:      action,
		ActionInput: strings.Trim(input, `"`),
	}, nil
}

// extractThought pulls the reasoning text preceding an action or answer.
func extractThought(prefix string) string {
	t := strings.TrimSpace(prefix)
	if idx := strings.LastIndex(t, thoughtMarker); idx >= 0 {
		t = t[idx+len(thoughtMarker):]
	}
	return strings.TrimSpace(t)
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
