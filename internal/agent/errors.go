package agent

import "fmt"

// StepLimitError is returned when the loop exhausts its step budget
// without producing a final answer.
type StepLimitError struct {
	MaxSteps int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("agent stopped after %d steps without a final answer", e.MaxSteps)
}

// FormatError is returned when the model repeatedly produces output
// that fits neither the action format nor a final answer.
type FormatError struct {
	Output  string
	Retries int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("agent output unparseable after %d retries: %.80q", e.Retries, e.Output)
}
