// Package prompts holds the static prompt templates for every coach task
// and the reasoning agent, plus the rendering machinery that binds caller
// variables into them.
//
// Templates are registered at package init and never mutated afterwards.
// Placeholders use the {name} form; every placeholder that appears in a
// template is a required variable at render time.
package prompts

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Task names for the registry.
const (
	TaskPlan      = "plan"
	TaskSummarize = "summarize"
	TaskWorkout   = "workout"
	TaskQuestion  = "question"
	TaskAgent     = "agent"
)

// MessageTemplate is a single role-tagged template string.
type MessageTemplate struct {
	Role     string
	Template string
}

// Spec is an ordered sequence of message templates plus the variable
// names they require.
type Spec struct {
	Task     string
	Messages []MessageTemplate
	Required []string
}

// Message is a rendered template message.
type Message struct {
	Role    string
	Content string
}

// UnknownTaskError reports a lookup for a task with no registered template.
type UnknownTaskError struct {
	Task string
}

// Error implements the error interface.
func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task %q", e.Task)
}

// MissingVariableError reports a template placeholder with no bound value.
// This is a programmer error: rendering fails fast and no model call is
// made.
type MissingVariableError struct {
	Task     string
	Variable string
}

// Error implements the error interface.
func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("task %q: no value bound for variable %q", e.Task, e.Variable)
}

var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// registry maps task name to its Spec. Populated at init, read-only after.
var registry = map[string]Spec{}

// register adds a Spec to the registry, computing its required-variable
// set from the placeholders in its templates.
func register(task string, messages ...MessageTemplate) {
	seen := map[string]bool{}
	var required []string
	for _, m := range messages {
		for _, match := range placeholderRe.FindAllStringSubmatch(m.Template, -1) {
			if !seen[match[1]] {
				seen[match[1]] = true
				required = append(required, match[1])
			}
		}
	}
	sort.Strings(required)
	registry[task] = Spec{Task: task, Messages: messages, Required: required}
}

// Get returns the Spec registered for task.
func Get(task string) (Spec, error) {
	spec, ok := registry[task]
	if !ok {
		return Spec{}, &UnknownTaskError{Task: task}
	}
	return spec, nil
}

// Tasks returns all registered task names, sorted.
func Tasks() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render binds vars into the spec's templates. Every placeholder must
// have a binding or rendering fails with *MissingVariableError. Extra
// vars are ignored.
func (s Spec) Render(vars map[string]string) ([]Message, error) {
	for _, name := range s.Required {
		if _, ok := vars[name]; !ok {
			return nil, &MissingVariableError{Task: s.Task, Variable: name}
		}
	}

	result := make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		content := placeholderRe.ReplaceAllStringFunc(m.Template, func(match string) string {
			name := match[1 : len(match)-1]
			return vars[name]
		})
		result[i] = Message{Role: m.Role, Content: content}
	}
	return result, nil
}

// Flatten serializes rendered messages into a single deterministic
// string, suitable as cache key input.
func Flatten(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
