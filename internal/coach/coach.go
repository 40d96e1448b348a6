// Package coach implements the chat dispatcher: it binds a task's
// prompt template to caller input, consults the durable response
// cache, and invokes the chat model on a miss.
//
// Every entry point performs at most one model call, never retries,
// and returns model failures as error values for the caller to
// display or retry.
package coach

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/arlow/fitcoach/internal/cache"
	"github.com/arlow/fitcoach/internal/llm"
	"github.com/arlow/fitcoach/internal/prompts"
)

// Config holds dispatcher settings.
type Config struct {
	// Model is the model identifier passed to the provider.
	Model string

	// Temperature is the fixed sampling temperature for all tasks.
	Temperature float64

	// Timeout bounds each model call. Zero means 120 seconds.
	Timeout time.Duration
}

// Coach dispatches templated tasks to the chat model.
type Coach struct {
	client      llm.Client
	cache       *cache.Store
	model       string
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

// New creates a Coach. The cache store may be nil, in which case every
// dispatch calls the model.
func New(client llm.Client, store *cache.Store, cfg Config, logger *slog.Logger) *Coach {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coach{
		client:      client,
		cache:       store,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logger.With("component", "coach"),
	}
}

// GeneratePlan produces a personalized fitness plan from the full
// profile.
func (c *Coach) GeneratePlan(ctx context.Context, p Profile) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	return c.Dispatch(ctx, prompts.TaskPlan, p.Vars())
}

// Summarize condenses text while retaining as much information as
// possible.
func (c *Coach) Summarize(ctx context.Context, text string) (string, error) {
	return c.Dispatch(ctx, prompts.TaskSummarize, map[string]string{"text": text})
}

// PlanWorkout produces an equipment-based workout plan. The profile's
// country is deliberately not bound — workout structure does not
// depend on locale.
func (c *Coach) PlanWorkout(ctx context.Context, equipment string, p Profile) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	vars := p.Vars()
	delete(vars, "country")
	vars["equipment"] = equipment

	return c.Dispatch(ctx, prompts.TaskWorkout, vars)
}

// AnswerQuestion answers a free-form question with the full profile as
// context.
func (c *Coach) AnswerQuestion(ctx context.Context, query string, p Profile) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	vars := p.Vars()
	vars["query"] = query

	return c.Dispatch(ctx, prompts.TaskQuestion, vars)
}

// Dispatch resolves the task's template, renders it with vars, and
// returns the model's response. Identical (model, prompt, temperature)
// combinations within the cache TTL return the cached text without a
// model call.
func (c *Coach) Dispatch(ctx context.Context, task string, vars map[string]string) (string, error) {
	spec, err := prompts.Get(task)
	if err != nil {
		return "", err
	}

	rendered, err := spec.Render(vars)
	if err != nil {
		return "", err
	}

	key := cache.Key(c.model, prompts.Flatten(rendered), c.temperature)

	if c.cache != nil {
		entry, err := c.cache.Get(key)
		if err != nil {
			c.logger.Warn("cache lookup failed", "task", task, "error", err)
		} else if entry != nil {
			c.logger.Debug("cache hit", "task", task)
			return entry.Output, nil
		}
	}

	messages := toLLMMessages(rendered)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Info("calling model", "task", task, "model", c.model, "messages", len(messages))
	resp, err := c.client.Chat(callCtx, c.model, messages, llm.Options{Temperature: c.temperature})
	if err != nil {
		c.logger.Error("model call failed", "task", task, "error", err)
		return "", err
	}

	output := strings.TrimSpace(resp.Content)

	if c.cache != nil {
		if err := c.cache.Put(key, output); err != nil {
			// A write failure costs a future cache hit, nothing more.
			c.logger.Warn("cache write failed", "task", task, "error", err)
		}
	}

	return output, nil
}

// toLLMMessages converts rendered prompt messages to the provider
// message format. The template role "human" maps to the wire role
// "user".
func toLLMMessages(rendered []prompts.Message) []llm.Message {
	result := make([]llm.Message, len(rendered))
	for i, m := range rendered {
		role := m.Role
		if role == "human" {
			role = "user"
		}
		result[i] = llm.Message{Role: role, Content: m.Content}
	}
	return result
}
