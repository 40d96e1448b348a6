package coach

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arlow/fitcoach/internal/cache"
	"github.com/arlow/fitcoach/internal/llm"
	"github.com/arlow/fitcoach/internal/prompts"

	_ "modernc.org/sqlite"
)

// fakeClient is a scripted LLM client that counts calls.
type fakeClient struct {
	calls    int
	response string
	err      error
	lastMsgs []llm.Message
}

func (f *fakeClient) Chat(_ context.Context, model string, messages []llm.Message, _ llm.Options) (*llm.ChatResponse, error) {
	f.calls++
	f.lastMsgs = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Model: model, Content: f.response}, nil
}

func (f *fakeClient) Ping(_ context.Context) error { return nil }

func testProfile() Profile {
	return Profile{
		Name:    "Ana",
		Age:     30,
		Sex:     "F",
		Weight:  60,
		Height:  165,
		Goals:   "lose fat",
		Country: "PH",
	}
}

func newTestCache(t *testing.T) *cache.Store {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := cache.NewStore(db, time.Hour)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestGeneratePlanCachesWithinTTL(t *testing.T) {
	client := &fakeClient{response: "  your plan  "}
	c := New(client, newTestCache(t), Config{Model: "m", Temperature: 0.7}, nil)

	first, err := c.GeneratePlan(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first != "your plan" {
		t.Errorf("output not trimmed: %q", first)
	}

	second, err := c.GeneratePlan(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if first != second {
		t.Errorf("cached output differs: %q vs %q", first, second)
	}
	if client.calls != 1 {
		t.Errorf("model calls = %d, want 1", client.calls)
	}
}

func TestGeneratePlanDifferentProfilesMiss(t *testing.T) {
	client := &fakeClient{response: "plan"}
	c := New(client, newTestCache(t), Config{Model: "m", Temperature: 0.7}, nil)

	if _, err := c.GeneratePlan(context.Background(), testProfile()); err != nil {
		t.Fatal(err)
	}

	other := testProfile()
	other.Goals = "build muscle"
	if _, err := c.GeneratePlan(context.Background(), other); err != nil {
		t.Fatal(err)
	}

	if client.calls != 2 {
		t.Errorf("model calls = %d, want 2 for distinct profiles", client.calls)
	}
}

func TestDispatchMissingVariableNoModelCall(t *testing.T) {
	client := &fakeClient{response: "x"}
	c := New(client, newTestCache(t), Config{Model: "m", Temperature: 0.7}, nil)

	_, err := c.Dispatch(context.Background(), prompts.TaskPlan, map[string]string{"name": "Ana"})
	if err == nil {
		t.Fatal("expected error")
	}

	var missErr *prompts.MissingVariableError
	if !errors.As(err, &missErr) {
		t.Fatalf("error %T is not *MissingVariableError", err)
	}
	if client.calls != 0 {
		t.Errorf("model calls = %d, want 0", client.calls)
	}
}

func TestDispatchUnknownTask(t *testing.T) {
	c := New(&fakeClient{}, nil, Config{Model: "m"}, nil)

	_, err := c.Dispatch(context.Background(), "no-such-task", nil)
	var unkErr *prompts.UnknownTaskError
	if !errors.As(err, &unkErr) {
		t.Fatalf("error %T is not *UnknownTaskError", err)
	}
}

func TestDispatchModelError(t *testing.T) {
	wantErr := &llm.InvocationError{Provider: "fake", Err: errors.New("quota")}
	client := &fakeClient{err: wantErr}
	c := New(client, newTestCache(t), Config{Model: "m", Temperature: 0.7}, nil)

	_, err := c.Summarize(context.Background(), "some text")
	var invErr *llm.InvocationError
	if !errors.As(err, &invErr) {
		t.Fatalf("error %T is not *InvocationError", err)
	}
	if client.calls != 1 {
		t.Errorf("model calls = %d, want exactly 1 (no retries)", client.calls)
	}
}

func TestPlanWorkoutOmitsCountry(t *testing.T) {
	client := &fakeClient{response: "workout"}
	c := New(client, nil, Config{Model: "m", Temperature: 0.7}, nil)

	_, err := c.PlanWorkout(context.Background(), "dumbbells", testProfile())
	if err != nil {
		t.Fatalf("plan workout: %v", err)
	}

	for _, m := range client.lastMsgs {
		if strings.Contains(m.Content, "PH") {
			t.Errorf("workout prompt leaked country: %q", m.Content)
		}
	}

	var human string
	for _, m := range client.lastMsgs {
		if m.Role == "user" {
			human = m.Content
		}
	}
	if !strings.Contains(human, "dumbbells") {
		t.Errorf("workout prompt missing equipment: %q", human)
	}
}

func TestAnswerQuestionBindsFullProfile(t *testing.T) {
	client := &fakeClient{response: "answer"}
	c := New(client, nil, Config{Model: "m", Temperature: 0.7}, nil)

	_, err := c.AnswerQuestion(context.Background(), "how much protein?", testProfile())
	if err != nil {
		t.Fatalf("answer question: %v", err)
	}

	var human string
	for _, m := range client.lastMsgs {
		if m.Role == "user" {
			human = m.Content
		}
	}
	for _, want := range []string{"Ana", "30", "F", "60", "165", "lose fat", "PH", "how much protein?"} {
		if !strings.Contains(human, want) {
			t.Errorf("question prompt missing %q", want)
		}
	}
}

func TestGeneratePlanInvalidProfile(t *testing.T) {
	client := &fakeClient{response: "plan"}
	c := New(client, nil, Config{Model: "m"}, nil)

	p := testProfile()
	p.Age = -1
	if _, err := c.GeneratePlan(context.Background(), p); err == nil {
		t.Fatal("expected validation error")
	}
	if client.calls != 0 {
		t.Errorf("model calls = %d, want 0", client.calls)
	}
}

func TestRoleMapping(t *testing.T) {
	client := &fakeClient{response: "ok"}
	c := New(client, nil, Config{Model: "m"}, nil)

	if _, err := c.Summarize(context.Background(), "text"); err != nil {
		t.Fatal(err)
	}

	if len(client.lastMsgs) != 2 {
		t.Fatalf("messages = %d", len(client.lastMsgs))
	}
	if client.lastMsgs[0].Role != "system" || client.lastMsgs[1].Role != "user" {
		t.Errorf("roles = %q/%q, want system/user", client.lastMsgs[0].Role, client.lastMsgs[1].Role)
	}
}
