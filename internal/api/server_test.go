package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arlow/fitcoach/internal/agent"
	"github.com/arlow/fitcoach/internal/coach"
	"github.com/arlow/fitcoach/internal/journal"
	"github.com/arlow/fitcoach/internal/llm"
	"github.com/arlow/fitcoach/internal/tools"

	_ "modernc.org/sqlite"
)

// fakeLLM replies with canned outputs in order, repeating the last one.
type fakeLLM struct {
	outputs []string
	calls   int
	err     error
}

func (f *fakeLLM) Chat(_ context.Context, model string, _ []llm.Message, _ llm.Options) (*llm.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.outputs[len(f.outputs)-1]
	if f.calls < len(f.outputs) {
		out = f.outputs[f.calls]
	}
	f.calls++
	return &llm.ChatResponse{Model: model, Content: out}, nil
}

func (f *fakeLLM) Ping(_ context.Context) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, client llm.Client) (*Server, *httptest.Server) {
	t.Helper()

	c := coach.New(client, nil, coach.Config{Model: "m", Temperature: 0.7}, nil)

	reg := tools.NewRegistry()
	tools.RegisterCalculator(reg)
	loop := agent.New(client, reg, agent.Config{Model: "m"}, nil)

	s := NewServer("127.0.0.1:0", c, loop, testLogger())

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	js, err := journal.NewStore(db)
	if err != nil {
		t.Fatalf("journal store: %v", err)
	}
	s.SetJournalStore(js)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func testProfile() coach.Profile {
	return coach.Profile{
		Name: "Ana", Age: 30, Sex: "F", Weight: 60, Height: 165,
		Goals: "lose fat", Country: "PH",
	}
}

func TestHealthAndVersion(t *testing.T) {
	_, srv := newTestServer(t, &fakeLLM{outputs: []string{"ok"}})

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["status"] != "healthy" {
		t.Errorf("status = %q", body["status"])
	}

	resp, err = http.Get(srv.URL + "/v1/version")
	if err != nil {
		t.Fatal(err)
	}
	ver := decodeBody[map[string]string](t, resp)
	if ver["version"] == "" {
		t.Error("version missing")
	}
}

func TestPlanEndpoint(t *testing.T) {
	_, srv := newTestServer(t, &fakeLLM{outputs: []string{"## Your Plan\n\n- eat well"}})

	resp := postJSON(t, srv.URL+"/v1/plan", PlanRequest{Profile: testProfile()})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[TextResponse](t, resp)
	if !strings.Contains(body.Output, "Your Plan") {
		t.Errorf("output = %q", body.Output)
	}
	if body.HTML != "" {
		t.Errorf("unexpected HTML without format=html: %q", body.HTML)
	}
}

func TestPlanEndpointHTMLFormat(t *testing.T) {
	_, srv := newTestServer(t, &fakeLLM{outputs: []string{"## Your Plan"}})

	resp := postJSON(t, srv.URL+"/v1/plan?format=html", PlanRequest{Profile: testProfile()})
	body := decodeBody[TextResponse](t, resp)
	if !strings.Contains(body.HTML, "<h2") {
		t.Errorf("html = %q, want rendered heading", body.HTML)
	}
}

func TestPlanEndpointInvalidProfile(t *testing.T) {
	llmClient := &fakeLLM{outputs: []string{"x"}}
	_, srv := newTestServer(t, llmClient)

	resp := postJSON(t, srv.URL+"/v1/plan", PlanRequest{Profile: coach.Profile{Name: "Ana"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
	if llmClient.calls != 0 {
		t.Errorf("model calls = %d, want 0", llmClient.calls)
	}
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	client := &fakeLLM{err: &llm.InvocationError{Provider: "gemini", Err: errors.New("quota exceeded")}}
	_, srv := newTestServer(t, client)

	resp := postJSON(t, srv.URL+"/v1/summarize", SummarizeRequest{Text: "some plan text"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSummarizeRequiresText(t *testing.T) {
	_, srv := newTestServer(t, &fakeLLM{outputs: []string{"x"}})

	resp := postJSON(t, srv.URL+"/v1/summarize", SummarizeRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAgentEndpoint(t *testing.T) {
	client := &fakeLLM{outputs: []string{
		"Thought: compute.\nAction: calculator\nAction Input: 6*7",
		"Final Answer: 42",
	}}
	_, srv := newTestServer(t, client)

	resp := postJSON(t, srv.URL+"/v1/agent", AgentRequest{Input: "six times seven"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[AgentResponse](t, resp)
	if body.Answer != "42" {
		t.Errorf("answer = %q", body.Answer)
	}
	if len(body.Steps) != 1 || body.Steps[0].Observation != "42" {
		t.Errorf("steps = %+v", body.Steps)
	}
}

func TestJournalCRUD(t *testing.T) {
	_, srv := newTestServer(t, &fakeLLM{outputs: []string{"x"}})

	entry := journal.Entry{
		Date:   time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		Weight: 61.5,
		Mood:   "🙂",
	}
	resp := postJSON(t, srv.URL+"/v1/journal/entries", entry)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decodeBody[journal.Entry](t, resp)

	resp, err := http.Get(srv.URL + "/v1/journal/entries/" + created.ID.String())
	if err != nil {
		t.Fatal(err)
	}
	got := decodeBody[journal.Entry](t, resp)
	if got.Weight != 61.5 || got.Mood != "🙂" {
		t.Errorf("entry = %+v", got)
	}

	resp, err = http.Get(srv.URL + "/v1/journal/entries")
	if err != nil {
		t.Fatal(err)
	}
	list := decodeBody[map[string][]journal.Entry](t, resp)
	if len(list["entries"]) != 1 {
		t.Errorf("entries = %d, want 1", len(list["entries"]))
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/journal/entries/"+created.ID.String(), nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", delResp.StatusCode)
	}
}

func TestJournalCreateValidation(t *testing.T) {
	_, srv := newTestServer(t, &fakeLLM{outputs: []string{"x"}})

	resp := postJSON(t, srv.URL+"/v1/journal/entries", journal.Entry{Mood: "😞"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTranscribeNotConfigured(t *testing.T) {
	_, srv := newTestServer(t, &fakeLLM{outputs: []string{"x"}})

	resp, err := http.Post(srv.URL+"/v1/journal/transcribe", "application/octet-stream", strings.NewReader("audio"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAgentWebSocketStreamsSteps(t *testing.T) {
	client := &fakeLLM{outputs: []string{
		"Thought: compute.\nAction: calculator\nAction Input: 2+3",
		"Final Answer: 5",
	}}
	_, srv := newTestServer(t, client)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/agent/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wsQuestion{Input: "two plus three"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var events []wsEvent
	for {
		var ev wsEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		events = append(events, ev)
		if ev.Type == "answer" || ev.Type == "error" {
			break
		}
	}

	if len(events) != 2 {
		t.Fatalf("events = %d, want step + answer", len(events))
	}
	if events[0].Type != "step" || events[0].Step.Observation != "5" {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Type != "answer" || events[1].Answer != "5" {
		t.Errorf("second event = %+v", events[1])
	}
}
