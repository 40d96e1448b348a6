package agent

import "testing"

func TestParseDecisionAction(t *testing.T) {
	out := "Thought: I should compute this.\nAction: calculator\nAction Input: 2+2\n"

	dec, err := parseDecision(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if dec.Final {
		t.Error("expected an action, got final")
	}
	if dec.Thought != "I should compute this." {
		t.Errorf("thought = %q", dec.Thought)
	}
	if dec.Action != "calculator" {
		t.Errorf("action = %q", dec.Action)
	}
	if dec.ActionInput != "2+2" {
		t.Errorf("action input = %q", dec.ActionInput)
	}
}

func TestParseDecisionFinalAnswer(t *testing.T) {
	out := "Thought: I know this now.\nFinal Answer: 42"

	dec, err := parseDecision(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !dec.Final {
		t.Fatal("expected final")
	}
	if dec.FinalAnswer != "42" {
		t.Errorf("final answer = %q", dec.FinalAnswer)
	}
	if dec.Thought != "I know this now." {
		t.Errorf("thought = %q", dec.Thought)
	}
}

func TestParseDecisionFinalWinsOverAction(t *testing.T) {
	out := "Action: calculator\nAction Input: 1+1\nFinal Answer: 2"

	dec, err := parseDecision(out)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !dec.Final || dec.FinalAnswer != "2" {
		t.Errorf("decision = %+v, want final answer 2", dec)
	}
}

func TestParseDecisionQuotedInput(t *testing.T) {
	dec, err := parseDecision("Action: web_search\nAction Input: \"best protein sources\"")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if dec.ActionInput != "best protein sources" {
		t.Errorf("action input = %q", dec.ActionInput)
	}
}

func TestParseDecisionMalformed(t *testing.T) {
	cases := []string{
		"",
		"just rambling text",
		"Action: calculator",
		"Action Input: 2+2",
		"Action:\nAction Input: 2+2",
		"Thought: hmm, not sure what to do",
	}
	for _, in := range cases {
		if _, err := parseDecision(in); err == nil {
			t.Errorf("parseDecision(%q) succeeded, want error", in)
		}
	}
}

func TestParseDecisionMultilineInputTruncated(t *testing.T) {
	dec, err := parseDecision("Action: calculator\nAction Input: 3*3\nObservation: hallucinated")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if dec.ActionInput != "3*3" {
		t.Errorf("action input = %q, want hallucinated observation stripped", dec.ActionInput)
	}
}
