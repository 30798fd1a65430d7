package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/crewd/internal/activity"
	"github.com/nextlevelbuilder/crewd/internal/credits"
	"github.com/nextlevelbuilder/crewd/internal/models"
	"github.com/nextlevelbuilder/crewd/internal/providers"
	"github.com/nextlevelbuilder/crewd/internal/store"
	"github.com/nextlevelbuilder/crewd/internal/store/mem"
	"github.com/nextlevelbuilder/crewd/internal/tools"
)

// scriptedModel returns one canned response per model call, repeating
// the last one when the script runs out.
type scriptedModel struct {
	script []*providers.ChatResponse
	calls  int
}

func (m *scriptedModel) Chat(ctx context.Context, cfg models.BackendConfig, req providers.ChatRequest) (*providers.ChatResponse, error) {
	i := m.calls
	m.calls++
	if i >= len(m.script) {
		i = len(m.script) - 1
	}
	return m.script[i], nil
}

// recordingDispatcher returns canned text per tool and can stall
// selected tools past the loop's timeout.
type recordingDispatcher struct {
	executed []string
	results  map[string]string
	slow     map[string]time.Duration
}

func (d *recordingDispatcher) Execute(ctx context.Context, name, argsJSON string, cc tools.CallContext) *tools.Result {
	d.executed = append(d.executed, name)
	if delay, ok := d.slow[name]; ok {
		time.Sleep(delay)
	}
	if text, ok := d.results[name]; ok {
		return tools.NewResult(text)
	}
	return tools.NewResult("done")
}

func call(id, name, args string) providers.ToolCall {
	return providers.ToolCall{
		ID: id, Type: "function",
		Function: providers.ToolCallFunc{Name: name, Arguments: args},
	}
}

func newTestLoop(t *testing.T, model *scriptedModel, dispatcher *recordingDispatcher) (*Loop, *store.Store) {
	t.Helper()
	st := mem.New()
	loop := NewLoop(model, dispatcher, st.Messages, nil, activity.NewLogger(st.Activity))
	return loop, st
}

func baseRequest() RunRequest {
	return RunRequest{
		AgentID:     store.GenNewID(),
		TeamID:      store.GenNewID(),
		UserMessage: "hello",
		Backend:     models.BackendConfig{Endpoint: "http://test", Model: "test-model"},
	}
}

func TestTextOnlyResponseTerminatesInOneIteration(t *testing.T) {
	model := &scriptedModel{script: []*providers.ChatResponse{{Content: "hi there"}}}
	loop, st := newTestLoop(t, model, &recordingDispatcher{})

	req := baseRequest()
	res, err := loop.RunTurn(context.Background(), req)
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if res.Response != "hi there" {
		t.Errorf("Response = %q, want %q", res.Response, "hi there")
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}

	history, err := st.Messages.Recent(context.Background(), req.AgentID, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	last := history[len(history)-1]
	if last.Role != "assistant" || last.Content != "hi there" {
		t.Errorf("final history entry = %s %q, want the response", last.Role, last.Content)
	}
}

func TestRespondToolEndsTurnWithItsMessage(t *testing.T) {
	model := &scriptedModel{script: []*providers.ChatResponse{{
		ToolCalls: []providers.ToolCall{
			call("1", "think", `{"thought":"plan"}`),
			call("2", "respond", `{"message":"final answer"}`),
			call("3", "list_tasks", `{}`),
		},
	}}}
	dispatcher := &recordingDispatcher{}
	loop, _ := newTestLoop(t, model, dispatcher)

	res, err := loop.RunTurn(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if res.Response != "final answer" {
		t.Errorf("Response = %q, want respond's message", res.Response)
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}
	// The whole batch runs, including calls after respond.
	if len(dispatcher.executed) != 3 {
		t.Errorf("executed tools = %v, want all 3", dispatcher.executed)
	}
	if dispatcher.executed[2] != "list_tasks" {
		t.Errorf("executed order = %v, want list_tasks last", dispatcher.executed)
	}
}

func TestIterationCapReturnsFallbackText(t *testing.T) {
	// The model thinks forever and never responds.
	model := &scriptedModel{script: []*providers.ChatResponse{{
		ToolCalls: []providers.ToolCall{call("1", "think", `{"thought":"hmm"}`)},
	}}}
	loop, _ := newTestLoop(t, model, &recordingDispatcher{})

	req := baseRequest()
	req.MaxIterations = 4
	res, err := loop.RunTurn(context.Background(), req)
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if res.Response != iterationLimitResponse {
		t.Errorf("Response = %q, want fallback text", res.Response)
	}
	if res.Iterations != 4 {
		t.Errorf("Iterations = %d, want the cap 4", res.Iterations)
	}
	if len(res.ToolCalls) != 4 {
		t.Errorf("tool call log has %d entries, want 4", len(res.ToolCalls))
	}
}

func TestToolTimeoutDoesNotAbortTurn(t *testing.T) {
	model := &scriptedModel{script: []*providers.ChatResponse{
		{ToolCalls: []providers.ToolCall{
			call("1", "slow_tool", `{}`),
			call("2", "respond", `{"message":"made it"}`),
		}},
	}}
	dispatcher := &recordingDispatcher{
		slow: map[string]time.Duration{"slow_tool": 200 * time.Millisecond},
	}
	loop, _ := newTestLoop(t, model, dispatcher)
	loop.toolWait = 20 * time.Millisecond

	res, err := loop.RunTurn(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if res.Response != "made it" {
		t.Errorf("Response = %q, want the respond message after the timeout", res.Response)
	}
	if len(res.ToolCalls) != 2 {
		t.Fatalf("tool call log = %v, want 2 entries", res.ToolCalls)
	}
	timedOut := res.ToolCalls[0]
	if !timedOut.IsError || !strings.Contains(timedOut.Result, "timed out") {
		t.Errorf("slow tool record = %+v, want timeout error text", timedOut)
	}
}

func TestInsufficientCreditsStopsLoopInBand(t *testing.T) {
	ctx := context.Background()
	st := mem.New()
	team := &store.TeamData{ID: store.GenNewID(), Name: "t"}
	if err := st.Teams.Create(ctx, team); err != nil {
		t.Fatalf("create team: %v", err)
	}
	meter := credits.NewMeter(st.Credits, true) // zero balance

	model := &scriptedModel{script: []*providers.ChatResponse{{Content: "never reached"}}}
	loop := NewLoop(model, &recordingDispatcher{}, st.Messages, meter, activity.NewLogger(st.Activity))

	req := baseRequest()
	req.TeamID = team.ID
	req.ModelID = "smart"
	res, err := loop.RunTurn(ctx, req)
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}
	if !strings.Contains(res.Response, "credit") {
		t.Errorf("Response = %q, want balance-exhausted message", res.Response)
	}
	if model.calls != 0 {
		t.Errorf("model called %d times with no balance, want 0", model.calls)
	}
}

func TestNonThinkCallsAreAudited(t *testing.T) {
	model := &scriptedModel{script: []*providers.ChatResponse{{
		ToolCalls: []providers.ToolCall{
			call("1", "think", `{"thought":"quiet"}`),
			call("2", "respond", `{"message":"ok"}`),
		},
	}}}
	loop, st := newTestLoop(t, model, &recordingDispatcher{})

	req := baseRequest()
	if _, err := loop.RunTurn(context.Background(), req); err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}

	entries, err := st.Activity.Recent(context.Background(), req.AgentID, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	var audited []string
	for _, e := range entries {
		if e.EventType == "tool_call" {
			audited = append(audited, e.Description)
		}
	}
	if len(audited) != 1 || audited[0] != "respond" {
		t.Errorf("audited calls = %v, want only respond (think stays private)", audited)
	}
}
