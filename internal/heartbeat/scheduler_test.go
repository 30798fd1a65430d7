package heartbeat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nextlevelbuilder/crewd/internal/activity"
	"github.com/nextlevelbuilder/crewd/internal/agent"
	"github.com/nextlevelbuilder/crewd/internal/models"
	"github.com/nextlevelbuilder/crewd/internal/providers"
	"github.com/nextlevelbuilder/crewd/internal/store"
	"github.com/nextlevelbuilder/crewd/internal/store/mem"
)

type fakeRunner struct {
	calls     int
	response  string
	err       error
	lastTools []providers.ToolDefinition
}

func (f *fakeRunner) RunTurn(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error) {
	f.calls++
	f.lastTools = req.Tools
	if f.err != nil {
		return nil, f.err
	}
	return &agent.RunResult{Response: f.response, Iterations: 1}, nil
}

type fakeResolver struct{ err error }

func (f *fakeResolver) Resolve(ctx context.Context, logicalModelID string) (models.BackendConfig, error) {
	if f.err != nil {
		return models.BackendConfig{}, f.err
	}
	return models.BackendConfig{Endpoint: "http://test", Model: logicalModelID}, nil
}

func newTestScheduler(t *testing.T, st *store.Store, runner TurnRunner, resolver ModelResolver) *Scheduler {
	t.Helper()
	return NewScheduler(st.Agents, st.Chat, activity.NewLogger(st.Activity), resolver, runner, nil)
}

func createAgent(t *testing.T, st *store.Store, mutate func(*store.AgentData)) *store.AgentData {
	t.Helper()
	a := &store.AgentData{
		ID:               store.GenNewID(),
		TeamID:           store.GenNewID(),
		DisplayName:      "worker",
		Status:           store.AgentRunning,
		Proactive:        true,
		HeartbeatSeconds: 600,
		Model:            "smart",
	}
	if mutate != nil {
		mutate(a)
	}
	if err := st.Agents.Create(context.Background(), a); err != nil {
		t.Fatalf("create agent: %v", err)
	}
	return a
}

func TestScheduleIsIdempotent(t *testing.T) {
	st := mem.New()
	s := newTestScheduler(t, st, &fakeRunner{response: OKSentinel}, &fakeResolver{})
	defer s.StopAll()

	a := createAgent(t, st, nil)
	s.Schedule(a)
	s.Schedule(a)

	s.mu.Lock()
	n := len(s.timers)
	s.mu.Unlock()
	if n != 1 {
		t.Errorf("timers after double Schedule = %d, want 1", n)
	}
	if !s.Active(a.ID) {
		t.Error("Active() = false after Schedule")
	}

	s.Unschedule(a.ID)
	if s.Active(a.ID) {
		t.Error("Active() = true after Unschedule")
	}
}

func TestStartAllSchedulesOnlyRunningAgents(t *testing.T) {
	st := mem.New()
	s := newTestScheduler(t, st, &fakeRunner{response: OKSentinel}, &fakeResolver{})
	defer s.StopAll()

	running := createAgent(t, st, nil)
	paused := createAgent(t, st, func(a *store.AgentData) { a.Status = store.AgentPaused })

	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	if !s.Active(running.ID) {
		t.Error("running agent has no timer")
	}
	if s.Active(paused.ID) {
		t.Error("paused agent has a timer")
	}
}

func TestTickOutsideActiveHoursDoesNothing(t *testing.T) {
	st := mem.New()
	runner := &fakeRunner{response: "something happened"}
	s := newTestScheduler(t, st, runner, &fakeResolver{})
	s.now = func() time.Time { return time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC) } // 03:00

	a := createAgent(t, st, func(ad *store.AgentData) {
		ad.ActiveHoursStart = 9
		ad.ActiveHoursEnd = 17
	})

	s.tick(context.Background(), a.ID, &timerEntry{stop: make(chan struct{})})

	if runner.calls != 0 {
		t.Errorf("runner invoked %d times outside active hours, want 0", runner.calls)
	}
	entries, _ := st.Activity.Recent(context.Background(), a.ID, 10)
	if len(entries) != 0 {
		t.Errorf("activity entries = %d, want none", len(entries))
	}
}

func TestTickSkipsNonProactiveAgent(t *testing.T) {
	st := mem.New()
	runner := &fakeRunner{response: "hi"}
	s := newTestScheduler(t, st, runner, &fakeResolver{})

	a := createAgent(t, st, func(ad *store.AgentData) { ad.Proactive = false })
	s.tick(context.Background(), a.ID, &timerEntry{stop: make(chan struct{})})

	if runner.calls != 0 {
		t.Errorf("runner invoked for non-proactive agent, calls = %d", runner.calls)
	}
}

func TestSentinelResponseIsSilent(t *testing.T) {
	st := mem.New()
	s := newTestScheduler(t, st, &fakeRunner{response: OKSentinel}, &fakeResolver{})

	a := createAgent(t, st, nil)
	s.tick(context.Background(), a.ID, &timerEntry{stop: make(chan struct{})})

	msgs, _ := st.Chat.Recent(context.Background(), a.TeamID, privateChannel(a.ID), 10)
	if len(msgs) != 0 {
		t.Errorf("sentinel response was delivered: %d chat messages", len(msgs))
	}
}

func TestSubstantiveResponseIsDelivered(t *testing.T) {
	st := mem.New()
	s := newTestScheduler(t, st, &fakeRunner{response: "three tasks overdue"}, &fakeResolver{})

	a := createAgent(t, st, nil)
	s.tick(context.Background(), a.ID, &timerEntry{stop: make(chan struct{})})

	msgs, err := st.Chat.Recent(context.Background(), a.TeamID, privateChannel(a.ID), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "three tasks overdue" {
		t.Fatalf("delivered messages = %+v, want the heartbeat response", msgs)
	}
	entries, _ := st.Activity.Recent(context.Background(), a.ID, 10)
	if len(entries) != 1 {
		t.Errorf("activity entries = %d, want 1", len(entries))
	}
}

func TestTickSeesToolsRegisteredAfterConstruction(t *testing.T) {
	st := mem.New()
	runner := &fakeRunner{response: OKSentinel}

	var defs []providers.ToolDefinition
	s := NewScheduler(st.Agents, st.Chat, activity.NewLogger(st.Activity), &fakeResolver{}, runner,
		func() []providers.ToolDefinition { return defs })

	a := createAgent(t, st, nil)
	s.tick(context.Background(), a.ID, &timerEntry{stop: make(chan struct{})})
	if len(runner.lastTools) != 0 {
		t.Fatalf("first tick saw %d tools, want 0", len(runner.lastTools))
	}

	// An MCP server attaching after startup grows the catalog; the next
	// tick must offer the new tool.
	defs = append(defs, providers.ToolDefinition{
		Type:     "function",
		Function: providers.ToolFunctionSchema{Name: "github__create_issue"},
	})
	s.tick(context.Background(), a.ID, &timerEntry{stop: make(chan struct{})})

	if len(runner.lastTools) != 1 || runner.lastTools[0].Function.Name != "github__create_issue" {
		t.Errorf("second tick tools = %+v, want the late-registered tool", runner.lastTools)
	}
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	st := mem.New()
	runner := &fakeRunner{response: OKSentinel}
	s := newTestScheduler(t, st, runner, &fakeResolver{})

	a := createAgent(t, st, nil)
	entry := &timerEntry{stop: make(chan struct{}), inFlight: true}
	s.tick(context.Background(), a.ID, entry)

	if runner.calls != 0 {
		t.Errorf("tick ran while previous was in flight, calls = %d", runner.calls)
	}
}

func TestConsecutiveFailuresDisableAgent(t *testing.T) {
	st := mem.New()
	s := newTestScheduler(t, st, &fakeRunner{err: errors.New("turn failed")}, &fakeResolver{})

	a := createAgent(t, st, nil)
	s.Schedule(a)
	entry := &timerEntry{stop: make(chan struct{})}

	for i := 0; i < failureThreshold; i++ {
		s.tick(context.Background(), a.ID, entry)
	}

	got, err := st.Agents.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != store.AgentError {
		t.Errorf("Status = %q after %d failures, want error", got.Status, failureThreshold)
	}
	if s.Active(a.ID) {
		t.Error("timer still installed after failure escalation")
	}
}

func TestSingleFailureKeepsSchedule(t *testing.T) {
	st := mem.New()
	s := newTestScheduler(t, st, &fakeRunner{err: errors.New("turn failed")}, &fakeResolver{})

	a := createAgent(t, st, nil)
	s.Schedule(a)
	defer s.StopAll()
	s.tick(context.Background(), a.ID, &timerEntry{stop: make(chan struct{})})

	got, _ := st.Agents.Get(context.Background(), a.ID)
	if got.Status != store.AgentRunning {
		t.Errorf("Status = %q after one failure, want still running", got.Status)
	}
	if !s.Active(a.ID) {
		t.Error("timer removed after a single failure")
	}
}

func TestWithinActiveHours(t *testing.T) {
	cases := []struct {
		start, end, hour int
		want             bool
	}{
		{9, 17, 12, true},
		{9, 17, 9, true},   // half-open: start included
		{9, 17, 17, false}, // end excluded
		{9, 17, 3, false},
		{0, 0, 5, true},   // always active
		{22, 6, 23, true}, // wrap past midnight
		{22, 6, 2, true},
		{22, 6, 12, false},
	}
	for _, tc := range cases {
		if got := withinActiveHours(tc.start, tc.end, tc.hour); got != tc.want {
			t.Errorf("withinActiveHours(%d, %d, %d) = %t, want %t", tc.start, tc.end, tc.hour, got, tc.want)
		}
	}
}

func TestClampInterval(t *testing.T) {
	cases := []struct {
		in, want time.Duration
	}{
		{10 * time.Second, minInterval},
		{600 * time.Second, 600 * time.Second},
		{7200 * time.Second, maxInterval},
	}
	for _, tc := range cases {
		if got := clampInterval(tc.in); got != tc.want {
			t.Errorf("clampInterval(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
