// Package heartbeat wakes proactive agents on a per-agent repeating
// timer so they can act without an incoming message.
package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/nextlevelbuilder/crewd/internal/activity"
	"github.com/nextlevelbuilder/crewd/internal/agent"
	"github.com/nextlevelbuilder/crewd/internal/credits"
	"github.com/nextlevelbuilder/crewd/internal/models"
	"github.com/nextlevelbuilder/crewd/internal/providers"
	"github.com/nextlevelbuilder/crewd/internal/store"
)

const (
	// OKSentinel is the literal no-op reply a heartbeat turn uses to say
	// "nothing to report". Any other response is delivered.
	OKSentinel = "HEARTBEAT_OK"

	// Interval bounds. Agent-configured intervals are clamped into this
	// range so a bad row cannot hot-loop or go silent for days.
	minInterval = 300 * time.Second
	maxInterval = 3600 * time.Second

	// After this many consecutive tick failures the agent is moved to
	// error status and its timer removed. Chosen conservatively; a
	// human restarts the agent once the underlying fault is fixed.
	failureThreshold = 3

	heartbeatPrompt = "This is your scheduled heartbeat. Review your tasks, chat and " +
		"recent activity. If something needs your attention, act on it or send a " +
		"message. If there is truly nothing to do, respond with exactly " + OKSentinel + "."
)

// TurnRunner runs one agent turn.
type TurnRunner interface {
	RunTurn(ctx context.Context, req agent.RunRequest) (*agent.RunResult, error)
}

// ModelResolver resolves a logical model to a concrete backend.
type ModelResolver interface {
	Resolve(ctx context.Context, logicalModelID string) (models.BackendConfig, error)
}

// ToolSource yields the tool definitions offered on a heartbeat turn. It
// is called at tick time, so tools registered after the scheduler is
// built (MCP servers connect late) are still picked up.
type ToolSource func() []providers.ToolDefinition

type timerEntry struct {
	stop     chan struct{}
	stopped  sync.Once
	inFlight bool
	failures int
}

func (t *timerEntry) cancel() {
	t.stopped.Do(func() { close(t.stop) })
}

// Scheduler owns one repeating timer per running agent. Timers for
// different agents are independent; per-agent operations never disturb
// the others.
type Scheduler struct {
	agents store.AgentStore
	chat   store.ChatStore
	audit  *activity.Logger
	router ModelResolver
	runner TurnRunner
	tools  ToolSource

	mu     sync.Mutex
	timers map[uuid.UUID]*timerEntry

	// now is replaceable in tests.
	now  func() time.Time
	cron *gronx.Gronx

	workspace     string
	fallbackModel string
}

// SetWorkspace sets the team workspace root passed to tool calls.
func (s *Scheduler) SetWorkspace(dir string) { s.workspace = dir }

// SetFallbackModel sets the logical model used as the completion
// fallback for heartbeat turns.
func (s *Scheduler) SetFallbackModel(model string) { s.fallbackModel = model }

func NewScheduler(agents store.AgentStore, chat store.ChatStore, audit *activity.Logger, router ModelResolver, runner TurnRunner, toolDefs ToolSource) *Scheduler {
	return &Scheduler{
		agents: agents,
		chat:   chat,
		audit:  audit,
		router: router,
		runner: runner,
		tools:  toolDefs,
		timers: make(map[uuid.UUID]*timerEntry),
		now:    time.Now,
		cron:   gronx.New(),
	}
}

// Schedule installs the repeating timer for an agent, first canceling
// any existing one for the same id. Safe to call repeatedly, e.g. after
// an interval change.
func (s *Scheduler) Schedule(a *store.AgentData) {
	interval := clampInterval(time.Duration(a.HeartbeatSeconds) * time.Second)

	s.mu.Lock()
	if old, ok := s.timers[a.ID]; ok {
		old.cancel()
	}
	entry := &timerEntry{stop: make(chan struct{})}
	s.timers[a.ID] = entry
	s.mu.Unlock()

	go s.run(a.ID, interval, entry)
	slog.Info("heartbeat scheduled", "agent", a.ID, "interval", interval)
}

// Unschedule cancels and removes the agent's timer, if any.
func (s *Scheduler) Unschedule(agentID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.timers[agentID]; ok {
		entry.cancel()
		delete(s.timers, agentID)
	}
}

// StartAll installs timers for every agent currently in running status.
func (s *Scheduler) StartAll(ctx context.Context) error {
	running, err := s.agents.ListByStatus(ctx, store.AgentRunning)
	if err != nil {
		return fmt.Errorf("list running agents: %w", err)
	}
	for i := range running {
		s.Schedule(&running[i])
	}
	return nil
}

func (s *Scheduler) toolDefs() []providers.ToolDefinition {
	if s.tools == nil {
		return nil
	}
	return s.tools()
}

// StopAll cancels every timer.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.timers {
		entry.cancel()
		delete(s.timers, id)
	}
}

// Active reports whether the agent currently has a timer installed.
func (s *Scheduler) Active(agentID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[agentID]
	return ok
}

func (s *Scheduler) run(agentID uuid.UUID, interval time.Duration, entry *timerEntry) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-entry.stop:
			return
		case <-ticker.C:
			s.tick(context.Background(), agentID, entry)
		}
	}
}

// tick runs one heartbeat for the agent. Overlapping ticks for the same
// agent are skipped: the interval is wall-clock, and a slow turn must
// not stack invocations behind it.
func (s *Scheduler) tick(ctx context.Context, agentID uuid.UUID, entry *timerEntry) {
	s.mu.Lock()
	if entry.inFlight {
		s.mu.Unlock()
		slog.Debug("heartbeat tick skipped, previous still in flight", "agent", agentID)
		return
	}
	entry.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		entry.inFlight = false
		s.mu.Unlock()
	}()

	a, err := s.agents.Get(ctx, agentID)
	if err != nil {
		s.recordFailure(ctx, agentID, entry, fmt.Errorf("load agent: %w", err))
		return
	}

	if a.Status != store.AgentRunning {
		s.Unschedule(agentID)
		return
	}
	if !a.Proactive {
		return
	}
	if !withinActiveHours(a.ActiveHoursStart, a.ActiveHoursEnd, s.now().Hour()) {
		return
	}
	if a.HeartbeatCron != "" {
		due, err := s.cron.IsDue(a.HeartbeatCron, s.now())
		if err != nil {
			slog.Warn("invalid heartbeat cron, ignoring gate", "agent", a.ID, "expr", a.HeartbeatCron, "error", err)
		} else if !due {
			return
		}
	}

	if err := s.beat(ctx, a); err != nil {
		s.recordFailure(ctx, agentID, entry, err)
		return
	}

	s.mu.Lock()
	entry.failures = 0
	s.mu.Unlock()
}

func (s *Scheduler) beat(ctx context.Context, a *store.AgentData) error {
	backend, err := s.router.Resolve(ctx, a.Model)
	if err != nil {
		return fmt.Errorf("resolve model %s: %w", a.Model, err)
	}

	req := agent.RunRequest{
		AgentID:      a.ID,
		TeamID:       a.TeamID,
		UserMessage:  heartbeatPrompt,
		Backend:      backend,
		ModelID:      a.Model,
		SystemPrompt: a.SystemPrompt,
		Tools:        s.toolDefs(),
		TxType:       credits.TxHeartbeat,
		Workspace:    s.workspace,
	}
	if s.fallbackModel != "" && s.fallbackModel != a.Model {
		if fb, err := s.router.Resolve(ctx, s.fallbackModel); err == nil {
			req.Fallback = &fb
		}
	}

	res, err := s.runner.RunTurn(ctx, req)
	if err != nil {
		return fmt.Errorf("heartbeat turn: %w", err)
	}

	if strings.TrimSpace(res.Response) == OKSentinel {
		return nil
	}

	if err := s.chat.Post(ctx, &store.ChatMessageData{
		TeamID:  a.TeamID,
		AgentID: a.ID,
		Channel: privateChannel(a.ID),
		Content: res.Response,
	}); err != nil {
		return fmt.Errorf("deliver heartbeat message: %w", err)
	}
	s.audit.Log(ctx, "heartbeat_alert", a.ID, "heartbeat produced a message", map[string]any{
		"iterations": res.Iterations,
	})
	return nil
}

// recordFailure logs a failed tick and, after failureThreshold
// consecutive failures, moves the agent to error status and removes its
// timer. A single failure never stops the schedule.
func (s *Scheduler) recordFailure(ctx context.Context, agentID uuid.UUID, entry *timerEntry, err error) {
	s.mu.Lock()
	entry.failures++
	failures := entry.failures
	s.mu.Unlock()

	slog.Error("heartbeat tick failed", "agent", agentID, "consecutive", failures, "error", err)

	if failures < failureThreshold {
		return
	}
	if serr := s.agents.SetStatus(ctx, agentID, store.AgentError); serr != nil {
		slog.Error("mark agent errored", "agent", agentID, "error", serr)
	}
	s.Unschedule(agentID)
	s.audit.Log(ctx, "heartbeat_disabled", agentID,
		fmt.Sprintf("disabled after %d consecutive failures", failures), nil)
}

// withinActiveHours checks the half-open hour window [start, end).
// start == end means always active; start > end wraps past midnight.
func withinActiveHours(start, end, hour int) bool {
	if start == end {
		return true
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func clampInterval(d time.Duration) time.Duration {
	if d < minInterval {
		return minInterval
	}
	if d > maxInterval {
		return maxInterval
	}
	return d
}

func privateChannel(agentID uuid.UUID) string {
	return "agent:" + agentID.String()
}
