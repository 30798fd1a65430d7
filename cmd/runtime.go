package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/nextlevelbuilder/crewd/internal/activity"
	"github.com/nextlevelbuilder/crewd/internal/agent"
	"github.com/nextlevelbuilder/crewd/internal/approvals"
	"github.com/nextlevelbuilder/crewd/internal/browser"
	"github.com/nextlevelbuilder/crewd/internal/config"
	"github.com/nextlevelbuilder/crewd/internal/credits"
	"github.com/nextlevelbuilder/crewd/internal/heartbeat"
	mcpx "github.com/nextlevelbuilder/crewd/internal/mcp"
	"github.com/nextlevelbuilder/crewd/internal/memory"
	"github.com/nextlevelbuilder/crewd/internal/models"
	"github.com/nextlevelbuilder/crewd/internal/providers"
	"github.com/nextlevelbuilder/crewd/internal/store"
	"github.com/nextlevelbuilder/crewd/internal/store/mem"
	"github.com/nextlevelbuilder/crewd/internal/store/pg"
	"github.com/nextlevelbuilder/crewd/internal/tools"
)

// runtime bundles the fully wired service graph.
type runtime struct {
	cfg   *config.Config
	store *store.Store
	db    *sql.DB // nil in standalone mode

	memory    *memory.Store
	meter     *credits.Meter
	gate      *approvals.Gate
	audit     *activity.Logger
	router    *models.Router
	registry  *tools.Registry
	skills    *tools.SkillRegistry
	browser   *browser.Executor
	mcp       *mcpx.Executor
	loop      *agent.Loop
	scheduler *heartbeat.Scheduler
}

// buildRuntime wires every component from config. withExecutors controls
// whether the browser and MCP executors are started; CLI one-shots that
// never dispatch tools skip them.
func buildRuntime(ctx context.Context, cfg *config.Config, withExecutors bool) (*runtime, error) {
	rt := &runtime{cfg: cfg}

	if cfg.Mode == config.ModeHosted && cfg.PostgresDSN != "" {
		st, db, err := pg.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		rt.store = st
		rt.db = db
	} else {
		rt.store = mem.New()
	}

	mm, err := memory.Open(cfg.MemoryDBPath)
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	rt.memory = mm

	rt.meter = credits.NewMeter(rt.store.Credits, cfg.Metering.Enabled)
	rt.gate = approvals.NewGate(rt.store.Approvals)
	rt.audit = activity.NewLogger(rt.store.Activity)

	creds := func(providerID string) string { return cfg.Providers[providerID].APIKey }
	rt.router = models.NewRouter(models.DefaultCatalog(), creds, cfg.IsHosted())

	rt.registry = tools.NewRegistry()
	for _, t := range builtinTools(rt) {
		if err := rt.registry.Register(t); err != nil {
			return nil, fmt.Errorf("register built-in tool: %w", err)
		}
	}
	rt.skills = tools.NewSkillRegistry(rt.store.Credentials)

	if withExecutors {
		rt.browser = browser.NewExecutor(true)
		rt.mcp = mcpx.NewExecutor()
	}

	var limiter *tools.RateLimiter
	if cfg.ToolRateLimit > 0 {
		limiter = tools.NewRateLimiter(cfg.ToolRateLimit, cfg.ToolRateLimit)
	}

	var browserExec tools.BrowserExecutor
	var mcpExec tools.MCPExecutor
	if rt.browser != nil {
		browserExec = rt.browser
	}
	if rt.mcp != nil {
		mcpExec = rt.mcp
	}
	dispatcher := tools.NewDispatcher(rt.registry, rt.skills, browserExec, mcpExec, rt.meter, limiter)

	rt.loop = agent.NewLoop(providers.NewClient(), dispatcher, rt.store.Messages, rt.meter, rt.audit)
	rt.scheduler = heartbeat.NewScheduler(rt.store.Agents, rt.store.Chat, rt.audit, rt.router, rt.loop, rt.toolDefs)
	rt.scheduler.SetWorkspace(cfg.Workspace)
	rt.scheduler.SetFallbackModel(cfg.FallbackModel)
	return rt, nil
}

func builtinTools(rt *runtime) []tools.Tool {
	list := []tools.Tool{
		&tools.ThinkTool{},
		&tools.RespondTool{},
		&tools.ReadFileTool{},
		&tools.WriteFileTool{},
		&tools.ListFilesTool{},
		&tools.CreateTaskTool{Tasks: rt.store.Tasks},
		&tools.UpdateTaskTool{Tasks: rt.store.Tasks},
		&tools.ListTasksTool{Tasks: rt.store.Tasks},
		&tools.SendMessageTool{Chat: rt.store.Chat},
		&tools.RequestApprovalTool{Gate: rt.gate},
		&tools.QueryTableTool{Tables: rt.store.Tables},
		&tools.UpdateTableTool{Tables: rt.store.Tables},
		&tools.RememberTool{Memory: rt.memory},
		&tools.SearchKnowledgeTool{Memory: rt.memory},
	}
	if endpoint := os.Getenv("CREWD_MEDIA_ENDPOINT"); endpoint != "" {
		backend := tools.NewHTTPMediaBackend(endpoint, os.Getenv("CREWD_MEDIA_API_KEY"))
		for _, mt := range tools.NewMediaTools(backend, rt.meter, rt.store.Chat, rt.audit) {
			list = append(list, mt)
		}
	}
	return list
}

// toolDefs is the full catalog offered to the model: built-ins, skills,
// and discovered external tools.
func (rt *runtime) toolDefs() []providers.ToolDefinition {
	defs := rt.registry.ProviderDefs()
	defs = append(defs, rt.skills.ProviderDefs()...)
	if rt.browser != nil {
		defs = append(defs, browser.ProviderDefs()...)
	}
	if rt.mcp != nil {
		defs = append(defs, rt.mcp.ProviderDefs()...)
	}
	return defs
}

func (rt *runtime) close() {
	if rt.browser != nil {
		rt.browser.Stop()
	}
	if rt.mcp != nil {
		rt.mcp.Close()
	}
	if rt.memory != nil {
		rt.memory.Close()
	}
	if rt.db != nil {
		rt.db.Close()
	}
}
