// Package browser is the browser-automation tool executor. It owns one
// Chrome instance (launched lazily) and exposes a small set of page
// actions the dispatcher routes browser_* tool calls to.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nextlevelbuilder/crewd/internal/providers"
	"github.com/nextlevelbuilder/crewd/internal/tools"
)

const actionTimeout = 30 * time.Second

// ProviderDefs describes the browser tools for the model's tool list.
func ProviderDefs() []providers.ToolDefinition {
	def := func(name, desc string, params map[string]any, required ...string) providers.ToolDefinition {
		schema := map[string]any{"type": "object", "properties": params}
		if len(required) > 0 {
			schema["required"] = required
		}
		return providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{Name: name, Description: desc, Parameters: schema},
		}
	}
	str := func(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }
	return []providers.ToolDefinition{
		def("browser_navigate", "Open a URL in the browser.",
			map[string]any{"url": str("The URL to open")}, "url"),
		def("browser_read", "Read the visible text of the current page.", map[string]any{}),
		def("browser_click", "Click an element on the current page.",
			map[string]any{"selector": str("CSS selector of the element")}, "selector"),
		def("browser_type", "Type text into an input on the current page.",
			map[string]any{"selector": str("CSS selector of the input"), "text": str("Text to type")},
			"selector", "text"),
	}
}

// Executor implements tools.BrowserExecutor backed by go-rod.
type Executor struct {
	mu       sync.Mutex
	browser  *rod.Browser
	page     *rod.Page
	headless bool
}

// NewExecutor creates a browser executor. Chrome is launched on first use.
func NewExecutor(headless bool) *Executor {
	return &Executor{headless: headless}
}

func (e *Executor) ensureBrowser() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return e.browser, nil
	}

	l := launcher.New().
		Headless(e.headless).
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch Chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to Chrome: %w", err)
	}

	slog.Info("Chrome launched", "headless", e.headless)
	e.browser = b
	return b, nil
}

func (e *Executor) currentPage() (*rod.Page, error) {
	b, err := e.ensureBrowser()
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.page == nil {
		page, err := b.Page(proto.TargetCreateTarget{})
		if err != nil {
			return nil, fmt.Errorf("create page: %w", err)
		}
		e.page = page
	}
	return e.page, nil
}

// Stop closes the browser.
func (e *Executor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browser != nil {
		_ = e.browser.Close()
		e.browser = nil
		e.page = nil
	}
}

// Execute runs one browser_* tool call. Failures become descriptive text.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) *tools.Result {
	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	switch name {
	case "browser_navigate":
		return e.navigate(ctx, args)
	case "browser_read":
		return e.read(ctx)
	case "browser_click":
		return e.click(ctx, args)
	case "browser_type":
		return e.typeText(ctx, args)
	default:
		return tools.ErrorResult("unknown browser tool: " + name)
	}
}

func (e *Executor) navigate(ctx context.Context, args map[string]any) *tools.Result {
	url, _ := args["url"].(string)
	if url == "" {
		return tools.ErrorResult("browser_navigate requires a url")
	}
	page, err := e.currentPage()
	if err != nil {
		return tools.ErrorResult(err.Error())
	}
	page = page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return tools.ErrorResult(fmt.Sprintf("navigate to %s: %v", url, err))
	}
	if err := page.WaitLoad(); err != nil {
		return tools.ErrorResult(fmt.Sprintf("wait for %s: %v", url, err))
	}
	return tools.NewResult("navigated to " + url)
}

func (e *Executor) read(ctx context.Context) *tools.Result {
	page, err := e.currentPage()
	if err != nil {
		return tools.ErrorResult(err.Error())
	}
	page = page.Context(ctx)
	el, err := page.Element("body")
	if err != nil {
		return tools.ErrorResult(fmt.Sprintf("read page: %v", err))
	}
	text, err := el.Text()
	if err != nil {
		return tools.ErrorResult(fmt.Sprintf("read page text: %v", err))
	}
	if len(text) > 8000 {
		text = text[:8000] + "\n...(truncated)"
	}
	return tools.NewResult(text)
}

func (e *Executor) click(ctx context.Context, args map[string]any) *tools.Result {
	selector, _ := args["selector"].(string)
	if selector == "" {
		return tools.ErrorResult("browser_click requires a selector")
	}
	page, err := e.currentPage()
	if err != nil {
		return tools.ErrorResult(err.Error())
	}
	page = page.Context(ctx)
	el, err := page.Element(selector)
	if err != nil {
		return tools.ErrorResult(fmt.Sprintf("element %s not found: %v", selector, err))
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return tools.ErrorResult(fmt.Sprintf("click %s: %v", selector, err))
	}
	return tools.NewResult("clicked " + selector)
}

func (e *Executor) typeText(ctx context.Context, args map[string]any) *tools.Result {
	selector, _ := args["selector"].(string)
	text, _ := args["text"].(string)
	if selector == "" || text == "" {
		return tools.ErrorResult("browser_type requires selector and text")
	}
	page, err := e.currentPage()
	if err != nil {
		return tools.ErrorResult(err.Error())
	}
	page = page.Context(ctx)
	el, err := page.Element(selector)
	if err != nil {
		return tools.ErrorResult(fmt.Sprintf("element %s not found: %v", selector, err))
	}
	if err := el.Input(text); err != nil {
		return tools.ErrorResult(fmt.Sprintf("type into %s: %v", selector, err))
	}
	return tools.NewResult(fmt.Sprintf("typed %d chars into %s", len(text), selector))
}
