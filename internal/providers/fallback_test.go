package providers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/crewd/internal/models"
)

type chatCall struct {
	cfg models.BackendConfig
	req ChatRequest
}

// scriptedCompleter replays one response or error per call, in order.
type scriptedCompleter struct {
	calls     []chatCall
	responses []*ChatResponse
	errs      []error
}

func (s *scriptedCompleter) Chat(ctx context.Context, cfg models.BackendConfig, req ChatRequest) (*ChatResponse, error) {
	i := len(s.calls)
	s.calls = append(s.calls, chatCall{cfg: cfg, req: req})
	if i >= len(s.responses) {
		return nil, errors.New("unexpected extra call")
	}
	return s.responses[i], s.errs[i]
}

var testTools = []ToolDefinition{{
	Type:     "function",
	Function: ToolFunctionSchema{Name: "think", Parameters: map[string]any{"type": "object"}},
}}

func TestCompleteWithFallbackPrimarySucceeds(t *testing.T) {
	c := &scriptedCompleter{
		responses: []*ChatResponse{{Content: "hello"}},
		errs:      []error{nil},
	}
	resp, err := CompleteWithFallback(context.Background(), c,
		models.BackendConfig{Model: "primary"}, &models.BackendConfig{Model: "backup"},
		ChatRequest{Model: "primary"})
	if err != nil {
		t.Fatalf("CompleteWithFallback() error = %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("Content = %q, want %q", resp.Content, "hello")
	}
	if len(c.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(c.calls))
	}
}

func TestToolRejectionRetriesWithoutTools(t *testing.T) {
	c := &scriptedCompleter{
		responses: []*ChatResponse{nil, {Content: "bare"}},
		errs:      []error{&HTTPError{Status: 400, Body: "this model does not support tools"}, nil},
	}
	resp, err := CompleteWithFallback(context.Background(), c,
		models.BackendConfig{Model: "primary"}, nil,
		ChatRequest{Model: "primary", Tools: testTools, ToolChoice: "auto"})
	if err != nil {
		t.Fatalf("CompleteWithFallback() error = %v", err)
	}
	if resp.Content != "bare" {
		t.Errorf("Content = %q, want retry result", resp.Content)
	}
	if len(c.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(c.calls))
	}
	retry := c.calls[1]
	if len(retry.req.Tools) != 0 || retry.req.ToolChoice != "" {
		t.Errorf("retry still carried tools: %+v", retry.req)
	}
	if retry.cfg.Model != "primary" {
		t.Errorf("retry went to %q, want same backend", retry.cfg.Model)
	}
}

func TestTransportErrorUsesFallbackBackend(t *testing.T) {
	c := &scriptedCompleter{
		responses: []*ChatResponse{nil, {Content: "from backup"}},
		errs:      []error{&HTTPError{Status: 503, Body: "overloaded"}, nil},
	}
	resp, err := CompleteWithFallback(context.Background(), c,
		models.BackendConfig{Model: "primary"}, &models.BackendConfig{Model: "backup"},
		ChatRequest{Model: "primary", Tools: testTools})
	if err != nil {
		t.Fatalf("CompleteWithFallback() error = %v", err)
	}
	if resp.Content != "from backup" {
		t.Errorf("Content = %q, want fallback result", resp.Content)
	}
	if c.calls[1].cfg.Model != "backup" {
		t.Errorf("second call went to %q, want backup", c.calls[1].cfg.Model)
	}
	if c.calls[1].req.Model != "backup" {
		t.Errorf("fallback request model = %q, want backup", c.calls[1].req.Model)
	}
}

func TestBothBackendsFailingReturnsCombinedError(t *testing.T) {
	c := &scriptedCompleter{
		responses: []*ChatResponse{nil, nil},
		errs: []error{
			&HTTPError{Status: 500, Body: "boom"},
			&HTTPError{Status: 502, Body: "also boom"},
		},
	}
	_, err := CompleteWithFallback(context.Background(), c,
		models.BackendConfig{Model: "primary"}, &models.BackendConfig{Model: "backup"},
		ChatRequest{Model: "primary"})
	if err == nil {
		t.Fatal("CompleteWithFallback() error = nil, want combined error")
	}
	msg := err.Error()
	for _, want := range []string{"primary", "backup"} {
		if !strings.Contains(msg, want) {
			t.Errorf("combined error %q does not mention %q", msg, want)
		}
	}
}

func TestNoFallbackSurfacesOriginalError(t *testing.T) {
	orig := &HTTPError{Status: 500, Body: "boom"}
	c := &scriptedCompleter{
		responses: []*ChatResponse{nil},
		errs:      []error{orig},
	}
	_, err := CompleteWithFallback(context.Background(), c,
		models.BackendConfig{Model: "primary"}, nil, ChatRequest{Model: "primary"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != 500 {
		t.Errorf("error = %v, want original HTTPError", err)
	}
}

func TestIsToolRejection(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"tool mention with 400", &HTTPError{Status: 400, Body: "tools not supported"}, true},
		{"function calling with 422", &HTTPError{Status: 422, Body: "Function Calling unavailable"}, true},
		{"500 with tool mention", &HTTPError{Status: 500, Body: "tool"}, false},
		{"400 without markers", &HTTPError{Status: 400, Body: "bad request"}, false},
		{"plain error", errors.New("tools"), false},
	}
	for _, tc := range cases {
		if got := isToolRejection(tc.err); got != tc.want {
			t.Errorf("%s: isToolRejection = %t, want %t", tc.name, got, tc.want)
		}
	}
}
