package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/crewd/internal/models"
)

// Completer is the minimal completion interface; implemented by *Client
// and by test fakes.
type Completer interface {
	Chat(ctx context.Context, cfg models.BackendConfig, req ChatRequest) (*ChatResponse, error)
}

// CompleteWithFallback attempts a completion against primary. On failure:
//   - if the error indicates the backend rejected tool calling, retry the
//     same backend once without tools;
//   - otherwise, if a fallback backend is configured, retry against it;
//   - if the fallback also fails, return a combined error citing both.
func CompleteWithFallback(ctx context.Context, c Completer, primary models.BackendConfig, fallback *models.BackendConfig, req ChatRequest) (*ChatResponse, error) {
	resp, err := c.Chat(ctx, primary, req)
	if err == nil {
		return resp, nil
	}

	if len(req.Tools) > 0 && isToolRejection(err) {
		slog.Warn("backend rejected tool calling, retrying without tools",
			"model", primary.Model, "error", err)
		bare := req
		bare.Tools = nil
		bare.ToolChoice = ""
		return c.Chat(ctx, primary, bare)
	}

	if fallback == nil {
		return nil, err
	}

	slog.Warn("primary backend failed, trying fallback",
		"primary", primary.Model, "fallback", fallback.Model, "error", err)

	fbReq := req
	fbReq.Model = fallback.Model
	resp, fbErr := c.Chat(ctx, *fallback, fbReq)
	if fbErr != nil {
		return nil, fmt.Errorf("primary %s failed (%v); fallback %s failed (%v)",
			primary.Model, err, fallback.Model, fbErr)
	}
	return resp, nil
}

// isToolRejection reports whether the backend error looks like a
// tool-calling capability rejection rather than a transport failure.
func isToolRejection(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	if httpErr.Status != 400 && httpErr.Status != 422 {
		return false
	}
	body := strings.ToLower(httpErr.Body)
	for _, marker := range []string{"tool", "function calling", "functions"} {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
