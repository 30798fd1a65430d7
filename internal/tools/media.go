package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nextlevelbuilder/crewd/internal/activity"
	"github.com/nextlevelbuilder/crewd/internal/credits"
	"github.com/nextlevelbuilder/crewd/internal/store"
)

// MediaBackend generates media assets from a text prompt. kind is one of
// "image", "video", "3d".
type MediaBackend interface {
	Generate(ctx context.Context, kind, prompt string) (data []byte, ext string, err error)
}

// HTTPMediaBackend calls an external media-generation service.
type HTTPMediaBackend struct {
	Endpoint string
	APIKey   string
	client   *http.Client
}

func NewHTTPMediaBackend(endpoint, apiKey string) *HTTPMediaBackend {
	return &HTTPMediaBackend{
		Endpoint: endpoint,
		APIKey:   apiKey,
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

func (b *HTTPMediaBackend) Generate(ctx context.Context, kind, prompt string) ([]byte, string, error) {
	body, err := json.Marshal(map[string]string{"kind": kind, "prompt": prompt})
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.APIKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("media backend: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("media backend returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, "", fmt.Errorf("download media: %w", err)
	}
	return data, extForKind(kind), nil
}

func extForKind(kind string) string {
	switch kind {
	case "video":
		return ".mp4"
	case "3d":
		return ".glb"
	default:
		return ".png"
	}
}

// MediaTool is one of the three media-generation built-ins. It charges
// the per-tool credit cost, generates via the backend, persists the
// asset under the team workspace and posts it as a chat attachment.
type MediaTool struct {
	kind        string
	toolName    string
	description string

	Backend MediaBackend
	Meter   *credits.Meter
	Chat    store.ChatStore
	Audit   *activity.Logger
}

// NewMediaTools builds the image, video and 3D generation tools.
func NewMediaTools(backend MediaBackend, meter *credits.Meter, chat store.ChatStore, audit *activity.Logger) []*MediaTool {
	mk := func(kind, name, description string) *MediaTool {
		return &MediaTool{
			kind: kind, toolName: name, description: description,
			Backend: backend, Meter: meter, Chat: chat, Audit: audit,
		}
	}
	return []*MediaTool{
		mk("image", "generate_image", "Generate an image from a text prompt."),
		mk("video", "generate_video", "Generate a short video from a text prompt."),
		mk("3d", "generate_3d", "Generate a 3D asset from a text prompt."),
	}
}

func (t *MediaTool) Name() string        { return t.toolName }
func (t *MediaTool) Description() string { return t.description }
func (t *MediaTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"prompt":  prop("string", "What to generate"),
		"channel": prop("string", "Chat channel to post the result to (default: general)"),
	}, "prompt")
}

func (t *MediaTool) Execute(ctx context.Context, args map[string]any) *Result {
	prompt := argString(args, "prompt")
	if prompt == "" {
		return ErrorResult(t.toolName + " requires a prompt")
	}
	if t.Backend == nil {
		return ErrorResult("no media backend configured")
	}

	teamID := TeamIDFromCtx(ctx)
	agentID := AgentIDFromCtx(ctx)

	if t.Meter != nil && t.Meter.Enabled() {
		cost := credits.MediaCost(t.toolName, 10)
		res, err := t.Meter.Debit(ctx, teamID, cost, credits.TxMedia, t.toolName)
		if err != nil {
			return ErrorResult(fmt.Sprintf("charge %s: %v", t.toolName, err))
		}
		if !res.OK {
			return ErrorResult(fmt.Sprintf(
				"insufficient credits for %s: needs %d, balance is %d", t.toolName, cost, res.NewBalance))
		}
	}

	data, ext, err := t.Backend.Generate(ctx, t.kind, prompt)
	if err != nil {
		return ErrorResult(fmt.Sprintf("%s failed: %v", t.toolName, err))
	}

	rel := filepath.Join("media", fmt.Sprintf("%s-%d%s", t.kind, time.Now().UnixMilli(), ext))
	abs, err := resolveWorkspacePath(ctx, rel)
	if err != nil {
		return ErrorResult(err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return ErrorResult(fmt.Sprintf("create media directory: %v", err))
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("persist media: %v", err))
	}

	channel := argString(args, "channel")
	if channel == "" {
		channel = "general"
	}
	if t.Chat != nil {
		msg := &store.ChatMessageData{
			TeamID:     teamID,
			AgentID:    agentID,
			Channel:    channel,
			Content:    fmt.Sprintf("Generated %s: %s", t.kind, prompt),
			Attachment: rel,
		}
		if err := t.Chat.Post(ctx, msg); err != nil {
			return ErrorResult(fmt.Sprintf("post attachment: %v", err))
		}
	}

	t.Audit.Log(ctx, "media_generated", agentID,
		fmt.Sprintf("%s (%d bytes) -> %s", t.toolName, len(data), rel), nil)

	return NewResult(fmt.Sprintf("%s generated and posted to #%s as %s", t.kind, channel, rel))
}
