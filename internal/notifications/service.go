package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"clipforge/internal/config"
)

const userAgent = "clipforge/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyJobQueued(ctx context.Context, label string) error
	NotifyRenderStarted(ctx context.Context, label string, clipCount int) error
	NotifyRenderCompleted(ctx context.Context, label, outputPath string, size int64, duration time.Duration) error
	NotifyPublishCompleted(ctx context.Context, label string, targets []string) error
	NotifyJobFailed(ctx context.Context, label, stage string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: strings.TrimRight(cfg.Notifications.NtfyURL, "/") + "/" + topic,
		client:   &http.Client{Timeout: timeout},
		events:   cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	events   config.Notifications
}

func (n *ntfyService) NotifyJobQueued(ctx context.Context, label string) error {
	if !n.events.Queue {
		return nil
	}
	data := payload{
		title:   "Clipforge - Queued",
		message: fmt.Sprintf("Compilation run queued: %s", strings.TrimSpace(label)),
		tags:    []string{"clipforge", "queue"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRenderStarted(ctx context.Context, label string, clipCount int) error {
	if !n.events.Render {
		return nil
	}
	data := payload{
		title:   "Clipforge - Render Started",
		message: fmt.Sprintf("Rendering %s (%d clips)", strings.TrimSpace(label), clipCount),
		tags:    []string{"clipforge", "render", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRenderCompleted(ctx context.Context, label, outputPath string, size int64, duration time.Duration) error {
	if !n.events.Render {
		return nil
	}
	message := fmt.Sprintf("Render complete: %s\nFile: %s", strings.TrimSpace(label), strings.TrimSpace(outputPath))
	if size > 0 {
		message = fmt.Sprintf("%s (%s)", message, humanize.Bytes(uint64(size)))
	}
	if duration > 0 {
		message = fmt.Sprintf("%s in %s", message, duration.Round(time.Second))
	}
	data := payload{
		title:   "Clipforge - Render Complete",
		message: message,
		tags:    []string{"clipforge", "render", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPublishCompleted(ctx context.Context, label string, targets []string) error {
	if !n.events.Publish {
		return nil
	}
	destination := "no targets configured"
	if len(targets) > 0 {
		destination = strings.Join(targets, ", ")
	}
	data := payload{
		title:    "Clipforge - Published",
		message:  fmt.Sprintf("Published %s to %s", strings.TrimSpace(label), destination),
		tags:     []string{"clipforge", "publish", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, label, stage string, err error) error {
	if !n.events.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Run failed")
	if label = strings.TrimSpace(label); label != "" {
		builder.WriteString(": ")
		builder.WriteString(label)
	}
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" (stage ")
		builder.WriteString(stage)
		builder.WriteString(")")
	}
	builder.WriteString("\n")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown error")
	}

	data := payload{
		title:    "Clipforge - Failed",
		message:  builder.String(),
		tags:     []string{"clipforge", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Clipforge - Test",
		message:  "Notification system test",
		tags:     []string{"clipforge", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy responded with status %d", resp.StatusCode)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyJobQueued(context.Context, string) error { return nil }

func (noopService) NotifyRenderStarted(context.Context, string, int) error { return nil }

func (noopService) NotifyRenderCompleted(context.Context, string, string, int64, time.Duration) error {
	return nil
}

func (noopService) NotifyPublishCompleted(context.Context, string, []string) error { return nil }

func (noopService) NotifyJobFailed(context.Context, string, string, error) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
