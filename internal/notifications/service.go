package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crazypanel/internal/config"
)

const defaultTimeout = 10 * time.Second

// Service defines the notification surface exposed to the workflow coordinator.
type Service interface {
	NotifyRunQueued(ctx context.Context, account, reference string) error
	NotifyScheduled(ctx context.Context, account, jobID, runAt string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	userAgent := strings.TrimSpace(cfg.API.UserAgent)
	if userAgent == "" {
		userAgent = "crazypanel"
	}

	return &ntfyService{
		endpoint:  topic,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		runQueued: cfg.Notifications.RunQueued,
		scheduled: cfg.Notifications.Scheduled,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	userAgent string
	client    *http.Client
	runQueued bool
	scheduled bool
}

func (n *ntfyService) NotifyRunQueued(ctx context.Context, account, reference string) error {
	if !n.runQueued {
		return nil
	}
	account = strings.TrimSpace(account)
	reference = strings.TrimSpace(reference)
	data := payload{
		title:   "Crazy Poster - Run Queued",
		message: fmt.Sprintf("▶️ Queued %s for %s", reference, account),
		tags:    []string{"crazypanel", "run", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScheduled(ctx context.Context, account, jobID, runAt string) error {
	if !n.scheduled {
		return nil
	}
	account = strings.TrimSpace(account)
	message := fmt.Sprintf("🗓️ Scheduled job %s at %s", strings.TrimSpace(jobID), strings.TrimSpace(runAt))
	if account != "" {
		message = fmt.Sprintf("%s\nAccount: %s", message, account)
	}
	data := payload{
		title:   "Crazy Poster - Scheduled",
		message: message,
		tags:    []string{"crazypanel", "schedule", "once"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Crazy Poster - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"crazypanel", "test"},
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
	req.Header.Set("User-Agent", n.userAgent)
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

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunQueued(context.Context, string, string) error         { return nil }
func (noopService) NotifyScheduled(context.Context, string, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
