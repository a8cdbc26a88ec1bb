package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"sentiment-engine/internal/pipeline"
)

// Notification 封装一次运行的结果摘要。
type Notification struct {
	RunAt         time.Time
	Skipped       bool
	Headlines     int
	SourcesFailed []string
	Persisted     []string
	NoData        []string
	Failed        []string
	Fatal         error
}

// FromReport builds a notification from a finished or aborted run.
func FromReport(report pipeline.Report, runErr error) Notification {
	note := Notification{
		RunAt:         report.RunAt,
		Skipped:       report.Skipped,
		Headlines:     report.Headlines,
		SourcesFailed: report.SourcesFailed,
		Fatal:         runErr,
	}
	for _, asset := range report.Assets {
		switch asset.Status {
		case pipeline.StatusPersisted:
			note.Persisted = append(note.Persisted, asset.Ticker)
		case pipeline.StatusNoData:
			note.NoData = append(note.NoData, asset.Ticker)
		default:
			note.Failed = append(note.Failed, asset.Ticker)
		}
	}
	return note
}

// Degraded reports whether the run needs operator attention.
func (n Notification) Degraded() bool {
	return n.Fatal != nil || len(n.Failed) > 0 || len(n.SourcesFailed) > 0
}

// Notifier 定义通知输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *resty.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 通知器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client:   client,
		logger:   logger.With().Str("component", "notify_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id": n.chatID,
			"text":    renderMessage(note),
		}).
		SetResult(&result).
		SetError(&result).
		Post("/bot" + n.botToken + "/sendMessage")
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode(), result.Description)
	}
	if !result.OK {
		return fmt.Errorf("telegram returned ok=false: %s", result.Description)
	}

	n.logger.Info().Time("run_at", note.RunAt).
		Bool("degraded", note.Degraded()).
		Msg("run report sent (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	switch {
	case note.Fatal != nil:
		builder.WriteString("[Sentiment Engine] PIPELINE FAILED\n")
	case note.Skipped:
		builder.WriteString("[Sentiment Engine] run skipped (lock held)\n")
	default:
		builder.WriteString("[Sentiment Engine] PIPELINE SUCCESS\n")
	}
	builder.WriteString(fmt.Sprintf("Run: %s UTC\n", note.RunAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Headlines: %d\n", note.Headlines))
	if len(note.SourcesFailed) > 0 {
		builder.WriteString(fmt.Sprintf("Sources failed: %s\n", strings.Join(note.SourcesFailed, ",")))
	}
	if len(note.Persisted) > 0 {
		builder.WriteString(fmt.Sprintf("Persisted: %s\n", strings.Join(note.Persisted, ",")))
	}
	if len(note.NoData) > 0 {
		builder.WriteString(fmt.Sprintf("No data: %s\n", strings.Join(note.NoData, ",")))
	}
	if len(note.Failed) > 0 {
		builder.WriteString(fmt.Sprintf("Failed: %s\n", strings.Join(note.Failed, ",")))
	}
	if note.Fatal != nil {
		builder.WriteString(fmt.Sprintf("Error: %v\n", note.Fatal))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
