package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"FlowSight/internal/domain/models"
	drepo "FlowSight/internal/domain/repository"
	xhttp "FlowSight/pkg/http"
	"FlowSight/pkg/logger"
)

// ConsoleNotifier writes alerts to the structured log.
type ConsoleNotifier struct {
	log *logger.Logger
}

func NewConsoleNotifier(log *logger.Logger) drepo.Notifier {
	return &ConsoleNotifier{log: log}
}

func (n *ConsoleNotifier) Name() string { return "console" }

func (n *ConsoleNotifier) Notify(_ context.Context, alert *models.Alert) error {
	n.log.Info("ALERT "+alert.Title,
		logger.String("priority", string(alert.Priority)),
		logger.String("message", alert.Message))
	return nil
}

// FileNotifier appends alerts as JSON lines.
type FileNotifier struct {
	path string
	mu   sync.Mutex
}

func NewFileNotifier(path string) drepo.Notifier {
	return &FileNotifier{path: path}
}

func (n *FileNotifier) Name() string { return "file" }

func (n *FileNotifier) Notify(_ context.Context, alert *models.Alert) error {
	b, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	f, err := os.OpenFile(n.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open alert log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write alert log: %w", err)
	}
	return nil
}

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends alerts through the Telegram bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *xhttp.Client
}

func NewTelegramNotifier(botToken, chatID string, client *xhttp.Client) drepo.Notifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPIBase,
		client:   client,
	}
}

func (n *TelegramNotifier) Name() string { return "telegram" }

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *TelegramNotifier) Notify(ctx context.Context, alert *models.Alert) error {
	text := fmt.Sprintf("[%s] %s\n%s", alert.Priority, alert.Title, alert.Message)

	var resp telegramResponse
	opts := &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken),
		Body: map[string]interface{}{
			"chat_id": n.chatID,
			"text":    text,
		},
	}
	if err := n.client.SendAndParse(ctx, opts, &resp); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("telegram rejected message: %s", resp.Description)
	}
	return nil
}
