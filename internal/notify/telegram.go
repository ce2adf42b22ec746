package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fxengine/internal/model"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends signals via the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram notifier.
// botToken: Bot API token from @BotFather
// chatID: Target chat/group/channel ID
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  telegramAPIBase,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (t *TelegramNotifier) NotifySignal(ctx context.Context, sig model.Signal) error {
	emoji := "📈"
	if sig.Type == model.SignalSell {
		emoji = "📉"
	}
	text := fmt.Sprintf("%s *%s %s* \\(%s\\)\n\nconfidence %s%%\nprice %s\nSL %s  TP %s\n%s",
		emoji,
		escapeMarkdown(sig.Instrument),
		escapeMarkdown(string(sig.Type)),
		escapeMarkdown(sig.Strength),
		escapeMarkdown(fmt.Sprintf("%.0f", sig.Confidence)),
		escapeMarkdown(fmt.Sprintf("%.5f", sig.Price)),
		escapeMarkdown(fmt.Sprintf("%.5f", sig.StopLoss)),
		escapeMarkdown(fmt.Sprintf("%.5f", sig.TakeProfit)),
		escapeMarkdown(sig.Reason))

	body, _ := json.Marshal(map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "MarkdownV2",
	})

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// escapeMarkdown escapes special characters for Telegram MarkdownV2.
func escapeMarkdown(s string) string {
	specials := []byte{'_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!'}
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		for _, sp := range specials {
			if s[i] == sp {
				buf.WriteByte('\\')
				break
			}
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
