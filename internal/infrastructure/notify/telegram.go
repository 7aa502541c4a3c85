package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
)

const TelegramBaseURL = "https://api.telegram.org"

// TelegramNotifier sends alerts through the Bot API sendMessage call. One
// attempt per alert, no retries.
type TelegramNotifier struct {
	client *resty.Client
	token  string
	chatID string
}

func NewTelegramNotifier(token, chatID, baseURL string, timeout time.Duration) *TelegramNotifier {
	if baseURL == "" {
		baseURL = TelegramBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	return &TelegramNotifier{client: client, token: token, chatID: chatID}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (n *TelegramNotifier) Notify(ctx context.Context, alert domain.Alert) error {
	var result telegramResponse
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: n.chatID, Text: FormatAlert(alert), ParseMode: "Markdown"}).
		SetResult(&result).
		SetError(&result).
		Post("/bot" + n.token + "/sendMessage")
	if err != nil {
		return domain.WrapError(domain.ErrCodeNotify, alert.Pair, "telegram send", err)
	}
	if resp.IsError() || !result.OK {
		return domain.WrapError(domain.ErrCodeNotify, alert.Pair,
			fmt.Sprintf("telegram API error %d: %s", resp.StatusCode(), result.Description), nil)
	}
	return nil
}

// FormatAlert renders the Markdown message body.
func FormatAlert(alert domain.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 *SCALP ALERT - %s* 🚨\n", escapeMarkdown(alert.Pair))
	fmt.Fprintf(&b, "*Direction:* %s\n", alert.Direction)
	fmt.Fprintf(&b, "*RSI:* %s\n", decimal.NewFromFloat(alert.RSI).StringFixed(2))
	if alert.Context != "" {
		fmt.Fprintf(&b, "*Detail:* %s\n", escapeMarkdown(alert.Context))
	}
	b.WriteString("➡️ Simulated trade, no order was sent.")
	return b.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// LogNotifier writes alerts to the log. Used when no bot token is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, alert domain.Alert) error {
	n.logger.Info("Alert",
		zap.String("pair", alert.Pair),
		zap.String("direction", string(alert.Direction)),
		zap.Float64("rsi", alert.RSI),
		zap.String("context", alert.Context),
	)
	return nil
}
