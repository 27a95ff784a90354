package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// Kind classifies a notification. Info messages are delivered silently.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
	KindAlert   Kind = "alert"
	KindInfo    Kind = "info"
)

var kindHeadline = map[Kind]string{
	KindSuccess: "✅ Order placed successfully ✅",
	KindFailure: "🛑 Order Fail 🛑",
	KindAlert:   "🚨 Alert 🚨",
	KindInfo:    "ℹ️ Info",
}

// TelegramNotifier delivers engine events to the configured chat.
type TelegramNotifier struct {
	http   *resty.Client
	chatID string
}

// NewTelegramNotifier builds a notifier from the package config.
func NewTelegramNotifier() *TelegramNotifier {
	config := GetConfig()

	httpClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s/bot%s", config.APIBaseURL, config.Token))

	return &TelegramNotifier{
		http:   httpClient,
		chatID: config.ChatID,
	}
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify sends one message. structuredContext, when present, is rendered as
// indented JSON inside a <pre> block so the original request or confirmation
// payload stays copy-pasteable for audit/replay.
func (n *TelegramNotifier) Notify(
	ctx context.Context,
	kind Kind,
	text string,
	structuredContext interface{},
) error {

	message := fmt.Sprintf("%s\n\n%s", kindHeadline[kind], text)

	if structuredContext != nil {
		rendered, err := json.MarshalIndent(structuredContext, "", "  ")
		if err != nil {
			logger.WithError(err).Warn("could not render notification context")
		} else {
			message = fmt.Sprintf("%s\n\n<pre>%s</pre>", message, rendered)
		}
	}

	payload := map[string]interface{}{
		"chat_id":    n.chatID,
		"text":       message,
		"parse_mode": "HTML",
	}
	if kind == KindInfo {
		payload["disable_notification"] = true
	}

	var out sendMessageResponse
	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		Post("/sendMessage")

	if err != nil {
		logger.WithError(err).Error("Failed to send telegram message")
		return err
	}

	if !resp.IsSuccess() || !out.OK {
		err := fmt.Errorf("telegram sendMessage failed: status=%d description=%q",
			resp.StatusCode(), out.Description)
		logger.WithError(err).Error("Failed to send telegram message")
		return err
	}

	logger.WithField("kind", string(kind)).Debug("telegram message sent")
	return nil
}
