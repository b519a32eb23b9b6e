package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTelegramTimeout = 10 * time.Second

type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// TelegramSender delivers messages through the Telegram bot API. The
// recipient is the numeric chat id captured by the upload webhook.
type TelegramSender struct {
	client   *resty.Client
	apiURL   string
	botToken string
}

func NewTelegramSender(apiURL, botToken string) (*TelegramSender, error) {
	client := resty.New()
	client.SetTimeout(defaultTelegramTimeout)
	client.SetRetryCount(0)

	return NewTelegramSenderWithClient(apiURL, botToken, client)
}

func NewTelegramSenderWithClient(apiURL, botToken string, client *resty.Client) (*TelegramSender, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if trimmedURL == "" {
		return nil, fmt.Errorf("telegram api url is required")
	}
	if strings.TrimSpace(botToken) == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultTelegramTimeout)
	}
	client.SetRetryCount(0)

	return &TelegramSender{
		client:   client,
		apiURL:   trimmedURL,
		botToken: strings.TrimSpace(botToken),
	}, nil
}

func (s *TelegramSender) Send(ctx context.Context, recipient string, body string, _ Extra) (*Response, error) {
	if s == nil || s.client == nil {
		return nil, &SendError{Kind: KindTransport, Message: "telegram sender is not initialized"}
	}

	chatID := strings.TrimSpace(recipient)
	if !isChatID(chatID) {
		return nil, &SendError{
			Kind:    KindInvalidRecipient,
			Message: fmt.Sprintf("invalid telegram chat id %q", recipient),
		}
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.botToken)

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(telegramRequest{
			ChatID:    chatID,
			Text:      body,
			ParseMode: "Markdown",
		}).
		Post(endpoint)
	if err != nil {
		return nil, &SendError{
			Kind:    KindTransport,
			Message: "telegram request failed",
			Cause:   err,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	var apiResp telegramResponse
	_ = json.Unmarshal(response.Body(), &apiResp)

	if statusCode == http.StatusOK && apiResp.OK {
		return &Response{StatusCode: statusCode, Body: responseBody}, nil
	}

	message := strings.TrimSpace(apiResp.Description)
	if message == "" {
		message = fmt.Sprintf("telegram api returned status %d", statusCode)
	}

	return nil, &SendError{
		Kind:       KindRemoteRejected,
		StatusCode: statusCode,
		Message:    message,
	}
}

// isChatID accepts numeric chat ids, including the negative ids Telegram
// assigns to group chats.
func isChatID(s string) bool {
	if s == "" {
		return false
	}
	digits := s
	if digits[0] == '-' {
		digits = digits[1:]
	}
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
