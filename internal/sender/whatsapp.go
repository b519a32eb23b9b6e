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

const defaultWhatsAppTimeout = 15 * time.Second

// WhatsAppConfig configures the Evolution-compatible messaging gateway.
type WhatsAppConfig struct {
	Enabled  bool
	APIURL   string
	APIKey   string
	Instance string
}

type whatsAppRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type whatsAppErrorResponse struct {
	Message string `json:"message"`
}

// WhatsAppSender delivers messages through a per-tenant Evolution API
// instance. The transport is feature flagged: when disabled, sends fail
// fast without network I/O.
type WhatsAppSender struct {
	client   *resty.Client
	enabled  bool
	apiURL   string
	apiKey   string
	instance string
}

func NewWhatsAppSender(cfg WhatsAppConfig) (*WhatsAppSender, error) {
	client := resty.New()
	client.SetTimeout(defaultWhatsAppTimeout)
	client.SetRetryCount(0)

	return NewWhatsAppSenderWithClient(cfg, client)
}

func NewWhatsAppSenderWithClient(cfg WhatsAppConfig, client *resty.Client) (*WhatsAppSender, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	trimmedURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.Enabled && trimmedURL == "" {
		return nil, fmt.Errorf("whatsapp api url is required when enabled")
	}
	if cfg.Enabled && strings.TrimSpace(cfg.Instance) == "" {
		return nil, fmt.Errorf("whatsapp instance name is required when enabled")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWhatsAppTimeout)
	}
	client.SetRetryCount(0)

	return &WhatsAppSender{
		client:   client,
		enabled:  cfg.Enabled,
		apiURL:   trimmedURL,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		instance: strings.TrimSpace(cfg.Instance),
	}, nil
}

func (s *WhatsAppSender) Send(ctx context.Context, recipient string, body string, _ Extra) (*Response, error) {
	if s == nil || s.client == nil {
		return nil, &SendError{Kind: KindTransport, Message: "whatsapp sender is not initialized"}
	}
	if !s.enabled {
		return nil, &SendError{Kind: KindDisabled, Message: "whatsapp notifications disabled"}
	}

	phone := normalizePhone(recipient)
	if phone == "" {
		return nil, &SendError{
			Kind:    KindInvalidRecipient,
			Message: fmt.Sprintf("invalid phone number %q", recipient),
		}
	}

	endpoint := fmt.Sprintf("%s/message/sendText/%s", s.apiURL, s.instance)

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", s.apiKey).
		SetBody(whatsAppRequest{Number: phone, Text: body}).
		Post(endpoint)
	if err != nil {
		return nil, &SendError{
			Kind:    KindTransport,
			Message: "whatsapp request failed",
			Cause:   err,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Response{StatusCode: statusCode, Body: responseBody}, nil
	}

	var apiErr whatsAppErrorResponse
	_ = json.Unmarshal(response.Body(), &apiErr)

	message := strings.TrimSpace(apiErr.Message)
	if message == "" {
		message = responseBody
	}

	return nil, &SendError{
		Kind:       KindRemoteRejected,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, message),
	}
}

// normalizePhone strips everything but digits, matching what the gateway
// expects (country code, no plus sign or separators).
func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
