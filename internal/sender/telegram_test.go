package sender

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTelegramSenderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotReq telegramRequest
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer server.Close()

	s, err := NewTelegramSender(server.URL, "123456:token")
	if err != nil {
		t.Fatalf("NewTelegramSender() error = %v", err)
	}

	resp, err := s.Send(context.Background(), "5577190053", "hola", Extra{})
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if gotPath != "/bot123456:token/sendMessage" {
		t.Errorf("path = %q, want /bot123456:token/sendMessage", gotPath)
	}
	if gotReq.ChatID != "5577190053" {
		t.Errorf("chat_id = %q, want 5577190053", gotReq.ChatID)
	}
	if gotReq.ParseMode != "Markdown" {
		t.Errorf("parse_mode = %q, want Markdown", gotReq.ParseMode)
	}
}

func TestTelegramSenderSendAPIRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	s, err := NewTelegramSender(server.URL, "123456:token")
	if err != nil {
		t.Fatalf("NewTelegramSender() error = %v", err)
	}

	_, err = s.Send(context.Background(), "404404", "hola", Extra{})
	if err == nil {
		t.Fatal("Send() expected error")
	}

	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("error type = %T, want *SendError", err)
	}
	if sendErr.Kind != KindRemoteRejected {
		t.Errorf("Kind = %q, want %q", sendErr.Kind, KindRemoteRejected)
	}
	if sendErr.Message != "Bad Request: chat not found" {
		t.Errorf("Message = %q, want API description", sendErr.Message)
	}
	if sendErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", sendErr.StatusCode)
	}
}

func TestTelegramSenderSendOKFalseOn200(t *testing.T) {
	t.Parallel()

	// Some bot API failures come back with HTTP 200 and ok:false.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"blocked by user"}`))
	}))
	defer server.Close()

	s, err := NewTelegramSender(server.URL, "123456:token")
	if err != nil {
		t.Fatalf("NewTelegramSender() error = %v", err)
	}

	_, err = s.Send(context.Background(), "777", "hola", Extra{})
	if KindOf(err) != KindRemoteRejected {
		t.Fatalf("KindOf(err) = %q, want remote_rejected (err=%v)", KindOf(err), err)
	}
}

func TestTelegramSenderInvalidRecipient(t *testing.T) {
	t.Parallel()

	s, err := NewTelegramSender("https://api.telegram.org", "123456:token")
	if err != nil {
		t.Fatalf("NewTelegramSender() error = %v", err)
	}

	for _, recipient := range []string{"", "abc", "+5215577190053", "-"} {
		_, err := s.Send(context.Background(), recipient, "hola", Extra{})
		if KindOf(err) != KindInvalidRecipient {
			t.Errorf("Send(%q) kind = %q, want invalid_recipient", recipient, KindOf(err))
		}
	}

	// Group chat ids are negative and valid.
	if !isChatID("-100123456") {
		t.Error("negative group chat id should be valid")
	}
}

func TestTelegramSenderTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	s, err := NewTelegramSender(server.URL, "123456:token")
	if err != nil {
		t.Fatalf("NewTelegramSender() error = %v", err)
	}

	_, err = s.Send(context.Background(), "123", "hola", Extra{})
	if KindOf(err) != KindTransport {
		t.Fatalf("KindOf(err) = %q, want transport_error (err=%v)", KindOf(err), err)
	}
}

func TestNewTelegramSenderValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewTelegramSender("", "token"); err == nil {
		t.Error("empty api url should be rejected")
	}
	if _, err := NewTelegramSender("https://api.telegram.org", "  "); err == nil {
		t.Error("empty bot token should be rejected")
	}
	if _, err := NewTelegramSenderWithClient("https://api.telegram.org", "token", nil); err == nil {
		t.Error("nil client should be rejected")
	}
}
