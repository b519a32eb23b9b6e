package sender

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWhatsAppSenderDisabledSkipsNetwork(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("disabled sender must not reach the network")
	}))
	defer server.Close()

	s, err := NewWhatsAppSender(WhatsAppConfig{Enabled: false, APIURL: server.URL})
	if err != nil {
		t.Fatalf("NewWhatsAppSender() error = %v", err)
	}

	_, err = s.Send(context.Background(), "5577190053", "hola", Extra{})
	if KindOf(err) != KindDisabled {
		t.Fatalf("KindOf(err) = %q, want channel_disabled (err=%v)", KindOf(err), err)
	}
}

func TestWhatsAppSenderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotReq whatsAppRequest
	var gotAPIKey, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("apikey")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"key":{"id":"msg-1"}}`))
	}))
	defer server.Close()

	s, err := NewWhatsAppSender(WhatsAppConfig{
		Enabled:  true,
		APIURL:   server.URL,
		APIKey:   "secret-key",
		Instance: "err_instance",
	})
	if err != nil {
		t.Fatalf("NewWhatsAppSender() error = %v", err)
	}

	resp, err := s.Send(context.Background(), "+52 55 7719 0053", "hola", Extra{})
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want 201", resp.StatusCode)
	}
	if gotPath != "/message/sendText/err_instance" {
		t.Errorf("path = %q, want /message/sendText/err_instance", gotPath)
	}
	if gotAPIKey != "secret-key" {
		t.Errorf("apikey header = %q, want secret-key", gotAPIKey)
	}
	if gotReq.Number != "525577190053" {
		t.Errorf("number = %q, want digits-only 525577190053", gotReq.Number)
	}
}

func TestWhatsAppSenderInvalidRecipient(t *testing.T) {
	t.Parallel()

	s, err := NewWhatsAppSender(WhatsAppConfig{
		Enabled:  true,
		APIURL:   "https://evolution.example.com",
		Instance: "err_instance",
	})
	if err != nil {
		t.Fatalf("NewWhatsAppSender() error = %v", err)
	}

	_, err = s.Send(context.Background(), "no digits here", "hola", Extra{})
	if KindOf(err) != KindInvalidRecipient {
		t.Fatalf("KindOf(err) = %q, want invalid_recipient (err=%v)", KindOf(err), err)
	}
}

func TestWhatsAppSenderRemoteRejection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer server.Close()

	s, err := NewWhatsAppSender(WhatsAppConfig{
		Enabled:  true,
		APIURL:   server.URL,
		APIKey:   "wrong",
		Instance: "err_instance",
	})
	if err != nil {
		t.Fatalf("NewWhatsAppSender() error = %v", err)
	}

	_, err = s.Send(context.Background(), "5577190053", "hola", Extra{})
	if err == nil {
		t.Fatal("Send() expected error")
	}

	sendErr, ok := err.(*SendError)
	if !ok {
		t.Fatalf("error type = %T, want *SendError", err)
	}
	if sendErr.Kind != KindRemoteRejected {
		t.Errorf("Kind = %q, want remote_rejected", sendErr.Kind)
	}
	if sendErr.Message != "HTTP 401: invalid api key" {
		t.Errorf("Message = %q, want HTTP 401 with gateway message", sendErr.Message)
	}
}

func TestNewWhatsAppSenderValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewWhatsAppSender(WhatsAppConfig{Enabled: true}); err == nil {
		t.Error("enabled sender without api url should be rejected")
	}
	if _, err := NewWhatsAppSender(WhatsAppConfig{Enabled: true, APIURL: "https://x.example.com"}); err == nil {
		t.Error("enabled sender without instance should be rejected")
	}
	if _, err := NewWhatsAppSender(WhatsAppConfig{Enabled: false}); err != nil {
		t.Errorf("disabled sender should construct without credentials: %v", err)
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"+52 55 7719 0053", "525577190053"},
		{"(55) 7719-0053", "5577190053"},
		{"abc", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizePhone(tt.input); got != tt.want {
			t.Errorf("normalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
