package domain

import (
	"errors"
	"testing"
)

func TestParseChannelFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Channel
		wantErr bool
	}{
		{"telegram", ChannelTelegram, false},
		{"WhatsApp", ChannelWhatsApp, false},
		{"  email  ", ChannelEmail, false},
		{"sms", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseChannelFromString(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseChannelFromString(%q) expected error", tt.input)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ParseChannelFromString(%q) error = %v, want ErrValidation", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseChannelFromString(%q) unexpected error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseChannelFromString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseStateFromString(t *testing.T) {
	t.Parallel()

	if _, err := ParseStateFromString("queued"); !errors.Is(err, ErrValidation) {
		t.Errorf("ParseStateFromString(queued) error = %v, want ErrValidation", err)
	}

	got, err := ParseStateFromString("PENDING")
	if err != nil {
		t.Fatalf("ParseStateFromString(PENDING) unexpected error: %v", err)
	}
	if got != StatePending {
		t.Fatalf("ParseStateFromString(PENDING) = %q, want %q", got, StatePending)
	}
}

func TestStateIsTerminal(t *testing.T) {
	t.Parallel()

	if StatePending.IsTerminal() {
		t.Error("pending should not be terminal")
	}
	if !StateSent.IsTerminal() {
		t.Error("sent should be terminal")
	}
	if !StateFailed.IsTerminal() {
		t.Error("failed should be terminal")
	}
}

func TestPriorityNormalize(t *testing.T) {
	t.Parallel()

	if got := Priority(0).Normalize(); got != PriorityNormal {
		t.Errorf("Normalize(0) = %d, want %d", got, PriorityNormal)
	}
	if got := Priority(-3).Normalize(); got != PriorityNormal {
		t.Errorf("Normalize(-3) = %d, want %d", got, PriorityNormal)
	}
	if got := PriorityHigh.Normalize(); got != PriorityHigh {
		t.Errorf("Normalize(high) = %d, want %d", got, PriorityHigh)
	}
}

func TestNotificationValidate(t *testing.T) {
	t.Parallel()

	valid := Notification{
		OrderNumber: "ORD-1001",
		Channel:     ChannelWhatsApp,
		Recipient:   "5577190053",
		Body:        "hola",
		Priority:    PriorityNormal,
		MaxAttempts: DefaultMaxAttempts,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(n *Notification)
	}{
		{"missing order", func(n *Notification) { n.OrderNumber = " " }},
		{"missing recipient", func(n *Notification) { n.Recipient = "" }},
		{"missing body", func(n *Notification) { n.Body = "" }},
		{"bad channel", func(n *Notification) { n.Channel = "fax" }},
		{"zero priority", func(n *Notification) { n.Priority = 0 }},
		{"zero max attempts", func(n *Notification) { n.MaxAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := valid
			tt.mutate(&n)
			if err := n.Validate(); !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestNotificationEligible(t *testing.T) {
	t.Parallel()

	n := Notification{State: StatePending, Attempts: 2, MaxAttempts: 3}
	if !n.Eligible() {
		t.Error("pending record below ceiling should be eligible")
	}

	n.Attempts = 3
	if n.Eligible() {
		t.Error("record at attempt ceiling should not be eligible")
	}

	n = Notification{State: StateSent, Attempts: 1, MaxAttempts: 3}
	if n.Eligible() {
		t.Error("sent record should not be eligible")
	}
}
