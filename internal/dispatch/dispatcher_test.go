package dispatch

import (
	"context"
	"testing"

	"github.com/Nexus6Mx/see/internal/domain"
	"github.com/Nexus6Mx/see/internal/sender"
)

type fakeSender struct {
	sendFn func(ctx context.Context, recipient string, body string, extra sender.Extra) (*sender.Response, error)
}

func (f *fakeSender) Send(ctx context.Context, recipient string, body string, extra sender.Extra) (*sender.Response, error) {
	return f.sendFn(ctx, recipient, body, extra)
}

func TestDispatcherRoutesByChannel(t *testing.T) {
	t.Parallel()

	var telegramCalled, emailCalled bool

	d, err := NewDispatcher(map[domain.Channel]sender.Sender{
		domain.ChannelTelegram: &fakeSender{
			sendFn: func(ctx context.Context, recipient, body string, extra sender.Extra) (*sender.Response, error) {
				telegramCalled = true
				if recipient != "12345" {
					t.Errorf("recipient = %q, want 12345", recipient)
				}
				return &sender.Response{StatusCode: 200}, nil
			},
		},
		domain.ChannelEmail: &fakeSender{
			sendFn: func(ctx context.Context, recipient, body string, extra sender.Extra) (*sender.Response, error) {
				emailCalled = true
				return &sender.Response{}, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	resp, err := d.Dispatch(context.Background(), domain.ChannelTelegram, "12345", "hola", sender.Extra{})
	if err != nil {
		t.Fatalf("Dispatch() unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if !telegramCalled {
		t.Error("telegram sender should have been called")
	}
	if emailCalled {
		t.Error("email sender should not have been called")
	}
}

func TestDispatcherUnsupportedChannel(t *testing.T) {
	t.Parallel()

	d, err := NewDispatcher(map[domain.Channel]sender.Sender{
		domain.ChannelEmail: &fakeSender{
			sendFn: func(ctx context.Context, recipient, body string, extra sender.Extra) (*sender.Response, error) {
				t.Error("sender must not be called for an unsupported channel")
				return nil, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	_, err = d.Dispatch(context.Background(), domain.ChannelWhatsApp, "5577190053", "hola", sender.Extra{})
	if sender.KindOf(err) != sender.KindUnsupportedChannel {
		t.Fatalf("KindOf(err) = %q, want unsupported_channel (err=%v)", sender.KindOf(err), err)
	}
}

func TestDispatcherForwardsSenderError(t *testing.T) {
	t.Parallel()

	d, err := NewDispatcher(map[domain.Channel]sender.Sender{
		domain.ChannelWhatsApp: &fakeSender{
			sendFn: func(ctx context.Context, recipient, body string, extra sender.Extra) (*sender.Response, error) {
				return nil, &sender.SendError{Kind: sender.KindDisabled, Message: "whatsapp notifications disabled"}
			},
		},
	})
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	_, err = d.Dispatch(context.Background(), domain.ChannelWhatsApp, "5577190053", "hola", sender.Extra{})
	if sender.KindOf(err) != sender.KindDisabled {
		t.Fatalf("KindOf(err) = %q, want channel_disabled", sender.KindOf(err))
	}
}

func TestNewDispatcherValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewDispatcher(nil); err == nil {
		t.Error("empty sender map should be rejected")
	}
	if _, err := NewDispatcher(map[domain.Channel]sender.Sender{"fax": &fakeSender{}}); err == nil {
		t.Error("invalid channel should be rejected")
	}
	if _, err := NewDispatcher(map[domain.Channel]sender.Sender{domain.ChannelEmail: nil}); err == nil {
		t.Error("nil sender should be rejected")
	}
}
