// Package dispatch routes a rendered message to the channel sender that
// owns its transport. Retry logic lives in the queue processor, never here.
package dispatch

import (
	"context"
	"fmt"

	"github.com/Nexus6Mx/see/internal/domain"
	"github.com/Nexus6Mx/see/internal/sender"
)

// Dispatcher selects a channel sender by tag and forwards the send call.
// Every failure, including an unknown channel, comes back as a
// *sender.SendError so callers handle outcomes uniformly.
type Dispatcher struct {
	senders map[domain.Channel]sender.Sender
}

func NewDispatcher(senders map[domain.Channel]sender.Sender) (*Dispatcher, error) {
	if len(senders) == 0 {
		return nil, fmt.Errorf("at least one channel sender is required")
	}
	for channel, s := range senders {
		if !channel.IsValid() {
			return nil, fmt.Errorf("invalid channel %q", channel)
		}
		if s == nil {
			return nil, fmt.Errorf("nil sender for channel %q", channel)
		}
	}

	return &Dispatcher{senders: senders}, nil
}

// Dispatch forwards the message to the sender registered for the channel.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	channel domain.Channel,
	recipient string,
	body string,
	extra sender.Extra,
) (*sender.Response, error) {
	if d == nil || d.senders == nil {
		return nil, &sender.SendError{
			Kind:    sender.KindUnsupportedChannel,
			Message: "dispatcher is not initialized",
		}
	}

	s, ok := d.senders[channel]
	if !ok {
		return nil, &sender.SendError{
			Kind:    sender.KindUnsupportedChannel,
			Message: fmt.Sprintf("unsupported channel %q", channel),
		}
	}

	return s.Send(ctx, recipient, body, extra)
}
