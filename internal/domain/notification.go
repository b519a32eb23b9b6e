package domain

import (
	"fmt"
	"strings"
	"time"
)

// State represents the lifecycle state of a queued notification.
type State string

const (
	StatePending State = "pending"
	StateSent    State = "sent"
	StateFailed  State = "failed"
)

func (s State) String() string { return string(s) }

func (s State) IsValid() bool {
	switch s {
	case StatePending, StateSent, StateFailed:
		return true
	}
	return false
}

// IsTerminal reports whether a state admits no further processing.
func (s State) IsTerminal() bool {
	return s == StateSent || s == StateFailed
}

func ParseStateFromString(s string) (State, error) {
	st := State(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid state %q", ErrValidation, s)
	}
	return st, nil
}

// Channel represents the delivery channel.
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelTelegram, ChannelWhatsApp, ChannelEmail:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Priority is an integer urgency level; lower values are dispatched first.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityNormal Priority = 5
	PriorityLow    Priority = 10
)

// Normalize maps non-positive priorities to the normal level.
func (p Priority) Normalize() Priority {
	if p < 1 {
		return PriorityNormal
	}
	return p
}

// DefaultMaxAttempts is the delivery attempt ceiling applied when a record
// does not specify one.
const DefaultMaxAttempts = 3

// Notification is a queued delivery attempt for one recipient on one channel.
// Records share an order number across channels and retries; only the queue
// repository mutates state, attempts, and the failure bookkeeping fields.
type Notification struct {
	ID            int64
	OrderNumber   string
	Channel       Channel
	Recipient     string
	Body          string
	Subject       string
	HTMLBody      string
	GalleryURL    *string
	State         State
	Priority      Priority
	Attempts      int
	MaxAttempts   int
	LastError     *string
	LastAttemptAt *time.Time
	SentAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (n *Notification) Validate() error {
	if strings.TrimSpace(n.OrderNumber) == "" {
		return fmt.Errorf("%w: order number is required", ErrValidation)
	}
	if strings.TrimSpace(n.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if strings.TrimSpace(n.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}
	if !n.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, n.Channel)
	}
	if n.Priority < 1 {
		return fmt.Errorf("%w: priority must be >= 1 (got %d)", ErrValidation, n.Priority)
	}
	if n.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be >= 1 (got %d)", ErrValidation, n.MaxAttempts)
	}
	return nil
}

// Eligible reports whether the record may still be picked up by the
// queue processor.
func (n *Notification) Eligible() bool {
	return n.State == StatePending && n.Attempts < n.MaxAttempts
}
