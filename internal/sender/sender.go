// Package sender wraps the outbound delivery transports behind a uniform
// contract. Senders never panic or leak transport exceptions: every failure
// surfaces as a typed *SendError so callers handle outcomes in normal
// control flow.
package sender

import "context"

// Sender is the outbound delivery port for one channel.
type Sender interface {
	Send(ctx context.Context, recipient string, body string, extra Extra) (*Response, error)
}

// Extra carries channel-specific auxiliary data alongside the rendered body.
type Extra struct {
	Subject    string
	HTMLBody   string
	GalleryURL string
}

// Response stores transport call metadata for audit and persistence.
type Response struct {
	StatusCode int
	Body       string
}
