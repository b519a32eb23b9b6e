package sender

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	mail "github.com/wneessen/go-mail"
)

const (
	defaultSMTPTimeout  = 15 * time.Second
	defaultEmailSubject = "Notificación de ERR Automotriz"
)

// EmailConfig configures authenticated SMTP submission.
type EmailConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// EmailSender delivers messages over SMTP. Bodies are sent as HTML with a
// plain-text alternative derived by stripping markup.
type EmailSender struct {
	cfg    EmailConfig
	client *mail.Client

	// send is swappable in tests to avoid a live SMTP session.
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewEmailSender(cfg EmailConfig) (*EmailSender, error) {
	s := &EmailSender{cfg: cfg}

	if !cfg.Enabled {
		return s, nil
	}

	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required when email is enabled")
	}
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, fmt.Errorf("email from address is required when email is enabled")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(defaultSMTPTimeout),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build smtp client: %w", err)
	}

	s.client = client
	s.send = func(ctx context.Context, msg *mail.Msg) error {
		return client.DialAndSendWithContext(ctx, msg)
	}

	return s, nil
}

func (s *EmailSender) Send(ctx context.Context, recipient string, body string, extra Extra) (*Response, error) {
	if s == nil {
		return nil, &SendError{Kind: KindTransport, Message: "email sender is not initialized"}
	}
	if !s.cfg.Enabled {
		return nil, &SendError{Kind: KindDisabled, Message: "email notifications disabled"}
	}

	address := strings.TrimSpace(recipient)
	if address == "" || !strings.Contains(address, "@") {
		return nil, &SendError{
			Kind:    KindInvalidRecipient,
			Message: fmt.Sprintf("invalid email address %q", recipient),
		}
	}

	subject := strings.TrimSpace(extra.Subject)
	if subject == "" {
		subject = defaultEmailSubject
	}
	htmlBody := extra.HTMLBody
	if strings.TrimSpace(htmlBody) == "" {
		htmlBody = body
	}

	msg := mail.NewMsg(mail.WithCharset(mail.CharsetUTF8))
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromAddress); err != nil {
		return nil, &SendError{Kind: KindTransport, Message: "invalid sender address", Cause: err}
	}
	if err := msg.To(address); err != nil {
		return nil, &SendError{
			Kind:    KindInvalidRecipient,
			Message: fmt.Sprintf("invalid email address %q", recipient),
			Cause:   err,
		}
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, StripTags(body))
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)

	if s.send == nil {
		return nil, &SendError{Kind: KindTransport, Message: "email sender is not initialized"}
	}
	if err := s.send(ctx, msg); err != nil {
		return nil, &SendError{
			Kind:    KindTransport,
			Message: "smtp delivery failed",
			Cause:   err,
		}
	}

	return &Response{}, nil
}

// StripTags removes HTML markup and unescapes entities, producing the
// plain-text alternative body.
func StripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(html.UnescapeString(b.String()))
}
