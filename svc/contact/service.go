package contact

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mrz1836/postmark"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Message is one contact form submission.
type Message struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Body  string `json:"body"`
}

// Validate checks the submission before any delivery attempt.
func (m Message) Validate() error {
	switch {
	case strings.TrimSpace(m.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidMessage)
	case !emailRegex.MatchString(m.Email):
		return fmt.Errorf("%w: valid email is required", ErrInvalidMessage)
	case strings.TrimSpace(m.Body) == "":
		return fmt.Errorf("%w: message body is required", ErrInvalidMessage)
	case len(m.Body) > 10000:
		return fmt.Errorf("%w: message body too long", ErrInvalidMessage)
	}
	return nil
}

// Sender delivers a contact form submission to the site owner.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// PostmarkSender delivers submissions through Postmark's transactional API.
type PostmarkSender struct {
	client *postmark.Client
	cfg    Config
}

// NewPostmarkSender creates a Postmark-backed sender. Configuration is
// validated up front so a broken form fails at startup, not on first use.
func NewPostmarkSender(cfg Config) (*PostmarkSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", ErrInvalidMessage)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: sender email must be valid", ErrInvalidMessage)
	}
	if !emailRegex.MatchString(cfg.OwnerEmail) {
		return nil, fmt.Errorf("%w: owner email must be valid", ErrInvalidMessage)
	}

	return &PostmarkSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		cfg:    cfg,
	}, nil
}

// Send forwards the submission to the owner, with reply-to pointing back
// at the visitor so answering is one click.
func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.cfg.SenderEmail,
		ReplyTo:  msg.Email,
		To:       s.cfg.OwnerEmail,
		Subject:  "Contact form: " + msg.Name,
		Tag:      "contact-form",
		HTMLBody: renderBody(msg),
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}

func renderBody(msg Message) string {
	return fmt.Sprintf("<p><strong>%s</strong> (%s) wrote:</p><p>%s</p>",
		html.EscapeString(msg.Name),
		html.EscapeString(msg.Email),
		strings.ReplaceAll(html.EscapeString(msg.Body), "\n", "<br>"))
}

// LogSender is the development fallback: submissions are logged, not sent.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender creates a sender that only logs submissions.
func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.InfoContext(ctx, "contact form submission",
		slog.String("name", msg.Name),
		slog.String("email", msg.Email),
		slog.Int("body_len", len(msg.Body)))
	return nil
}
