package mail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// smtpTimeout bounds dialing and each SMTP command.
const smtpTimeout = 15 * time.Second

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail through an SMTP relay. Port 465 uses implicit
// TLS; other ports upgrade with STARTTLS when the server offers it.
type SMTPSender struct {
	cfg     SMTPConfig
	deliver func(ctx context.Context, msg *gomail.Msg) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	s := &SMTPSender{cfg: cfg}
	s.deliver = s.dialAndSend
	return s
}

// Send blocks until the server accepts the message or ctx is done.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}
	if err := s.deliver(ctx, m); err != nil {
		return fmt.Errorf("smtp %s:%s: %w", s.cfg.Host, s.cfg.Port, err)
	}
	return nil
}

func (s *SMTPSender) buildMessage(msg Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)
	return m, nil
}

func (s *SMTPSender) dialAndSend(ctx context.Context, m *gomail.Msg) error {
	client, err := gomail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, m)
}

func (s *SMTPSender) clientOptions() []gomail.Option {
	opts := []gomail.Option{gomail.WithTimeout(smtpTimeout)}

	port, err := strconv.Atoi(s.cfg.Port)
	if err != nil || port <= 0 {
		port = 587
	}
	if port == 465 {
		opts = append(opts, gomail.WithSSLPort(false))
	} else {
		opts = append(opts, gomail.WithPort(port), gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	}

	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}
