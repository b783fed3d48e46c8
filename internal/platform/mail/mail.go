// Package mail renders credential notifications and hands them to a transport.
package mail

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Validate checks the recipient address and that subject and body are present.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(m.To)); err != nil {
		return errors.New("mail: invalid recipient address")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("mail: subject is required")
	}
	if strings.TrimSpace(m.HTML) == "" {
		return errors.New("mail: body is required")
	}
	return nil
}

// Sender delivers a message. Implementations return only after the transport accepted it.
type Sender interface {
	SendMail(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// SendMail calls f.
func (f SenderFunc) SendMail(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
