package main

import (
	"log"

	"gopkg.in/gomail.v2"
)

// Sender dispatches a composed message through the mail transport
type Sender interface {
	Send(msg *Message) error
}

type smtpSender struct {
	dialer        *gomail.Dialer
	senderAddress string
	senderName    string
}

// NewSMTPSender builds a sender from the mail settings. The dialer is
// created once per run; each Send dials, sends, and closes the connection.
func NewSMTPSender(settings *Settings) Sender {
	log.Printf("Mail transport: %s:%d (sender %s)", settings.Mail.Host, settings.Mail.Port, settings.Mail.SenderAddress)
	return &smtpSender{
		dialer:        gomail.NewDialer(settings.Mail.Host, settings.Mail.Port, settings.Mail.User, settings.Mail.Password),
		senderAddress: settings.Mail.SenderAddress,
		senderName:    settings.Mail.SenderName,
	}
}

func (s *smtpSender) Send(msg *Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderAddress, s.senderName)
	m.SetHeader("To", msg.To)
	if len(msg.CC) > 0 {
		m.SetHeader("Cc", msg.CC...)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)
	if msg.Attachment != "" {
		m.Attach(msg.Attachment)
	}
	return s.dialer.DialAndSend(m)
}
