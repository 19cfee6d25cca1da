package config

import (
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	mail "github.com/go-mail/mail/v2"
)

// MailSender delivers one message to a single recipient. The dispatcher and
// password-reset flow depend on this interface so tests can substitute a stub.
type MailSender interface {
	Send(to, subject, body string, attachment []byte, attachmentName string) error
}

// Mailer is the process-wide mail relay client. Populated once by InitMailer;
// credentials come from the environment and are never logged.
var Mailer MailSender

type smtpMailer struct {
	host          string
	port          int
	user          string
	pass          string
	from          string
	skipTLSVerify bool
}

// InitMailer reads SMTP settings from the environment. Missing configuration is
// not fatal at startup; sends will fail with an explicit error instead.
func InitMailer() {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}

	m := &smtpMailer{
		host:          os.Getenv("SMTP_HOST"),
		port:          port,
		user:          os.Getenv("SMTP_USER"),
		pass:          os.Getenv("SMTP_PASS"),
		from:          os.Getenv("SMTP_FROM"), // e.g. "Report System <no-reply@your.org>"
		skipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",
	}
	Mailer = m

	if m.host == "" || m.from == "" {
		log.Println("Warning: SMTP not configured (SMTP_HOST/SMTP_FROM); mail dispatch will fail")
		return
	}
	log.Printf("Mail relay configured for %s:%d", m.host, m.port)
}

func (m *smtpMailer) Send(to, subject, body string, attachment []byte, attachmentName string) error {
	if to == "" {
		return nil
	}
	if m.host == "" || m.from == "" {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if len(attachment) > 0 {
		name := attachmentName
		if name == "" {
			name = "attachment"
		}
		msg.Attach(name, mail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(attachment)
			return err
		}))
	}

	d := mail.NewDialer(m.host, m.port, m.user, m.pass)

	// Mandatory STARTTLS on 587 works for Gmail/Office365 relays.
	d.StartTLSPolicy = mail.MandatoryStartTLS

	// ServerName must match the relay hostname or the handshake fails.
	d.TLSConfig = &tls.Config{
		ServerName:         m.host,
		InsecureSkipVerify: m.skipTLSVerify, // dev only: set SMTP_SKIP_TLS_VERIFY=1
	}

	return d.DialAndSend(msg)
}
