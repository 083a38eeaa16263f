package email

import (
	"fmt"
	"log/slog"
	"net/smtp"
)

// SMTPSender delivers export notifications over plain SMTP.
type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

// SendDownloadLink sends asynchronously so a slow mail server never
// blocks the export worker.
func (s *SMTPSender) SendDownloadLink(email, downloadURL string, summary string) {
	go func() {
		addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

		var auth smtp.Auth
		if s.User != "" && s.Password != "" {
			auth = smtp.PlainAuth("", s.User, s.Password, s.Host)
		}

		subject := "Your Query Export is Ready"
		body := fmt.Sprintf("Hello,\n\nYour export has completed.\n\n%s\n\nDownload Link:\n%s\n\nThe link expires according to your storage policy.\n", summary, downloadURL)

		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"Subject: %s\r\n"+
			"\r\n"+
			"%s\r\n", email, subject, body))

		slog.Info("Sending email via SMTP", "to", email, "host", s.Host)

		if err := smtp.SendMail(addr, auth, s.From, []string{email}, msg); err != nil {
			slog.Error("Failed to send email", "error", err, "to", email)
		} else {
			slog.Info("Email sent", "to", email)
		}
	}()
}
