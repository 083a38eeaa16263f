package email

import (
	"log/slog"
)

// Sender notifies a recipient that an export completed.
type Sender interface {
	SendDownloadLink(email, downloadURL string, summary string)
}

// LogSender is the no-SMTP fallback: it logs what would have been sent.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) SendDownloadLink(email, downloadURL string, summary string) {
	go func() {
		slog.Info("EMAIL SENT",
			"to", email,
			"url", downloadURL,
			"summary", summary,
		)
	}()
}
