package sender

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hazardwatch/alerting/internal/model"
)

// ConsoleSender prints alerts to a writer, normally stdout. The writer is
// injectable so tests can capture output.
type ConsoleSender struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSender creates a console sender writing to out.
func NewConsoleSender(out io.Writer) *ConsoleSender {
	return &ConsoleSender{out: out}
}

func (s *ConsoleSender) Name() string { return "console" }

func (s *ConsoleSender) Send(ctx context.Context, alert *model.Alert, recipient *model.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule := strings.Repeat("=", 60)
	_, err := fmt.Fprintf(s.out, "\n%s\nALERT: %s\nSeverity: %s\nTime: %s\nRecipient: %s\nMessage: %s\n%s\n\n",
		rule,
		alert.Title,
		alert.Severity,
		alert.CreatedAt.Format("2006-01-02 15:04:05"),
		recipient.Name,
		alert.Message,
		rule)
	return err
}
