package directory

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hazardwatch/alerting/internal/model"
)

// Directory holds the configured recipients in insertion order. The order
// carries no semantic meaning but is deterministic: the dispatcher fans out
// in exactly this order, which keeps delivery tests stable.
type Directory struct {
	logger *zap.Logger

	mu         sync.RWMutex
	recipients []*model.Recipient
}

// NewDirectory creates an empty recipient directory.
func NewDirectory(logger *zap.Logger) *Directory {
	return &Directory{logger: logger.Named("directory")}
}

// AddRecipient appends a recipient. No deduplication: profiles are built at
// configuration time and trusted as given.
func (d *Directory) AddRecipient(recipient *model.Recipient) {
	d.mu.Lock()
	d.recipients = append(d.recipients, recipient)
	d.mu.Unlock()

	d.logger.Info("Added recipient",
		zap.String("name", recipient.Name),
		zap.Int("channels", len(recipient.Channels)),
		zap.String("threshold", recipient.Threshold.String()))
}

// Recipients returns the recipients in insertion order. The slice is a
// copy; the profiles themselves are read-only by contract.
func (d *Directory) Recipients() []*model.Recipient {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*model.Recipient, len(d.recipients))
	copy(out, d.recipients)
	return out
}

// Len returns the number of configured recipients.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.recipients)
}
