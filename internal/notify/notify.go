// Package notify announces finished batches via desktop notifications and
// Slack webhooks.
package notify

import (
	"fmt"

	"github.com/Slynchy/webp-conv/internal/domain"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	BatchID string // Optional batch reference
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }

// ForReport builds the end-of-batch notification from a resolved report.
func ForReport(r *domain.BatchReport) Notification {
	converted := r.Succeeded + r.Warned

	n := Notification{
		Title:   "webp-conv",
		BatchID: r.ID,
	}

	switch {
	case r.Failed > 0 && converted == 0:
		n.Type = NotifyError
		n.Message = fmt.Sprintf("batch failed: all %d files failed to convert", r.Failed)
	case r.Failed > 0:
		n.Type = NotifyWarning
		n.Message = fmt.Sprintf("converted %d of %d files, %d failed", converted, r.Total(), r.Failed)
	default:
		n.Type = NotifySuccess
		n.Message = fmt.Sprintf("converted %d of %d files", converted, r.Total())
	}
	return n
}
