package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	LEVEL_INFO    = "info"
	LEVEL_WARNING = "warning"

	DEFAULT_TIMEOUT = 10 * time.Second
)

// Options carries the presentation hints and alert context of a
// notification.
type Options struct {
	Level   string
	Timeout time.Duration
	AlertID string
	Module  string
	UserID  string
	Count   int
	Time    time.Time
}

// Notification is the document published by the remote sinks.
type Notification struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Level   string    `json:"level"`
	AlertID string    `json:"alertId,omitempty"`
	Module  string    `json:"modulo,omitempty"`
	UserID  string    `json:"userId,omitempty"`
	Count   int       `json:"count"`
	Time    time.Time `json:"time"`
}

type Notifier interface {
	Notify(ctx context.Context, message, title string, opts Options) error
}

// NewNotification fills the defaults of opts and builds the published
// document.
func NewNotification(message, title string, opts Options) *Notification {
	opts = opts.withDefaults()
	return &Notification{
		ID:      uuid.NewString(),
		Title:   title,
		Message: message,
		Level:   opts.Level,
		AlertID: opts.AlertID,
		Module:  opts.Module,
		UserID:  opts.UserID,
		Count:   opts.Count,
		Time:    opts.Time,
	}
}

func (o Options) withDefaults() Options {
	if o.Level == "" {
		o.Level = LEVEL_WARNING
	}
	if o.Timeout <= 0 {
		o.Timeout = DEFAULT_TIMEOUT
	}
	if o.Time.IsZero() {
		o.Time = time.Now().UTC()
	}
	return o
}

// Multi fans a notification out to every sink. A failing sink does not
// stop the others.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, message, title string, opts Options) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, message, title, opts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
