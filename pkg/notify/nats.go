package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/moonwalker/assetwatch/pkg/streams"
)

const DEFAULT_SUBJECT = "assetwatch.alerts"

// Nats publishes notifications as JSON on a subject. The connection is
// opened on first use.
type Nats struct {
	sync.Mutex
	opts    streams.Options
	subject string
	conn    *nats.Conn
}

func NewNats(opts streams.Options, subject string) *Nats {
	if subject == "" {
		subject = DEFAULT_SUBJECT
	}
	return &Nats{opts: opts, subject: subject}
}

func (n *Nats) connect() (*nats.Conn, error) {
	n.Lock()
	defer n.Unlock()

	if n.conn != nil && !n.conn.IsClosed() {
		return n.conn, nil
	}
	conn, err := streams.Connect(n.opts)
	if err != nil {
		return nil, err
	}
	n.conn = conn
	return conn, nil
}

func (n *Nats) Notify(ctx context.Context, message, title string, opts Options) error {
	opts = opts.withDefaults()
	conn, err := n.connect()
	if err != nil {
		return err
	}

	b, err := json.Marshal(NewNotification(message, title, opts))
	if err != nil {
		return err
	}
	if err := conn.Publish(n.subject, b); err != nil {
		return err
	}
	return conn.FlushTimeout(opts.Timeout)
}

func (n *Nats) Close() {
	n.Lock()
	defer n.Unlock()
	if n.conn != nil {
		n.conn.Close()
		n.conn = nil
	}
}
