package eventsource

import (
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/moonwalker/assetwatch/pkg/rules"
	"github.com/moonwalker/assetwatch/pkg/streams"
)

type natsCommandSource struct {
	opts   streams.Options
	con    *nats.Conn
	cmdSub *nats.Subscription
}

func NewNatsCommandSource(opts streams.Options) CommandSource {
	return &natsCommandSource{opts: opts}
}

func (s *natsCommandSource) Receive(commands chan *rules.Command) error {
	var err error
	s.con, err = streams.Connect(s.opts)
	if err != nil {
		return err
	}

	s.cmdSub, err = s.con.Subscribe(rules.CommandPrefix+"*", func(msg *nats.Msg) {
		if !rules.IsCommand(msg.Subject) {
			slog.Warn("unknown command", "topic", msg.Subject)
			return
		}
		commands <- &rules.Command{
			Topic:    msg.Subject,
			Received: time.Now().UTC(),
			Data:     msg.Data,
		}
	})
	if err != nil {
		return err
	}

	return nil
}

// Publish sends one command over a short lived connection.
func (s *natsCommandSource) Publish(topic string, data []byte) error {
	nc, err := streams.Connect(s.opts)
	if err != nil {
		return err
	}
	defer nc.Close()

	if err := nc.Publish(topic, data); err != nil {
		return err
	}
	if err := nc.Flush(); err != nil {
		return err
	}

	return nc.LastError()
}

func (s *natsCommandSource) TriggerReload() error {
	return s.Publish(rules.CmdReload, nil)
}

func (s *natsCommandSource) Close() {
	if s.cmdSub != nil {
		s.cmdSub.Unsubscribe()
	}
	if s.con != nil {
		s.con.Close()
	}
}
