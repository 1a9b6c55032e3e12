package eventsource

import (
	"github.com/moonwalker/assetwatch/pkg/rules"
)

// CommandSource delivers scheduler control commands.
type CommandSource interface {
	Receive(commands chan *rules.Command) error
	Publish(topic string, data []byte) error
	TriggerReload() error
	Close()
}
