package rules

import "time"

const (
	CommandPrefix = "assetwatch.cmd."

	CmdReload = CommandPrefix + "reload"
	CmdPause  = CommandPrefix + "pause"
	CmdResume = CommandPrefix + "resume"
	CmdTick   = CommandPrefix + "tick"
)

var CommandTopics = map[string]struct{}{
	CmdReload: {},
	CmdPause:  {},
	CmdResume: {},
	CmdTick:   {},
}

// Command is a control message for a running scheduler.
type Command struct {
	Topic    string    `json:"topic"`
	Received time.Time `json:"received"`
	Data     []byte    `json:"data,omitempty"`
}

func IsCommand(topic string) bool {
	_, ok := CommandTopics[topic]
	return ok
}
