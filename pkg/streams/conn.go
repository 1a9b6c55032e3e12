package streams

import (
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
)

type Options struct {
	URL             string
	NkeyUser        string
	NkeySeed        string
	CredentialsPath string
	Name            string
}

// Connect opens a NATS connection authenticated with nkeys, a credentials
// file or nothing, in that order of preference.
func Connect(opts Options, extra ...nats.Option) (*nats.Conn, error) {
	start := time.Now()
	defer func() {
		slog.Debug("nats connect", "url", opts.URL, "took", getElapsed(start))
	}()

	options := []nats.Option{
		nats.ErrorHandler(errorHandler),
		nats.DisconnectErrHandler(disconnectHandler),
		nats.ReconnectHandler(reconnectHandler),
		nats.ClosedHandler(closedHandler),
	}
	if opts.Name != "" {
		options = append(options, nats.Name(opts.Name))
	}

	// connect with nkeys if specified
	if len(opts.NkeySeed) > 0 {
		user := opts.NkeyUser
		if user == "" {
			pub, err := NKeyPublic(opts.NkeySeed)
			if err != nil {
				return nil, err
			}
			user = pub
		}
		seed := opts.NkeySeed
		options = append(options, nats.Nkey(user, func(b []byte) ([]byte, error) {
			return NKeySignatureHandler(seed, b)
		}))
	} else if len(opts.CredentialsPath) > 0 {
		// connect with credentials if exists
		if _, err := os.Stat(opts.CredentialsPath); err == nil {
			options = append(options, nats.UserCredentials(opts.CredentialsPath))
		}
	}

	return nats.Connect(opts.URL, append(options, extra...)...)
}

// error handler helper functions

func errorHandler(nc *nats.Conn, sub *nats.Subscription, err error) {
	slog.Error("nats error", "err", err.Error())

	if err == nats.ErrSlowConsumer && sub != nil {
		pendingMsgs, pendingBytes, err := sub.Pending()
		if err != nil {
			slog.Error("failed to get pending messages", "err", err.Error())
			return
		}
		droppedMsgs, err := sub.Dropped()
		if err != nil {
			slog.Error("failed to get dropped messages", "err", err.Error())
			return
		}
		slog.Error("falling behind with pending messages",
			"droppedMsgs", droppedMsgs,
			"pendingMsgs", pendingMsgs,
			"pendingBytes", pendingBytes,
			"subject", sub.Subject,
		)
	}
}

func disconnectHandler(nc *nats.Conn, err error) {
	slog.Debug("nats disconnected", "err", err)
}

func reconnectHandler(nc *nats.Conn) {
	slog.Debug("nats reconnected", "url", nc.ConnectedUrl())
}

func closedHandler(nc *nats.Conn) {
	slog.Debug("nats connection closed", "reason", nc.LastError())
}
