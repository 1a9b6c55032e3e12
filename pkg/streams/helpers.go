package streams

import (
	"time"

	"github.com/nats-io/nkeys"
)

func NKeySignatureHandler(seed string, b []byte) ([]byte, error) {
	sk, err := nkeys.FromSeed([]byte(seed))
	if err != nil {
		return nil, err
	}
	return sk.Sign(b)
}

// NKeyPublic returns the public user key of a seed, so configurations only
// need the seed.
func NKeyPublic(seed string) (string, error) {
	sk, err := nkeys.FromSeed([]byte(seed))
	if err != nil {
		return "", err
	}
	return sk.PublicKey()
}

func getElapsed(start time.Time) string {
	return time.Since(start).String()
}
