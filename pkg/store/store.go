package store

import "errors"

var ErrClosed = errors.New("store closed")

type WriteOptions struct {
	ContentType string
	TTL         int64
}

// Store is a flat key/value space. Keys are grouped by prefix; Scan and
// Count visit keys in ascending order. Get returns a nil value and no error
// for a missing key.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, options *WriteOptions) error

	Delete(key string) error
	DeleteAll(prefix string) error

	Exists(key string) (bool, error)

	Scan(prefix string, skip int, limit int, fn func(key string, val []byte)) error
	Count(prefix string) int

	Close() error
}

// Window reports whether the i-th visited key falls inside skip/limit, and
// whether the scan can stop.
func Window(i, skip, limit int) (inside bool, done bool) {
	if i < skip {
		return false, false
	}
	if limit > 0 && i >= skip+limit {
		return false, true
	}
	return true, false
}
