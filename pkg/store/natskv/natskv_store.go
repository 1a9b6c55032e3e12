package natskvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/moonwalker/assetwatch/pkg/store"
	"github.com/moonwalker/assetwatch/pkg/streams"
)

const (
	MAX_BYTES  = 64 * 1024 * 1024
	opTimeout  = 5 * time.Second
	keyEscape  = '='
	keyDivider = ':'
)

// natskvstore keeps values in a JetStream key/value bucket.
type natskvstore struct {
	sync.Mutex
	opts   streams.Options
	bucket string

	nc *nats.Conn
	kv jetstream.KeyValue
}

func New(opts streams.Options, bucket string) store.Store {
	return &natskvstore{opts: opts, bucket: bucket}
}

func (s *natskvstore) open() (jetstream.KeyValue, error) {
	s.Lock()
	defer s.Unlock()

	if s.kv != nil {
		return s.kv, nil
	}

	nc, err := streams.Connect(s.opts)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	kv, err := js.KeyValue(ctx, s.bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:   s.bucket,
			MaxBytes: MAX_BYTES,
		})
	}
	if err != nil {
		nc.Close()
		return nil, err
	}

	s.nc, s.kv = nc, kv
	return kv, nil
}

func (s *natskvstore) Get(key string) ([]byte, error) {
	kv, err := s.open()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	kve, err := kv.Get(ctx, EncodeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, nil
		}
		return nil, err
	}
	return kve.Value(), nil
}

func (s *natskvstore) Set(key string, value []byte, options *store.WriteOptions) error {
	kv, err := s.open()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err = kv.Put(ctx, EncodeKey(key), value)
	return err
}

func (s *natskvstore) Delete(key string) error {
	kv, err := s.open()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err = kv.Delete(ctx, EncodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *natskvstore) DeleteAll(prefix string) error {
	keys, err := s.keys(prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *natskvstore) Exists(key string) (bool, error) {
	val, err := s.Get(key)
	return val != nil, err
}

func (s *natskvstore) Scan(prefix string, skip int, limit int, fn func(key string, val []byte)) error {
	keys, err := s.keys(prefix)
	if err != nil {
		return err
	}

	for i, key := range keys {
		inside, done := store.Window(i, skip, limit)
		if done {
			break
		}
		if !inside {
			continue
		}
		val, err := s.Get(key)
		if err != nil {
			return err
		}
		if val != nil {
			fn(key, val)
		}
	}
	return nil
}

func (s *natskvstore) Count(prefix string) int {
	keys, err := s.keys(prefix)
	if err != nil {
		return -1
	}
	return len(keys)
}

func (s *natskvstore) Close() error {
	s.Lock()
	defer s.Unlock()

	if s.nc != nil {
		s.nc.Close()
	}
	s.nc, s.kv = nil, nil
	return nil
}

// keys returns the decoded keys under prefix in ascending order.
func (s *natskvstore) keys(prefix string) ([]string, error) {
	kv, err := s.open()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	lister, err := kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []string{}, nil
		}
		return nil, err
	}
	defer lister.Stop()

	p := EncodeKey(prefix)
	res := make([]string, 0)
	for k := range lister.Keys() {
		if strings.HasPrefix(k, p) {
			res = append(res, DecodeKey(k))
		}
	}
	sort.Strings(res)
	return res, nil
}

// EncodeKey maps a store key onto the NATS key alphabet. The ':' divider
// becomes '.', other characters outside [-/_a-zA-Z0-9] are hex escaped.
func EncodeKey(key string) string {
	var sb strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == keyDivider:
			sb.WriteByte('.')
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '/', c == '_':
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "%c%02X", keyEscape, c)
		}
	}
	return sb.String()
}

func DecodeKey(key string) string {
	var sb strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '.':
			sb.WriteByte(keyDivider)
		case c == keyEscape && i+2 < len(key):
			b, err := strconv.ParseUint(key[i+1:i+3], 16, 8)
			if err != nil {
				sb.WriteByte(c)
				continue
			}
			sb.WriteByte(byte(b))
			i += 2
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
