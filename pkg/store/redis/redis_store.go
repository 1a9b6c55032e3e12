package redistore

import (
	"log/slog"
	"sort"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/moonwalker/assetwatch/pkg/store"
)

var (
	DEL_SCRIPT = redis.NewScript(0, `for i, k in ipairs(redis.call('KEYS', ARGV[1])) do redis.call('DEL', k) end`)
)

type redistore struct {
	pool *redis.Pool
}

func New(redisURL string) store.Store {
	return &redistore{
		pool: &redis.Pool{
			MaxActive:   5,
			MaxIdle:     5,
			IdleTimeout: 240 * time.Second,
			Wait:        true,
			Dial: func() (redis.Conn, error) {
				return redis.DialURL(redisURL)
			},
		},
	}
}

func (s *redistore) Get(key string) (value []byte, err error) {
	defer debugDuration(time.Now(), "GET", key)

	c := s.pool.Get()
	defer c.Close()

	res, err := c.Do("GET", key)
	if res != nil {
		return redis.Bytes(res, err)
	}
	return nil, err
}

func (s *redistore) Set(key string, value []byte, options *store.WriteOptions) error {
	cmd := "SET"
	useTTL := options != nil && options.TTL > 0
	if useTTL {
		cmd = "SETEX"
	}

	defer debugDuration(time.Now(), cmd, key)

	c := s.pool.Get()
	defer c.Close()

	var err error
	if useTTL {
		_, err = c.Do(cmd, key, options.TTL, value)
	} else {
		_, err = c.Do(cmd, key, value)
	}
	return err
}

func (s *redistore) Delete(key string) error {
	defer debugDuration(time.Now(), "DEL", key)

	c := s.pool.Get()
	defer c.Close()

	_, err := c.Do("DEL", key)
	return err
}

func (s *redistore) DeleteAll(prefix string) error {
	defer debugDuration(time.Now(), "DEL_SCRIPT", prefix)

	c := s.pool.Get()
	defer c.Close()

	_, err := DEL_SCRIPT.Do(c, prefix+"*")
	return err
}

func (s *redistore) Exists(key string) (bool, error) {
	defer debugDuration(time.Now(), "EXISTS", key)

	c := s.pool.Get()
	defer c.Close()

	return redis.Bool(c.Do("EXISTS", key))
}

func (s *redistore) Scan(prefix string, skip int, limit int, fn func(key string, val []byte)) error {
	defer debugDuration(time.Now(), "SCAN", prefix)

	c := s.pool.Get()
	defer c.Close()

	keys, err := scanKeys(c, prefix)
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
		val, err := redis.Bytes(c.Do("GET", key))
		if err == redis.ErrNil {
			// expired or deleted since the scan
			continue
		}
		if err != nil {
			return err
		}
		fn(key, val)
	}

	return nil
}

func (s *redistore) Count(prefix string) int {
	c := s.pool.Get()
	defer c.Close()

	keys, err := scanKeys(c, prefix)
	if err != nil {
		slog.Error("redis count failed", "prefix", prefix, "err", err)
		return -1
	}
	return len(keys)
}

func (s *redistore) Close() error {
	return s.pool.Close()
}

// scanKeys collects every key under prefix, sorted.
func scanKeys(c redis.Conn, prefix string) ([]string, error) {
	var (
		cursor int
		keys   []string
		all    = make([]string, 0)
	)

	for {
		values, err := redis.Values(c.Do("SCAN", cursor, "MATCH", prefix+"*", "COUNT", 100))
		if err != nil {
			return nil, err
		}

		keys = keys[:0]
		_, err = redis.Scan(values, &cursor, &keys)
		if err != nil {
			return nil, err
		}
		all = append(all, keys...)

		if cursor == 0 {
			break
		}
	}

	sort.Strings(all)
	return all, nil
}

func debugDuration(start time.Time, cmd string, args ...interface{}) {
	elapsed := time.Since(start)
	slog.Debug("redis command", "cmd", cmd, "args", args, "took", elapsed.String())
}
