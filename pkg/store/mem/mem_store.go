package memstore

import (
	"sort"
	"strings"
	"sync"

	"github.com/moonwalker/assetwatch/pkg/store"
)

type memstore struct {
	sync.RWMutex
	data   map[string][]byte
	closed bool
}

func New() store.Store {
	return &memstore{data: make(map[string][]byte)}
}

func (s *memstore) Get(key string) ([]byte, error) {
	s.RLock()
	defer s.RUnlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *memstore) Set(key string, value []byte, options *store.WriteOptions) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *memstore) Delete(key string) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	delete(s.data, key)
	return nil
}

func (s *memstore) DeleteAll(prefix string) error {
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
		}
	}
	return nil
}

func (s *memstore) Exists(key string) (bool, error) {
	s.RLock()
	defer s.RUnlock()
	if s.closed {
		return false, store.ErrClosed
	}
	_, ok := s.data[key]
	return ok, nil
}

func (s *memstore) Scan(prefix string, skip int, limit int, fn func(key string, val []byte)) error {
	s.RLock()
	if s.closed {
		s.RUnlock()
		return store.ErrClosed
	}
	keys := s.keys(prefix)
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		vals[i] = append([]byte(nil), s.data[k]...)
	}
	s.RUnlock()

	// fn runs unlocked so it may call back into the store
	for i, k := range keys {
		inside, done := store.Window(i, skip, limit)
		if done {
			break
		}
		if inside {
			fn(k, vals[i])
		}
	}
	return nil
}

func (s *memstore) Count(prefix string) int {
	s.RLock()
	defer s.RUnlock()
	return len(s.keys(prefix))
}

func (s *memstore) Close() error {
	s.Lock()
	s.closed = true
	s.Unlock()
	return nil
}

func (s *memstore) keys(prefix string) []string {
	keys := make([]string, 0)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
