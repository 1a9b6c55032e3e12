package boltstore

import (
	"bytes"
	"sync"
	"time"

	"github.com/boltdb/bolt"

	"github.com/moonwalker/assetwatch/pkg/store"
)

type boltstore struct {
	sync.Mutex
	storePath  string
	bucketName []byte

	db     *bolt.DB
	opened bool
}

func New(storePath string, bucketName string) store.Store {
	return &boltstore{storePath: storePath, bucketName: []byte(bucketName)}
}

func (s *boltstore) open() (err error) {
	s.Lock()
	defer s.Unlock()

	if s.opened {
		return
	}

	s.db, err = bolt.Open(s.storePath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucketName)
		return err
	})

	if err == nil {
		s.opened = true
	}

	return
}

func (s *boltstore) Get(key string) (val []byte, err error) {
	err = s.open()
	if err != nil {
		return
	}

	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		// values are only valid inside the transaction
		if v := b.Get([]byte(key)); v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})

	return
}

func (s *boltstore) Set(key string, val []byte, options *store.WriteOptions) (err error) {
	err = s.open()
	if err != nil {
		return
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		return b.Put([]byte(key), val)
	})
}

func (s *boltstore) Exists(key string) (exists bool, err error) {
	err = s.open()
	if err != nil {
		return
	}

	err = s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(s.bucketName).Get([]byte(key)) != nil
		return nil
	})

	return
}

func (s *boltstore) Delete(key string) (err error) {
	err = s.open()
	if err != nil {
		return
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		return b.Delete([]byte(key))
	})
}

func (s *boltstore) DeleteAll(prefix string) (err error) {
	err = s.open()
	if err != nil {
		return
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucketName)
		p := []byte(prefix)
		keys := make([][]byte, 0)
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *boltstore) Scan(prefix string, skip int, limit int, fn func(key string, val []byte)) (err error) {
	err = s.open()
	if err != nil {
		return
	}

	type kv struct {
		k string
		v []byte
	}
	items := make([]kv, 0)

	err = s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucketName).Cursor()
		p := []byte(prefix)
		i := 0
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			inside, done := store.Window(i, skip, limit)
			if done {
				break
			}
			if inside {
				items = append(items, kv{string(k), append([]byte(nil), v...)})
			}
			i++
		}
		return nil
	})
	if err != nil {
		return
	}

	// callbacks run outside the read transaction so they can write
	for _, it := range items {
		fn(it.k, it.v)
	}
	return
}

func (s *boltstore) Count(prefix string) (n int) {
	if err := s.open(); err != nil {
		return -1
	}

	s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucketName).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			n++
		}
		return nil
	})
	return
}

func (s *boltstore) Close() error {
	s.Lock()
	defer s.Unlock()
	if !s.opened {
		return nil
	}
	s.opened = false
	return s.db.Close()
}
