package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/moonwalker/assetwatch/pkg/rules"
	"github.com/moonwalker/assetwatch/pkg/store"
)

const (
	ALERT_PREFIX = "alerts" // => alerts:id {..}
)

// storeAlertRepo keeps alerts as JSON values in any store.Store (bolt,
// redis, s3).
type storeAlertRepo struct {
	name   string
	store  store.Store
	prefix string
}

func NewStoreAlertRepo(name string, s store.Store) AlertRepo {
	return &storeAlertRepo{name, s, ALERT_PREFIX}
}

func (s *storeAlertRepo) Name() string {
	return s.name
}

func (s *storeAlertRepo) Get(id string) (*rules.AlertConfig, error) {
	key, err := FmtKey(id, s.prefix)
	if err != nil {
		return nil, err
	}

	val, err := s.store.Get(key)
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrNotFound
	}

	var a rules.AlertConfig
	err = json.Unmarshal(val, &a)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func (s *storeAlertRepo) Save(alert *rules.AlertConfig) error {
	key, err := FmtKey(alert.ID, s.prefix)
	if err != nil {
		return err
	}

	val, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	return s.store.Set(key, val, &store.WriteOptions{ContentType: "application/json"})
}

func (s *storeAlertRepo) Remove(id string) error {
	key, err := FmtKey(id, s.prefix)
	if err != nil {
		return err
	}

	return s.store.Delete(key)
}

func (s *storeAlertRepo) RemoveAll() error {
	return s.store.DeleteAll(s.prefix + ":")
}

func (s *storeAlertRepo) Each(skip int, limit int, fn func(alert *rules.AlertConfig)) error {
	return s.store.Scan(s.prefix+":", skip, limit, func(key string, val []byte) {
		var a rules.AlertConfig
		err := json.Unmarshal(val, &a)
		if err != nil {
			slog.Error("skipping undecodable alert", "key", key, "err", err.Error())
			return
		}

		fn(&a)
	})
}

func (s *storeAlertRepo) Count() int {
	return s.store.Count(s.prefix + ":")
}

func (s *storeAlertRepo) Active() int {
	return countActive(s)
}

func (s *storeAlertRepo) Close() {
	if err := s.store.Close(); err != nil {
		slog.Error("closing alert store failed", "repo", s.name, "err", err.Error())
	}
}

func FmtKey(id string, prefix string) (string, error) {
	if len(id) == 0 {
		return "", errors.New("id not specified")
	}
	return fmt.Sprintf("%s:%s", prefix, id), nil
}
