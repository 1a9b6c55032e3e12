package repo

import (
	"sync"

	"github.com/moonwalker/assetwatch/pkg/rules"
	"github.com/moonwalker/assetwatch/pkg/store"
)

// inMemoryAlertRepo keeps insertion order.
type inMemoryAlertRepo struct {
	sync.RWMutex
	ids    []string
	alerts map[string]*rules.AlertConfig
}

func NewInMemoryAlertRepo() AlertRepo {
	return &inMemoryAlertRepo{alerts: make(map[string]*rules.AlertConfig)}
}

func (s *inMemoryAlertRepo) Name() string {
	return "in-memory"
}

func (s *inMemoryAlertRepo) Get(id string) (*rules.AlertConfig, error) {
	s.RLock()
	defer s.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (s *inMemoryAlertRepo) Save(alert *rules.AlertConfig) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.alerts[alert.ID]; !ok {
		s.ids = append(s.ids, alert.ID)
	}
	s.alerts[alert.ID] = alert.Clone()
	return nil
}

func (s *inMemoryAlertRepo) Remove(id string) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.alerts[id]; !ok {
		return nil
	}
	delete(s.alerts, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *inMemoryAlertRepo) RemoveAll() error {
	s.Lock()
	defer s.Unlock()

	s.ids = nil
	s.alerts = make(map[string]*rules.AlertConfig)
	return nil
}

func (s *inMemoryAlertRepo) Count() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.ids)
}

func (s *inMemoryAlertRepo) Active() int {
	return countActive(s)
}

func (s *inMemoryAlertRepo) Each(skip int, limit int, fn func(alert *rules.AlertConfig)) error {
	s.RLock()
	list := make([]*rules.AlertConfig, 0, len(s.ids))
	for _, id := range s.ids {
		list = append(list, s.alerts[id].Clone())
	}
	s.RUnlock()

	for i, a := range list {
		inside, done := store.Window(i, skip, limit)
		if done {
			break
		}
		if inside {
			fn(a)
		}
	}
	return nil
}

func (s *inMemoryAlertRepo) Close() {
	// no op
}
