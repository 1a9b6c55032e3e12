package repo

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/moonwalker/assetwatch/pkg/rules"
	"github.com/moonwalker/assetwatch/pkg/store"
)

// diskAlertRepo stores one file per alert under root. Saved alerts are
// written as <id>.json; hand-written .yaml/.yml files are read as well.
type diskAlertRepo struct {
	root string
}

func NewDiskAlertRepo(root string) (AlertRepo, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &diskAlertRepo{root}, nil
}

func (s *diskAlertRepo) Name() string {
	return "disk"
}

func (s *diskAlertRepo) Get(id string) (*rules.AlertConfig, error) {
	var found *rules.AlertConfig
	err := s.walk(func(path string, a *rules.AlertConfig) bool {
		if a.ID == id {
			found = a
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (s *diskAlertRepo) Save(alert *rules.AlertConfig) error {
	if len(alert.ID) == 0 || strings.ContainsAny(alert.ID, `/\`) {
		return errors.New("invalid alert id")
	}

	// a yaml file with the same id would otherwise shadow the update
	if err := s.Remove(alert.ID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(alert, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(s.root, alert.ID+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *diskAlertRepo) Remove(id string) error {
	paths := make([]string, 0)
	err := s.walk(func(path string, a *rules.AlertConfig) bool {
		if a.ID == id {
			paths = append(paths, path)
		}
		return true
	})
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *diskAlertRepo) RemoveAll() error {
	paths := make([]string, 0)
	err := s.walk(func(path string, a *rules.AlertConfig) bool {
		paths = append(paths, path)
		return true
	})
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *diskAlertRepo) Count() int {
	count := 0
	s.Each(0, 0, func(a *rules.AlertConfig) {
		count++
	})
	return count
}

func (s *diskAlertRepo) Active() int {
	return countActive(s)
}

func (s *diskAlertRepo) Each(skip int, limit int, fn func(alert *rules.AlertConfig)) error {
	i := 0
	return s.walk(func(path string, a *rules.AlertConfig) bool {
		inside, done := store.Window(i, skip, limit)
		i++
		if inside {
			fn(a)
		}
		return !done
	})
}

func (s *diskAlertRepo) Close() {
	// no op
}

// walk decodes every alert file in lexical path order until fn returns false.
func (s *diskAlertRepo) walk(fn func(path string, a *rules.AlertConfig) bool) error {
	stop := errors.New("stop")
	err := filepath.Walk(s.root, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".json", ".yaml", ".yml":
		default:
			return nil
		}
		data, e := os.ReadFile(path)
		if e != nil {
			return e
		}
		a, e := decode(data)
		if e != nil {
			return &DecodeError{Path: path, Err: e}
		}
		if !fn(path, a) {
			return stop
		}
		return nil
	})
	if err == stop {
		return nil
	}
	return err
}

type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return "decode " + e.Path + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
