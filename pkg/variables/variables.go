package variables

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/moonwalker/assetwatch/pkg/parse"
	"github.com/moonwalker/assetwatch/pkg/registry"
	"github.com/moonwalker/assetwatch/pkg/rules"
	"github.com/moonwalker/assetwatch/pkg/store"
)

const VAR_PREFIX = "vars" // => vars:userId:id {..}

var (
	ErrDuplicateKey = errors.New("variable key already exists")
	ErrNotFound     = errors.New("variable not found")
	ErrInvalidValue = errors.New("value does not match variable type")
)

// Store holds the user variables referenced by VARIABLE conditions. Keys are
// unique per user. When a backing store.Store is set every mutation is
// written through.
type Store struct {
	sync.RWMutex
	kv    store.Store
	vars  []*rules.UserVariable
	newID func() string
}

func New(kv store.Store) *Store {
	return &Store{
		kv:    kv,
		vars:  make([]*rules.UserVariable, 0),
		newID: uuid.NewString,
	}
}

func (s *Store) Load() error {
	if s.kv == nil {
		return nil
	}

	vars := make([]*rules.UserVariable, 0)
	err := s.kv.Scan(VAR_PREFIX+":", 0, 0, func(key string, val []byte) {
		v := &rules.UserVariable{}
		if err := json.Unmarshal(val, v); err != nil {
			slog.Error("skipping undecodable variable", "key", key, "err", err.Error())
			return
		}
		vars = append(vars, v)
	})
	if err != nil {
		return fmt.Errorf("load variables: %w", err)
	}

	s.Lock()
	s.vars = vars
	s.Unlock()

	slog.Info("variables loaded", "count", len(vars))
	return nil
}

func (s *Store) List(userID string) []*rules.UserVariable {
	s.RLock()
	defer s.RUnlock()

	res := make([]*rules.UserVariable, 0)
	for _, v := range s.vars {
		if v.UserID == userID {
			c := *v
			res = append(res, &c)
		}
	}
	return res
}

// Lookup implements rules.Variables.
func (s *Store) Lookup(userID, key string) (interface{}, bool) {
	s.RLock()
	defer s.RUnlock()

	if v := s.find(userID, key); v != nil {
		return v.Value, true
	}
	return nil, false
}

// Add stores a new variable owned by userID under a fresh id.
func (s *Store) Add(userID string, v rules.UserVariable) (*rules.UserVariable, error) {
	v.Key = strings.TrimSpace(v.Key)
	if v.Key == "" {
		return nil, errors.New("variable key is required")
	}
	value, typ, err := normalize(v.Value, v.Type)
	if err != nil {
		return nil, err
	}
	v.Value, v.Type = value, typ
	v.ID = s.newID()
	v.UserID = userID

	s.Lock()
	defer s.Unlock()

	if s.find(userID, v.Key) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, v.Key)
	}
	if err := s.save(&v); err != nil {
		return nil, err
	}
	s.vars = append(s.vars, &v)

	c := v
	return &c, nil
}

// Update replaces the value of one of userID's variables.
func (s *Store) Update(userID, id string, value interface{}) error {
	s.Lock()
	defer s.Unlock()

	i := s.indexOf(userID, id)
	if i < 0 {
		return ErrNotFound
	}

	v := *s.vars[i]
	normalized, _, err := normalize(value, v.Type)
	if err != nil {
		return err
	}
	v.Value = normalized

	if err := s.save(&v); err != nil {
		return err
	}
	s.vars[i] = &v
	return nil
}

// Delete is idempotent.
func (s *Store) Delete(userID, id string) error {
	s.Lock()
	defer s.Unlock()

	i := s.indexOf(userID, id)
	if i < 0 {
		return nil
	}
	if s.kv != nil {
		if err := s.kv.Delete(varKey(userID, id)); err != nil {
			return err
		}
	}
	s.vars = append(s.vars[:i], s.vars[i+1:]...)
	return nil
}

// Export renders userID's variables as an indented JSON array.
func (s *Store) Export(userID string) ([]byte, error) {
	return json.MarshalIndent(s.List(userID), "", "  ")
}

// Import adds the variables of payload whose key userID does not have yet
// and returns how many were added. payload is either an array of variables
// or an object with a "variables" array. Nothing is added on error.
func (s *Store) Import(payload []byte, userID string) (int, error) {
	if !gjson.ValidBytes(payload) {
		return 0, &registry.ParseError{Index: -1, Err: errors.New("invalid json")}
	}
	doc := gjson.ParseBytes(payload)
	if doc.IsObject() {
		doc = doc.Get("variables")
	}
	if !doc.IsArray() {
		return 0, &registry.ParseError{Index: -1, Err: errors.New("expected an array of variables")}
	}

	batch := make([]*rules.UserVariable, 0)
	for i, entry := range doc.Array() {
		if !entry.IsObject() {
			return 0, &registry.ParseError{Index: i, Err: errors.New("entry is not an object")}
		}
		v := &rules.UserVariable{}
		if err := json.Unmarshal([]byte(entry.Raw), v); err != nil {
			return 0, &registry.ParseError{Index: i, Err: err}
		}
		v.Key = strings.TrimSpace(v.Key)
		if v.Key == "" {
			return 0, &registry.ParseError{Index: i, Err: errors.New("variable key is required")}
		}
		value, typ, err := normalize(v.Value, v.Type)
		if err != nil {
			return 0, &registry.ParseError{Index: i, Err: err}
		}
		v.Value, v.Type = value, typ
		batch = append(batch, v)
	}

	s.Lock()
	defer s.Unlock()

	added := make([]*rules.UserVariable, 0)
	seen := make(map[string]bool)
	for _, v := range batch {
		if seen[v.Key] || s.find(userID, v.Key) != nil {
			continue
		}
		seen[v.Key] = true
		v.ID = s.newID()
		v.UserID = userID
		if err := s.save(v); err != nil {
			s.rollback(added)
			return 0, err
		}
		added = append(added, v)
	}
	s.vars = append(s.vars, added...)
	return len(added), nil
}

func (s *Store) save(v *rules.UserVariable) error {
	if s.kv == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(varKey(v.UserID, v.ID), data, &store.WriteOptions{ContentType: "application/json"})
}

func (s *Store) rollback(saved []*rules.UserVariable) {
	if s.kv == nil {
		return
	}
	for _, v := range saved {
		if err := s.kv.Delete(varKey(v.UserID, v.ID)); err != nil {
			slog.Error("variable import rollback failed", "id", v.ID, "err", err.Error())
		}
	}
}

func (s *Store) find(userID, key string) *rules.UserVariable {
	for _, v := range s.vars {
		if v.UserID == userID && v.Key == key {
			return v
		}
	}
	return nil
}

func (s *Store) indexOf(userID, id string) int {
	for i, v := range s.vars {
		if v.UserID == userID && v.ID == id {
			return i
		}
	}
	return -1
}

func varKey(userID, id string) string {
	return fmt.Sprintf("%s:%s:%s", VAR_PREFIX, userID, id)
}

// normalize checks value against typ. An empty typ is inferred from value.
// Numeric and boolean strings are converted.
func normalize(value interface{}, typ string) (interface{}, string, error) {
	switch strings.ToUpper(typ) {
	case "":
		switch value.(type) {
		case bool:
			return value, rules.VARTYPE_BOOLEAN, nil
		case float64, float32, int, int32, int64:
			return parse.ParseNumber(value), rules.VARTYPE_NUMBER, nil
		}
		return parse.ParseString(value), rules.VARTYPE_STRING, nil
	case rules.VARTYPE_NUMBER:
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return nil, "", ErrInvalidValue
		}
		switch value.(type) {
		case string, float64, float32, int, int32, int64:
		default:
			return nil, "", ErrInvalidValue
		}
		f := parse.ParseNumber(value)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, "", ErrInvalidValue
		}
		return f, rules.VARTYPE_NUMBER, nil
	case rules.VARTYPE_BOOLEAN:
		switch t := value.(type) {
		case bool:
			return t, rules.VARTYPE_BOOLEAN, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(t))
			if err != nil {
				return nil, "", ErrInvalidValue
			}
			return b, rules.VARTYPE_BOOLEAN, nil
		}
		return nil, "", ErrInvalidValue
	case rules.VARTYPE_STRING:
		if value == nil {
			return nil, "", ErrInvalidValue
		}
		return parse.ParseString(value), rules.VARTYPE_STRING, nil
	}
	return nil, "", fmt.Errorf("unknown variable type: %s", typ)
}
