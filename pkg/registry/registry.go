package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/moonwalker/assetwatch/pkg/rules"
	"github.com/moonwalker/assetwatch/pkg/rules/repo"
)

// Registry is the in-memory set of alert configurations. Mutations are
// serialized and written through to the repository; readers get copies.
type Registry struct {
	sync.RWMutex
	repo   repo.AlertRepo
	alerts []*rules.AlertConfig
	seed   bool
	loaded bool
	newID  func() string
}

type Option func(*Registry)

// WithoutSeed disables the default alerts on an empty repository.
func WithoutSeed() Option {
	return func(r *Registry) { r.seed = false }
}

func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

func New(alertRepo repo.AlertRepo, opts ...Option) *Registry {
	r := &Registry{
		repo:   alertRepo,
		alerts: make([]*rules.AlertConfig, 0),
		seed:   true,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the in-memory set with the repository contents. The default
// alerts are seeded only when the very first load finds the repository empty.
func (r *Registry) Load() error {
	r.Lock()
	defer r.Unlock()

	alerts, err := r.read()
	if err != nil {
		return err
	}

	if len(alerts) == 0 && r.seed && !r.loaded {
		for _, a := range DefaultAlerts() {
			if err := r.repo.Save(a); err != nil {
				return fmt.Errorf("seed default alerts: %w", err)
			}
			alerts = append(alerts, a)
		}
		slog.Info("default alerts seeded", "count", len(alerts))
	}

	r.alerts = alerts
	r.loaded = true
	slog.Info("alerts loaded", "repo", r.repo.Name(), "count", len(alerts))
	return nil
}

// Refresh picks up changes other processes made to the repository. On error
// the current set is kept.
func (r *Registry) Refresh() error {
	r.Lock()
	defer r.Unlock()

	alerts, err := r.read()
	if err != nil {
		return err
	}
	r.alerts = alerts
	r.loaded = true
	slog.Debug("alerts refreshed", "repo", r.repo.Name(), "count", len(alerts))
	return nil
}

func (r *Registry) read() ([]*rules.AlertConfig, error) {
	alerts := make([]*rules.AlertConfig, 0)
	err := r.repo.Each(0, 0, func(a *rules.AlertConfig) {
		alerts = append(alerts, a)
	})
	if err != nil {
		return nil, fmt.Errorf("load alerts from %s: %w", r.repo.Name(), err)
	}
	return alerts, nil
}

// Create stores a copy of config under a fresh id.
func (r *Registry) Create(config *rules.AlertConfig) (*rules.AlertConfig, error) {
	if config == nil {
		return nil, errors.New("nil alert config")
	}

	a := config.Clone()
	a.ID = r.newID()

	r.Lock()
	defer r.Unlock()

	if err := r.repo.Save(a); err != nil {
		return nil, err
	}
	r.alerts = append(r.alerts, a)
	return a.Clone(), nil
}

func (r *Registry) Get(id string) (*rules.AlertConfig, error) {
	r.RLock()
	defer r.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return r.alerts[i].Clone(), nil
}

// Update merges the top-level keys of a JSON object into the stored config.
// The id can not be changed.
func (r *Registry) Update(id string, patch []byte) (*rules.AlertConfig, error) {
	p := gjson.ParseBytes(patch)
	if !gjson.ValidBytes(patch) || !p.IsObject() {
		return nil, &ParseError{Index: -1, Err: errors.New("update must be a json object")}
	}

	r.Lock()
	defer r.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}

	doc, err := json.Marshal(r.alerts[i])
	if err != nil {
		return nil, err
	}

	p.ForEach(func(key, value gjson.Result) bool {
		if key.String() == "id" {
			return true
		}
		doc, err = sjson.SetRawBytes(doc, rules.EscapeKey(key.String()), []byte(value.Raw))
		return err == nil
	})
	if err != nil {
		return nil, &ParseError{Index: -1, Err: err}
	}

	updated := &rules.AlertConfig{}
	if err := json.Unmarshal(doc, updated); err != nil {
		return nil, &ParseError{Index: -1, Err: err}
	}

	if err := r.repo.Save(updated); err != nil {
		return nil, err
	}
	r.alerts[i] = updated
	return updated.Clone(), nil
}

// Delete is idempotent.
func (r *Registry) Delete(id string) error {
	r.Lock()
	defer r.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil
	}
	if err := r.repo.Remove(id); err != nil {
		return err
	}
	r.alerts = append(r.alerts[:i], r.alerts[i+1:]...)
	return nil
}

// Toggle flips the active flag. Unknown ids are ignored.
func (r *Registry) Toggle(id string) error {
	r.Lock()
	defer r.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil
	}

	a := r.alerts[i].Clone()
	a.Active = !a.Active
	if err := r.repo.Save(a); err != nil {
		return err
	}
	r.alerts[i] = a
	return nil
}

// List returns the global alerts and the private alerts of userID.
func (r *Registry) List(userID string) []*rules.AlertConfig {
	r.RLock()
	defer r.RUnlock()

	res := make([]*rules.AlertConfig, 0)
	for _, a := range r.alerts {
		if a.VisibleTo(userID) {
			res = append(res, a.Clone())
		}
	}
	return res
}

// All returns every alert regardless of owner.
func (r *Registry) All() []*rules.AlertConfig {
	r.RLock()
	defer r.RUnlock()

	res := make([]*rules.AlertConfig, 0, len(r.alerts))
	for _, a := range r.alerts {
		res = append(res, a.Clone())
	}
	return res
}

func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.alerts)
}

// Import decodes a JSON array of alert configs and adds them as private
// alerts of owner, each under a fresh id. Either every entry is added or
// none is.
func (r *Registry) Import(payload []byte, owner string) ([]*rules.AlertConfig, error) {
	if !gjson.ValidBytes(payload) {
		return nil, &ParseError{Index: -1, Err: errors.New("invalid json")}
	}
	doc := gjson.ParseBytes(payload)
	if !doc.IsArray() {
		return nil, &ParseError{Index: -1, Err: errors.New("expected a json array")}
	}

	batch := make([]*rules.AlertConfig, 0)
	for i, entry := range doc.Array() {
		if !entry.IsObject() {
			return nil, &ParseError{Index: i, Err: errors.New("entry is not an object")}
		}
		a := &rules.AlertConfig{}
		if err := json.Unmarshal([]byte(entry.Raw), a); err != nil {
			return nil, &ParseError{Index: i, Err: err}
		}
		a.ID = r.newID()
		a.UserID = owner
		a.IsGlobal = false
		batch = append(batch, a)
	}

	r.Lock()
	defer r.Unlock()

	for i, a := range batch {
		if err := r.repo.Save(a); err != nil {
			r.rollback(batch[:i])
			return nil, fmt.Errorf("import alert %d: %w", i, err)
		}
	}
	r.alerts = append(r.alerts, batch...)

	res := make([]*rules.AlertConfig, len(batch))
	for i, a := range batch {
		res[i] = a.Clone()
	}
	return res, nil
}

// Export renders the alerts owned by userID as an indented JSON array.
// Global alerts owned by someone else are left out.
func (r *Registry) Export(userID string) ([]byte, error) {
	r.RLock()
	defer r.RUnlock()

	owned := make([]*rules.AlertConfig, 0)
	for _, a := range r.alerts {
		if userID != "" && a.UserID == userID {
			owned = append(owned, a)
		}
	}
	return json.MarshalIndent(owned, "", "  ")
}

func (r *Registry) rollback(saved []*rules.AlertConfig) {
	for _, a := range saved {
		if err := r.repo.Remove(a.ID); err != nil {
			slog.Error("import rollback failed", "alertId", a.ID, "err", err.Error())
		}
	}
}

func (r *Registry) indexOf(id string) int {
	for i, a := range r.alerts {
		if a.ID == id {
			return i
		}
	}
	return -1
}
