package repo

import (
	"encoding/json"
	"errors"
	"fmt"

	yaml "gopkg.in/yaml.v2"

	"github.com/moonwalker/assetwatch/pkg/rules"
)

var ErrNotFound = errors.New("alert not found")

// AlertRepo persists alert configurations. Each visits alerts in a stable
// order; implementations return copies, never shared pointers.
type AlertRepo interface {
	Name() string
	Get(id string) (*rules.AlertConfig, error)
	Save(alert *rules.AlertConfig) error
	Remove(id string) error
	RemoveAll() error
	Each(skip int, limit int, fn func(alert *rules.AlertConfig)) error
	Count() int
	Active() int
	Close()
}

func isJson(data []byte) bool {
	var js json.RawMessage
	return json.Unmarshal(data, &js) == nil
}

// decode reads one alert from JSON or YAML. YAML documents are converted to
// JSON first so rule trees go through the same node decoding.
func decode(data []byte) (*rules.AlertConfig, error) {
	if !isJson(data) {
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		b, err := json.Marshal(jsonCompatible(doc))
		if err != nil {
			return nil, err
		}
		data = b
	}

	a := &rules.AlertConfig{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, err
	}
	return a, nil
}

// yaml.v2 decodes mappings as map[interface{}]interface{}
func jsonCompatible(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = jsonCompatible(val)
		}
		return m
	case []interface{}:
		for i, val := range t {
			t[i] = jsonCompatible(val)
		}
		return t
	}
	return v
}

func countActive(r AlertRepo) int {
	count := 0
	r.Each(0, 0, func(a *rules.AlertConfig) {
		if a.Active {
			count++
		}
	})
	return count
}
