package rules

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Facts is a single JSON encoded record of a module data context.
type Facts []byte

func NewFacts(data interface{}) Facts {
	switch v := data.(type) {
	case Facts:
		return v
	case []byte:
		return Facts(v)
	case string:
		return Facts(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return Facts(b)
	}
}

func (f Facts) Get(path string) gjson.Result {
	return gjson.GetBytes(f, path)
}

// Field walks a dot separated path through nested objects. Segments are
// matched literally, so gjson wildcards and modifiers have no effect.
func (f Facts) Field(path string) gjson.Result {
	return f.Get(escapePath(path))
}

func (f *Facts) Set(path string, value interface{}) (err error) {
	*f, err = sjson.SetBytes(*f, path, value)
	return
}

func (f *Facts) SetRaw(path string, raw []byte) (err error) {
	*f, err = sjson.SetRawBytes(*f, path, raw)
	return
}

func (f Facts) MarshalJSON() ([]byte, error) {
	if len(f) == 0 {
		return []byte("null"), nil
	}
	return f, nil
}

func (f *Facts) UnmarshalJSON(data []byte) error {
	*f = append((*f)[:0], data...)
	return nil
}

func (f Facts) String() string {
	return string(f)
}

func (f Facts) Map() map[string]interface{} {
	res, ok := gjson.ParseBytes(f).Value().(map[string]interface{})
	if !ok {
		return nil
	}
	return res
}

const pathSpecials = `\*?|#@!=<>%`

func escapePath(path string) string {
	segs := strings.Split(path, ".")
	for i, s := range segs {
		segs[i] = EscapeKey(s)
	}
	return strings.Join(segs, ".")
}

// EscapeKey escapes a single object key for use in a gjson/sjson path.
func EscapeKey(key string) string {
	if !strings.ContainsAny(key, pathSpecials+".") {
		return key
	}
	var sb strings.Builder
	for _, r := range key {
		if strings.ContainsRune(pathSpecials+".", r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
