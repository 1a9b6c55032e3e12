// $ go test -v pkg/variables/*.go

package variables

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonwalker/assetwatch/pkg/registry"
	"github.com/moonwalker/assetwatch/pkg/rules"
	boltstore "github.com/moonwalker/assetwatch/pkg/store/bolt"
	memstore "github.com/moonwalker/assetwatch/pkg/store/mem"
)

func TestAddLookup(t *testing.T) {
	s := New(nil)

	v, err := s.Add("u1", rules.UserVariable{Key: "MAX", Value: "5", Type: rules.VARTYPE_NUMBER})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "u1", v.UserID)
	assert.Equal(t, 5.0, v.Value)

	val, ok := s.Lookup("u1", "MAX")
	assert.True(t, ok)
	assert.Equal(t, 5.0, val)

	_, ok = s.Lookup("u2", "MAX")
	assert.False(t, ok)

	_, err = s.Add("u1", rules.UserVariable{Key: "MAX", Value: 7.0})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// keys are unique per user only
	_, err = s.Add("u2", rules.UserVariable{Key: "MAX", Value: 7.0})
	assert.NoError(t, err)
}

func TestAddValidatesType(t *testing.T) {
	s := New(nil)

	_, err := s.Add("u1", rules.UserVariable{Key: "N", Value: "abc", Type: rules.VARTYPE_NUMBER})
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = s.Add("u1", rules.UserVariable{Key: "D", Value: "2024-03-05T10:00:00Z", Type: rules.VARTYPE_NUMBER})
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = s.Add("u1", rules.UserVariable{Key: "B", Value: "maybe", Type: rules.VARTYPE_BOOLEAN})
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = s.Add("u1", rules.UserVariable{Key: "X", Value: 1.0, Type: "DATE"})
	assert.Error(t, err)
	_, err = s.Add("u1", rules.UserVariable{Key: " ", Value: 1.0})
	assert.Error(t, err)

	v, err := s.Add("u1", rules.UserVariable{Key: "B", Value: "true", Type: rules.VARTYPE_BOOLEAN})
	require.NoError(t, err)
	assert.Equal(t, true, v.Value)

	v, err = s.Add("u1", rules.UserVariable{Key: "S", Value: "Dell"})
	require.NoError(t, err)
	assert.Equal(t, rules.VARTYPE_STRING, v.Type)
}

func TestVariableDrivesCondition(t *testing.T) {
	s := New(nil)
	s.Add("u1", rules.UserVariable{Key: "MAX", Value: 5.0, Type: rules.VARTYPE_NUMBER})

	e := rules.NewEvaluator(s)
	g := rules.And(rules.Variable("count", rules.COMPARER_GREATER, "MAX"))
	assert.True(t, e.EvaluateGroup(g, rules.NewFacts(`{"count":6}`), "u1"))
	assert.False(t, e.EvaluateGroup(g, rules.NewFacts(`{"count":6}`), "u2"))
}

func TestUpdateDelete(t *testing.T) {
	s := New(memstore.New())
	v, _ := s.Add("u1", rules.UserVariable{Key: "MAX", Value: 5.0, Type: rules.VARTYPE_NUMBER})

	require.NoError(t, s.Update("u1", v.ID, "9"))
	val, _ := s.Lookup("u1", "MAX")
	assert.Equal(t, 9.0, val)

	assert.ErrorIs(t, s.Update("u1", v.ID, "nine"), ErrInvalidValue)
	assert.ErrorIs(t, s.Update("u2", v.ID, 1.0), ErrNotFound)

	require.NoError(t, s.Delete("u1", v.ID))
	require.NoError(t, s.Delete("u1", v.ID))
	assert.Empty(t, s.List("u1"))
}

func TestPersistence(t *testing.T) {
	kv := boltstore.New(filepath.Join(t.TempDir(), "vars.db"), "assetwatch")
	defer kv.Close()

	s := New(kv)
	s.Add("u1", rules.UserVariable{Key: "MAX", Value: 5.0, Type: rules.VARTYPE_NUMBER})
	s.Add("u1", rules.UserVariable{Key: "MARCA", Value: "Dell", Type: rules.VARTYPE_STRING, Description: "marca preferida"})

	reloaded := New(kv)
	require.NoError(t, reloaded.Load())
	assert.Len(t, reloaded.List("u1"), 2)
	val, ok := reloaded.Lookup("u1", "MARCA")
	assert.True(t, ok)
	assert.Equal(t, "Dell", val)
}

func TestExportImport(t *testing.T) {
	s := New(nil)
	s.Add("u1", rules.UserVariable{Key: "MAX", Value: 5.0, Type: rules.VARTYPE_NUMBER})
	s.Add("u1", rules.UserVariable{Key: "MARCA", Value: "Dell", Type: rules.VARTYPE_STRING})

	out, err := s.Export("u1")
	require.NoError(t, err)
	assert.Contains(t, string(out), `"key": "MAX"`)

	other := New(nil)
	other.Add("u2", rules.UserVariable{Key: "MAX", Value: 1.0, Type: rules.VARTYPE_NUMBER})

	n, err := other.Import(out, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// existing key kept its value
	val, _ := other.Lookup("u2", "MAX")
	assert.Equal(t, 1.0, val)
	val, _ = other.Lookup("u2", "MARCA")
	assert.Equal(t, "Dell", val)

	// preferences document form
	n, err = New(nil).Import([]byte(`{"theme":"dark","variables":[{"key":"A","value":1,"type":"NUMBER"}]}`), "u3")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImportIsAtomic(t *testing.T) {
	s := New(nil)

	_, err := s.Import([]byte(`[{"key":"A","value":1},{"key":"B","value":"x","type":"NUMBER"}]`), "u1")
	var perr *registry.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Index)
	assert.Empty(t, s.List("u1"))

	_, err = s.Import([]byte(`not json`), "u1")
	assert.ErrorAs(t, err, &perr)
	_, err = s.Import([]byte(`{"theme":"dark"}`), "u1")
	assert.ErrorAs(t, err, &perr)
}
