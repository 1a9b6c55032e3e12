// $ go test -v pkg/rules/repo/*.go

package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonwalker/assetwatch/pkg/rules"
	boltstore "github.com/moonwalker/assetwatch/pkg/store/bolt"
	memstore "github.com/moonwalker/assetwatch/pkg/store/mem"
)

func alertForTest(id string, active bool) *rules.AlertConfig {
	return &rules.AlertConfig{
		ID:       id,
		Name:     "alert " + id,
		Module:   rules.MODULE_INVENTORY,
		StartAt:  "08:00",
		Active:   active,
		RootRule: rules.And(rules.Literal("estado", rules.COMPARER_EQUAL, "REPARACION")),
	}
}

func exerciseRepo(t *testing.T, repo AlertRepo) {
	require.NoError(t, repo.RemoveAll())

	repo.Save(alertForTest("1", true))
	repo.Save(alertForTest("2", true))
	repo.Save(alertForTest("3", true))
	repo.Save(alertForTest("4", true))
	repo.Save(alertForTest("5", false))

	assert.Equal(t, 5, repo.Count())
	assert.Equal(t, 4, repo.Active())

	var ids string
	repo.Each(2, 2, func(a *rules.AlertConfig) {
		ids += a.ID
	})
	assert.Equal(t, "34", ids)

	repo.Remove("1")
	assert.Equal(t, 4, repo.Count())
	assert.Equal(t, 3, repo.Active())

	a2, err := repo.Get("2")
	require.NoError(t, err)
	assert.Equal(t, "alert 2", a2.Name)
	require.Len(t, a2.RootRule.Rules, 1)
	assert.Equal(t, "estado", a2.RootRule.Rules[0].(*rules.Condition).Field)

	a2.Name = "changed"
	require.NoError(t, repo.Save(a2))
	a2, err = repo.Get("2")
	require.NoError(t, err)
	assert.Equal(t, "changed", a2.Name)
	assert.Equal(t, 4, repo.Count())

	_, err = repo.Get("1")
	assert.ErrorIs(t, err, ErrNotFound)

	repo.RemoveAll()
	assert.Equal(t, 0, repo.Count())
}

func TestInMemoryAlertRepo(t *testing.T) {
	exerciseRepo(t, NewInMemoryAlertRepo())
}

func TestInMemoryAlertRepoReturnsCopies(t *testing.T) {
	repo := NewInMemoryAlertRepo()
	a := alertForTest("1", true)
	repo.Save(a)
	a.Name = "mutated"

	got, err := repo.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "alert 1", got.Name)
}

func TestDiskAlertRepo(t *testing.T) {
	repo, err := NewDiskAlertRepo(t.TempDir())
	require.NoError(t, err)
	exerciseRepo(t, repo)
}

func TestDiskAlertRepoYAML(t *testing.T) {
	dir := t.TempDir()
	doc := `
id: y1
nombre: Equipos en reparación
modulo: INVENTARIO
horaInicio: "09:30"
activo: true
rootRule:
  operator: AND
  rules:
    - field: estado
      operator: EQ
      value: REPARACION
    - operator: OR
      rules: []
triggerCondition:
  operator: GT
  value: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reparacion.yaml"), []byte(doc), 0644))

	repo, err := NewDiskAlertRepo(dir)
	require.NoError(t, err)

	a, err := repo.Get("y1")
	require.NoError(t, err)
	assert.Equal(t, "09:30", a.StartAt)
	assert.Equal(t, 2, a.Trigger.Value)
	require.Len(t, a.RootRule.Rules, 2)
	_, isGroup := a.RootRule.Rules[1].(*rules.Group)
	assert.True(t, isGroup)

	a.Active = false
	require.NoError(t, repo.Save(a))
	assert.Equal(t, 1, repo.Count())
	assert.Equal(t, 0, repo.Active())
	_, err = os.Stat(filepath.Join(dir, "reparacion.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestDiskAlertRepoDecodeError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"rootRule":{"rules":[1]}}`), 0644))

	repo, err := NewDiskAlertRepo(dir)
	require.NoError(t, err)

	var derr *DecodeError
	err = repo.Each(0, 0, func(a *rules.AlertConfig) {})
	assert.ErrorAs(t, err, &derr)
}

func TestStoreAlertRepoMem(t *testing.T) {
	exerciseRepo(t, NewStoreAlertRepo("memory", memstore.New()))
}

func TestStoreAlertRepoBolt(t *testing.T) {
	s := boltstore.New(filepath.Join(t.TempDir(), "alerts.db"), "assetwatch")
	repo := NewStoreAlertRepo("bolt", s)
	defer repo.Close()
	exerciseRepo(t, repo)
}
