// $ go test -v pkg/store/mem/*.go

package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moonwalker/assetwatch/pkg/store"
)

func TestMemStore(t *testing.T) {
	s := New()

	val, err := s.Get("missing")
	assert.NoError(t, err)
	assert.Nil(t, val)

	assert.NoError(t, s.Set("alerts:2", []byte("b"), nil))
	assert.NoError(t, s.Set("alerts:1", []byte("a"), nil))
	assert.NoError(t, s.Set("alerts:3", []byte("c"), nil))
	assert.NoError(t, s.Set("vars:1", []byte("v"), nil))

	ok, err := s.Exists("alerts:1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, s.Count("alerts:"))

	keys := []string{}
	assert.NoError(t, s.Scan("alerts:", 1, 1, func(k string, v []byte) {
		keys = append(keys, k)
	}))
	assert.Equal(t, []string{"alerts:2"}, keys)

	assert.NoError(t, s.DeleteAll("alerts:"))
	assert.Equal(t, 0, s.Count("alerts:"))
	assert.Equal(t, 1, s.Count("vars:"))

	assert.NoError(t, s.Close())
	_, err = s.Get("vars:1")
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestWindow(t *testing.T) {
	in, done := store.Window(0, 1, 0)
	assert.False(t, in)
	assert.False(t, done)

	in, done = store.Window(5, 1, 0)
	assert.True(t, in)
	assert.False(t, done)

	in, done = store.Window(3, 1, 2)
	assert.False(t, in)
	assert.True(t, done)
}
