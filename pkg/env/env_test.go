// $ go test -v pkg/env/*.go

package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Setenv("ENV_TEST_STR", "x")
	t.Setenv("ENV_TEST_EMPTY", "")
	assert.Equal(t, "x", Get("ENV_TEST_STR", "d"))
	assert.Equal(t, "d", Get("ENV_TEST_EMPTY", "d"))
	assert.Equal(t, "d", Get("ENV_TEST_UNSET", "d"))
}

func TestIntDuration(t *testing.T) {
	t.Setenv("ENV_TEST_INT", "8")
	t.Setenv("ENV_TEST_BAD", "eight")
	t.Setenv("ENV_TEST_DUR", "90s")
	assert.Equal(t, 8, Int("ENV_TEST_INT", 1))
	assert.Equal(t, 1, Int("ENV_TEST_BAD", 1))
	assert.Equal(t, 90*time.Second, Duration("ENV_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, Duration("ENV_TEST_BAD", time.Second))
}
