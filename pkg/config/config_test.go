// $ go test -v pkg/config/*.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configYAML = `
tick: 30s
workers: 2
refire: tick
timezone: America/Bogota
repo:
  kind: bolt
  path: /var/lib/assetwatch/alerts.db
datasource:
  kind: http
  baseURL: https://assets.example.com/api
  paths:
    PRESTAMOS: /loans
notify:
  webhook:
    url: https://hooks.example.com/alerts
log:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "assetwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, c.Tick)
	assert.Equal(t, 10*time.Second, c.AlertTimeout)
	assert.Equal(t, "daily", c.Refire)
	assert.Equal(t, "memory", c.Repo.Kind)
	assert.Equal(t, "static", c.Datasource.Kind)
	assert.Equal(t, time.Local, c.Location())
}

func TestLoadFile(t *testing.T) {
	c, err := Load(writeConfig(t, configYAML))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.Tick)
	assert.Equal(t, 10*time.Second, c.AlertTimeout)
	assert.Equal(t, 2, c.Workers)
	assert.Equal(t, "tick", c.Refire)
	assert.Equal(t, "bolt", c.Repo.Kind)
	assert.Equal(t, "/loans", c.Datasource.Paths["PRESTAMOS"])
	assert.Equal(t, "https://hooks.example.com/alerts", c.Notify.Webhook.URL)
	assert.Equal(t, "America/Bogota", c.Location().String())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ASSETWATCH_TICK", "5s")
	t.Setenv("ASSETWATCH_REPO_KIND", "redis")
	t.Setenv("ASSETWATCH_REPO_URL", "redis://localhost:6379")
	t.Setenv("ASSETWATCH_ELASTIC_URL", "http://es1:9200,http://es2:9200")

	c, err := Load(writeConfig(t, configYAML))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.Tick)
	assert.Equal(t, "redis", c.Repo.Kind)
	assert.Equal(t, "redis://localhost:6379", c.Repo.URL)
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, c.Notify.Elastic.Addresses)
}

func TestValidate(t *testing.T) {
	_, err := Load(writeConfig(t, "refire: hourly\n"))
	assert.ErrorContains(t, err, "refire")

	_, err = Load(writeConfig(t, "repo:\n  kind: mongo\n"))
	assert.ErrorContains(t, err, "repo kind")

	_, err = Load(writeConfig(t, "datasource:\n  kind: http\n"))
	assert.ErrorContains(t, err, "baseURL")

	_, err = Load(writeConfig(t, "unknownKey: 1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "timezone: Mars/Olympus\n"))
	assert.ErrorContains(t, err, "timezone")
}
