// $ TEST_POSTGRES_URL=postgres://postgres@localhost?sslmode=disable go test -v pkg/rules/repo/*.go

package repo

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostgresAlertRepo(t *testing.T) {
	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}

	repo, err := NewPostgresAlertRepo(url)
	require.NoError(t, err)
	require.NotNil(t, repo)

	exerciseRepo(t, repo)
}
