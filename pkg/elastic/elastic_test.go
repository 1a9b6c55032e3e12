// $ go test -v pkg/elastic/*.go

package elastic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexAndSearch(t *testing.T) {
	var indexed string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/alerts-history/_doc/n1":
			indexed = r.URL.Path
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"result":"created"}`))
		case r.URL.Path == "/alerts-history/_search":
			w.Write([]byte(`{"took":1,"hits":{"total":{"value":1,"relation":"eq"},"hits":[{"_id":"n1","_source":{"alertId":"a1"}}]}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"type":"illegal_argument_exception","reason":"bad"}}`))
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Index(ctx, "Alerts-History", "n1", map[string]string{"alertId": "a1"}))
	assert.Equal(t, "/alerts-history/_doc/n1", indexed)

	res, err := c.Search(ctx, "alerts-history", `{"query":{"match_all":{}}}`)
	require.NoError(t, err)
	require.Len(t, res.Hits.Hits, 1)
	assert.Equal(t, "n1", res.Hits.Hits[0].ID)

	err = c.Index(ctx, "other", "x", map[string]string{})
	assert.ErrorContains(t, err, "illegal_argument_exception")
}
