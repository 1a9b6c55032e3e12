package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moonwalker/assetwatch/pkg/elastic"
)

const DEFAULT_HISTORY_INDEX = "assetwatch-notifications"

type indexer interface {
	Index(ctx context.Context, index string, id string, v interface{}) error
	Search(ctx context.Context, index string, query string) (*elastic.ElasticSearchResult, error)
}

// History indexes one document per notification into elasticsearch.
type History struct {
	client indexer
	index  string
}

func NewHistory(client *elastic.Client, index string) *History {
	if index == "" {
		index = DEFAULT_HISTORY_INDEX
	}
	return &History{client: client, index: index}
}

func (h *History) Notify(ctx context.Context, message, title string, opts Options) error {
	opts = opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	n := NewNotification(message, title, opts)
	return h.client.Index(ctx, h.index, n.ID, n)
}

// Recent returns the latest notifications, newest first, optionally only
// those of one alert.
func (h *History) Recent(ctx context.Context, alertID string, size int) ([]*Notification, error) {
	if size <= 0 {
		size = 20
	}
	query := `{"match_all":{}}`
	if alertID != "" {
		q, err := json.Marshal(map[string]interface{}{
			"term": map[string]interface{}{"alertId.keyword": alertID},
		})
		if err != nil {
			return nil, err
		}
		query = string(q)
	}
	body := fmt.Sprintf(`{"size":%d,"sort":[{"time":{"order":"desc"}}],"query":%s}`, size, query)

	res, err := h.client.Search(ctx, h.index, body)
	if err != nil {
		return nil, err
	}

	out := make([]*Notification, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		n := &Notification{}
		if err := json.Unmarshal(hit.Source, n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
