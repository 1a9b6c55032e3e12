package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
)

type Client struct {
	es *elasticsearch.Client
}

// NewClient connects to addresses, or to ELASTICSEARCH_URL when none are
// given.
func NewClient(addresses ...string) (*Client, error) {
	var (
		es  *elasticsearch.Client
		err error
	)
	if len(addresses) == 0 {
		es, err = elasticsearch.NewDefaultClient()
	} else {
		es, err = elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	}
	if err != nil {
		return nil, err
	}
	return &Client{es}, nil
}

func (c *Client) DeleteIndex(index string) (bool, error) {
	res, err := c.es.Indices.Delete([]string{strings.ToLower(index)})
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	return res.StatusCode == 200, nil
}

func (c *Client) Index(ctx context.Context, index string, id string, v interface{}) error {
	b, err := json.Marshal(&v)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      strings.ToLower(index),
		DocumentID: id,
		Body:       bytes.NewReader(b),
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		err = responseError("index document", res)
		slog.Error("Elastic document index error",
			"err", err.Error(),
			"index", index,
			"id", id,
		)
		return err
	}

	return nil
}

func (c *Client) Refresh(ctx context.Context, index string) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(strings.ToLower(index)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("refresh index", res)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, index string, query string) (*ElasticSearchResult, error) {
	slog.Debug("Elastic query",
		"query", query,
		"index", index,
	)

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(strings.ToLower(index)),
		c.es.Search.WithBody(strings.NewReader(query)),
	)
	if err != nil {
		slog.Error("Error getting response",
			"err", err.Error(),
			"query", query,
			"index", index,
		)
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("search", res)
	}

	result := &ElasticSearchResult{}
	if err := json.NewDecoder(res.Body).Decode(result); err != nil {
		slog.Error("Error parsing the response body",
			"err", err.Error(),
			"query", query,
			"index", index,
		)
		return nil, err
	}
	return result, nil
}
