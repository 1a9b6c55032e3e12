package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"

	"github.com/moonwalker/assetwatch/pkg/rules"
)

// DefaultPaths maps modules to the REST endpoints of the asset API.
var DefaultPaths = map[string]string{
	rules.MODULE_LOANS:     "/prestamos",
	rules.MODULE_INVENTORY: "/inventario",
	rules.MODULE_HANDOVER:  "/actas/listar-pendientes",
}

// HTTP fetches module records from a REST API answering with a JSON array
// (or an object wrapping it in "data").
type HTTP struct {
	client *req.Client
	paths  map[string]string
}

func NewHTTP(baseURL, token string, timeout time.Duration) *HTTP {
	client := req.C().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetCommonHeader("accept", "application/json").
		SetUserAgent("assetwatch")
	if token != "" {
		client.SetCommonBearerAuthToken(token)
	}
	return &HTTP{client: client, paths: DefaultPaths}
}

// WithPaths overrides the module endpoints.
func (h *HTTP) WithPaths(paths map[string]string) *HTTP {
	h.paths = paths
	return h
}

func (h *HTTP) FetchRecords(ctx context.Context, module string) ([]rules.Facts, error) {
	path, ok := h.paths[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, module)
	}

	resp, err := h.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", module, err)
	}
	if resp.IsErrorState() {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", module, resp.Status)
	}

	body := resp.Bytes()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("fetch %s: invalid json response", module)
	}
	doc := gjson.ParseBytes(body)
	if doc.IsObject() && doc.Get("data").IsArray() {
		doc = doc.Get("data")
	}
	if !doc.IsArray() {
		return nil, fmt.Errorf("fetch %s: expected a json array", module)
	}

	records := make([]rules.Facts, 0)
	doc.ForEach(func(_, value gjson.Result) bool {
		if value.IsObject() {
			records = append(records, rules.Facts(value.Raw))
		}
		return true
	})
	return records, nil
}
