package datasource

import (
	"context"
	"errors"

	"github.com/moonwalker/assetwatch/pkg/rules"
)

var ErrUnknownModule = errors.New("unknown module")

// Source returns the current record collection of a business module. An
// empty collection is a non-nil empty slice.
type Source interface {
	FetchRecords(ctx context.Context, module string) ([]rules.Facts, error)
}

// Router sends each module to its own source. Modules without a source,
// GENERAL included, have no records.
type Router map[string]Source

func (r Router) FetchRecords(ctx context.Context, module string) ([]rules.Facts, error) {
	src, ok := r[module]
	if !ok || src == nil {
		return []rules.Facts{}, nil
	}
	return src.FetchRecords(ctx, module)
}
