// Package fetcher reads pages of records from the source system.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mrlokans/batchsync/internal/httpclient"
	"github.com/mrlokans/batchsync/internal/mapping"
)

// Requester is the subset of the HTTP client the fetcher needs.
type Requester interface {
	Execute(ctx context.Context, spec httpclient.RequestSpec) ([]byte, error)
}

// FetchOptions selects the page to read.
type FetchOptions struct {
	Page   int
	Limit  int
	Cursor string
	Params url.Values
}

type Fetcher struct {
	client Requester
}

func New(client Requester) *Fetcher {
	return &Fetcher{client: client}
}

// FetchPage reads one page from endpoint. Client errors are returned as is;
// retrying is the client's job.
func (f *Fetcher) FetchPage(ctx context.Context, endpoint string, style mapping.PaginationStyle, opts FetchOptions) (*FetchPage, error) {
	raw, err := f.client.Execute(ctx, httpclient.RequestSpec{
		Method: http.MethodGet,
		Path:   endpoint,
		Params: BuildQuery(style, opts),
	})
	if err != nil {
		return nil, err
	}

	page, err := Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("normalizing %s: %w", endpoint, err)
	}
	return page, nil
}

// BuildQuery returns the pagination query for opts. A cursor wins over a page
// number; limit is always sent.
func BuildQuery(style mapping.PaginationStyle, opts FetchOptions) url.Values {
	query := url.Values{}
	for k, v := range opts.Params {
		query[k] = append([]string(nil), v...)
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}

	switch {
	case opts.Cursor != "":
		query.Set("cursor", opts.Cursor)
	case style == mapping.PaginationOffset:
		query.Set("offset", strconv.Itoa((page-1)*opts.Limit))
	default:
		query.Set("page", strconv.Itoa(page))
	}

	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	return query
}
