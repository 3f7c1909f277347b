package runner

import (
	"context"
	"fmt"
)

// PageMeta is the pagination block reported by the server.
type PageMeta struct {
	Page         int `json:"page"`
	PerPage      int `json:"perPage"`
	TotalRecords int `json:"totalRecords"`
	TotalPages   int `json:"totalPages"`
}

// Page is one page of a paginated listing.
type Page[I any] struct {
	Meta PageMeta `json:"meta"`
	Data []I      `json:"data"`
}

// PageFunc fetches the page with the given 1-based number.
type PageFunc[I any] func(ctx context.Context, page int) (Page[I], error)

// PageError reports a failed page fetch. It aborts the whole crawl.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// PageCursor tracks the next page to fetch.
type PageCursor struct {
	Page    int
	HasMore bool
}

// NewPageCursor returns a cursor positioned on page 1.
func NewPageCursor() PageCursor {
	return PageCursor{Page: 1, HasMore: true}
}

// Accepts reports whether a fetched page carries work. Both the item list and
// the reported record count must be non-empty; a page that disagrees with
// itself ends the crawl.
func Accepts[I any](p Page[I]) bool {
	return len(p.Data) > 0 && p.Meta.TotalRecords > 0
}

// Advance moves past a processed page. The cursor keeps going only while the
// server reports more pages than the one just handled.
func (c *PageCursor) Advance(meta PageMeta) {
	if meta.TotalPages > c.Page {
		c.Page++
		return
	}
	c.HasMore = false
}

// Stop ends the walk.
func (c *PageCursor) Stop() {
	c.HasMore = false
}

// walk visits every accepted page in order. A fetch error is wrapped in
// *PageError and returned immediately.
func walk[I any](ctx context.Context, fetch PageFunc[I], visit func(Page[I])) error {
	cursor := NewPageCursor()
	for cursor.HasMore {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := fetch(ctx, cursor.Page)
		if err != nil {
			return &PageError{Page: cursor.Page, Err: err}
		}
		if !Accepts(page) {
			cursor.Stop()
			break
		}
		visit(page)
		cursor.Advance(page.Meta)
	}
	return nil
}

// Crawl walks a paginated listing and dispatches one perItem unit for every
// item of every page, waiting for each page's batch before fetching the next.
// On error the outcomes gathered before the failing page are returned with it.
//
// Rate pacing spans the whole crawl, not each page.
//
// The walk is not capped: a server that always reports more pages than the
// current one is crawled forever.
func Crawl[I, R any](ctx context.Context, opts Options, fetch PageFunc[I], perItem func(I) Unit[R]) ([]Outcome[R], error) {
	opts = opts.Shared()
	var outcomes []Outcome[R]
	err := walk(ctx, fetch, func(page Page[I]) {
		units := make([]Unit[R], len(page.Data))
		for i, item := range page.Data {
			units[i] = perItem(item)
		}
		outcomes = append(outcomes, Dispatch(ctx, opts, units)...)
	})
	return outcomes, err
}

// CollectAll gathers the items of every page of a listing.
func CollectAll[I any](ctx context.Context, fetch PageFunc[I]) ([]I, error) {
	var items []I
	err := walk(ctx, fetch, func(page Page[I]) {
		items = append(items, page.Data...)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
