// Package paginate implements the Paginator: a lazy, cursor-driven
// sequence over timeline-shaped GraphQL responses. It never sorts or
// reorders entries (server order is authoritative) and never interprets
// cursor values beyond passing them back as an opaque "cursor" variable,
// mirroring the next/prev Cursor pairs modeled in
// ef54898c_Davincible-xapi__types.go.go.
package paginate

import (
	"context"

	"github.com/xactions-go/core/internal/xerrors"
	"github.com/xactions-go/core/timeline"
)

// Fetch retrieves one page for the given cursor ("" for the first page)
// and returns its decoded entries plus the raw instructions, so callers
// building on Paginator can still see pin/replace/clear directives.
type Fetch func(ctx context.Context, cursor string) (timeline.Result, []timeline.Instruction, error)

// Page is one batch yielded by a Paginator.
type Page struct {
	Entities []timeline.Entry
	// Unavailable is this page's tally of tombstoned/unavailable entries.
	Unavailable int
}

// Paginator drives Fetch forward across Bottom cursors until the feed
// terminates. It holds no network state of its own beyond the last
// observed Bottom cursor, so a Paginator is cheap to construct and
// discard per logical traversal.
type Paginator struct {
	fetch     Fetch
	max       int
	fetched   int
	lastBot   string
	done      bool
	lastEmpty bool
}

// New constructs a Paginator. max bounds the number of pages fetched (0
// means unbounded); callers traversing unbounded feeds should instead
// bound by context cancellation.
func New(fetch Fetch, max int) *Paginator {
	return &Paginator{fetch: fetch, max: max}
}

// Done reports whether the paginator has reached a terminal state: no
// Bottom cursor in the last page, a fixpoint cursor, two consecutive
// empty batches, or the configured max page count.
func (p *Paginator) Done() bool { return p.done }

// Next fetches and returns the next page, or (Page{}, false, nil) once
// the paginator has terminated. It never re-fetches a page after Done.
func (p *Paginator) Next(ctx context.Context) (Page, bool, error) {
	if p.done {
		return Page{}, false, nil
	}
	if p.max > 0 && p.fetched >= p.max {
		p.done = true
		return Page{}, false, nil
	}

	result, _, err := p.fetch(ctx, p.lastBot)
	if err != nil {
		return Page{}, false, err
	}
	p.fetched++

	var bottom string
	haveBottom := false
	entities := make([]timeline.Entry, 0, len(result.Entries))
	for _, e := range result.Entries {
		if e.Kind == timeline.EntryCursor && e.Cursor != nil && e.Cursor.Position == timeline.Bottom {
			bottom = e.Cursor.Value
			haveBottom = true
			continue
		}
		entities = append(entities, e)
	}

	page := Page{Entities: entities, Unavailable: result.Unavailable}

	switch {
	case !haveBottom:
		// The server stopped advertising a next cursor: the feed has
		// ended.
		p.done = true
	case bottom == p.lastBot && p.lastBot != "":
		// Fixpoint: the server returned the same cursor it was given,
		// meaning there is nothing new to page through.
		p.done = true
	case len(entities) == 0 && p.lastEmpty:
		// Two consecutive empty batches: treat the feed as exhausted
		// rather than looping forever on a server that keeps advertising
		// a cursor with nothing behind it.
		p.done = true
	default:
		p.lastBot = bottom
		p.lastEmpty = len(entities) == 0
	}

	if ctx.Err() != nil {
		p.done = true
		return page, false, xerrors.Wrap(xerrors.Timeout, ctx.Err(), "paginate: context cancelled")
	}

	return page, !p.done || len(entities) > 0 || p.fetched == 1, nil
}

// Collect drains the paginator to completion, returning every page in
// server order. Intended for bounded traversals (small max) and tests;
// unbounded feeds should call Next directly and stream.
func Collect(ctx context.Context, p *Paginator) ([]Page, error) {
	var pages []Page
	for {
		page, ok, err := p.Next(ctx)
		if err != nil {
			return pages, err
		}
		if !ok {
			return pages, nil
		}
		pages = append(pages, page)
		if p.Done() {
			return pages, nil
		}
	}
}
