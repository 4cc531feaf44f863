// Package decode runs the fetch, parse and render pipeline for one or many
// document refs.
package decode

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/henri123lemoine/gridmsg/internal/debug"
	"github.com/henri123lemoine/gridmsg/internal/grid"
	"github.com/henri123lemoine/gridmsg/internal/parse"
	"github.com/henri123lemoine/gridmsg/internal/source"
)

// NoGridMessage is shown in place of a grid for a document without triples.
const NoGridMessage = "No valid grid data found in the document."

// Fetcher retrieves a document by ref. *source.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*source.Document, error)
}

// Refresher is a Fetcher that can skip its caches. *source.Fetcher
// implements it.
type Refresher interface {
	Refresh(ctx context.Context, ref string) (*source.Document, error)
}

// Result is one decoded document.
type Result struct {
	Ref       string        `json:"ref"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Rows      []string      `json:"rows"`
	Triples   int           `json:"triples"`
	FromCache bool          `json:"from_cache"`
	Elapsed   time.Duration `json:"-"`

	// Err is set instead of failing the batch when DecodeAll runs with
	// KeepGoing.
	Err error `json:"-"`
}

// Empty reports whether the document held no triples.
func (r *Result) Empty() bool {
	return r.Err == nil && len(r.Rows) == 0
}

// Options configures a Decoder.
type Options struct {
	Parse parse.Options

	// MaxCells caps grid size; see grid.Renderer.
	MaxCells int

	// Concurrency bounds DecodeAll; values below 1 mean 1.
	Concurrency int

	// KeepGoing records per-ref failures on the Result instead of stopping
	// the batch.
	KeepGoing bool
}

// Decoder turns refs into rendered grids.
type Decoder struct {
	fetcher  Fetcher
	renderer *grid.Renderer
	opts     Options
}

// New creates a Decoder.
func New(fetcher Fetcher, opts Options) *Decoder {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Decoder{
		fetcher:  fetcher,
		renderer: &grid.Renderer{MaxCells: opts.MaxCells},
		opts:     opts,
	}
}

// Decode fetches ref and renders its grid.
func (d *Decoder) Decode(ctx context.Context, ref string) (*Result, error) {
	return d.decode(ctx, ref, d.fetcher.Fetch)
}

// Refresh is Decode with cache lookups skipped. Fetchers that are not a
// Refresher fall back to Fetch.
func (d *Decoder) Refresh(ctx context.Context, ref string) (*Result, error) {
	if r, ok := d.fetcher.(Refresher); ok {
		return d.decode(ctx, ref, r.Refresh)
	}
	return d.Decode(ctx, ref)
}

func (d *Decoder) decode(ctx context.Context, ref string, fetch func(context.Context, string) (*source.Document, error)) (*Result, error) {
	start := time.Now()

	doc, err := fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref, err)
	}

	res, err := d.DecodeDocument(doc)
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// DecodeDocument parses and renders an already fetched document.
func (d *Decoder) DecodeDocument(doc *source.Document) (*Result, error) {
	defer debug.Timed("decode " + doc.Ref)()

	triples, err := parse.Parse(doc.Body, doc.ContentType, d.opts.Parse)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Ref, err)
	}

	g, err := d.renderer.Build(triples)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", doc.Ref, err)
	}

	debug.Logw("rendered grid", "ref", doc.Ref, "triples", len(triples), "width", g.Width(), "height", g.Height())
	return &Result{
		Ref:       doc.Ref,
		Width:     g.Width(),
		Height:    g.Height(),
		Rows:      g.Rows(),
		Triples:   len(triples),
		FromCache: doc.FromCache,
	}, nil
}

// DecodeAll decodes refs concurrently and returns results in input order.
// Without KeepGoing the first failure cancels the rest and is returned.
func (d *Decoder) DecodeAll(ctx context.Context, refs []string) ([]*Result, error) {
	results := make([]*Result, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			res, err := d.Decode(gctx, ref)
			if err != nil {
				if !d.opts.KeepGoing {
					return err
				}
				debug.Log("decode failed, continuing: %v", err)
				res = &Result{Ref: ref, Err: err}
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
