// Package recognize runs a recognition engine over normalized pages and
// aggregates per-page output into one document result.
//
// Pages are processed under a per-page deadline. A page that misses its
// deadline is abandoned and recorded as failed; remaining pages still run.
// The request fails outright only when no page yields text.
package recognize

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/ocrpipe/normalize"
)

// PageResult is one page's recognized text with the engine's confidence
// for that page, in [0,1].
type PageResult struct {
	Text       string
	Confidence float64
}

// Engine recognizes text on a single page bitmap. Implementations must be
// safe for concurrent use or serialize internally.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, page normalize.Page) (PageResult, error)
}

// Result is the aggregated document outcome.
//
// Text joins page texts with a form-feed separator in page order.
// Confidence is the mean of per-page confidences weighted by page text
// length, so long pages dominate short ones. Partial is set when some
// but not all pages failed.
type Result struct {
	Text        string
	Confidence  float64
	Pages       int
	FailedPages []int
	Partial     bool
}

// PageSeparator joins recognized pages in Result.Text.
const PageSeparator = "\f"

// Config configures the extractor.
type Config struct {
	// PageTimeout bounds recognition of a single page (default: 30s).
	PageTimeout time.Duration

	// Parallelism is the number of pages recognized concurrently
	// (default: 1, sequential).
	Parallelism int

	// Logger for per-page progress and failures.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.PageTimeout <= 0 {
		c.PageTimeout = 30 * time.Second
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Extractor drives an Engine across a document's pages.
type Extractor struct {
	engine Engine
	cfg    Config
	logger *slog.Logger
}

// New creates an Extractor around the given engine.
func New(engine Engine, cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{engine: engine, cfg: cfg, logger: cfg.Logger}
}

// Extract recognizes every page and aggregates the outcome. Page order in
// the result matches input order regardless of parallelism.
func (x *Extractor) Extract(ctx context.Context, pages []normalize.Page) (*Result, error) {
	if len(pages) == 0 {
		return nil, &UnavailableError{Engine: x.engine.Name(), Reason: "no pages to recognize"}
	}

	results := make([]PageResult, len(pages))
	errs := make([]error, len(pages))

	if x.cfg.Parallelism > 1 && len(pages) > 1 {
		x.runParallel(ctx, pages, results, errs)
	} else {
		for i, page := range pages {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				continue
			}
			results[i], errs[i] = x.recognizePage(ctx, page)
		}
	}

	return x.aggregate(pages, results, errs)
}

func (x *Extractor) runParallel(ctx context.Context, pages []normalize.Page, results []PageResult, errs []error) {
	sem := make(chan struct{}, x.cfg.Parallelism)
	var wg sync.WaitGroup
	for i, page := range pages {
		wg.Add(1)
		go func(i int, page normalize.Page) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return
			}
			results[i], errs[i] = x.recognizePage(ctx, page)
		}(i, page)
	}
	wg.Wait()
}

// recognizePage runs the engine under the page deadline. The engine call
// runs in its own goroutine with a buffered channel so an overdue page can
// be abandoned without leaking the sender.
func (x *Extractor) recognizePage(ctx context.Context, page normalize.Page) (PageResult, error) {
	pageCtx, cancel := context.WithTimeout(ctx, x.cfg.PageTimeout)
	defer cancel()

	type outcome struct {
		res PageResult
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := x.engine.Recognize(pageCtx, page)
		ch <- outcome{res, err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			x.logger.Warn("page recognition failed",
				"engine", x.engine.Name(), "page", page.Index, "error", out.err)
		}
		return out.res, out.err
	case <-pageCtx.Done():
		x.logger.Warn("page recognition abandoned",
			"engine", x.engine.Name(), "page", page.Index, "timeout", x.cfg.PageTimeout)
		if ctx.Err() != nil {
			return PageResult{}, ctx.Err()
		}
		return PageResult{}, &TimeoutError{Page: page.Index, Deadline: x.cfg.PageTimeout}
	}
}

func (x *Extractor) aggregate(pages []normalize.Page, results []PageResult, errs []error) (*Result, error) {
	var (
		texts     []string
		failed    []int
		weightSum float64
		confSum   float64
		firstErr  error
	)
	for i := range pages {
		if errs[i] != nil {
			failed = append(failed, pages[i].Index)
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		texts = append(texts, results[i].Text)
		w := float64(len(results[i].Text))
		if w == 0 {
			w = 1
		}
		weightSum += w
		confSum += results[i].Confidence * w
	}
	sort.Ints(failed)

	if len(texts) == 0 {
		if firstErr == nil {
			firstErr = &UnavailableError{Engine: x.engine.Name(), Reason: "no pages recognized"}
		}
		return nil, firstErr
	}

	res := &Result{
		Text:        strings.Join(texts, PageSeparator),
		Pages:       len(pages),
		FailedPages: failed,
		Partial:     len(failed) > 0,
	}
	if weightSum > 0 {
		res.Confidence = confSum / weightSum
	}
	return res, nil
}
