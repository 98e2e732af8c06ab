package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/budget/internal/model"

	"golang.org/x/sync/errgroup"
)

// maxWorkers bounds concurrent window fetches.
const maxWorkers = 4

// windowDays is the span of one window of transaction requests.
const windowDays = 31

// pageSize is the largest page the transactions endpoint serves.
const pageSize = 100

// Source lists transactions; *api.Client satisfies it.
type Source interface {
	Transactions(ctx context.Context, f model.TransactionFilter) ([]model.Transaction, error)
}

// LoadResult holds the output of the transaction loading pipeline.
type LoadResult struct {
	Transactions []model.Transaction
	Windows      int
	Pages        int
	Duplicates   int
}

// ProgressFunc is called during loading to report progress.
// current is the number of windows fetched so far, total is the total count.
type ProgressFunc func(current, total int)

// Load fetches every transaction dated in [since, until) by splitting the
// range into month-sized windows fetched by a bounded worker pool. Each window
// is paged with limit/offset until the server returns a short page. Any failed
// page fails the load. The result is sorted newest first with duplicates
// removed by ID.
func Load(ctx context.Context, src Source, since, until time.Time, categoryID string, progressFn ProgressFunc) (*LoadResult, error) {
	windows := splitWindows(since, until)
	result := &LoadResult{Windows: len(windows)}
	if len(windows) == 0 {
		return result, nil
	}

	results := make([][]model.Transaction, len(windows))
	var processed, pages atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, w := range windows {
		g.Go(func() error {
			txs, n, err := fetchWindow(gctx, src, w, categoryID)
			if err != nil {
				return fmt.Errorf("transactions %s..%s: %w", w.start.Format(time.DateOnly), w.end.Format(time.DateOnly), err)
			}
			results[i] = txs
			pages.Add(int64(n))
			done := processed.Add(1)
			if progressFn != nil {
				progressFn(int(done), len(windows))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	result.Pages = int(pages.Load())

	seen := make(map[string]struct{})
	for _, txs := range results {
		for _, tx := range txs {
			if _, dup := seen[tx.ID]; dup {
				result.Duplicates++
				continue
			}
			seen[tx.ID] = struct{}{}
			result.Transactions = append(result.Transactions, tx)
		}
	}
	result.Transactions = FilterByTime(result.Transactions, since, until)
	slices.SortStableFunc(result.Transactions, func(a, b model.Transaction) int {
		return b.TransactionDate.Compare(a.TransactionDate.Time)
	})

	return result, nil
}

// fetchWindow pages through one window and returns its transactions and the
// number of pages requested. A full page that adds no unseen IDs means the
// server is ignoring the offset; that is an error rather than a loop.
func fetchWindow(ctx context.Context, src Source, w window, categoryID string) ([]model.Transaction, int, error) {
	var out []model.Transaction
	seen := make(map[string]struct{})
	offset := 0
	for n := 1; ; n++ {
		page, err := src.Transactions(ctx, model.TransactionFilter{
			CategoryID: categoryID,
			Since:      w.start.Format(time.DateOnly),
			Until:      w.end.Format(time.DateOnly),
			Limit:      pageSize,
			Offset:     offset,
		})
		if err != nil {
			return nil, n, fmt.Errorf("offset %d: %w", offset, err)
		}
		offset += len(page)
		fresh := 0
		for _, tx := range page {
			if _, dup := seen[tx.ID]; dup {
				continue
			}
			seen[tx.ID] = struct{}{}
			out = append(out, tx)
			fresh++
		}
		if len(page) < pageSize {
			return out, n, nil
		}
		if fresh == 0 {
			return nil, n, errors.New("server returned a repeated page")
		}
	}
}

type window struct {
	start, end time.Time // inclusive calendar days
}

// splitWindows covers the calendar days of [since, until) with
// non-overlapping inclusive windows of at most windowDays days.
func splitWindows(since, until time.Time) []window {
	if since.IsZero() || until.IsZero() || !until.After(since) {
		return nil
	}
	last := startOfDay(until.Add(-time.Nanosecond))

	var out []window
	for start := startOfDay(since); !start.After(last); {
		end := start.AddDate(0, 0, windowDays-1)
		if end.After(last) {
			end = last
		}
		out = append(out, window{start: start, end: end})
		start = end.AddDate(0, 0, 1)
	}
	return out
}
