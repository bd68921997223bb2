package artifactgraph

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// walkLevels performs a level-synchronous breadth-first walk starting with the nodes in start.
//
// For each level, load is called concurrently for every node in the level, with at most limit
// calls in flight (no limit if limit <= 0).  Once every load in the level has returned, visit is
// called serially, in level order, with each node and its load result; the nodes visit returns
// form the next level, in the order returned.  The walk ends when a level is empty.
//
// visit never runs concurrently with load or with itself, so state it mutates may be read by load
// without synchronization.
//
// If ctx is canceled the walk stops and the cause is returned.  Otherwise, if any load fails, the
// walk stops and the error of the first failing node of the level, in level order, is returned.
// A failed load cancels the loads of the nodes after it but not those before it, so the reported
// error does not depend on which load happened to fail first.
func walkLevels[N, R any](ctx context.Context, start []N, limit int,
	load func(ctx context.Context, n N) (R, error),
	visit func(ctx context.Context, n N, r R) ([]N, error)) (retErr error) {

	slog.DebugContext(ctx, "walkLevels start", "nodes", len(start), "limit", limit)
	nLevels := 0
	nNodes := 0
	defer func() {
		slog.DebugContext(ctx, "walkLevels done", "levels", nLevels, "nodes", nNodes, "err", retErr)
	}()
	for level := start; len(level) > 0; nLevels++ {
		if err := context.Cause(ctx); err != nil {
			return err
		}
		nNodes += len(level)
		results := make([]R, len(level))
		errs := make([]error, len(level))
		ctxs := make([]context.Context, len(level))
		cancels := make([]context.CancelFunc, len(level))
		for i := range level {
			ctxs[i], cancels[i] = context.WithCancel(ctx)
		}
		var mu sync.Mutex
		failed := len(level) // Index of the earliest failed load so far.
		fail := func(i int) {
			mu.Lock()
			defer mu.Unlock()
			if i >= failed {
				return
			}
			// Only loads after i are canceled; an earlier load may still fail and take precedence.
			for j := i + 1; j < failed; j++ {
				cancels[j]()
			}
			failed = i
		}
		var gr errgroup.Group
		if limit > 0 {
			gr.SetLimit(limit)
		}
		for i, n := range level {
			gr.Go(func() error {
				if err := ctxs[i].Err(); err != nil {
					errs[i] = err
					return nil
				}
				results[i], errs[i] = load(ctxs[i], n)
				if errs[i] != nil {
					fail(i)
				}
				return nil
			})
		}
		gr.Wait()
		for _, cancel := range cancels {
			cancel()
		}
		if err := context.Cause(ctx); err != nil {
			return err
		}
		if i := slices.IndexFunc(errs, func(e error) bool { return e != nil }); i >= 0 {
			return errs[i]
		}
		slog.DebugContext(ctx, "walkLevels: level loaded", "level", nLevels, "nodes", len(level))
		var next []N
		for i, n := range level {
			children, err := visit(ctx, n, results[i])
			if err != nil {
				return err
			}
			next = append(next, children...)
		}
		level = next
	}
	return nil
}
