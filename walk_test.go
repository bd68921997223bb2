package artifactgraph

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/go-cmp/cmp"
)

type tNode string
type tGraph map[tNode][]tNode

func TestWalkLevels(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		desc string
		g    tGraph
		want []tNode
	}{
		{
			desc: "single node",
			g:    tGraph{"a": nil},
			want: []tNode{"a"},
		},
		{
			desc: "simple dep",
			g:    tGraph{"a": {"b"}, "b": nil},
			want: []tNode{"a", "b"},
		},
		{
			desc: "cycle",
			g:    tGraph{"a": {"b"}, "b": {"a"}},
			want: []tNode{"a", "b"},
		},
		{
			desc: "levels",
			g: tGraph{
				"a": {"c", "b"},
				"b": {"d"},
				"c": {"e", "d"},
				"d": {"a"},
				"e": nil,
			},
			want: []tNode{"a", "c", "b", "e", "d"},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()
			// Each run has some random sleeps to try to exercise the parallelism.
			for i := range 10 {
				t.Run(strconv.Itoa(i), func(t *testing.T) {
					t.Parallel()
					seen := mapset.NewThreadUnsafeSet[tNode]("a")
					var got []tNode
					var loads atomic.Int32
					load := func(ctx context.Context, n tNode) ([]tNode, error) {
						time.Sleep(rand.N(5 * time.Millisecond))
						if err := context.Cause(ctx); err != nil {
							t.Error(err)
						}
						loads.Add(1)
						return tc.g[n], nil
					}
					visit := func(ctx context.Context, n tNode, children []tNode) ([]tNode, error) {
						got = append(got, n)
						var next []tNode
						for _, c := range children {
							if seen.Add(c) {
								next = append(next, c)
							}
						}
						return next, nil
					}
					if err := walkLevels(t.Context(), []tNode{"a"}, 0, load, visit); err != nil {
						t.Fatal(err)
					}
					if diff := cmp.Diff(tc.want, got); diff != "" {
						t.Errorf("visit order differs (-want +got):\n%s", diff)
					}
					if got, want := int(loads.Load()), len(tc.want); got != want {
						t.Errorf("got %v loads, want %v", got, want)
					}
				})
			}
		})
	}
}

func TestWalkLevels_ParallelLoads(t *testing.T) {
	// Every load of the fan-out level blocks until all of them have started, which only works if
	// they run concurrently.
	t.Parallel()
	g := newHighFanOutFanInGraph(t)
	var started sync.WaitGroup
	started.Add(len(g["a"]))
	release := make(chan struct{})
	go func() {
		started.Wait()
		close(release)
	}()
	load := func(ctx context.Context, n tNode) ([]tNode, error) {
		if n != "a" && n != "c" {
			started.Done()
			select {
			case <-ctx.Done():
				return nil, context.Cause(ctx)
			case <-release:
			}
		}
		return g[n], nil
	}
	seen := mapset.NewThreadUnsafeSet[tNode]("a")
	visit := func(ctx context.Context, n tNode, children []tNode) ([]tNode, error) {
		var next []tNode
		for _, c := range children {
			if seen.Add(c) {
				next = append(next, c)
			}
		}
		return next, nil
	}
	if err := walkLevels(t.Context(), []tNode{"a"}, 0, load, visit); err != nil {
		t.Fatal(err)
	}
	if got, want := seen.Cardinality(), len(g); got != want {
		t.Errorf("got %v nodes, want %v", got, want)
	}
}

func TestWalkLevels_Limit(t *testing.T) {
	t.Parallel()
	for _, limit := range []int{1, 3, 8} {
		t.Run(strconv.Itoa(limit), func(t *testing.T) {
			t.Parallel()
			start := make([]tNode, 40)
			for i := range start {
				start[i] = tNode(strconv.Itoa(i))
			}
			var inFlight, maxInFlight atomic.Int32
			load := func(ctx context.Context, n tNode) (struct{}, error) {
				cur := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					m := maxInFlight.Load()
					if cur <= m || maxInFlight.CompareAndSwap(m, cur) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				return struct{}{}, nil
			}
			visit := func(context.Context, tNode, struct{}) ([]tNode, error) { return nil, nil }
			if err := walkLevels(t.Context(), start, limit, load, visit); err != nil {
				t.Fatal(err)
			}
			if got := maxInFlight.Load(); got < 1 || got > int32(limit) {
				t.Errorf("got %v concurrent loads, want between 1 and %v", got, limit)
			}
		})
	}
}

func TestWalkLevels_ErrorHandling(t *testing.T) {
	t.Parallel()
	t.Run("load", func(t *testing.T) {
		t.Parallel()
		// All loads fail without observing cancellation; the error of the first node in the level
		// must win regardless of which load failed first.
		start := make([]tNode, 20)
		for i := range start {
			start[i] = tNode(fmt.Sprintf("b_%v", i))
		}
		for range 10 {
			load := func(ctx context.Context, n tNode) (struct{}, error) {
				time.Sleep(rand.N(2 * time.Millisecond))
				return struct{}{}, errors.New(string(n))
			}
			var visits atomic.Int32
			visit := func(context.Context, tNode, struct{}) ([]tNode, error) {
				visits.Add(1)
				return nil, nil
			}
			err := walkLevels(t.Context(), start, 4, load, visit)
			if err == nil || err.Error() != "b_0" {
				t.Errorf("got error %v, want b_0", err)
			}
			if got := visits.Load(); got != 0 {
				t.Errorf("got %v visits after a failed load, want 0", got)
			}
		}
	})
	t.Run("visit", func(t *testing.T) {
		t.Parallel()
		var loads atomic.Int32
		load := func(ctx context.Context, n tNode) (struct{}, error) {
			loads.Add(1)
			return struct{}{}, nil
		}
		var visited []tNode
		visit := func(ctx context.Context, n tNode, _ struct{}) ([]tNode, error) {
			visited = append(visited, n)
			if n == "b" {
				return nil, testErr
			}
			return []tNode{n + "'"}, nil
		}
		err := walkLevels(t.Context(), []tNode{"a", "b", "c"}, 0, load, visit)
		if !errors.Is(err, testErr) {
			t.Errorf("got error %v, want %v", err, testErr)
		}
		if diff := cmp.Diff([]tNode{"a", "b"}, visited); diff != "" {
			t.Errorf("visits differ (-want +got):\n%s", diff)
		}
		if got := loads.Load(); got != 3 {
			t.Errorf("got %v loads, want 3", got)
		}
	})
}

func TestWalkLevels_ContextCancel(t *testing.T) {
	// Strategy:
	//   1. Block every load of the high fan-out level.
	//   2. Once they are all running, fail the first one.
	//   3. Count the number of ctx.Done() events; should add up to N-1.
	t.Parallel()
	g := newHighFanOutFanInGraph(t)
	var readyGr, doneGr sync.WaitGroup
	num := len(g["a"])
	first := g["a"][0]
	readyGr.Add(num)
	doneGr.Add(num)
	var gotCtxDone atomic.Int32
	load := func(ctx context.Context, n tNode) ([]tNode, error) {
		if n == "a" {
			return g[n], nil
		}
		readyGr.Done()
		defer doneGr.Done()
		if n == first {
			readyGr.Wait()
			return nil, testErr
		}
		<-ctx.Done()
		gotCtxDone.Add(1)
		return nil, ctx.Err()
	}
	visit := func(ctx context.Context, n tNode, children []tNode) ([]tNode, error) {
		return children, nil
	}
	gotErr := walkLevels(t.Context(), []tNode{"a"}, 0, load, visit)
	if !errors.Is(gotErr, testErr) {
		t.Errorf("got error %v, want %v", gotErr, testErr)
	}
	doneGr.Wait()
	if got, want := gotCtxDone.Load(), int32(num-1); got != want {
		t.Errorf("got %v context cancelations, want %v", got, want)
	}
}

func TestWalkLevels_EarlierFailureWins(t *testing.T) {
	t.Parallel()
	errFirst := errors.New("first")
	errSecond := errors.New("second")
	secondFailed := make(chan struct{})
	load := func(ctx context.Context, n tNode) (struct{}, error) {
		switch n {
		case "first":
			<-secondFailed
			if err := ctx.Err(); err != nil {
				t.Errorf("load of %v canceled after a later node failed: %v", n, err)
			}
			return struct{}{}, errFirst
		case "second":
			defer close(secondFailed)
			return struct{}{}, errSecond
		}
		<-ctx.Done()
		return struct{}{}, ctx.Err()
	}
	visit := func(context.Context, tNode, struct{}) ([]tNode, error) { return nil, nil }
	err := walkLevels(t.Context(), []tNode{"first", "second", "third"}, 0, load, visit)
	if !errors.Is(err, errFirst) {
		t.Errorf("got error %v, want %v", err, errFirst)
	}
}

func TestWalkLevels_ParentCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancelCause(t.Context())
	load := func(ctx context.Context, n tNode) (struct{}, error) {
		cancel(testErr)
		<-ctx.Done()
		return struct{}{}, ctx.Err()
	}
	visit := func(context.Context, tNode, struct{}) ([]tNode, error) {
		t.Error("visit called after cancellation")
		return nil, nil
	}
	if err := walkLevels(ctx, []tNode{"a", "b"}, 0, load, visit); !errors.Is(err, testErr) {
		t.Errorf("got error %v, want %v", err, testErr)
	}
}

func newHighFanOutFanInGraph(t *testing.T) tGraph {
	t.Helper()
	g := tGraph{
		"a": nil,
		"c": nil,
	}
	const fanOut = 1000
	for i := range fanOut {
		n := tNode(fmt.Sprintf("b_%v", i))
		g["a"] = append(g["a"], n)
		g[n] = []tNode{"c"}
	}
	slices.Sort(g["a"])
	return g
}

type testError struct{}

func (_ testError) Error() string {
	return "testError"
}

var testErr error = testError{}
