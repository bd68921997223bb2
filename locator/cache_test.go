package locator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	ag "github.com/rhansen/artifactgraph"
	"github.com/stretchr/testify/require"
)

// countingLocator counts calls to the wrapped locator.  If gate is non-nil, DirectDependencies
// signals entered and then blocks until gate is closed.
type countingLocator struct {
	ag.Locator
	deps, props atomic.Int32
	entered     chan struct{}
	gate        chan struct{}
}

func (l *countingLocator) DirectDependencies(ctx context.Context, c ag.Coordinate) ([]ag.DeclaredDependency, error) {
	if l.deps.Add(1) == 1 && l.gate != nil {
		close(l.entered)
		<-l.gate
	}
	return l.Locator.DirectDependencies(ctx, c)
}

func (l *countingLocator) Properties(ctx context.Context, c ag.Coordinate) (map[string]string, error) {
	l.props.Add(1)
	return l.Locator.Properties(ctx, c)
}

func newTestStatic(coords ...string) *Static {
	s := NewStatic()
	for _, c := range coords {
		s.Add(ag.MustParseCoordinate(c), Entry{Properties: map[string]string{"coord": c}})
	}
	return s
}

func TestCached_Hit(t *testing.T) {
	t.Parallel()
	cl := &countingLocator{Locator: newTestStatic("g:a:1")}
	c, err := NewCached(cl, 16)
	require.NoError(t, err)
	a := ag.MustParseCoordinate("g:a:1")
	for range 3 {
		_, err := c.DirectDependencies(t.Context(), a)
		require.NoError(t, err)
		props, err := c.Properties(t.Context(), a)
		require.NoError(t, err)
		require.Equal(t, "g:a:1", props["coord"])
	}
	require.EqualValues(t, 1, cl.deps.Load())
	require.EqualValues(t, 1, cl.props.Load())
	require.Equal(t, 1, c.Len())

	c.Purge()
	require.Equal(t, 0, c.Len())
	_, err = c.Properties(t.Context(), a)
	require.NoError(t, err)
	require.EqualValues(t, 2, cl.props.Load())
}

func TestCached_Eviction(t *testing.T) {
	t.Parallel()
	cl := &countingLocator{Locator: newTestStatic("g:a:1", "g:b:1")}
	c, err := NewCached(cl, 1)
	require.NoError(t, err)
	for _, s := range []string{"g:a:1", "g:b:1", "g:a:1"} {
		_, err := c.DirectDependencies(t.Context(), ag.MustParseCoordinate(s))
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, cl.deps.Load())
}

func TestCached_ErrorsNotCached(t *testing.T) {
	t.Parallel()
	cl := &countingLocator{Locator: NewStatic()}
	c, err := NewCached(cl, 16)
	require.NoError(t, err)
	a := ag.MustParseCoordinate("g:a:1")
	for range 2 {
		_, err := c.DirectDependencies(t.Context(), a)
		require.ErrorIs(t, err, ErrNotFound)
	}
	require.EqualValues(t, 2, cl.deps.Load())
	require.Equal(t, 0, c.Len())
}

func TestCached_SharedFetch(t *testing.T) {
	t.Parallel()
	cl := &countingLocator{
		Locator: newTestStatic("g:a:1"),
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	c, err := NewCached(cl, 16)
	require.NoError(t, err)
	a := ag.MustParseCoordinate("g:a:1")
	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Go(func() { _, errs[0] = c.DirectDependencies(t.Context(), a) })
	// The first query is now blocked inside the wrapped locator, so the rest must join it.
	<-cl.entered
	for i := 1; i < n; i++ {
		wg.Go(func() { _, errs[i] = c.DirectDependencies(t.Context(), a) })
	}
	close(cl.gate)
	wg.Wait()
	require.NoError(t, errors.Join(errs...))
	require.EqualValues(t, 1, cl.deps.Load())
	require.Equal(t, 0, c.Pending())
}

func TestNewCached_BadSize(t *testing.T) {
	t.Parallel()
	_, err := NewCached(NewStatic(), 0)
	require.Error(t, err)
}
