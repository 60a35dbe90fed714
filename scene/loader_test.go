package scene

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gates blocks each fetch until its source is released.
type gates struct {
	mu sync.Mutex
	ch map[string]chan struct{}
}

func (g *gates) gate(src string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ch == nil {
		g.ch = map[string]chan struct{}{}
	}
	if g.ch[src] == nil {
		g.ch[src] = make(chan struct{})
	}
	return g.ch[src]
}

func (g *gates) release(src string) { close(g.gate(src)) }

func (g *gates) fetch(ctx context.Context, src string) (*ModelData, error) {
	select {
	case <-g.gate(src):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if src == "bad" {
		return nil, errors.New("corrupt file")
	}
	return DecodeGLTF(triangleDoc(), "", nil)
}

func pollUntil(t *testing.T, l *ModelLoader) (*Model, error) {
	t.Helper()
	var m *Model
	var err error
	require.Eventually(t, func() bool {
		m, err = l.Poll()
		return m != nil || err != nil
	}, 2*time.Second, time.Millisecond)
	return m, err
}

func TestModelLoaderLoadsOnPoll(t *testing.T) {
	f := newFixture(t)
	g := &gates{}
	l := NewModelLoader(f.scene, g.fetch)
	defer l.Close()

	l.Load("a")
	assert.True(t, l.Loading())
	m, err := l.Poll()
	assert.NoError(t, err)
	assert.Nil(t, m)
	assert.Empty(t, f.re.Objects(), "nothing instantiated before the fetch returns")

	g.release("a")
	m, err = pollUntil(t, l)
	require.NoError(t, err)
	assert.Same(t, m, l.Model())
	assert.Equal(t, "a", m.Root.Name())
	assert.False(t, l.Loading())
	assert.Len(t, f.re.Objects(), 1)

	m, err = l.Poll()
	assert.Nil(t, m)
	assert.NoError(t, err)
}

func TestModelLoaderReplacesAndDropsStale(t *testing.T) {
	f := newFixture(t)
	g := &gates{}
	l := NewModelLoader(f.scene, g.fetch)
	defer l.Close()

	l.Load("a")
	g.release("a")
	first, err := pollUntil(t, l)
	require.NoError(t, err)

	l.Load("b")
	assert.True(t, first.Root == nil, "previous model torn down on a new load")
	assert.Empty(t, f.re.Objects())

	l.Load("c")
	g.release("c")
	m, err := pollUntil(t, l)
	require.NoError(t, err)
	assert.Equal(t, "c", m.Root.Name())
	assert.Equal(t, "c", l.Source())

	g.release("b")
	time.Sleep(10 * time.Millisecond)
	m, err = l.Poll()
	assert.Nil(t, m)
	assert.NoError(t, err)
	assert.Len(t, f.re.Objects(), 1)
}

func TestModelLoaderReportsErrorOnce(t *testing.T) {
	f := newFixture(t)
	g := &gates{}
	l := NewModelLoader(f.scene, g.fetch)
	defer l.Close()

	l.Load("bad")
	g.release("bad")
	m, err := pollUntil(t, l)
	assert.Nil(t, m)
	assert.ErrorContains(t, err, "corrupt file")
	assert.False(t, l.Loading())

	m, err = l.Poll()
	assert.Nil(t, m)
	assert.NoError(t, err)
}

func TestModelLoaderUnloadAbandonsFetch(t *testing.T) {
	f := newFixture(t)
	g := &gates{}
	l := NewModelLoader(f.scene, g.fetch)

	l.Load("a")
	l.Unload()
	assert.False(t, l.Loading())
	l.Close()

	m, err := l.Poll()
	assert.Nil(t, m)
	assert.NoError(t, err)
	assert.Empty(t, f.re.Objects())
}
