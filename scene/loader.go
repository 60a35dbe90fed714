package scene

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// FetchFunc decodes the model at src. It runs off the render goroutine and
// must not touch states.
type FetchFunc func(ctx context.Context, src string) (*ModelData, error)

// FileFetch is the default FetchFunc, reading glTF or OBJ files from disk.
func FileFetch(log *zap.Logger) FetchFunc {
	return func(ctx context.Context, src string) (*ModelData, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return ReadModel(src, log)
	}
}

type loadResult struct {
	gen  uint64
	src  string
	data *ModelData
	err  error
}

// ModelLoader decodes models in the background and instantiates them on
// the render goroutine when Poll is called. Each Load replaces the current
// model; results of superseded loads are dropped.
type ModelLoader struct {
	scene  *Scene
	fetch  FetchFunc
	logger *zap.Logger

	mu      sync.Mutex
	gen     uint64
	result  *loadResult
	cancel  context.CancelFunc
	loading bool

	model  *Model
	source string
	wg     sync.WaitGroup
}

// NewModelLoader returns a loader adding models to s. A nil fetch reads
// glTF and OBJ files.
func NewModelLoader(s *Scene, fetch FetchFunc) *ModelLoader {
	l := &ModelLoader{scene: s, fetch: fetch, logger: s.logger.Named("loader")}
	if l.fetch == nil {
		l.fetch = FileFetch(s.logger)
	}
	return l
}

// Load tears down the current model, including one still loading, and
// starts decoding src.
func (l *ModelLoader) Load(src string) {
	l.Unload()

	ctx, cancel := context.WithCancel(context.Background())
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.cancel = cancel
	l.loading = true
	l.mu.Unlock()
	l.source = src

	l.logger.Debug("loading model", zap.String("src", src), zap.Uint64("gen", gen))
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		data, err := l.fetch(ctx, src)
		l.mu.Lock()
		defer l.mu.Unlock()
		if gen != l.gen {
			return
		}
		l.result = &loadResult{gen: gen, src: src, data: data, err: err}
	}()
}

// Unload destroys the current model and abandons any load in flight.
func (l *ModelLoader) Unload() {
	l.mu.Lock()
	l.gen++
	l.result = nil
	l.loading = false
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()

	if l.model != nil {
		l.model.Destroy()
		l.model = nil
	}
	l.source = ""
}

// Poll instantiates a finished load. It returns the new model once, or the
// load error once; otherwise nil, nil.
func (l *ModelLoader) Poll() (*Model, error) {
	l.mu.Lock()
	r := l.result
	if r == nil || r.gen != l.gen {
		l.mu.Unlock()
		return nil, nil
	}
	l.result = nil
	l.loading = false
	l.cancel = nil
	l.mu.Unlock()

	if r.err != nil {
		l.logger.Error("model load failed", zap.String("src", r.src), zap.Error(r.err))
		return nil, r.err
	}
	if r.data.Name == "" {
		r.data.Name = r.src
	}
	m, err := l.scene.Instantiate(r.data, nil)
	if err != nil {
		l.logger.Error("model instantiate failed", zap.String("src", r.src), zap.Error(err))
		return nil, err
	}
	l.model = m
	return m, nil
}

// Loading reports whether a load is in flight or waiting for Poll.
func (l *ModelLoader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

func (l *ModelLoader) Model() *Model  { return l.model }
func (l *ModelLoader) Source() string { return l.source }

// Close unloads and waits for background decoding to return.
func (l *ModelLoader) Close() {
	l.Unload()
	l.wg.Wait()
}
