package ancestry

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/breadcrumb/cache"
)

// fakeWiki is a page.Linker and page.Identifier over a fixed set of titles.
type fakeWiki struct {
	mu        sync.Mutex
	pages     map[string]string // title -> id
	existsErr map[string]error
	checks    []string
}

func newFakeWiki(titles ...string) *fakeWiki {
	w := &fakeWiki{pages: map[string]string{}, existsErr: map[string]error{}}
	for i, t := range titles {
		w.pages[t] = fmt.Sprint(i + 1)
	}
	return w
}

func (w *fakeWiki) Exists(_ context.Context, title string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.checks = append(w.checks, title)
	if err := w.existsErr[title]; err != nil {
		return false, err
	}
	_, ok := w.pages[title]
	return ok, nil
}

func (w *fakeWiki) Link(title, alias string) string {
	text := alias
	if text == "" {
		text = html.EscapeString(title)
	}
	return fmt.Sprintf(`<a href="/wiki/%s">%s</a>`, html.EscapeString(title), text)
}

func (w *fakeWiki) Identify(_ context.Context, title string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.pages[title]
	if !ok {
		return "", errors.New("no such page")
	}
	return id, nil
}

// flakyStore wraps a MemoryCache and fails every call while err is set.
type flakyStore struct {
	*cache.MemoryCache
	mu    sync.Mutex
	err   error
	gets  atomic.Int64
	ttls  []time.Duration
	delay time.Duration
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryCache: cache.NewMemoryCache()}
}

func (s *flakyStore) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *flakyStore) current() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.gets.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err := s.current(); err != nil {
		return nil, false, err
	}
	return s.MemoryCache.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.current(); err != nil {
		return err
	}
	s.mu.Lock()
	s.ttls = append(s.ttls, ttl)
	s.mu.Unlock()
	return s.MemoryCache.Set(ctx, key, value, ttl)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	if err := s.current(); err != nil {
		return err
	}
	return s.MemoryCache.Delete(ctx, key)
}

// gatedStore blocks every Get until release is closed, or until the
// context passed to Get is done.
type gatedStore struct {
	*cache.MemoryCache
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemoryCache: cache.NewMemoryCache(),
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (s *gatedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
	return s.MemoryCache.Get(ctx, key)
}
