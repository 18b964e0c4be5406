package trail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/breadcrumb/ancestry"
	"github.com/jonwraymond/breadcrumb/cache"
	"github.com/jonwraymond/breadcrumb/page"
)

// plainWiki links a page as its alias, or its escaped title.
type plainWiki struct {
	mu    sync.Mutex
	pages map[string]string // title -> id
}

func newPlainWiki(titles ...string) *plainWiki {
	w := &plainWiki{pages: map[string]string{}}
	for _, t := range titles {
		w.add(t)
	}
	return w
}

func (w *plainWiki) add(title string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages[title] = fmt.Sprint(len(w.pages) + 1)
}

func (w *plainWiki) Exists(_ context.Context, title string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.pages[title]
	return ok, nil
}

func (w *plainWiki) Link(title, alias string) string {
	if alias != "" {
		return alias
	}
	return html.EscapeString(title)
}

func (w *plainWiki) Identify(_ context.Context, title string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.pages[title]
	if !ok {
		return "", errors.New("no such page")
	}
	return id, nil
}

// anchorWiki renders real anchors so self links are distinguishable.
type anchorWiki struct{ *plainWiki }

func (w anchorWiki) Link(title, alias string) string {
	return fmt.Sprintf(`<a href="/wiki/%s">%s</a>`, html.EscapeString(title), w.plainWiki.Link(title, alias))
}

var errStoreDown = errors.New("store down")

// downStore fails every operation.
type downStore struct{}

func (downStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errStoreDown }
func (downStore) Set(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}
func (downStore) Delete(context.Context, string) error { return errStoreDown }

type fixture struct {
	wiki      *plainWiki
	store     *cache.MemoryCache
	ancestors *ancestry.Cache
	builder   *Builder
}

func newFixture(t *testing.T, cfg Config, titles ...string) *fixture {
	t.Helper()
	wiki := newPlainWiki(titles...)
	store := cache.NewMemoryCache()
	ancestors, err := ancestry.NewCache(store, nil)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	b, err := NewBuilder(cfg, nil, wiki, ancestors, nil)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return &fixture{wiki: wiki, store: store, ancestors: ancestors, builder: b}
}

func (f *fixture) render(title, parent string) string {
	return f.builder.Build(context.Background(), Invocation{PageTitle: title, ParentTitle: parent}).HTML
}

func (f *fixture) record(t *testing.T, title string) (ancestry.Record, bool) {
	t.Helper()
	ctx := context.Background()
	key, err := f.ancestors.KeyForTitle(ctx, title)
	if err != nil {
		t.Fatalf("KeyForTitle(%q) error = %v", title, err)
	}
	rec, ok, err := f.ancestors.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get(%q) error = %v", title, err)
	}
	return rec, ok
}

var _ page.Linker = (*plainWiki)(nil)
var _ page.Identifier = (*plainWiki)(nil)
var _ cache.Cache = downStore{}
