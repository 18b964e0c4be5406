package trail

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jonwraymond/breadcrumb/ancestry"
	"github.com/jonwraymond/breadcrumb/cache"
	"github.com/jonwraymond/breadcrumb/observe"
	"github.com/jonwraymond/breadcrumb/page"
)

func TestBuild_Chain(t *testing.T) {
	f := newFixture(t, DefaultConfig(), "Docs", "Docs/Guide", "Docs/Guide/Install")

	if got := f.render("Docs", ""); got != "" {
		t.Errorf("root render = %q, want empty", got)
	}
	if got, want := f.render("Docs/Guide", "Docs"), `<div id="breadcrumb">Docs &gt; Docs/Guide</div>`; got != want {
		t.Errorf("guide render = %q, want %q", got, want)
	}

	got := f.render("Docs/Guide/Install", "Docs/Guide")
	want := `<div id="breadcrumb">Docs &gt; Docs/Guide &gt; Docs/Guide/Install</div>`
	if got != want {
		t.Errorf("install render = %q, want %q", got, want)
	}

	rec, ok := f.record(t, "Docs/Guide/Install")
	if !ok {
		t.Fatal("own record not stored")
	}
	if rec.ParentTitle != "Docs/Guide" || rec.Link != "Docs/Guide/Install" {
		t.Errorf("record = %+v", rec)
	}
}

func TestBuild_Elements(t *testing.T) {
	f := newFixture(t, DefaultConfig(), "Docs", "Docs/Guide")
	f.render("Docs", "")

	tr := f.builder.Build(context.Background(), Invocation{PageTitle: "Docs/Guide", ParentTitle: "Docs"})
	if want := []string{"Docs", "Docs/Guide"}; !reflect.DeepEqual(tr.Elements, want) {
		t.Errorf("Elements = %v, want %v", tr.Elements, want)
	}
	if tr.Empty() {
		t.Error("Empty() = true, want false")
	}
}

func TestBuild_Idempotent(t *testing.T) {
	f := newFixture(t, DefaultConfig(), "Docs", "Docs/Guide", "Docs/Guide/Install")
	f.render("Docs", "")
	f.render("Docs/Guide", "Docs")

	first := f.render("Docs/Guide/Install", "Docs/Guide")
	for i := 0; i < 3; i++ {
		if got := f.render("Docs/Guide/Install", "Docs/Guide"); got != first {
			t.Fatalf("render %d = %q, want %q", i, got, first)
		}
	}
}

func TestBuild_NoParent(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		parent string
	}{
		{"empty parent", "Docs/Guide", ""},
		{"blank parent", "Docs/Guide", "   "},
		{"self parent", "Docs/Guide", "Docs/Guide"},
		{"self parent after normalization", "User guide", " User_guide "},
		{"invalid parent", "Docs/Guide", "Bad[Title]"},
		{"missing parent page", "Docs/Guide", "Nowhere"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultConfig(), "Docs", "Docs/Guide")
			tr := f.builder.Build(context.Background(), Invocation{PageTitle: tt.title, ParentTitle: tt.parent})
			if !tr.Empty() || tr.Elements != nil {
				t.Errorf("Build() = %+v, want empty", tr)
			}
			if _, ok := f.record(t, tt.title); !ok {
				t.Error("own record should be stored even without a trail")
			}
		})
	}
}

func TestBuild_SelfParentStoredAsRoot(t *testing.T) {
	f := newFixture(t, DefaultConfig(), "Docs")
	f.render("Docs", "Docs")

	rec, ok := f.record(t, "Docs")
	if !ok {
		t.Fatal("record not stored")
	}
	if rec.ParentTitle != "" {
		t.Errorf("ParentTitle = %q, want empty", rec.ParentTitle)
	}
}

func TestBuild_InvalidTitle(t *testing.T) {
	f := newFixture(t, DefaultConfig(), "Docs")
	tr := f.builder.Build(context.Background(), Invocation{PageTitle: "  ", ParentTitle: "Docs"})
	if !tr.Empty() {
		t.Errorf("Build() = %+v, want empty", tr)
	}
	if n := f.store.Len(); n != 0 {
		t.Errorf("store has %d entries, want 0", n)
	}
}

func TestBuild_ColdCache(t *testing.T) {
	f := newFixture(t, DefaultConfig(), "Docs", "Docs/Guide", "Docs/Guide/Install")

	got := f.render("Docs/Guide/Install", "Docs/Guide")
	want := `<div id="breadcrumb">Docs/Guide &gt; Docs/Guide/Install</div>`
	if got != want {
		t.Errorf("cold render = %q, want %q", got, want)
	}

	// The cached parent leads to an uncached grandparent, which is linked
	// and ends the walk.
	f.render("Docs/Guide", "Docs")
	got = f.render("Docs/Guide/Install", "Docs/Guide")
	want = `<div id="breadcrumb">Docs &gt; Docs/Guide &gt; Docs/Guide/Install</div>`
	if got != want {
		t.Errorf("warm render = %q, want %q", got, want)
	}
}

func TestBuild_Aliases(t *testing.T) {
	f := newFixture(t, DefaultConfig(), "Docs", "Docs/Guide", "Docs/Guide/Install")
	f.render("Docs", "")
	f.builder.Build(context.Background(), Invocation{PageTitle: "Docs/Guide", ParentTitle: "Docs", Alias: "User Guide"})

	tr := f.builder.Build(context.Background(), Invocation{
		PageTitle:   "Docs/Guide/Install",
		ParentTitle: "Docs/Guide",
		Alias:       "'''Install''' <now>",
	})
	want := `<div id="breadcrumb">Docs &gt; User Guide &gt; <b>Install</b> &lt;now&gt;</div>`
	if tr.HTML != want {
		t.Errorf("Build() = %q, want %q", tr.HTML, want)
	}
}

func TestBuild_PipeAlias(t *testing.T) {
	f := newFixture(t, DefaultConfig(), "Docs", "Docs/Guide")
	f.render("Docs", "")

	got := f.render("Docs/Guide|''Guide''", "Docs")
	want := `<div id="breadcrumb">Docs &gt; <i>Guide</i></div>`
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestBuild_SelfLink(t *testing.T) {
	wiki := anchorWiki{newPlainWiki("Docs", "Docs/Guide")}
	cfg := DefaultConfig()
	cfg.SelfLink = true

	ancestors, err := ancestry.NewCache(cache.NewMemoryCache(), nil)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	b, err := NewBuilder(cfg, nil, wiki, ancestors, nil)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	ctx := context.Background()
	b.Build(ctx, Invocation{PageTitle: "Docs"})

	got := b.Build(ctx, Invocation{PageTitle: "Docs/Guide", ParentTitle: "Docs"}).HTML
	want := `<div id="breadcrumb"><a href="/wiki/Docs">Docs</a> &gt; <a href="/wiki/Docs/Guide">Docs/Guide</a></div>`
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuild_Cycle(t *testing.T) {
	f := newFixture(t, DefaultConfig(), "A", "B", "C")
	f.render("B", "C")
	f.render("C", "A")

	got := f.render("A", "B")
	want := `<div id="breadcrumb">C &gt; B &gt; A</div>`
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestBuild_Truncation(t *testing.T) {
	titles := make([]string, 8)
	for i := range titles {
		titles[i] = fmt.Sprintf("P%d", i)
	}
	f := newFixture(t, DefaultConfig(), titles...)

	f.render("P0", "")
	for i := 1; i < len(titles)-1; i++ {
		f.render(titles[i], titles[i-1])
	}

	tr := f.builder.Build(context.Background(), Invocation{PageTitle: "P7", ParentTitle: "P6"})
	if len(tr.Elements) != 8 {
		t.Fatalf("Elements = %v, want 8 entries", tr.Elements)
	}
	want := `<div id="breadcrumb">P0 &gt; &hellip; &gt; P5 &gt; P6 &gt; P7</div>`
	if tr.HTML != want {
		t.Errorf("Build() = %q, want %q", tr.HTML, want)
	}
}

func TestBuild_MaxDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 2
	cfg.MaxCount = 0
	f := newFixture(t, cfg, "P0", "P1", "P2", "P3", "P4")

	f.render("P0", "")
	f.render("P1", "P0")
	f.render("P2", "P1")
	f.render("P3", "P2")

	got := f.render("P4", "P3")
	want := `<div id="breadcrumb">P2 &gt; P3 &gt; P4</div>`
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestBuild_ReparentedAncestor(t *testing.T) {
	f := newFixture(t, DefaultConfig(), "Docs", "Archive", "Docs/Guide", "Docs/Guide/Install")
	f.render("Docs", "")
	f.render("Archive", "")
	f.render("Docs/Guide", "Docs")

	ctx := context.Background()
	if err := f.builder.OnSave(ctx, SaveEvent{PageTitle: "Docs/Guide"}); err != nil {
		t.Fatalf("OnSave() error = %v", err)
	}
	f.render("Docs/Guide", "Archive")

	got := f.render("Docs/Guide/Install", "Docs/Guide")
	want := `<div id="breadcrumb">Archive &gt; Docs/Guide &gt; Docs/Guide/Install</div>`
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestBuild_StoreUnavailable(t *testing.T) {
	wiki := newPlainWiki("Docs", "Docs/Guide")
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("warn", &buf)

	ancestors, err := ancestry.NewCache(downStore{}, nil, ancestry.WithLogger(logger))
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	b, err := NewBuilder(DefaultConfig(), nil, wiki, ancestors, nil)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}

	got := b.Build(context.Background(), Invocation{PageTitle: "Docs/Guide", ParentTitle: "Docs"}).HTML
	want := `<div id="breadcrumb">Docs &gt; Docs/Guide</div>`
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
	if !strings.Contains(buf.String(), "breadcrumb cache unavailable") {
		t.Errorf("expected unavailable warning, log = %q", buf.String())
	}
}

func TestBuild_NilCache(t *testing.T) {
	b, err := NewBuilder(DefaultConfig(), nil, newPlainWiki("Docs", "Docs/Guide"), nil, nil)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	got := b.Build(context.Background(), Invocation{PageTitle: "Docs/Guide", ParentTitle: "Docs"}).HTML
	want := `<div id="breadcrumb">Docs &gt; Docs/Guide</div>`
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
	if err := b.OnSave(context.Background(), SaveEvent{PageTitle: "Docs/Guide"}); err != nil {
		t.Errorf("OnSave() error = %v", err)
	}
}

func TestBuild_IdentityKeys(t *testing.T) {
	wiki := newPlainWiki("Docs", "Docs/Guide")
	store := cache.NewMemoryCache()
	keyer := cache.NewPageKeyer("wiki", cache.KeyByID)
	ancestors, err := ancestry.NewCache(store, keyer, ancestry.WithIdentifier(wiki))
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	b, err := NewBuilder(DefaultConfig(), nil, wiki, ancestors, nil)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}

	ctx := context.Background()
	b.Build(ctx, Invocation{PageID: "1", PageTitle: "Docs"})
	got := b.Build(ctx, Invocation{PageID: "2", PageTitle: "Docs/Guide", ParentTitle: "Docs"}).HTML
	want := `<div id="breadcrumb">Docs &gt; Docs/Guide</div>`
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}

	keys := store.Keys()
	if want := []string{"wiki:id:1", "wiki:id:2"}; !sameKeys(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}
}

func sameKeys(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := map[string]bool{}
	for _, k := range got {
		seen[k] = true
	}
	for _, k := range want {
		if !seen[k] {
			return false
		}
	}
	return true
}

func TestBuild_Spans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	mw := observe.NewMiddleware(observe.NewTracer(tp.Tracer("trail-test")), nil, nil)
	wiki := newPlainWiki("Docs", "Docs/Guide")
	ancestors, err := ancestry.NewCache(cache.NewMemoryCache(), nil)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	b, err := NewBuilder(DefaultConfig(), nil, wiki, ancestors, nil, WithMiddleware(mw))
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}

	ctx := context.Background()
	b.Build(ctx, Invocation{PageTitle: "Docs/Guide", ParentTitle: "Docs"})
	if err := b.OnSave(ctx, SaveEvent{PageTitle: "Docs/Guide"}); err != nil {
		t.Fatalf("OnSave() error = %v", err)
	}

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	want := []string{"breadcrumb.walk", "breadcrumb.build", "breadcrumb.invalidate"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("spans = %v, want %v", names, want)
	}
}

func TestBuild_Concurrent(t *testing.T) {
	f := newFixture(t, DefaultConfig(), "Docs", "Docs/Guide", "Docs/Guide/Install")
	f.render("Docs", "")
	f.render("Docs/Guide", "Docs")

	want := `<div id="breadcrumb">Docs &gt; Docs/Guide &gt; Docs/Guide/Install</div>`
	var wg sync.WaitGroup
	errs := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := f.render("Docs/Guide/Install", "Docs/Guide"); got != want {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)
	for got := range errs {
		t.Errorf("concurrent render = %q, want %q", got, want)
	}
}

func TestNewBuilder_Defaults(t *testing.T) {
	wiki := newPlainWiki("Docs")
	b, err := NewBuilder(DefaultConfig(), page.NewResolver(wiki), wiki, nil, nil)
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	if b.walker == nil || b.walker.MaxDepth() != ancestry.DefaultMaxDepth {
		t.Errorf("walker = %+v", b.walker)
	}
	if got := b.Config(); got != DefaultConfig() {
		t.Errorf("Config() = %+v", got)
	}
}
