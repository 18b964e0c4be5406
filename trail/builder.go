package trail

import (
	"context"
	"strings"

	"github.com/jonwraymond/breadcrumb/ancestry"
	"github.com/jonwraymond/breadcrumb/observe"
	"github.com/jonwraymond/breadcrumb/page"
)

// Invocation is one use of the breadcrumb function on a page.
type Invocation struct {
	// PageID is the host's identity for the page being rendered, if known.
	PageID string

	// PageTitle is the title of the page being rendered.
	PageTitle string

	// ParentTitle is the parent the page declares. Empty marks a root.
	ParentTitle string

	// Alias is the display text for the page being rendered.
	Alias string
}

// Trail is a rendered breadcrumb.
type Trail struct {
	// Elements are the trail entries, root first, before truncation.
	Elements []string

	// HTML is the rendered trail, or "" when the page has no breadcrumb.
	HTML string
}

// Empty reports whether there is nothing to display.
func (t Trail) Empty() bool {
	return t.HTML == ""
}

// Builder is the breadcrumb render entry point.
type Builder struct {
	cfg       Config
	resolver  *page.Resolver
	linker    page.Linker
	ancestors *ancestry.Cache
	walker    *ancestry.Walker
	mw        *observe.Middleware
	logger    observe.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithMiddleware instruments builds and invalidations.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(b *Builder) {
		if mw != nil {
			b.mw = mw
		}
	}
}

// NewBuilder creates a Builder.
//
// A nil resolver resolves against linker. A nil ancestors cache disables
// persistence, so trails stop at the declared parent. A nil walker is
// created from the other collaborators and cfg.MaxDepth.
func NewBuilder(cfg Config, resolver *page.Resolver, linker page.Linker, ancestors *ancestry.Cache, walker *ancestry.Walker, opts ...Option) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Builder{
		cfg:       cfg,
		resolver:  resolver,
		linker:    linker,
		ancestors: ancestors,
		walker:    walker,
		mw:        observe.NewMiddleware(nil, nil, nil),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.mw.Logger()

	if b.resolver == nil {
		b.resolver = page.NewResolver(linker)
	}
	if b.walker == nil {
		b.walker = ancestry.NewWalker(b.resolver, linker, ancestors,
			ancestry.WithMaxDepth(cfg.MaxDepth),
			ancestry.WithWalkLogger(b.logger),
			ancestry.WithTracer(b.mw.Tracer()),
		)
	}
	return b, nil
}

// Config returns the builder's configuration.
func (b *Builder) Config() Config {
	return b.cfg
}

// Build renders the breadcrumb for one invocation. It never fails: content
// and store problems produce a shorter or empty Trail.
//
// The page's own record is written before anything else, so descendants can
// find it even when the page itself shows no breadcrumb.
func (b *Builder) Build(ctx context.Context, inv Invocation) Trail {
	current, err := b.resolver.Resolve(inv.PageTitle, inv.Alias)
	if err != nil {
		b.logger.Debug(ctx, "skipping breadcrumb for invalid page title",
			observe.Field{Key: "title", Value: inv.PageTitle},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return Trail{}
	}
	current = current.WithID(inv.PageID)

	var out Trail
	build := b.mw.Wrap(func(ctx context.Context, _ observe.PageMeta) (int, error) {
		var n int
		out, n = b.build(ctx, current, inv.ParentTitle)
		return n, ctx.Err()
	})
	_, _ = build(ctx, pageMeta(current))
	return out
}

func (b *Builder) build(ctx context.Context, current page.Reference, rawParent string) (Trail, int) {
	parent := b.declaredParent(current, rawParent)
	b.remember(ctx, current, parent)

	if parent == "" {
		return Trail{}, 0
	}

	chain := b.walker.Walk(ctx, current, parent)
	if len(chain) == 0 {
		return Trail{}, 0
	}

	elems := make([]string, 0, len(chain)+1)
	for i := len(chain) - 1; i >= 0; i-- {
		elems = append(elems, chain[i].Link)
	}
	elems = append(elems, b.selfElement(current))

	return Trail{Elements: elems, HTML: Render(elems, b.cfg)}, len(chain)
}

// declaredParent returns the canonical parent title, or "" for a root.
func (b *Builder) declaredParent(current page.Reference, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parent, err := b.resolver.Normalize(raw)
	if err != nil || parent == current.Title {
		return ""
	}
	return parent
}

// remember writes the page's own record. Failures are already logged by the
// cache and never affect the rendered trail.
func (b *Builder) remember(ctx context.Context, current page.Reference, parent string) {
	if b.ancestors == nil {
		return
	}
	key, err := b.ancestors.KeyFor(ctx, current)
	if err != nil {
		b.logger.WithPage(pageMeta(current)).Warn(ctx, "cannot key breadcrumb record",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return
	}
	_ = b.ancestors.Put(ctx, key, ancestry.Record{
		ID:          current.ID,
		Title:       current.Title,
		Alias:       current.Alias,
		ParentTitle: parent,
		Link:        current.Link,
	})
}

func (b *Builder) selfElement(current page.Reference) string {
	if b.cfg.SelfLink {
		return current.Link
	}
	return current.Display()
}

func pageMeta(ref page.Reference) observe.PageMeta {
	return observe.PageMeta{ID: ref.ID, Title: ref.Title, Namespace: ref.Namespace}
}
