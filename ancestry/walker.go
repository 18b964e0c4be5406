package ancestry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/breadcrumb/observe"
	"github.com/jonwraymond/breadcrumb/page"
)

// DefaultMaxDepth bounds a walk when no depth is configured.
const DefaultMaxDepth = 256

// StopReason says why a walk ended.
type StopReason string

const (
	StopRoot      StopReason = "root"      // the last ancestor declares no parent
	StopUnknown   StopReason = "unknown"   // the next ancestor does not exist
	StopCycle     StopReason = "cycle"     // the next ancestor was already visited
	StopUncached  StopReason = "uncached"  // the next ancestor has no record yet
	StopDepth     StopReason = "depth"     // MaxDepth ancestors collected
	StopCancelled StopReason = "cancelled" // the context ended
)

// Walker follows declared parents from a page to its root.
type Walker struct {
	resolver *page.Resolver
	linker   page.Linker
	cache    *Cache
	maxDepth int
	logger   observe.Logger
	tracer   observe.Tracer
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithMaxDepth bounds the number of ancestors collected.
// Values <= 0 keep DefaultMaxDepth.
func WithMaxDepth(n int) WalkerOption {
	return func(w *Walker) {
		if n > 0 {
			w.maxDepth = n
		}
	}
}

// WithWalkLogger sets the walker's logger.
func WithWalkLogger(l observe.Logger) WalkerOption {
	return func(w *Walker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithTracer sets the tracer used for walk spans.
func WithTracer(t observe.Tracer) WalkerOption {
	return func(w *Walker) {
		if t != nil {
			w.tracer = t
		}
	}
}

// NewWalker creates a Walker. A nil cache makes every ancestor uncached,
// so chains stop after the declared parent.
func NewWalker(resolver *page.Resolver, linker page.Linker, c *Cache, opts ...WalkerOption) *Walker {
	if resolver == nil {
		resolver = page.NewResolver(linker)
	}
	w := &Walker{
		resolver: resolver,
		linker:   linker,
		cache:    c,
		maxDepth: DefaultMaxDepth,
		logger:   observe.NopLogger(),
		tracer:   observe.NopTracer(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// MaxDepth returns the configured depth bound.
func (w *Walker) MaxDepth() int {
	return w.maxDepth
}

// Walk returns the ancestors of current, nearest first, starting from its
// declared parent. It never fails: every problem shortens the chain.
// The chain never contains current and never repeats a title.
func (w *Walker) Walk(ctx context.Context, current page.Reference, declaredParent string) Chain {
	ctx, span := w.tracer.StartSpan(ctx, observe.OpWalk, observe.PageMeta{
		ID:        current.ID,
		Title:     current.Title,
		Namespace: current.Namespace,
	})
	chain, reason := w.walk(ctx, current, declaredParent)
	span.SetAttributes(
		attribute.Int("breadcrumb.chain.length", len(chain)),
		attribute.String("breadcrumb.walk.stop", string(reason)),
	)
	w.tracer.EndSpan(span, nil)
	return chain
}

func (w *Walker) walk(ctx context.Context, current page.Reference, declaredParent string) (Chain, StopReason) {
	log := w.logger.WithPage(observe.PageMeta{ID: current.ID, Title: current.Title, Namespace: current.Namespace})

	candidate, ok := w.parentOf(ctx, log, current.Title, declaredParent)
	if !ok || w.linker == nil {
		return nil, StopRoot
	}

	visited := map[string]struct{}{current.Title: {}}
	var chain Chain

	for {
		if ctx.Err() != nil {
			return w.finish(chain, current), StopCancelled
		}
		if len(chain) >= w.maxDepth {
			log.Debug(ctx, "breadcrumb walk hit depth limit", observe.Field{Key: "max_depth", Value: w.maxDepth})
			return w.finish(chain, current), StopDepth
		}

		exists, err := w.linker.Exists(ctx, candidate)
		if err != nil {
			log.Warn(ctx, "ancestor existence check failed",
				observe.Field{Key: "ancestor", Value: candidate},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return w.finish(chain, current), StopUnknown
		}
		if !exists {
			return w.finish(chain, current), StopUnknown
		}

		if _, seen := visited[candidate]; seen {
			log.Debug(ctx, "breadcrumb cycle detected", observe.Field{Key: "ancestor", Value: candidate})
			return w.finish(chain, current), StopCycle
		}
		visited[candidate] = struct{}{}

		rec, hit := w.lookup(ctx, candidate)
		if !hit {
			chain = append(chain, Record{
				Title: candidate,
				Link:  w.linker.Link(candidate, ""),
			})
			return w.finish(chain, current), StopUncached
		}

		rec.Title = candidate
		if rec.Link == "" {
			rec.Link = w.linker.Link(candidate, rec.Alias)
		}
		chain = append(chain, rec)

		next, ok := w.parentOf(ctx, log, candidate, rec.ParentTitle)
		if !ok {
			return w.finish(chain, current), StopRoot
		}
		candidate = next
	}
}

// parentOf normalizes the parent declared by child. It reports false when
// the child is a root.
func (w *Walker) parentOf(ctx context.Context, log observe.Logger, child, declared string) (string, bool) {
	if declared == "" {
		return "", false
	}
	parent, err := w.resolver.Normalize(declared)
	if err != nil {
		log.Debug(ctx, "ignoring invalid parent title",
			observe.Field{Key: "child", Value: child},
			observe.Field{Key: "parent", Value: declared},
		)
		return "", false
	}
	if parent == child {
		return "", false
	}
	return parent, true
}

func (w *Walker) lookup(ctx context.Context, title string) (Record, bool) {
	if w.cache == nil {
		return Record{}, false
	}
	key, err := w.cache.KeyForTitle(ctx, title)
	if err != nil {
		return Record{}, false
	}
	// Store errors are logged by the cache and read as a miss here.
	rec, ok, err := w.cache.Get(ctx, key)
	if err != nil || !ok {
		return Record{}, false
	}
	return rec, true
}

// finish drops any record naming the current page.
func (w *Walker) finish(chain Chain, current page.Reference) Chain {
	out := chain[:0]
	for _, r := range chain {
		if r.Title != current.Title {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
