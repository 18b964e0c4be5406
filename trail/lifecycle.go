package trail

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/breadcrumb/observe"
	"github.com/jonwraymond/breadcrumb/page"
)

// FunctionName is the name hosts register the render function under.
const FunctionName = "breadcrumb"

// PreloadTag is the empty invocation placed in new pages.
const PreloadTag = "{{#" + FunctionName + ": }}"

// SaveEvent reports that a page was saved.
type SaveEvent struct {
	PageID    string
	PageTitle string
}

// RenderFunc renders the breadcrumb HTML for an invocation.
type RenderFunc func(ctx context.Context, inv Invocation) string

// SaveHook is called after a page is saved.
type SaveHook func(ctx context.Context, ev SaveEvent) error

// PreloadHook returns the initial text for a new page's edit box.
type PreloadHook func(existing string) string

// Registrar is the host's hook registry.
//
// Contract:
// - Registration happens once, before the host serves requests.
// - The host calls the registered functions concurrently.
type Registrar interface {
	RegisterFunction(name string, fn RenderFunc)
	RegisterSaveHook(fn SaveHook)
	RegisterPreloadHook(fn PreloadHook)
}

// Register installs the render function, the save hook, and, when
// FillNewPages is set, the preload hook.
func (b *Builder) Register(r Registrar) {
	r.RegisterFunction(FunctionName, func(ctx context.Context, inv Invocation) string {
		return b.Build(ctx, inv).HTML
	})
	r.RegisterSaveHook(b.OnSave)
	if b.cfg.FillNewPages {
		r.RegisterPreloadHook(b.PreloadText)
	}
}

// OnSave deletes the saved page's record so its next render rewrites it.
// The error wraps page.ErrInvalidTitle or ancestry.ErrCacheUnavailable.
func (b *Builder) OnSave(ctx context.Context, ev SaveEvent) error {
	title, err := b.resolver.Normalize(ev.PageTitle)
	if err != nil {
		return fmt.Errorf("trail: save %q: %w", ev.PageTitle, err)
	}
	if b.ancestors == nil {
		return nil
	}

	ref, _ := b.resolver.Resolve(title, "")
	ref = ref.WithID(ev.PageID)

	ctx, span := b.mw.Tracer().StartSpan(ctx, observe.OpInvalidate, pageMeta(ref))
	err = b.invalidate(ctx, ref)
	b.mw.Tracer().EndSpan(span, err)
	return err
}

func (b *Builder) invalidate(ctx context.Context, ref page.Reference) error {
	key, err := b.ancestors.KeyFor(ctx, ref)
	if err != nil {
		return fmt.Errorf("trail: save %q: %w", ref.Title, err)
	}
	if err := b.ancestors.Invalidate(ctx, key); err != nil {
		return err
	}
	b.logger.WithPage(pageMeta(ref)).Debug(ctx, "breadcrumb record invalidated")
	return nil
}

// PreloadText returns PreloadTag for an empty new page when FillNewPages is
// set, and existing otherwise.
func (b *Builder) PreloadText(existing string) string {
	if !b.cfg.FillNewPages || strings.TrimSpace(existing) != "" {
		return existing
	}
	return PreloadTag
}
