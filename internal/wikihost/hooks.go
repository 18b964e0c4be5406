package wikihost

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jonwraymond/breadcrumb/trail"
)

// tagPattern matches {{#name: args}} parser function tags.
var tagPattern = regexp.MustCompile(`\{\{#([A-Za-z0-9_]+):([^{}]*)\}\}`)

// RegisterFunction implements trail.Registrar.
func (w *Wiki) RegisterFunction(name string, fn trail.RenderFunc) {
	w.hooksMu.Lock()
	defer w.hooksMu.Unlock()
	w.functions[strings.ToLower(name)] = fn
}

// RegisterSaveHook implements trail.Registrar.
func (w *Wiki) RegisterSaveHook(fn trail.SaveHook) {
	w.hooksMu.Lock()
	defer w.hooksMu.Unlock()
	w.saves = append(w.saves, fn)
}

// RegisterPreloadHook implements trail.Registrar.
func (w *Wiki) RegisterPreloadHook(fn trail.PreloadHook) {
	w.hooksMu.Lock()
	defer w.hooksMu.Unlock()
	w.preloads = append(w.preloads, fn)
}

// Render expands every registered function tag in the page's content.
// Tags naming unregistered functions are left as written.
func (w *Wiki) Render(ctx context.Context, title string) (string, error) {
	p, err := w.Page(title)
	if err != nil {
		return "", err
	}

	w.hooksMu.RLock()
	functions := make(map[string]trail.RenderFunc, len(w.functions))
	for k, v := range w.functions {
		functions[k] = v
	}
	w.hooksMu.RUnlock()

	return tagPattern.ReplaceAllStringFunc(p.Content, func(tag string) string {
		m := tagPattern.FindStringSubmatch(tag)
		fn, ok := functions[strings.ToLower(m[1])]
		if !ok {
			return tag
		}
		inv := ParseInvocation(m[2])
		inv.PageID = p.ID
		inv.PageTitle = p.Title
		return fn(ctx, inv)
	}), nil
}

// ParseInvocation splits tag arguments into the declared parent and alias.
// The first pipe separates them; later pipes belong to the alias.
func ParseInvocation(args string) trail.Invocation {
	parent, alias, _ := strings.Cut(args, "|")
	return trail.Invocation{
		ParentTitle: strings.TrimSpace(parent),
		Alias:       strings.TrimSpace(alias),
	}
}

// Save stores content under title, creating the page if needed, then runs
// every save hook. Hook errors are joined.
func (w *Wiki) Save(ctx context.Context, title, content string) (Page, error) {
	p, err := w.put(Page{Title: title, Content: content})
	if err != nil {
		return Page{}, err
	}
	saved := *p

	w.hooksMu.RLock()
	hooks := append([]trail.SaveHook(nil), w.saves...)
	w.hooksMu.RUnlock()

	var errs []error
	for _, hook := range hooks {
		if err := hook(ctx, trail.SaveEvent{PageID: saved.ID, PageTitle: saved.Title}); err != nil {
			errs = append(errs, err)
		}
	}
	return saved, errors.Join(errs...)
}

// NewPageText returns the initial edit box text for a page that does not
// exist yet, after running every preload hook.
func (w *Wiki) NewPageText() string {
	w.hooksMu.RLock()
	hooks := append([]trail.PreloadHook(nil), w.preloads...)
	w.hooksMu.RUnlock()

	text := ""
	for _, hook := range hooks {
		text = hook(text)
	}
	return text
}
