// Package wikihost is an in-memory wiki that hosts the breadcrumb hooks.
//
// It stands in for a real wiki engine in tests and in trailctl: pages are
// loaded from a YAML fixture, {{#name: args}} tags in page content are
// expanded through registered functions, and saves run the save hooks.
package wikihost

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/breadcrumb/page"
	"github.com/jonwraymond/breadcrumb/trail"
)

// ErrPageNotFound indicates a title with no page.
var ErrPageNotFound = errors.New("wikihost: page not found")

// Page is one wiki page.
type Page struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
}

// Fixture is the YAML document Load reads.
type Fixture struct {
	Pages []Page `yaml:"pages"`
}

// Wiki is a concurrency-safe in-memory wiki.
type Wiki struct {
	resolver *page.Resolver

	mu     sync.RWMutex
	pages  map[string]*Page
	nextID int

	hooksMu   sync.RWMutex
	functions map[string]trail.RenderFunc
	saves     []trail.SaveHook
	preloads  []trail.PreloadHook
}

// New creates a Wiki holding pages. Titles are normalized; pages without
// an ID are numbered in order.
func New(pages ...Page) (*Wiki, error) {
	w := &Wiki{
		pages:     make(map[string]*Page),
		functions: make(map[string]trail.RenderFunc),
	}
	w.resolver = page.NewResolver(w)

	for _, p := range pages {
		if _, err := w.put(p); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Load reads a Fixture from r.
func Load(r io.Reader) (*Wiki, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("wikihost: decode fixture: %w", err)
	}
	return New(fx.Pages...)
}

// LoadFile reads a Fixture from path.
func LoadFile(path string) (*Wiki, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wikihost: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Resolver returns the resolver the wiki normalizes titles with.
func (w *Wiki) Resolver() *page.Resolver {
	return w.resolver
}

func (w *Wiki) put(p Page) (*Page, error) {
	title, err := w.resolver.Normalize(p.Title)
	if err != nil {
		return nil, err
	}
	p.Title = title

	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.pages[title]; ok && p.ID == "" {
		p.ID = old.ID
	}
	if p.ID == "" {
		w.nextID++
		p.ID = strconv.Itoa(w.nextID)
	} else if n, err := strconv.Atoi(p.ID); err == nil && n > w.nextID {
		w.nextID = n
	}
	stored := p
	w.pages[title] = &stored
	return &stored, nil
}

// Page returns a copy of the page titled title.
func (w *Wiki) Page(title string) (Page, error) {
	canonical, err := w.resolver.Normalize(title)
	if err != nil {
		return Page{}, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.pages[canonical]
	if !ok {
		return Page{}, fmt.Errorf("%w: %s", ErrPageNotFound, canonical)
	}
	return *p, nil
}

// Titles returns every page title in sorted order.
func (w *Wiki) Titles() []string {
	w.mu.RLock()
	titles := make([]string, 0, len(w.pages))
	for t := range w.pages {
		titles = append(titles, t)
	}
	w.mu.RUnlock()
	sort.Strings(titles)
	return titles
}

// Exists implements page.Linker.
func (w *Wiki) Exists(_ context.Context, title string) (bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.pages[title]
	return ok, nil
}

// Link implements page.Linker. Links to missing pages carry class "new".
func (w *Wiki) Link(title, alias string) string {
	text := alias
	if text == "" {
		text = html.EscapeString(title)
	}
	href := (&url.URL{Path: "/wiki/" + strings.ReplaceAll(title, " ", "_")}).EscapedPath()

	w.mu.RLock()
	_, ok := w.pages[title]
	w.mu.RUnlock()
	if !ok {
		return fmt.Sprintf(`<a href="%s" class="new">%s</a>`, html.EscapeString(href), text)
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), text)
}

// Identify implements page.Identifier.
func (w *Wiki) Identify(_ context.Context, title string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.pages[title]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPageNotFound, title)
	}
	return p.ID, nil
}

var (
	_ page.Linker     = (*Wiki)(nil)
	_ page.Identifier = (*Wiki)(nil)
	_ trail.Registrar = (*Wiki)(nil)
)
