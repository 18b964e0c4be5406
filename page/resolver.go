package page

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxTitleBytes is the longest canonical title accepted, in bytes.
const MaxTitleBytes = 255

// illegalTitleChars may never appear in a canonical title.
const illegalTitleChars = "<>[]{}|#"

// Namespace describes a title namespace and the prefixes that select it.
type Namespace struct {
	// Name is the canonical prefix, e.g. "Help".
	Name string

	// Aliases are additional prefixes (localized or legacy names).
	Aliases []string
}

// DefaultNamespaces are the namespaces recognized when none are configured.
var DefaultNamespaces = []Namespace{
	{Name: "Talk"},
	{Name: "User"},
	{Name: "Project"},
	{Name: "File", Aliases: []string{"Image"}},
	{Name: "Template"},
	{Name: "Help"},
	{Name: "Category"},
}

// Resolver turns raw page names into References.
type Resolver struct {
	linker         Linker
	namespaces     map[string]string // lower-cased prefix -> canonical name
	maxAliasLength int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNamespaces replaces the recognized namespaces.
func WithNamespaces(namespaces ...Namespace) Option {
	return func(r *Resolver) {
		r.namespaces = indexNamespaces(namespaces)
	}
}

// WithMaxAliasLength sets the alias bound in code points.
// Values <= 0 keep MaxAliasLength.
func WithMaxAliasLength(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxAliasLength = n
		}
	}
}

// NewResolver creates a Resolver. A nil linker renders links as plain text.
func NewResolver(linker Linker, opts ...Option) *Resolver {
	r := &Resolver{
		linker:         linker,
		namespaces:     indexNamespaces(DefaultNamespaces),
		maxAliasLength: MaxAliasLength,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func indexNamespaces(namespaces []Namespace) map[string]string {
	idx := make(map[string]string, len(namespaces))
	for _, ns := range namespaces {
		name := strings.TrimSpace(ns.Name)
		if name == "" {
			continue
		}
		idx[strings.ToLower(name)] = name
		for _, alias := range ns.Aliases {
			if alias = strings.TrimSpace(alias); alias != "" {
				idx[strings.ToLower(alias)] = name
			}
		}
	}
	return idx
}

// Normalize returns the canonical form of a raw title.
func (r *Resolver) Normalize(raw string) (string, error) {
	s := norm.NFC.String(raw)
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimSpace(strings.TrimPrefix(s, ":"))

	if s == "" {
		return "", ErrInvalidTitle
	}
	if strings.ContainsAny(s, illegalTitleChars) || strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("%w: %q contains forbidden characters", ErrInvalidTitle, s)
	}

	if ns, name, ok := r.splitNamespace(s); ok {
		if name == "" {
			return "", fmt.Errorf("%w: %q has an empty name", ErrInvalidTitle, s)
		}
		s = ns + ":" + name
	}

	if len(s) > MaxTitleBytes {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidTitle, MaxTitleBytes)
	}
	return s, nil
}

// splitNamespace splits s on its first colon when the prefix is a known
// namespace. Unknown prefixes are part of the page name.
func (r *Resolver) splitNamespace(s string) (ns, name string, ok bool) {
	prefix, rest, found := strings.Cut(s, ":")
	if !found {
		return "", s, false
	}
	canonical, known := r.namespaces[strings.ToLower(strings.TrimSpace(prefix))]
	if !known {
		return "", s, false
	}
	return canonical, strings.TrimSpace(rest), true
}

// Resolve builds a Reference from a raw title and an optional raw alias.
//
// When rawAlias is blank, a "Title|Alias" rawTitle is split on its first
// pipe. The returned error wraps ErrInvalidTitle.
func (r *Resolver) Resolve(rawTitle, rawAlias string) (Reference, error) {
	if strings.TrimSpace(rawAlias) == "" {
		if title, alias, found := strings.Cut(rawTitle, "|"); found {
			rawTitle, rawAlias = title, alias
		}
	}

	title, err := r.Normalize(rawTitle)
	if err != nil {
		return Reference{}, err
	}

	ref := Reference{
		Title: title,
		Name:  title,
		Alias: TranslateMarkup(SanitizeAlias(rawAlias, r.maxAliasLength)),
	}
	if ns, name, ok := r.splitNamespace(title); ok {
		ref.Namespace = ns
		ref.Name = name
	}
	ref.Link = r.Link(ref.Title, ref.Alias)

	return ref, nil
}

// Link renders a link through the configured Linker.
func (r *Resolver) Link(title, alias string) string {
	if r.linker == nil {
		if alias != "" {
			return alias
		}
		return html.EscapeString(title)
	}
	return r.linker.Link(title, alias)
}
