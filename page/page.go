package page

import (
	"context"
	"errors"
	"html"
)

// ErrInvalidTitle indicates a title that is empty or cannot name a page.
var ErrInvalidTitle = errors.New("page: invalid title")

// Reference is a resolved page reference.
//
// References are values; WithID returns a modified copy.
type Reference struct {
	// ID is the host's stable page identity, if known.
	ID string

	// Title is the canonical, namespace-qualified title.
	Title string

	// Namespace is the canonical namespace name, empty for the main namespace.
	Namespace string

	// Name is the title without its namespace prefix.
	Name string

	// Alias is the sanitized display alias, possibly containing <b>/<i> markup.
	Alias string

	// Link is the presentational link produced by the Linker.
	Link string
}

// WithID returns a copy of r carrying the given identity.
func (r Reference) WithID(id string) Reference {
	r.ID = id
	return r
}

// Valid reports whether r names a page.
func (r Reference) Valid() bool {
	return r.Title != ""
}

// Display returns the plain display form: the alias when present,
// otherwise the HTML-escaped title.
func (r Reference) Display() string {
	if r.Alias != "" {
		return r.Alias
	}
	return html.EscapeString(r.Title)
}

// Linker is the host's page existence and link presentation service.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Exists: a false result or an error ends a breadcrumb walk at that title.
// - Link: alias is already sanitized markup; an empty alias means "use the title".
type Linker interface {
	// Exists reports whether a page with the canonical title exists.
	Exists(ctx context.Context, title string) (bool, error)

	// Link renders a clickable reference to title.
	Link(title, alias string) string
}

// Identifier is implemented by Linkers that can map a title to the host's
// stable page identity. It is required when records are keyed by identity.
type Identifier interface {
	Identify(ctx context.Context, title string) (string, error)
}
