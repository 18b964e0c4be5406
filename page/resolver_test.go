package page

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordingLinker struct {
	calls []string
}

func (l *recordingLinker) Exists(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func (l *recordingLinker) Link(title, alias string) string {
	l.calls = append(l.calls, title+"|"+alias)
	if alias != "" {
		return `<a href="/wiki/` + title + `">` + alias + `</a>`
	}
	return `<a href="/wiki/` + title + `">` + title + `</a>`
}

func TestResolver_Normalize(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain", "Main Page", "Main Page", false},
		{"underscores", "Main_Page", "Main Page", false},
		{"collapses whitespace", "  Docs   /  Guide ", "Docs / Guide", false},
		{"leading colon", ":Docs/Guide", "Docs/Guide", false},
		{"known namespace canonicalized", "help:  Contents", "Help:Contents", false},
		{"namespace alias", "image:Logo.png", "File:Logo.png", false},
		{"unknown prefix kept", "Docs:Install", "Docs:Install", false},
		{"nfc", "Cafe\u0301", "Caf\u00e9", false},
		{"empty", "", "", true},
		{"blank", " _ ", "", true},
		{"forbidden bracket", "A[b]", "", true},
		{"forbidden pipe", "A|B", "", true},
		{"namespace only", "Help:", "", true},
		{"too long", strings.Repeat("a", MaxTitleBytes+1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Normalize(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTitle) {
					t.Errorf("Normalize(%q) error = %v, want ErrInvalidTitle", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolver_ResolveDelegatesLink(t *testing.T) {
	linker := &recordingLinker{}
	r := NewResolver(linker)

	ref, err := r.Resolve("Docs/Guide", "The Guide")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ref.Title != "Docs/Guide" || ref.Alias != "The Guide" {
		t.Errorf("Resolve() = %+v", ref)
	}
	if ref.Link != `<a href="/wiki/Docs/Guide">The Guide</a>` {
		t.Errorf("Link = %q", ref.Link)
	}
	if len(linker.calls) != 1 || linker.calls[0] != "Docs/Guide|The Guide" {
		t.Errorf("linker calls = %v", linker.calls)
	}

	bare, _ := r.Resolve("Docs", "")
	if bare.Link != `<a href="/wiki/Docs">Docs</a>` {
		t.Errorf("bare Link = %q", bare.Link)
	}
}

func TestResolver_ResolveNamespace(t *testing.T) {
	r := NewResolver(nil, WithNamespaces(Namespace{Name: "Hilfe", Aliases: []string{"Help"}}))

	ref, err := r.Resolve("help:Start", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ref.Title != "Hilfe:Start" || ref.Namespace != "Hilfe" || ref.Name != "Start" {
		t.Errorf("Resolve() = %+v", ref)
	}

	// Default namespaces are replaced
	plain, _ := r.Resolve("Talk:Start", "")
	if plain.Namespace != "" || plain.Title != "Talk:Start" {
		t.Errorf("Talk should not be a namespace here: %+v", plain)
	}
}

func TestResolver_ResolvePipeForm(t *testing.T) {
	r := NewResolver(nil)

	ref, err := r.Resolve("Docs/Guide | Guide", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ref.Title != "Docs/Guide" || ref.Alias != "Guide" {
		t.Errorf("Resolve(pipe) = %+v", ref)
	}

	// An explicit alias disables the split, leaving an invalid title
	if _, err := r.Resolve("Docs|Guide", "Explicit"); !errors.Is(err, ErrInvalidTitle) {
		t.Errorf("Resolve(pipe, alias) error = %v, want ErrInvalidTitle", err)
	}
}

func TestResolver_ResolveInvalid(t *testing.T) {
	r := NewResolver(&recordingLinker{})
	ref, err := r.Resolve("   ", "alias")
	if !errors.Is(err, ErrInvalidTitle) {
		t.Errorf("Resolve(blank) error = %v, want ErrInvalidTitle", err)
	}
	if ref.Valid() {
		t.Error("invalid resolution should return a zero Reference")
	}
}

func TestResolver_AliasMarkup(t *testing.T) {
	r := NewResolver(nil)

	ref, err := r.Resolve("Docs", "'''Bold''' and ''italic''")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ref.Alias != "<b>Bold</b> and <i>italic</i>" {
		t.Errorf("Alias = %q", ref.Alias)
	}
	if ref.Display() != ref.Alias {
		t.Errorf("Display() = %q, want alias", ref.Display())
	}
}

func TestReference_DisplayEscapesTitle(t *testing.T) {
	ref := Reference{Title: "Q&A"}
	if got := ref.Display(); got != "Q&amp;A" {
		t.Errorf("Display() = %q, want Q&amp;A", got)
	}
	if ref.WithID("7").ID != "7" || ref.ID != "" {
		t.Error("WithID should return a modified copy")
	}
}
