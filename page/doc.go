// Package page resolves raw page names into canonical page references.
//
// A Resolver normalizes titles (underscore/space equivalence, whitespace
// collapsing, Unicode NFC, namespace canonicalization), sanitizes
// user-supplied display aliases and translates the two inline emphasis
// markers ('''bold''' and ''italic'') into markup. Link presentation and page
// existence are delegated to a Linker supplied by the host wiki.
//
// Resolution is pure: it never consults the breadcrumb cache.
package page
