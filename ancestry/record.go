package ancestry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is what a page contributes to the breadcrumbs of its descendants.
type Record struct {
	// ID is the host's stable page identity, empty when unknown.
	ID string `json:"id"`

	// Title is the canonical page title.
	Title string `json:"title"`

	// Alias is the sanitized display alias.
	Alias string `json:"alias"`

	// ParentTitle is the parent the page declared, as written by its author.
	ParentTitle string `json:"parentTitle"`

	// Link is the presentational link shown in descendants' trails.
	Link string `json:"renderedLink"`
}

// Chain is a page's ancestors in discovery order, nearest parent first.
type Chain []Record

// Links returns the rendered link of every ancestor, in chain order.
func (c Chain) Links() []string {
	links := make([]string, len(c))
	for i, r := range c {
		links[i] = r.Link
	}
	return links
}

// Titles returns the title of every ancestor, in chain order.
func (c Chain) Titles() []string {
	titles := make([]string, len(c))
	for i, r := range c {
		titles[i] = r.Title
	}
	return titles
}

// String renders the chain as "A <- B <- C" for logs.
func (c Chain) String() string {
	return strings.Join(c.Titles(), " <- ")
}

func encodeRecord(r Record) ([]byte, error) {
	return json.Marshal(r)
}

func decodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(r.Title) == "" {
		return Record{}, fmt.Errorf("record has no title")
	}
	return r, nil
}
