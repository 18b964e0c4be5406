// Package ancestry persists what each page declared as its parent and walks
// those declarations upward to build a page's chain of ancestors.
//
// Cache is the only path to the backing store. Every rendered page writes its
// own Record; Walker then follows parentTitle links from record to record
// until it reaches a root, an unknown page, a page it has already visited, or
// a page whose record has not been written yet.
package ancestry
