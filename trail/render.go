package trail

import "strings"

// Truncate shortens elems to at most maxCount entries.
//
// With maxCount > 2 the first element is kept, followed by marker and the
// last maxCount-2 elements. With maxCount of 1 or 2 only the last maxCount
// elements are kept. maxCount <= 0 disables truncation. elems is not
// modified.
func Truncate(elems []string, maxCount int, marker string) []string {
	if maxCount <= 0 || len(elems) <= maxCount {
		return append([]string(nil), elems...)
	}
	if maxCount <= 2 {
		return append([]string(nil), elems[len(elems)-maxCount:]...)
	}

	out := make([]string, 0, maxCount)
	out = append(out, elems[0], marker)
	return append(out, elems[len(elems)-(maxCount-2):]...)
}

// Render truncates elems, joins them with the delimiter, and wraps the result
// in the container div. An empty elems renders as "".
func Render(elems []string, cfg Config) string {
	if len(elems) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div id="`)
	b.WriteString(cfg.ContainerID)
	b.WriteString(`">`)
	b.WriteString(strings.Join(Truncate(elems, cfg.MaxCount, cfg.OverflowMarker), cfg.Delimiter))
	b.WriteString(`</div>`)
	return b.String()
}
