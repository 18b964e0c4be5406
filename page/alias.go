package page

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxAliasLength bounds a display alias, in Unicode code points.
const MaxAliasLength = 255

// aliasEscaper escapes characters significant to HTML and to wiki markup.
// Apostrophes become &#39; which is what TranslateMarkup matches on.
var aliasEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
	"[", "&#91;",
	"]", "&#93;",
	"{", "&#123;",
	"}", "&#125;",
	"|", "&#124;",
	"=", "&#61;",
)

// SanitizeAlias trims s, truncates it to limit code points (MaxAliasLength
// when limit <= 0) and escapes markup-significant characters.
func SanitizeAlias(s string, limit int) string {
	if limit <= 0 {
		limit = MaxAliasLength
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > limit {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:limit]))
	}
	return aliasEscaper.Replace(s)
}

var (
	boldPattern   = regexp.MustCompile(`&#39;&#39;&#39;(.*?)&#39;&#39;&#39;`)
	italicPattern = regexp.MustCompile(`&#39;&#39;(.*?)&#39;&#39;`)
)

// TranslateMarkup converts escaped '''bold''' and ''italic'' runs into <b>
// and <i> spans. Bold runs are translated first; unterminated markers are
// left as literal text.
func TranslateMarkup(s string) string {
	s = boldPattern.ReplaceAllString(s, "<b>$1</b>")
	return italicPattern.ReplaceAllString(s, "<i>$1</i>")
}
