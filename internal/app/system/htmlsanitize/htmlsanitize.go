// Package htmlsanitize cleans user-supplied text before it is stored.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// rich allows the formatting used in project descriptions.
	rich = func() *bluemonday.Policy {
		p := bluemonday.UGCPolicy()
		p.AllowElements("u", "s", "sub", "sup", "mark")
		return p
	}()

	// strict removes all markup.
	strict = bluemonday.StrictPolicy()
)

// Sanitize keeps safe formatting and removes scripts, handlers and unsafe URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(rich.Sanitize(s))
}

// PlainText strips every tag. Used for comments, chat messages, rejection
// reasons and anything else that is shown verbatim in notifications.
// Entities produced by the policy are decoded back so "R&D" stays readable.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := strict.Sanitize(s)
	out = entityReplacer.Replace(out)
	return strings.TrimSpace(out)
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&#34;", `"`,
	"&#39;", "'",
	"&quot;", `"`,
)

// IsPlainText reports whether s contains no tags.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}
