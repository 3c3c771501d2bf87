// Package sanitize turns untrusted feed HTML into something safe to render.
//
// Both renderings run an HTML parser in-process, so the output is the same
// wherever the code runs.
package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// AllowedTags lists every element Rich may emit
var AllowedTags = []string{
	"h1", "h2", "h3", "h4", "h5", "h6", "p", "a", "ul", "ol", "li",
	"b", "i", "strong", "em", "strike", "code", "hr", "br", "div",
	"table", "thead", "tbody", "tr", "th", "td", "pre", "blockquote",
	"img", "span",
}

// AllowedAttrs lists every attribute Rich may emit
var AllowedAttrs = []string{"href", "src", "class", "id", "alt", "title", "target"}

var (
	richPolicy  = newRichPolicy()
	plainPolicy = bluemonday.StrictPolicy()

	nbspReplacer = strings.NewReplacer("&nbsp;", " ", "\u00a0", " ")
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(AllowedTags...)
	p.AllowAttrs(AllowedAttrs...).Globally()
	// Drops javascript: and data: links from href and src
	p.AllowStandardURLs()
	return p
}

// Rich strips every element and attribute outside the allow-lists
func Rich(raw string) string {
	return richPolicy.Sanitize(raw)
}

// Document parses the output of Rich into a tree for renderers
func Document(raw string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(Rich(raw)))
}

// StripHTML removes all markup and returns trimmed text, with non-breaking
// spaces turned into regular ones. Text that was escaped in the input stays
// escaped, so the result never contains markup.
func StripHTML(raw string) string {
	clean := plainPolicy.Sanitize(raw)
	clean = nbspReplacer.Replace(clean)
	return strings.TrimSpace(clean)
}
