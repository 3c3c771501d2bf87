package tui

import (
	"fmt"
	"html"
	"rssreader/sanitize"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const bullet = "•"

// RenderContent turns feed HTML into styled terminal text wrapped at width.
// The HTML goes through the rich sanitizer first; whatever survives is walked
// element by element.
func RenderContent(raw string, width int) string {
	if width < 10 {
		width = 10
	}

	doc, err := sanitize.Document(raw)
	if err != nil {
		return wrap(titleText(raw), width)
	}

	r := &renderer{width: width}
	r.blocks(doc.Find("body"))
	return strings.TrimRight(r.out.String(), "\n")
}

type renderer struct {
	width int
	out   strings.Builder
}

// blocks renders the children of sel. Runs of inline content between block
// elements become paragraphs.
func (r *renderer) blocks(sel *goquery.Selection) {
	var inline strings.Builder
	flush := func() {
		if text := trimLines(inline.String()); text != "" {
			r.block(wrap(text, r.width))
		}
		inline.Reset()
	}

	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		switch name := goquery.NodeName(s); name {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			flush()
			heading := trimLines(r.inlineChildren(s))
			if heading != "" {
				r.block(HeadingStyle.Render(wrap(heading, r.width)))
			}
		case "p", "div", "span":
			if name == "span" && !hasBlockChild(s) {
				inline.WriteString(r.inline(s))
				return
			}
			flush()
			r.blocks(s)
		case "ul", "ol":
			flush()
			r.list(s, name == "ol", 0)
			r.out.WriteString("\n")
		case "blockquote":
			flush()
			r.quote(s)
		case "pre":
			flush()
			r.block(CodeStyle.Render(strings.TrimRight(plainText(s.Text()), "\n")))
		case "hr":
			flush()
			r.block(MutedStyle.Render(strings.Repeat("─", r.width)))
		case "table":
			flush()
			r.table(s)
		default:
			inline.WriteString(r.inline(s))
		}
	})
	flush()
}

func (r *renderer) block(text string) {
	r.out.WriteString(text)
	r.out.WriteString("\n\n")
}

func (r *renderer) inline(s *goquery.Selection) string {
	switch goquery.NodeName(s) {
	case "#text":
		return collapseSpace(plainText(s.Text()))
	case "br":
		return "\n"
	case "a":
		text := strings.TrimSpace(r.inlineChildren(s))
		href := plainText(s.AttrOr("href", ""))
		switch {
		case href == "":
			return text
		case text == "" || text == href:
			return LinkStyle.Render(href)
		default:
			return fmt.Sprintf("%s (%s)", LinkStyle.Render(text), href)
		}
	case "b", "strong":
		return BoldStyle.Render(r.inlineChildren(s))
	case "i", "em":
		return ItalicStyle.Render(r.inlineChildren(s))
	case "strike":
		return StrikeStyle.Render(r.inlineChildren(s))
	case "code":
		return CodeStyle.Render(plainText(s.Text()))
	case "img":
		if alt := strings.TrimSpace(plainText(s.AttrOr("alt", ""))); alt != "" {
			return MutedStyle.Render("[image: " + alt + "]")
		}
		return MutedStyle.Render("[image]")
	default:
		return r.inlineChildren(s)
	}
}

func (r *renderer) inlineChildren(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		b.WriteString(r.inline(child))
	})
	return b.String()
}

func (r *renderer) list(s *goquery.Selection, ordered bool, depth int) {
	indent := strings.Repeat("  ", depth)
	n := 0
	s.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		n++
		marker := bullet
		if ordered {
			marker = fmt.Sprintf("%d.", n)
		}

		var text strings.Builder
		li.Contents().Not("ul, ol").Each(func(_ int, child *goquery.Selection) {
			text.WriteString(r.inline(child))
		})

		prefix := indent + marker + " "
		body := wrap(trimLines(text.String()), r.width-lipgloss.Width(prefix))
		r.out.WriteString(prefixLines(body, prefix, strings.Repeat(" ", lipgloss.Width(prefix))))
		r.out.WriteString("\n")

		li.ChildrenFiltered("ul, ol").Each(func(_ int, nested *goquery.Selection) {
			r.list(nested, goquery.NodeName(nested) == "ol", depth+1)
		})
	})
}

func (r *renderer) quote(s *goquery.Selection) {
	inner := &renderer{width: r.width - 2}
	inner.blocks(s)
	text := strings.TrimRight(inner.out.String(), "\n")
	if text == "" {
		return
	}
	r.block(QuoteStyle.Render(prefixLines(text, "│ ", "│ ")))
}

func (r *renderer) table(s *goquery.Selection) {
	var rows []string
	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
			text := trimLines(r.inlineChildren(cell))
			if goquery.NodeName(cell) == "th" {
				text = BoldStyle.Render(text)
			}
			cells = append(cells, text)
		})
		if len(cells) > 0 {
			rows = append(rows, strings.Join(cells, " │ "))
		}
	})
	if len(rows) > 0 {
		r.block(strings.Join(rows, "\n"))
	}
}

func hasBlockChild(s *goquery.Selection) bool {
	return s.ChildrenFiltered("p, div, ul, ol, pre, blockquote, table, hr, h1, h2, h3, h4, h5, h6").Length() > 0
}

// plainText removes escape sequences and every other control character
// except newlines and tabs, so feed text cannot drive the terminal
func plainText(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, ansi.Strip(text))
}

// titleText turns a title that may carry markup into printable text
func titleText(raw string) string {
	return plainText(html.UnescapeString(sanitize.StripHTML(raw)))
}

// collapseSpace folds whitespace runs in a text node into single spaces
func collapseSpace(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		if text == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if strings.TrimLeft(text, " \t\r\n") != text {
		out = " " + out
	}
	if strings.TrimRight(text, " \t\r\n") != text {
		out += " "
	}
	return out
}

// trimLines trims every line and drops leading and trailing blank lines
func trimLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// wrap breaks text at width without padding the short lines
func wrap(text string, width int) string {
	if width < 1 {
		return text
	}
	wrapped := lipgloss.NewStyle().Width(width).Render(text)
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.Join(lines, "\n")
}

func prefixLines(text string, first string, rest string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i == 0 {
			lines[i] = first + line
		} else {
			lines[i] = rest + line
		}
	}
	return strings.Join(lines, "\n")
}
