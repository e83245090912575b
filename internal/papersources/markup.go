package papersources

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanMarkup strips HTML and JATS tags from s and collapses whitespace.
// Crossref abstracts arrive as JATS XML fragments and CORE and PubMed titles
// occasionally carry inline HTML. Plain text passes through unchanged apart from
// whitespace normalization.
func CleanMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return NormalizeWhitespace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return NormalizeWhitespace(s)
	}

	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		switch goquery.NodeName(sel) {
		case "jats:title", "title":
			// JATS abstracts open with a redundant "Abstract" heading.
			if strings.EqualFold(strings.TrimSpace(sel.Text()), "abstract") {
				sel.Remove()
			}
		case "p", "div", "br", "li", "jats:p", "jats:sec", "jats:list-item":
			sel.AppendHtml(" ")
		}
	})

	return NormalizeWhitespace(doc.Find("body").Text())
}

// NormalizeWhitespace collapses runs of whitespace into single spaces and trims.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
