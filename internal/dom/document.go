// Package dom models a captured page document and implements the
// target-resolution, element-ranking and text-extraction heuristics the
// relay agent runs against it. Documents are plain parsed HTML, so every
// heuristic is testable against synthetic markup without a browser.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HiddenAttr marks elements the capture layer found not laid out (zero
// width/height box or visibility:hidden). The ranker skips them.
const HiddenAttr = "data-leo-hidden"

// Document is a parsed snapshot of a page. Building one never touches the
// live page; layout facts arrive as capture annotations on the markup.
type Document struct {
	URL   string
	Title string
	HTML  string

	doc *goquery.Document
}

// Parse builds a Document from serialized HTML.
func Parse(rawHTML, url, title string) (*Document, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{URL: url, Title: title, HTML: rawHTML, doc: d}, nil
}

// visible reports whether a candidate survived layout. Capture annotations
// win; static hiding signals cover synthetic documents.
func visible(s *goquery.Selection) bool {
	if _, ok := s.Attr(HiddenAttr); ok {
		return false
	}
	if _, ok := s.Attr("hidden"); ok {
		return false
	}
	style := strings.ReplaceAll(s.AttrOr("style", ""), " ", "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return false
	}
	if goquery.NodeName(s) == "input" && strings.EqualFold(s.AttrOr("type", ""), "hidden") {
		return false
	}
	return true
}

// label returns the first non-empty of rendered text and form value.
func label(s *goquery.Selection) string {
	if t := renderedText(s); t != "" {
		return t
	}
	return normalizeSpace(s.AttrOr("value", ""))
}

// NodePath returns a CSS path that addresses n in its document, built from
// tag names and :nth-child positions. The path stays valid on the live
// page as long as the DOM has not changed since capture.
func NodePath(n *html.Node) string {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		part := cur.Data
		if cur.Parent != nil && cur.Parent.Type == html.ElementNode {
			idx := 1
			for sib := cur.PrevSibling; sib != nil; sib = sib.PrevSibling {
				if sib.Type == html.ElementNode {
					idx++
				}
			}
			part = fmt.Sprintf("%s:nth-child(%d)", cur.Data, idx)
		}
		parts = append(parts, part)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

// normalizeSpace collapses all whitespace runs to single spaces and trims.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
