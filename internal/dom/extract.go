package dom

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// readabilityFrom is the opaque article extractor. Swappable in tests.
var readabilityFrom func(io.Reader, *url.URL) (readability.Article, error) = readability.FromReader

// Extract returns best-effort plain text for the document. The primary
// path runs readability over the serialized snapshot; a failure, a panic
// or an empty article all degrade to the raw text content. Whitespace is
// collapsed either way. Extract never fails.
func (d *Document) Extract() string {
	if text := d.extractArticle(); text != "" {
		return text
	}
	body := d.doc.Find("body")
	if body.Length() == 0 {
		return renderedText(d.doc.Selection)
	}
	return renderedText(body)
}

// renderedText returns the collapsed text content of s with non-rendered
// subtrees stripped. Works on a clone so the document is left intact.
func renderedText(s *goquery.Selection) string {
	clone := s.Clone()
	clone.Find("script, style, noscript, template").Remove()
	return normalizeSpace(clone.Text())
}

func (d *Document) extractArticle() (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	u, err := url.Parse(d.URL)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readabilityFrom(strings.NewReader(d.HTML), u)
	if err != nil {
		return ""
	}
	return normalizeSpace(article.TextContent)
}
