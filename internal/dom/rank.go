package dom

import (
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/HiteshGorana/Leo/pkg/protocol"
)

// RankOptions controls candidate selection and output shape.
type RankOptions struct {
	Selector  string // candidate set, CSS
	Limit     int    // max descriptors returned
	TextLimit int    // max label length, runes
}

// DefaultRankOptions returns the stock ranking parameters.
func DefaultRankOptions() RankOptions {
	return RankOptions{
		Selector:  `button, a, input, select, [role="button"]`,
		Limit:     30,
		TextLimit: 50,
	}
}

// Rank scores the page's visible interactive elements and returns them as
// descriptors sorted by priority descending, stable on document order,
// capped at opts.Limit. Candidates with no usable label are dropped.
//
// Scoring: 1 base; +9 when the text mentions next/prev (pagination
// controls first); purely numeric text is pinned to 5 (page numbers)
// unless next/prev already matched; +2 for a button tag and +2 again for
// role="button".
func (d *Document) Rank(opts RankOptions) []protocol.ElementDescriptor {
	if opts.Selector == "" {
		opts.Selector = DefaultRankOptions().Selector
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultRankOptions().Limit
	}
	if opts.TextLimit <= 0 {
		opts.TextLimit = DefaultRankOptions().TextLimit
	}

	var out []protocol.ElementDescriptor
	d.doc.Find(opts.Selector).Each(func(_ int, s *goquery.Selection) {
		if !visible(s) {
			return
		}

		text := normalizeSpace(s.Text())
		if text == "" {
			text = normalizeSpace(s.AttrOr("value", ""))
		}
		if text == "" {
			text = normalizeSpace(s.AttrOr("placeholder", ""))
		}
		text = truncate(text, opts.TextLimit)
		if text == "" {
			return
		}

		tag := goquery.NodeName(s)
		role := s.AttrOr("role", "")
		lower := strings.ToLower(text)

		priority := 1
		if strings.Contains(lower, "next") || strings.Contains(lower, "prev") {
			priority += 9
		} else if numeric(text) {
			priority = 5
		}
		if tag == "button" {
			priority += 2
		}
		if role == "button" {
			priority += 2
		}

		out = append(out, protocol.ElementDescriptor{
			Tag:      tag,
			Text:     text,
			Type:     s.AttrOr("type", ""),
			ID:       s.AttrOr("id", ""),
			Priority: priority,
		})
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func numeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
