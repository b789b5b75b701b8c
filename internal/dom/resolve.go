package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// CandidateSelector matches the interactive elements eligible for
// text-based resolution.
const CandidateSelector = `button, a, input[type="button"], input[type="submit"], [role="button"]`

// Element is a resolved page element: a node path the live session can
// act on, and a short human label for confirmations.
type Element struct {
	Path  string
	Tag   string
	Label string
}

// Resolve maps target, a CSS selector or a visible label, to a concrete
// element. Precedence, first match wins:
//
//  1. target as a CSS selector (syntax errors fall through, not propagate)
//  2. case-insensitive exact text/value match on interactive candidates
//  3. case-insensitive substring match on the same candidates
//  4. any leaf element whose trimmed text equals target, case-insensitive
//
// The ordering trades precision for robustness against brittle selectors.
func (d *Document) Resolve(target string) (*Element, bool) {
	if m, err := cascadia.Compile(target); err == nil {
		if s := d.doc.FindMatcher(m); s.Length() > 0 {
			return element(s.First(), target), true
		}
	}

	candidates := d.doc.Find(CandidateSelector)

	var exact, partial *goquery.Selection
	lowerTarget := strings.ToLower(target)
	candidates.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		l := label(s)
		if l == "" {
			return true
		}
		if strings.EqualFold(l, target) {
			exact = s
			return false
		}
		if partial == nil && strings.Contains(strings.ToLower(l), lowerTarget) {
			partial = s
		}
		return true
	})
	if exact != nil {
		return element(exact, target), true
	}
	if partial != nil {
		return element(partial, target), true
	}

	var leaf *goquery.Selection
	d.doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		if strings.EqualFold(normalizeSpace(s.Text()), target) {
			leaf = s
			return false
		}
		return true
	})
	if leaf != nil {
		return element(leaf, target), true
	}

	return nil, false
}

func element(s *goquery.Selection, target string) *Element {
	l := label(s)
	if l == "" {
		l = target
	}
	return &Element{
		Path:  NodePath(s.Nodes[0]),
		Tag:   goquery.NodeName(s),
		Label: truncate(l, 50),
	}
}
