package dom

import (
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	readability "github.com/go-shiori/go-readability"
)

func swapReadability(t *testing.T, fn func(io.Reader, *url.URL) (readability.Article, error)) {
	t.Helper()
	orig := readabilityFrom
	readabilityFrom = fn
	t.Cleanup(func() { readabilityFrom = orig })
}

func TestExtract_PrimaryPath(t *testing.T) {
	swapReadability(t, func(io.Reader, *url.URL) (readability.Article, error) {
		return readability.Article{TextContent: "An   article\n\nwith   gaps"}, nil
	})

	d := mustParse(t, `<html><body><nav>chrome</nav><p>ignored</p></body></html>`)
	if got := d.Extract(); got != "An article with gaps" {
		t.Errorf("expected normalized article text, got %q", got)
	}
}

func TestExtract_FallbackOnError(t *testing.T) {
	swapReadability(t, func(io.Reader, *url.URL) (readability.Article, error) {
		return readability.Article{}, errors.New("boom")
	})

	d := mustParse(t, `<html><body><p>plain   page	text</p></body></html>`)
	if got := d.Extract(); got != "plain page text" {
		t.Errorf("expected normalized raw text, got %q", got)
	}
}

func TestExtract_FallbackSkipsNonRenderedNodes(t *testing.T) {
	swapReadability(t, func(io.Reader, *url.URL) (readability.Article, error) {
		return readability.Article{}, errors.New("boom")
	})

	raw := `<html><body><p>visible words</p>` +
		`<script>var secret = "source";</script>` +
		`<style>.x { color: red }</style>` +
		`<noscript>enable js</noscript>` +
		`<template><p>stamped later</p></template></body></html>`
	d := mustParse(t, raw)
	if got := d.Extract(); got != "visible words" {
		t.Errorf("expected rendered text only, got %q", got)
	}
	if d.HTML != raw {
		t.Error("fallback must not mutate the captured markup")
	}
	if d.doc.Find("script").Length() != 1 {
		t.Error("fallback must not strip nodes from the parsed tree")
	}
}

func TestExtract_FallbackOnPanic(t *testing.T) {
	swapReadability(t, func(io.Reader, *url.URL) (readability.Article, error) {
		panic("readability exploded")
	})

	d := mustParse(t, `<html><body><p>still here</p></body></html>`)
	if got := d.Extract(); got != "still here" {
		t.Errorf("expected fallback text, got %q", got)
	}
}

func TestExtract_FallbackOnEmptyArticle(t *testing.T) {
	swapReadability(t, func(io.Reader, *url.URL) (readability.Article, error) {
		return readability.Article{TextContent: "   \n\t "}, nil
	})

	d := mustParse(t, `<html><body><p>body wins</p></body></html>`)
	if got := d.Extract(); got != "body wins" {
		t.Errorf("expected fallback text, got %q", got)
	}
}

func TestExtract_DoesNotMutateDocument(t *testing.T) {
	swapReadability(t, func(r io.Reader, _ *url.URL) (readability.Article, error) {
		// Drain the input like the real extractor would.
		_, _ = io.ReadAll(r)
		return readability.Article{TextContent: "ok"}, nil
	})

	raw := `<html><body><p>original</p></body></html>`
	d := mustParse(t, raw)
	_ = d.Extract()

	if d.HTML != raw {
		t.Error("extraction must not mutate the captured markup")
	}
	if got := strings.TrimSpace(d.doc.Find("p").Text()); got != "original" {
		t.Errorf("parsed tree changed: %q", got)
	}
}
