package browser

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod/lib/proto"

	"github.com/HiteshGorana/Leo/internal/dom"
)

// captureJS snapshots the page in ONE call. It computes layout visibility
// on the live nodes, clones the document, marks candidates that have no
// layout box on the clone, and returns the clone's HTML. The live page is
// never mutated.
const captureJS = `() => {
	const selector = 'a, button, input, select, textarea, [role="button"], [role="link"], [onclick]';
	const live = Array.from(document.querySelectorAll(selector));
	const clone = document.documentElement.cloneNode(true);
	const cloned = Array.from(clone.querySelectorAll(selector));

	const n = Math.min(live.length, cloned.length);
	for (let i = 0; i < n; i++) {
		const el = live[i];
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		const visible = rect.width > 0 && rect.height > 0 &&
			style.display !== 'none' && style.visibility !== 'hidden';
		if (!visible) {
			cloned[i].setAttribute('data-leo-hidden', '');
		}
	}

	return JSON.stringify({
		html: '<html>' + clone.innerHTML + '</html>',
		url: window.location.href,
		title: document.title,
	});
}`

type captureResult struct {
	HTML  string `json:"html"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Capture snapshots the active tab into a parsed document. Elements that
// occupy no layout box carry a data-leo-hidden marker in the snapshot.
func (m *Manager) Capture(ctx context.Context) (*dom.Document, error) {
	page, err := m.page()
	if err != nil {
		return nil, err
	}

	res, err := page.Context(ctx).Eval(captureJS)
	if err != nil {
		return nil, fmt.Errorf("capture page: %w", err)
	}

	var snap captureResult
	if err := json.Unmarshal([]byte(res.Value.String()), &snap); err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}

	return dom.Parse(snap.HTML, snap.URL, snap.Title)
}

// Screenshot captures the active tab viewport as a base64 PNG data URL.
func (m *Manager) Screenshot(ctx context.Context) (string, error) {
	page, err := m.page()
	if err != nil {
		return "", err
	}

	raw, err := page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}

	raw, err = downscalePNG(raw, m.maxWidth)
	if err != nil {
		return "", err
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// downscalePNG resizes a PNG to at most maxWidth pixels wide, preserving
// aspect ratio. Returns the input unchanged when it already fits.
func downscalePNG(raw []byte, maxWidth int) ([]byte, error) {
	if maxWidth <= 0 {
		return raw, nil
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	if img.Bounds().Dx() <= maxWidth {
		return raw, nil
	}

	scaled := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}
