package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// highlightJS flashes an outline around an element so a user watching the
// browser can follow along. The outline restores itself after two seconds.
const highlightJS = `() => {
	const el = this;
	const prev = el.style.outline;
	el.style.outline = '3px solid #ff6d00';
	setTimeout(() => { el.style.outline = prev; }, 2000);
}`

// Click scrolls the element at the CSS path into view and clicks it.
func (m *Manager) Click(ctx context.Context, path string) error {
	page, err := m.page()
	if err != nil {
		return err
	}

	el, err := page.Context(ctx).Element(path)
	if err != nil {
		return fmt.Errorf("locate element: %w", err)
	}

	if err := el.ScrollIntoView(); err != nil {
		m.logger.Warn("scroll into view", "path", path, "error", err)
	}
	m.highlight(el)

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click: %w", err)
	}

	_ = page.WaitStable(stabilizeWindow)
	return nil
}

// Type focuses the element at the CSS path, replaces its content, and
// types the text.
func (m *Manager) Type(ctx context.Context, path, text string) error {
	page, err := m.page()
	if err != nil {
		return err
	}

	el, err := page.Context(ctx).Element(path)
	if err != nil {
		return fmt.Errorf("locate element: %w", err)
	}

	if err := el.ScrollIntoView(); err != nil {
		m.logger.Warn("scroll into view", "path", path, "error", err)
	}
	m.highlight(el)

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("focus element: %w", err)
	}
	if err := el.SelectAllText(); err != nil {
		m.logger.Warn("select text", "path", path, "error", err)
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	return nil
}

// Scroll scrolls the active tab by the given pixel offsets.
func (m *Manager) Scroll(ctx context.Context, x, y int) error {
	page, err := m.page()
	if err != nil {
		return err
	}

	js := fmt.Sprintf(`() => window.scrollBy({left: %d, top: %d, behavior: 'smooth'})`, x, y)
	if _, err := page.Context(ctx).Eval(js); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// highlight is fire and forget; a page that rejects the script must not
// fail the action.
func (m *Manager) highlight(el *rod.Element) {
	if _, err := el.Eval(highlightJS); err != nil {
		m.logger.Debug("highlight element", "error", err)
	}
}
