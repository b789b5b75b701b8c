// Package dispatch turns inbound protocol frames into page actions: it
// parses commands, acks them, runs them through the executor and emits
// the terminal result or error.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/HiteshGorana/Leo/internal/dom"
	"github.com/HiteshGorana/Leo/pkg/protocol"
)

// Session is the page-context capability the executor drives. pkg/browser
// provides the live implementation; tests substitute a fake. Click and
// Type take a node path produced by the resolver against a Capture of the
// same session.
type Session interface {
	// Open opens url in a new tab and makes it the active tab.
	Open(ctx context.Context, url string) error
	// Screenshot captures the visible area of the active tab as a
	// data:image/png;base64 URL.
	Screenshot(ctx context.Context) (string, error)
	// Capture returns a parsed snapshot of the active tab.
	Capture(ctx context.Context) (*dom.Document, error)
	// Scroll scrolls the active tab by (x, y) pixels, smoothly.
	Scroll(ctx context.Context, x, y int) error
	// Click scrolls the element at path into view, highlights it and
	// clicks it.
	Click(ctx context.Context, path string) error
	// Type scrolls the element at path into view, highlights it, sets
	// its value and dispatches input/change events.
	Type(ctx context.Context, path, text string) error
	// Active reports whether an active tab exists; error if not.
	Active(ctx context.Context) error
}

// Defaults applied when a command omits an optional field.
const (
	DefaultScrollY = 500
	DefaultWaitMs  = 2000
)

// Outcome is a successful command result.
type Outcome struct {
	Data    interface{}
	Message string
}

// Executor runs one command against the session. It has no queue and no
// timeout of its own: a hung page action keeps that command pending.
type Executor struct {
	session Session

	mu       sync.RWMutex
	rankOpts dom.RankOptions
	scrollY  int
	waitMs   int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRankOptions overrides the element-ranking parameters.
func WithRankOptions(opts dom.RankOptions) ExecutorOption {
	return func(e *Executor) { e.rankOpts = opts }
}

// WithDefaults overrides the scroll and wait fallback values.
func WithDefaults(scrollY, waitMs int) ExecutorOption {
	return func(e *Executor) {
		if scrollY > 0 {
			e.scrollY = scrollY
		}
		if waitMs > 0 {
			e.waitMs = waitMs
		}
	}
}

// NewExecutor creates an Executor over session.
func NewExecutor(session Session, opts ...ExecutorOption) *Executor {
	e := &Executor{
		session:  session,
		rankOpts: dom.DefaultRankOptions(),
		scrollY:  DefaultScrollY,
		waitMs:   DefaultWaitMs,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Reconfigure swaps the tunables at runtime. In-flight commands keep the
// values they started with.
func (e *Executor) Reconfigure(opts dom.RankOptions, scrollY, waitMs int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rankOpts = opts
	if scrollY > 0 {
		e.scrollY = scrollY
	}
	if waitMs > 0 {
		e.waitMs = waitMs
	}
}

// Execute runs cmd and returns its outcome. Every failure is an error the
// dispatcher reports on the protocol; none are fatal.
func (e *Executor) Execute(ctx context.Context, cmd *protocol.Command) (*Outcome, error) {
	switch cmd.Action {
	case protocol.ActionOpen:
		return e.open(ctx, cmd)
	case protocol.ActionScreenshot:
		return e.screenshot(ctx)
	case protocol.ActionMoment:
		return e.moment(ctx)
	case protocol.ActionClick:
		return e.click(ctx, cmd)
	case protocol.ActionType:
		return e.typeText(ctx, cmd)
	case protocol.ActionRead:
		return e.read(ctx)
	case protocol.ActionScroll:
		return e.scroll(ctx, cmd)
	case protocol.ActionGetElements:
		return e.getElements(ctx)
	case protocol.ActionWait:
		return e.wait(ctx, cmd)
	default:
		return nil, fmt.Errorf("unknown action: %s", cmd.Action)
	}
}

// NormalizeURL prefixes https:// when url carries no scheme.
func NormalizeURL(url string) string {
	if strings.Contains(url, "://") {
		return url
	}
	return "https://" + url
}

func (e *Executor) open(ctx context.Context, cmd *protocol.Command) (*Outcome, error) {
	if cmd.URL == "" {
		return nil, fmt.Errorf("open requires a url")
	}
	url := NormalizeURL(cmd.URL)
	if err := e.session.Open(ctx, url); err != nil {
		return nil, err
	}
	return &Outcome{Message: fmt.Sprintf("Opened %s in a new tab", url)}, nil
}

func (e *Executor) screenshot(ctx context.Context) (*Outcome, error) {
	shot, err := e.session.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	return &Outcome{Data: shot}, nil
}

func (e *Executor) moment(ctx context.Context) (*Outcome, error) {
	shot, err := e.session.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := e.session.Capture(ctx)
	if err != nil {
		return nil, err
	}
	return &Outcome{Data: &protocol.MomentData{
		Screenshot: shot,
		Page: &protocol.PageSnapshot{
			Text:  doc.Extract(),
			Title: doc.Title,
			URL:   doc.URL,
			HTML:  doc.HTML,
		},
	}}, nil
}

func (e *Executor) click(ctx context.Context, cmd *protocol.Command) (*Outcome, error) {
	el, err := e.resolve(ctx, cmd.Selector)
	if err != nil {
		return nil, err
	}
	if err := e.session.Click(ctx, el.Path); err != nil {
		return nil, err
	}
	return &Outcome{Message: fmt.Sprintf("Clicked %q", el.Label)}, nil
}

func (e *Executor) typeText(ctx context.Context, cmd *protocol.Command) (*Outcome, error) {
	el, err := e.resolve(ctx, cmd.Selector)
	if err != nil {
		return nil, err
	}
	if err := e.session.Type(ctx, el.Path, cmd.Text); err != nil {
		return nil, err
	}
	return &Outcome{Message: fmt.Sprintf("Typed into %q", el.Label)}, nil
}

func (e *Executor) read(ctx context.Context) (*Outcome, error) {
	doc, err := e.session.Capture(ctx)
	if err != nil {
		return nil, err
	}
	return &Outcome{Data: doc.Extract()}, nil
}

func (e *Executor) scroll(ctx context.Context, cmd *protocol.Command) (*Outcome, error) {
	e.mu.RLock()
	x, y := 0, e.scrollY
	e.mu.RUnlock()
	if cmd.X != nil {
		x = *cmd.X
	}
	if cmd.Y != nil {
		y = *cmd.Y
	}
	if err := e.session.Scroll(ctx, x, y); err != nil {
		return nil, err
	}
	return &Outcome{Data: "Scrolled"}, nil
}

func (e *Executor) getElements(ctx context.Context) (*Outcome, error) {
	doc, err := e.session.Capture(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	opts := e.rankOpts
	e.mu.RUnlock()
	return &Outcome{Data: doc.Rank(opts)}, nil
}

func (e *Executor) wait(ctx context.Context, cmd *protocol.Command) (*Outcome, error) {
	if err := e.session.Active(ctx); err != nil {
		return nil, err
	}
	e.mu.RLock()
	ms := e.waitMs
	e.mu.RUnlock()
	if cmd.Ms != nil {
		ms = *cmd.Ms
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return &Outcome{Data: "Wait finished"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve captures the active tab and maps target to an element.
func (e *Executor) resolve(ctx context.Context, target string) (*dom.Element, error) {
	doc, err := e.session.Capture(ctx)
	if err != nil {
		return nil, err
	}
	el, ok := doc.Resolve(target)
	if !ok {
		return nil, fmt.Errorf("Element not found: %s", target)
	}
	return el, nil
}
