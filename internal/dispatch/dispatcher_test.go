package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HiteshGorana/Leo/internal/dom"
	"github.com/HiteshGorana/Leo/pkg/protocol"
)

// fakeSession serves a fixed page snapshot and records actions.
type fakeSession struct {
	mu       sync.Mutex
	html     string
	url      string
	title    string
	noTab    bool
	opened   []string
	clicked  []string
	typed    []string
	scrolled [][2]int
}

var errNoTab = errors.New("no active tab")

func (s *fakeSession) Open(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, url)
	return nil
}

func (s *fakeSession) Screenshot(context.Context) (string, error) {
	if s.noTab {
		return "", errNoTab
	}
	return "data:image/png;base64,aGk=", nil
}

func (s *fakeSession) Capture(context.Context) (*dom.Document, error) {
	if s.noTab {
		return nil, errNoTab
	}
	return dom.Parse(s.html, s.url, s.title)
}

func (s *fakeSession) Scroll(_ context.Context, x, y int) error {
	if s.noTab {
		return errNoTab
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrolled = append(s.scrolled, [2]int{x, y})
	return nil
}

func (s *fakeSession) Click(_ context.Context, path string) error {
	if s.noTab {
		return errNoTab
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicked = append(s.clicked, path)
	return nil
}

func (s *fakeSession) Type(_ context.Context, path, text string) error {
	if s.noTab {
		return errNoTab
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typed = append(s.typed, path+"="+text)
	return nil
}

func (s *fakeSession) Active(context.Context) error {
	if s.noTab {
		return errNoTab
	}
	return nil
}

// recordingSender collects outbound frames.
type recordingSender struct {
	mu   sync.Mutex
	msgs []*protocol.Message
}

func (r *recordingSender) Send(msg *protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingSender) all() []*protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*protocol.Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func (r *recordingSender) waitLen(t *testing.T, n int) []*protocol.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := r.all(); len(msgs) >= n {
			return msgs
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("expected %d messages, got %v", n, r.all())
	return nil
}

func newDispatcher(session *fakeSession) (*Dispatcher, *recordingSender) {
	sender := &recordingSender{}
	return New(NewExecutor(session), sender), sender
}

func TestDispatch_ScrollScenario(t *testing.T) {
	d, sender := newDispatcher(&fakeSession{html: "<html><body></body></html>"})

	d.OnMessage(context.Background(), []byte(`{"action":"scroll","y":300}`))
	msgs := sender.waitLen(t, 2)

	if msgs[0].Type != protocol.TypeAck || msgs[0].Status != protocol.StatusStarting {
		t.Errorf("expected ack{starting} first, got %+v", msgs[0])
	}
	if msgs[1].Type != protocol.TypeResult || msgs[1].Status != protocol.StatusSuccess {
		t.Errorf("expected result{success}, got %+v", msgs[1])
	}
	if msgs[1].Data != "Scrolled" {
		t.Errorf("expected data 'Scrolled', got %v", msgs[1].Data)
	}
}

func TestDispatch_ScrollDefaults(t *testing.T) {
	session := &fakeSession{html: "<html><body></body></html>"}
	d, sender := newDispatcher(session)

	d.OnMessage(context.Background(), []byte(`{"action":"scroll"}`))
	sender.waitLen(t, 2)

	session.mu.Lock()
	defer session.mu.Unlock()
	if len(session.scrolled) != 1 || session.scrolled[0] != [2]int{0, 500} {
		t.Errorf("expected default scroll (0, 500), got %v", session.scrolled)
	}
}

func TestDispatch_ClickMissingElement(t *testing.T) {
	d, sender := newDispatcher(&fakeSession{html: "<html><body><p>empty</p></body></html>"})

	d.OnMessage(context.Background(), []byte(`{"action":"click","selector":"#missing"}`))
	msgs := sender.waitLen(t, 2)

	if msgs[1].Type != protocol.TypeError {
		t.Fatalf("expected error, got %+v", msgs[1])
	}
	if msgs[1].Message != "Element not found: #missing" {
		t.Errorf("unexpected error message: %q", msgs[1].Message)
	}
	if msgs[1].Action != protocol.ActionClick {
		t.Errorf("error must carry the action, got %q", msgs[1].Action)
	}
}

func TestDispatch_OpenNormalizesURL(t *testing.T) {
	session := &fakeSession{}
	d, sender := newDispatcher(session)

	d.OnMessage(context.Background(), []byte(`{"action":"open","url":"example.com"}`))
	msgs := sender.waitLen(t, 2)

	session.mu.Lock()
	opened := append([]string(nil), session.opened...)
	session.mu.Unlock()
	if len(opened) != 1 || opened[0] != "https://example.com" {
		t.Errorf("expected normalized open, got %v", opened)
	}
	if !strings.Contains(msgs[1].Message, "https://example.com") {
		t.Errorf("result message must name the normalized URL, got %q", msgs[1].Message)
	}
}

func TestDispatch_WaitInterleaving(t *testing.T) {
	d, sender := newDispatcher(&fakeSession{html: "<html><body></body></html>"})

	d.OnMessage(context.Background(), []byte(`{"action":"wait","ms":50}`))
	d.OnMessage(context.Background(), []byte(`{"action":"wait","ms":50}`))

	msgs := sender.waitLen(t, 4)
	if msgs[0].Type != protocol.TypeAck || msgs[1].Type != protocol.TypeAck {
		t.Errorf("expected both acks before either result, got %v then %v", msgs[0].Type, msgs[1].Type)
	}
	if msgs[2].Type != protocol.TypeResult || msgs[3].Type != protocol.TypeResult {
		t.Errorf("expected two results, got %v then %v", msgs[2].Type, msgs[3].Type)
	}
	if msgs[2].Data != "Wait finished" {
		t.Errorf("expected 'Wait finished', got %v", msgs[2].Data)
	}
}

func TestDispatch_MalformedDroppedSilently(t *testing.T) {
	d, sender := newDispatcher(&fakeSession{})

	d.OnMessage(context.Background(), []byte(`{"action":`))
	time.Sleep(20 * time.Millisecond)

	if msgs := sender.all(); len(msgs) != 0 {
		t.Errorf("malformed input must produce no protocol response, got %v", msgs)
	}
}

func TestDispatch_UnknownActionErrors(t *testing.T) {
	d, sender := newDispatcher(&fakeSession{})

	d.OnMessage(context.Background(), []byte(`{"action":"teleport"}`))
	msgs := sender.waitLen(t, 2)

	if msgs[0].Type != protocol.TypeAck {
		t.Errorf("unknown actions still get an ack, got %+v", msgs[0])
	}
	if msgs[1].Type != protocol.TypeError || !strings.Contains(msgs[1].Message, "unknown action") {
		t.Errorf("expected unknown-action error, got %+v", msgs[1])
	}
}

func TestDispatch_NoActiveTab(t *testing.T) {
	d, sender := newDispatcher(&fakeSession{noTab: true})

	d.OnMessage(context.Background(), []byte(`{"action":"read"}`))
	msgs := sender.waitLen(t, 2)

	if msgs[1].Type != protocol.TypeError || msgs[1].Message != "no active tab" {
		t.Errorf("expected no-active-tab error, got %+v", msgs[1])
	}
}

func TestDispatch_TypeNamesElement(t *testing.T) {
	session := &fakeSession{html: `<html><body><input id="q" type="text" value="Search box"></body></html>`}
	d, sender := newDispatcher(session)

	d.OnMessage(context.Background(), []byte(`{"action":"type","selector":"#q","text":"hello"}`))
	msgs := sender.waitLen(t, 2)

	if msgs[1].Type != protocol.TypeResult {
		t.Fatalf("expected result, got %+v", msgs[1])
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if len(session.typed) != 1 || !strings.HasSuffix(session.typed[0], "=hello") {
		t.Errorf("expected typed value, got %v", session.typed)
	}
}

func TestDispatch_GetElements(t *testing.T) {
	session := &fakeSession{html: `<html><body>
		<a href="/n">Next</a>
		<a href="/7">7</a>
	</body></html>`}
	d, sender := newDispatcher(session)

	d.OnMessage(context.Background(), []byte(`{"action":"get_elements"}`))
	msgs := sender.waitLen(t, 2)

	els, ok := msgs[1].Data.([]protocol.ElementDescriptor)
	if !ok {
		t.Fatalf("expected descriptor slice, got %T", msgs[1].Data)
	}
	if len(els) != 2 || els[0].Text != "Next" {
		t.Errorf("unexpected ranking: %+v", els)
	}
}

func TestDispatch_MomentBundlesScreenshotAndPage(t *testing.T) {
	session := &fakeSession{
		html:  "<html><body><p>content here</p></body></html>",
		url:   "https://example.com/a",
		title: "A Page",
	}
	d, sender := newDispatcher(session)

	d.OnMessage(context.Background(), []byte(`{"action":"moment"}`))
	msgs := sender.waitLen(t, 2)

	data, ok := msgs[1].Data.(*protocol.MomentData)
	if !ok {
		t.Fatalf("expected MomentData, got %T", msgs[1].Data)
	}
	if !strings.HasPrefix(data.Screenshot, "data:image/png;base64,") {
		t.Errorf("unexpected screenshot payload: %q", data.Screenshot)
	}
	if data.Page == nil || data.Page.Title != "A Page" || data.Page.URL != "https://example.com/a" {
		t.Errorf("unexpected page snapshot: %+v", data.Page)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com/x?q=1", "https://example.com/x?q=1"},
		{"ftp://host/file", "ftp://host/file"},
	}
	for _, c := range cases {
		if got := NormalizeURL(c.in); got != c.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExecutor_WaitDefault(t *testing.T) {
	e := NewExecutor(&fakeSession{}, WithDefaults(0, 10))
	start := time.Now()
	out, err := e.Execute(context.Background(), &protocol.Command{Action: protocol.ActionWait})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Data != "Wait finished" {
		t.Errorf("expected 'Wait finished', got %v", out.Data)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("wait returned too early: %v", elapsed)
	}
}

func ExampleNormalizeURL() {
	fmt.Println(NormalizeURL("example.com"))
	// Output: https://example.com
}
