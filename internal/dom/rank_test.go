package dom

import (
	"fmt"
	"strings"
	"testing"
)

func TestRank_PriorityOrdering(t *testing.T) {
	d := mustParse(t, `<html><body>
		<a href="/about">About us</a>
		<a href="/p/7">7</a>
		<a href="/p/next">Next page</a>
	</body></html>`)

	got := d.Rank(DefaultRankOptions())
	if len(got) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(got))
	}
	if got[0].Text != "Next page" || got[0].Priority != 10 {
		t.Errorf("expected 'Next page' first at priority 10, got %q/%d", got[0].Text, got[0].Priority)
	}
	if got[1].Text != "7" || got[1].Priority != 5 {
		t.Errorf("expected '7' second at priority 5, got %q/%d", got[1].Text, got[1].Priority)
	}
	if got[2].Text != "About us" || got[2].Priority != 1 {
		t.Errorf("expected 'About us' last at priority 1, got %q/%d", got[2].Text, got[2].Priority)
	}
}

func TestRank_ButtonAndRoleBonusesStack(t *testing.T) {
	d := mustParse(t, `<html><body>
		<button role="button">Save</button>
		<button>Save too</button>
		<div role="button">Save as well</div>
	</body></html>`)

	got := d.Rank(DefaultRankOptions())
	if len(got) != 3 {
		t.Fatalf("expected 3 descriptors, got %d", len(got))
	}
	if got[0].Priority != 5 { // 1 + 2 (tag) + 2 (role)
		t.Errorf("expected stacked bonuses => 5, got %d", got[0].Priority)
	}
	if got[1].Priority != 3 || got[2].Priority != 3 {
		t.Errorf("expected single bonus => 3, got %d and %d", got[1].Priority, got[2].Priority)
	}
}

func TestRank_NextPrevWinsOverNumeric(t *testing.T) {
	d := mustParse(t, `<html><body><a href="/x">Next 10</a></body></html>`)

	got := d.Rank(DefaultRankOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(got))
	}
	// "Next 10" is not purely numeric anyway, but next/prev is checked
	// first and must not be downgraded.
	if got[0].Priority != 10 {
		t.Errorf("expected priority 10, got %d", got[0].Priority)
	}
}

func TestRank_CapAt30StableOrder(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, `<a href="/l%d">link %c</a>`, i, 'a'+rune(i%26))
	}
	sb.WriteString("</body></html>")

	d := mustParse(t, sb.String())
	got := d.Rank(DefaultRankOptions())
	if len(got) != 30 {
		t.Fatalf("expected exactly 30 descriptors, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Priority > got[i-1].Priority {
			t.Fatalf("not sorted descending at index %d", i)
		}
	}
	if got[0].Text != "link a" {
		t.Errorf("equal priorities must keep document order, got %q first", got[0].Text)
	}
}

func TestRank_FiltersHiddenAndUnlabeled(t *testing.T) {
	d := mustParse(t, `<html><body>
		<button data-leo-hidden="1">Invisible</button>
		<a href="/x" style="display: none">Styled away</a>
		<input type="hidden" value="secret">
		<button></button>
		<input type="text" placeholder="Search...">
	</body></html>`)

	got := d.Rank(DefaultRankOptions())
	if len(got) != 1 {
		t.Fatalf("expected only the placeholder input, got %d: %+v", len(got), got)
	}
	if got[0].Text != "Search..." || got[0].Tag != "input" {
		t.Errorf("unexpected survivor: %+v", got[0])
	}
}

func TestRank_TruncatesText(t *testing.T) {
	long := strings.Repeat("x", 80)
	d := mustParse(t, `<html><body><a href="/x">`+long+`</a></body></html>`)

	got := d.Rank(DefaultRankOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(got))
	}
	if len(got[0].Text) != 50 {
		t.Errorf("expected text truncated to 50, got %d", len(got[0].Text))
	}
}

func TestRank_TypeAndID(t *testing.T) {
	d := mustParse(t, `<html><body><input type="submit" id="go" value="Submit"></body></html>`)

	got := d.Rank(DefaultRankOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(got))
	}
	if got[0].Type != "submit" || got[0].ID != "go" {
		t.Errorf("expected type/id carried through, got %+v", got[0])
	}
}
