package protocol

import "testing"

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"action":"scroll","y":300}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Action != ActionScroll {
		t.Errorf("expected scroll, got %q", cmd.Action)
	}
	if cmd.Y == nil || *cmd.Y != 300 {
		t.Errorf("expected y=300, got %v", cmd.Y)
	}
	if cmd.X != nil {
		t.Errorf("expected x absent, got %v", *cmd.X)
	}
}

func TestParseCommand_Malformed(t *testing.T) {
	if _, err := ParseCommand([]byte(`{"action":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestParseCommand_NoAction(t *testing.T) {
	if _, err := ParseCommand([]byte(`{"selector":"#x"}`)); err == nil {
		t.Fatal("expected error for command without action")
	}
}

func TestParseCommand_ExplicitZero(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"action":"scroll","y":0}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Y == nil || *cmd.Y != 0 {
		t.Error("explicit y=0 must be distinguishable from absent y")
	}
}
