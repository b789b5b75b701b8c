// Package protocol defines the wire format exchanged between the Leo
// bridge and the browser relay agent. Frames are UTF-8 JSON text, one
// logical message per WebSocket frame.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Action identifies what a Command asks the agent to do.
type Action string

// Actions the agent executes against the active page.
const (
	ActionOpen        Action = "open"
	ActionScreenshot  Action = "screenshot"
	ActionMoment      Action = "moment"
	ActionClick       Action = "click"
	ActionType        Action = "type"
	ActionRead        Action = "read"
	ActionScroll      Action = "scroll"
	ActionGetElements Action = "get_elements"
	ActionWait        Action = "wait"
)

// ActionSearch is accepted on the bridge's command feed only. The bridge
// rewrites it to an ActionOpen with a search-engine URL before sending;
// the agent never sees it.
const ActionSearch Action = "search"

// Command is one inbound instruction for the agent. Fields irrelevant to
// the action are ignored, not rejected. Optional numerics are pointers so
// an explicit 0 is distinguishable from an absent field.
type Command struct {
	Action   Action `json:"action"`
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
	Query    string `json:"query,omitempty"`
	X        *int   `json:"x,omitempty"`
	Y        *int   `json:"y,omitempty"`
	Ms       *int   `json:"ms,omitempty"`
}

// ParseCommand decodes raw frame bytes into a Command. A command without
// an action is malformed: there is nothing to ack or attribute errors to.
func ParseCommand(data []byte) (*Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	if c.Action == "" {
		return nil, fmt.Errorf("command has no action")
	}
	return &c, nil
}
