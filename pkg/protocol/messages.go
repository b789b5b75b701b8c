package protocol

// Message types
const (
	TypeHello  = "hello"
	TypeAck    = "ack"
	TypeResult = "result"
	TypeError  = "error"
)

// Status values carried by ack and result messages.
const (
	StatusStarting = "starting"
	StatusSuccess  = "success"
)

// Message is one outbound frame from the agent. For every Command
// received while connected the agent emits exactly one ack followed by
// exactly one result or error for the same action.
type Message struct {
	Type    string      `json:"type"`
	Action  Action      `json:"action,omitempty"`
	Status  string      `json:"status,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// NewHello creates the greeting sent once per successful connect.
func NewHello(greeting string) *Message {
	return &Message{Type: TypeHello, Message: greeting}
}

// NewAck creates the immediate receipt acknowledgement for a command.
func NewAck(action Action) *Message {
	return &Message{Type: TypeAck, Action: action, Status: StatusStarting}
}

// NewResult creates the terminal success message for a command.
func NewResult(action Action, data interface{}, message string) *Message {
	return &Message{
		Type:    TypeResult,
		Action:  action,
		Status:  StatusSuccess,
		Data:    data,
		Message: message,
	}
}

// NewError creates the terminal failure message for a command.
func NewError(action Action, message string) *Message {
	return &Message{Type: TypeError, Action: action, Message: message}
}
