package dispatch

import (
	"context"
	"log/slog"

	"github.com/HiteshGorana/Leo/pkg/protocol"
)

// Sender delivers outbound protocol frames. The relay manager satisfies
// it; delivery is best-effort (frames sent while disconnected are lost).
type Sender interface {
	Send(msg *protocol.Message)
}

// Dispatcher parses inbound frames, acks them, and runs each command in
// its own goroutine. Back-to-back commands may therefore interleave: the
// ack for command N+1 can precede the result of command N. Ordering
// within a single command (ack, then result or error) always holds.
type Dispatcher struct {
	exec   *Executor
	sender Sender
	logger *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New creates a Dispatcher.
func New(exec *Executor, sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{exec: exec, sender: sender, logger: slog.Default()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// OnMessage handles one raw frame from the bridge. Malformed JSON is
// logged and dropped: there is no command identity to attribute a
// protocol error to. Everything else gets exactly one ack and exactly
// one terminal result or error, in that order.
func (d *Dispatcher) OnMessage(ctx context.Context, data []byte) {
	cmd, err := protocol.ParseCommand(data)
	if err != nil {
		d.logger.Warn("dropping malformed command", "error", err)
		return
	}

	d.logger.Info("command received", "action", cmd.Action)
	d.sender.Send(protocol.NewAck(cmd.Action))

	go d.run(ctx, cmd)
}

func (d *Dispatcher) run(ctx context.Context, cmd *protocol.Command) {
	out, err := d.exec.Execute(ctx, cmd)
	if err != nil {
		d.logger.Warn("command failed", "action", cmd.Action, "error", err)
		d.sender.Send(protocol.NewError(cmd.Action, err.Error()))
		return
	}
	d.logger.Info("command finished", "action", cmd.Action)
	d.sender.Send(protocol.NewResult(cmd.Action, out.Data, out.Message))
}
