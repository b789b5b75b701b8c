package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HiteshGorana/Leo/internal/bridge"
	"github.com/HiteshGorana/Leo/internal/config"
	"github.com/HiteshGorana/Leo/pkg/protocol"
)

func serveCmd() *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge server and feed it commands from stdin",
		Long: `Runs the WebSocket server the relay agent connects to. Commands are
read from stdin as JSON, one per line, e.g.

  {"action":"open","url":"example.com"}
  {"action":"search","query":"golang websocket"}

Agent frames (hello, ack, result, error) are printed to stdout.
Screenshot and moment results are persisted under the moments
directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(cmd.Context(), listenAddr)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides config)")
	return cmd
}

func runBridge(ctx context.Context, listenAddr string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}
	if listenAddr == "" {
		listenAddr = cfg.Bridge.ListenAddr
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := bridge.NewServer(listenAddr,
		bridge.WithLogger(logger),
		bridge.WithMomentStore(bridge.NewMomentStore(cfg.Bridge.MomentsDir, logger)),
		bridge.WithRateLimiter(bridge.NewRateLimiter(cfg.Bridge.RatePerMinute, cfg.Bridge.RateBurst)),
		bridge.WithResultHandler(func(msg *bridge.AgentMessage, raw []byte) {
			fmt.Println(string(raw))
		}),
	)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Stop(context.Background())

	go feedCommands(ctx, srv, logger)

	<-ctx.Done()
	logger.Info("bridge shutting down")
	return nil
}

// feedCommands reads one JSON command per stdin line and relays it.
func feedCommands(ctx context.Context, srv *bridge.Server, logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	// Type commands can carry large text payloads, so allow long lines.
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var cmd protocol.Command
		if err := json.Unmarshal(line, &cmd); err != nil || cmd.Action == "" {
			logger.Warn("unparseable command line", "error", err)
			continue
		}
		if err := srv.Send(&cmd); err != nil {
			logger.Warn("command not sent", "action", cmd.Action, "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("command input closed", "error", err)
	}
}
