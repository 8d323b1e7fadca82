package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"support-chat/conversation"
	"support-chat/domain"
	"support-chat/feed"
	"support-chat/infrastructure/rest"
	"support-chat/infrastructure/ws"
	"support-chat/presence"
	"support-chat/runtime"
	"support-chat/runtime/workers"
	"support-chat/ui"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles configuration loading, session wiring and the event-loop
// lifecycle. This pattern ensures clean resource management and error
// propagation back to the OS.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	role, err := config.UserRole()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Collaborators: pub/sub transport, HTTP directory, renderer.
	transport := ws.NewTransport(logger, config.ServerAddress, config.FrameBufferSize)
	directory := rest.NewClient(logger, config.APIBaseURL, config.HTTPTimeout)
	console := ui.NewConsole(os.Stdout, config.Nickname, config.Colours)

	// 4. Session core.
	session := domain.NewSession()
	roster := presence.NewRoster(logger)
	messageFeed := feed.New(logger, console)
	binder := conversation.NewBinder(logger, session, roster, messageFeed, directory, transport, console)
	router := runtime.NewRouter(logger, session, roster, messageFeed, binder,
		transport, directory, console, config.CommandBufferSize)

	// 5. Registration handshake before the loop starts.
	if err := router.Login(ctx, config.Nickname, role); err != nil {
		return exitRuntime, fmt.Errorf("login failed: %w", err)
	}
	defer func() {
		logger.Info("Closing transport...")
		_ = transport.Close()
	}()

	// 6. Supervised workers: the event loop and the roster reconciler.
	sup := workers.NewSupervisor(logger)
	sup.Add(router, workers.NewReconciler(logger, router, config.ReconcileInterval))

	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	// 7. Local actions from stdin, funneled into the loop.
	go readInput(ctx, logger, router, os.Stdin)

	logger.Info(">>> Connected", "server", config.ServerAddress, "as", config.Nickname, "role", role)

	// 8. Wait for a signal or for the loop to end (logout, transport loss).
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case <-done:
	}

	// 9. Final cleanup (graceful shutdown).
	logger.Info("Shutting down gracefully...")
	sup.Stop()
	<-done
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

// readInput turns terminal lines into commands. Slash commands drive
// selection and lifecycle; anything else is sent to the bound peer.
func readInput(ctx context.Context, log *slog.Logger, router *runtime.Router, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "/select":
			if len(fields) == 2 {
				router.Dispatch(domain.SelectPeer{PeerID: fields[1]})
			}
		case "/finish":
			router.Dispatch(domain.FinishConversation{})
		case "/kick":
			if len(fields) == 2 {
				router.Dispatch(domain.KickPeer{PeerID: fields[1]})
			}
		case "/refresh":
			router.Dispatch(domain.RefreshRoster{})
		case "/logout":
			router.Dispatch(domain.Logout{})
			return
		default:
			router.Dispatch(domain.ComposeMessage{Content: line})
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn("Input closed", "error", err)
	}
}
