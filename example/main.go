package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pushwatch"
)

func main() {
	// start mock tracking server (see mock_server.go)
	go StartMockPushServer(":9999")
	time.Sleep(100 * time.Millisecond)

	w, err := pushwatch.New("http://localhost:9999/push/demo",
		pushwatch.WithPollingInterval(5*time.Second),
		pushwatch.WithPort(8080),
		pushwatch.WithTitle("Demo Push"),
		pushwatch.WithRefreshCallback(func(r pushwatch.Refresh) {
			if r.Changed() {
				fmt.Printf("  push %s: %s → %s\n", r.PushKey, r.Previous, r.State)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  pushwatch demo")
	fmt.Println("  Open http://localhost:8080 in your browser")
	fmt.Println("  The demo push goes accepting → onstage → live")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.Start(ctx); err != nil {
		slog.Error("watcher error", "error", err)
		os.Exit(1)
	}
}
