// Standalone mock tracking server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/pushwatch watch -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock tracking server starting on :9999")
	fmt.Println("Pushes advance accepting → onstage → live every 30s")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var (
		mu      sync.Mutex
		started = make(map[string]time.Time)
		states  = []string{"accepting", "onstage", "live"}
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /push/{id}/json", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		mu.Lock()
		at, ok := started[id]
		if !ok {
			at = time.Now()
			started[id] = at
		}
		mu.Unlock()

		step := int(time.Since(at) / (30 * time.Second))
		if step >= len(states) {
			step = len(states) - 1
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"push": map[string]string{"key": id, "state": states[step]},
			"html": fmt.Sprintf("<h1>%s</h1>", states[step]),
		})
	})

	if err := http.ListenAndServe(":9999", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
