package main

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockPush tracks the state and next transition of a single push.
type mockPush struct {
	stateIdx     int
	nextChangeAt time.Time
}

var pushStates = []string{"accepting", "onstage", "live"}

// StartMockPushServer runs a mock tracking server whose pushes advance
// accepting → onstage → live, one step every 20-40 seconds. Roughly one in
// five JSON requests fails with a 500 to exercise retries.
// Call this in a goroutine before starting the watcher.
func StartMockPushServer(addr string) {
	var (
		pushes = make(map[string]*mockPush)
		mu     sync.Mutex
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /push/{id}/json", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		if rand.Intn(5) == 0 {
			http.Error(w, "datastore timeout", http.StatusInternalServerError)
			return
		}

		mu.Lock()
		push, exists := pushes[id]
		if !exists {
			push = &mockPush{nextChangeAt: time.Now().Add(time.Duration(20+rand.Intn(21)) * time.Second)}
			pushes[id] = push
		}
		if push.stateIdx < len(pushStates)-1 && time.Now().After(push.nextChangeAt) {
			push.stateIdx++
			push.nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(21)) * time.Second)
			slog.Info("push state change", "push", id, "to", pushStates[push.stateIdx])
		}
		state := pushStates[push.stateIdx]
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Vary", "Accept")
		w.Header().Set("Cache-Control", "no-store")
		resp := map[string]any{
			"push": map[string]string{"key": id, "state": state},
			"html": fmt.Sprintf(`<h1>push %s</h1><div class="requests"><h3>%s</h3></div>`,
				html.EscapeString(id), html.EscapeString(state)),
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
