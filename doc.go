// Package pushwatch keeps a local copy of a deployment push page in sync
// with the tracking server until the push goes live.
//
// A push page shows the requests in a push and the push's state. pushwatch
// loads the page's JSON endpoint once, serves a mirror of the page locally,
// and then polls the endpoint at a fixed interval, replacing the mirrored
// fragment after every successful poll. Polling stops for good once the
// server reports [StateLive].
//
// # Quick Start
//
//	w, err := pushwatch.New("https://pushmaster.example.com/push/abc123")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	w.Start(ctx) // blocks until ctx is cancelled
//
// # Configuration
//
// pushwatch uses the functional options pattern:
//
//	w, err := pushwatch.New(pushURL,
//	    pushwatch.WithPollingInterval(10*time.Second),
//	    pushwatch.WithPort(9090),
//	    pushwatch.WithHeaders("Cookie", "session="+token),
//	)
//
// # Polling rules
//
//   - One poll is outstanding at a time; the next is scheduled only after the
//     previous one finished.
//   - Every poll waits the full interval first, including the first one.
//   - A failed poll changes nothing and is retried after another interval,
//     forever. There is no backoff.
//   - A push URL carrying the noreload query parameter, or [WithSuppress],
//     disables polling. The page is loaded and served once.
//
// # Refresh callbacks
//
// [WithRefreshCallback] registers functions that run after every successful
// poll, for example to notify when the push goes live:
//
//	pushwatch.WithRefreshCallback(func(r pushwatch.Refresh) {
//	    if r.Changed() && r.State.Terminal() {
//	        notify("push is live")
//	    }
//	})
//
// # Local mirror
//
// The mirror serves:
//
//   - GET /           the page with the current fragment
//   - GET /json       the current payload, in the tracking server's shape
//   - GET /api/status poll loop status
//   - GET /api/sse    fragment updates as Server-Sent Events
//   - GET /metrics    poll loop status for Prometheus
package pushwatch
