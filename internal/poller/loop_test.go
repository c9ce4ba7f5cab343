package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

const testInterval = 30 * time.Second

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock records every scheduled wait and releases them only when the
// test calls fire.
type fakeClock struct {
	waits chan time.Duration
	ticks chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		waits: make(chan time.Duration, 100),
		ticks: make(chan time.Time),
	}
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.waits <- d
	return c.ticks
}

// fire releases the currently scheduled wait.
func (c *fakeClock) fire(t *testing.T) {
	t.Helper()
	select {
	case c.ticks <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("no scheduled wait to fire")
	}
}

func (c *fakeClock) expectWait(t *testing.T, want time.Duration) {
	t.Helper()
	select {
	case got := <-c.waits:
		if got != want {
			t.Errorf("scheduled wait = %v, want %v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a scheduled wait, got none")
	}
}

func (c *fakeClock) expectNoWait(t *testing.T) {
	t.Helper()
	select {
	case d := <-c.waits:
		t.Fatalf("unexpected scheduled wait of %v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

type fetchResult struct {
	payload Payload
	err     error
}

// scriptedFetcher returns its results in order, one per call.
type scriptedFetcher struct {
	mu        sync.Mutex
	results   []fetchResult
	calls     int
	endpoints []string
}

func (f *scriptedFetcher) FetchPush(ctx context.Context, endpoint string) (Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoints = append(f.endpoints, endpoint)
	if f.calls >= len(f.results) {
		f.calls++
		return Payload{}, errors.New("no scripted result")
	}
	r := f.results[f.calls]
	f.calls++
	return r.payload, r.err
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingDisplay struct {
	mu    sync.Mutex
	shown []Payload
}

func (d *recordingDisplay) ShowPush(p Payload) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown = append(d.shown, p)
}

func (d *recordingDisplay) last() (Payload, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.shown) == 0 {
		return Payload{}, 0
	}
	return d.shown[len(d.shown)-1], len(d.shown)
}

func payload(state, html string) fetchResult {
	return fetchResult{payload: Payload{Push: PushInfo{State: state}, HTML: html}}
}

func failure() fetchResult {
	return fetchResult{err: errors.New("connection reset")}
}

func newTestLoop(fetcher Fetcher, display Display, cfg Config, clock Clock) *Loop {
	return NewLoop(fetcher, "http://push.example.com/push/abc/json", display, cfg, testLogger(), WithClock(clock))
}

func waitDone(t *testing.T, l *Loop) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestShouldPoll(t *testing.T) {
	tests := []struct {
		state    State
		suppress bool
		want     bool
	}{
		{state: "accepting", suppress: false, want: true},
		{state: "onstage", suppress: false, want: true},
		{state: "abandoned", suppress: false, want: true},
		{state: "", suppress: false, want: true},
		{state: StateLive, suppress: false, want: false},
		{state: StateLive, suppress: true, want: false},
		{state: "accepting", suppress: true, want: false},
		{state: "onstage", suppress: true, want: false},
	}

	for _, tt := range tests {
		got := ShouldPoll(tt.state, Config{Interval: testInterval, Suppress: tt.suppress})
		if got != tt.want {
			t.Errorf("ShouldPoll(%q, suppress=%v) = %v, want %v", tt.state, tt.suppress, got, tt.want)
		}
	}
}

func TestLoop_Start_SchedulesExactlyOneFetch(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{}
	loop := newTestLoop(fetcher, &recordingDisplay{}, Config{Interval: testInterval}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !loop.Start(ctx, "accepting") {
		t.Fatal("Start() = false, want true for non-live state")
	}

	clock.expectWait(t, testInterval)
	clock.expectNoWait(t)

	if n := fetcher.callCount(); n != 0 {
		t.Errorf("fetch calls before timer fired = %d, want 0", n)
	}
}

func TestLoop_Start_LiveSchedulesNothing(t *testing.T) {
	for _, suppress := range []bool{false, true} {
		clock := newFakeClock()
		fetcher := &scriptedFetcher{}
		loop := newTestLoop(fetcher, &recordingDisplay{}, Config{Interval: testInterval, Suppress: suppress}, clock)

		if loop.Start(context.Background(), StateLive) {
			t.Errorf("Start(live, suppress=%v) = true, want false", suppress)
		}
		clock.expectNoWait(t)

		if loop.State() != StateLive {
			t.Errorf("State() = %q, want %q", loop.State(), StateLive)
		}
		waitDone(t, loop)
	}
}

func TestLoop_Start_SuppressedSchedulesNothing(t *testing.T) {
	for _, state := range []State{"accepting", "onstage", "abandoned", StateLive} {
		clock := newFakeClock()
		loop := newTestLoop(&scriptedFetcher{}, &recordingDisplay{}, Config{Interval: testInterval, Suppress: true}, clock)

		if loop.Start(context.Background(), state) {
			t.Errorf("Start(%q) with suppress = true, want false", state)
		}
		clock.expectNoWait(t)
	}
}

func TestLoop_Success_ReplacesFragmentAndReschedules(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{results: []fetchResult{payload("pending", "<div>X</div>")}}
	display := &recordingDisplay{}
	loop := newTestLoop(fetcher, display, Config{Interval: testInterval}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop.Start(ctx, "accepting")
	clock.expectWait(t, testInterval)
	clock.fire(t)

	// the next wait is only scheduled after the fragment and state are updated
	clock.expectWait(t, testInterval)

	shown, n := display.last()
	if n != 1 {
		t.Fatalf("display updates = %d, want 1", n)
	}
	if shown.HTML != "<div>X</div>" {
		t.Errorf("displayed fragment = %q, want %q", shown.HTML, "<div>X</div>")
	}
	if loop.State() != "pending" {
		t.Errorf("State() = %q, want %q", loop.State(), "pending")
	}
	if fetcher.endpoints[0] != "http://push.example.com/push/abc/json" {
		t.Errorf("fetched endpoint = %q", fetcher.endpoints[0])
	}
}

func TestLoop_SuccessLive_UpdatesFragmentAndStops(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{results: []fetchResult{payload("live", "<div>done</div>")}}
	display := &recordingDisplay{}
	loop := newTestLoop(fetcher, display, Config{Interval: testInterval}, clock)

	loop.Start(context.Background(), "onstage")
	clock.expectWait(t, testInterval)
	clock.fire(t)

	waitDone(t, loop)
	clock.expectNoWait(t)

	shown, n := display.last()
	if n != 1 || shown.HTML != "<div>done</div>" {
		t.Errorf("displayed = %q (%d updates), want <div>done</div> once", shown.HTML, n)
	}
	if loop.State() != StateLive {
		t.Errorf("State() = %q, want live", loop.State())
	}
	if loop.Status().Polling {
		t.Error("Status().Polling = true after reaching live")
	}
}

func TestLoop_Failure_KeepsStateAndReschedules(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{results: []fetchResult{failure()}}
	display := &recordingDisplay{}
	loop := newTestLoop(fetcher, display, Config{Interval: testInterval}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop.Start(ctx, "onstage")
	clock.expectWait(t, testInterval)
	clock.fire(t)
	clock.expectWait(t, testInterval)

	if loop.State() != "onstage" {
		t.Errorf("State() = %q, want unchanged %q", loop.State(), "onstage")
	}
	if _, n := display.last(); n != 0 {
		t.Errorf("display updates = %d, want 0 after failure", n)
	}
	if got := loop.Status().ConsecutiveFailures; got != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", got)
	}
}

func TestLoop_RepeatedFailures_AlwaysRearm(t *testing.T) {
	clock := newFakeClock()
	results := make([]fetchResult, 5)
	for i := range results {
		results[i] = failure()
	}
	fetcher := &scriptedFetcher{results: results}
	display := &recordingDisplay{}
	loop := newTestLoop(fetcher, display, Config{Interval: testInterval}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop.Start(ctx, "accepting")
	for i := 0; i < 5; i++ {
		clock.expectWait(t, testInterval)
		clock.fire(t)
	}
	// still scheduling after five consecutive failures
	clock.expectWait(t, testInterval)

	if loop.State() != "accepting" {
		t.Errorf("State() = %q, want %q", loop.State(), "accepting")
	}
	if _, n := display.last(); n != 0 {
		t.Errorf("display updates = %d, want 0", n)
	}
	status := loop.Status()
	if status.Cycles != 5 || status.ConsecutiveFailures != 5 {
		t.Errorf("Status() = %+v, want 5 cycles and 5 consecutive failures", status)
	}
	if !status.Polling {
		t.Error("Status().Polling = false, want true while retrying")
	}
}

func TestLoop_FailureThenSuccess_ResetsFailures(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{results: []fetchResult{failure(), failure(), payload("onstage", "<div>stage</div>")}}
	loop := newTestLoop(fetcher, &recordingDisplay{}, Config{Interval: testInterval}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop.Start(ctx, "accepting")
	for i := 0; i < 3; i++ {
		clock.expectWait(t, testInterval)
		clock.fire(t)
	}
	clock.expectWait(t, testInterval)

	status := loop.Status()
	if status.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after success", status.ConsecutiveFailures)
	}
	if status.State != "onstage" {
		t.Errorf("State = %q, want onstage", status.State)
	}
	if status.LastSuccess.IsZero() {
		t.Error("LastSuccess not recorded")
	}
}

func TestLoop_Start_WhileArmedIsNoop(t *testing.T) {
	clock := newFakeClock()
	loop := newTestLoop(&scriptedFetcher{}, &recordingDisplay{}, Config{Interval: testInterval}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !loop.Start(ctx, "accepting") {
		t.Fatal("first Start() = false, want true")
	}
	if loop.Start(ctx, "onstage") {
		t.Error("second Start() = true while armed, want false")
	}

	clock.expectWait(t, testInterval)
	clock.expectNoWait(t)

	if loop.State() != "accepting" {
		t.Errorf("State() = %q, second Start must not replace cached state", loop.State())
	}
}

func TestLoop_ContextCancelStopsLoop(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{}
	loop := newTestLoop(fetcher, &recordingDisplay{}, Config{Interval: testInterval}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	loop.Start(ctx, "accepting")
	clock.expectWait(t, testInterval)

	cancel()
	waitDone(t, loop)

	if n := fetcher.callCount(); n != 0 {
		t.Errorf("fetch calls after cancel = %d, want 0", n)
	}

	// the loop can be armed again after it has exited
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	if !loop.Start(ctx2, "accepting") {
		t.Error("Start() after previous loop exited = false, want true")
	}
	clock.expectWait(t, testInterval)
}

func TestLoop_NilDisplay(t *testing.T) {
	clock := newFakeClock()
	fetcher := &scriptedFetcher{results: []fetchResult{payload("live", "<div></div>")}}
	loop := newTestLoop(fetcher, nil, Config{Interval: testInterval}, clock)

	loop.Start(context.Background(), "onstage")
	clock.expectWait(t, testInterval)
	clock.fire(t)
	waitDone(t, loop)

	if loop.State() != StateLive {
		t.Errorf("State() = %q, want live", loop.State())
	}
}

func TestLoop_DoneBeforeStart(t *testing.T) {
	loop := NewLoop(&scriptedFetcher{}, "", nil, Config{Interval: time.Second}, nil)

	select {
	case <-loop.Done():
	default:
		t.Error("Done() should be closed before any Start")
	}
}

func TestLoop_RealClock(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{payload("live", "<div>ok</div>")}}
	display := &recordingDisplay{}
	loop := NewLoop(fetcher, "http://example.com/json", display, Config{Interval: 10 * time.Millisecond}, testLogger())

	loop.Start(context.Background(), "accepting")
	waitDone(t, loop)

	if shown, n := display.last(); n != 1 || shown.HTML != "<div>ok</div>" {
		t.Errorf("displayed = %q (%d updates)", shown.HTML, n)
	}
}
