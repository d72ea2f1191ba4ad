package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// SyncState tracks how the server-observed session relates to the client-held
// one.
type SyncState int

const (
	// StateUnsynced: no sync attempted yet for the current client session.
	StateUnsynced SyncState = iota
	// StateSyncing: a relay to the server endpoint is in flight.
	StateSyncing
	// StateSynced: the server cookie reflects the client session.
	StateSynced
	// StateFailed: the last relay failed; the next observed event retries,
	// because the server-token comparison still sees a difference.
	StateFailed
)

func (s SyncState) String() string {
	switch s {
	case StateUnsynced:
		return "unsynced"
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SyncFunc relays one event and its session to the server bridge endpoint.
type SyncFunc func(ctx context.Context, event Event, s *Session) error

// ErrBridgeClosed reports an event observed after the bridge was torn down.
var ErrBridgeClosed = errors.New("session: bridge closed")

// Bridge reconciles the client-held session with the server-observed one.
// Events are processed on a single goroutine, in order, so state transitions
// form one logical sequence per client session. A failed relay never mutates
// client-local session state; the mismatch is a bounded inconsistency window
// closed by the next successful sync.
type Bridge struct {
	syncFn  SyncFunc
	timeout time.Duration

	mu          sync.Mutex
	state       SyncState
	serverToken string

	// quit signals teardown; queue itself is never closed, so concurrent
	// senders cannot hit a closed channel.
	queue     chan bridgeEvent
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type bridgeEvent struct {
	ctx     context.Context
	event   Event
	session *Session
	reply   chan error
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithSyncTimeout bounds each background relay attempt.
func WithSyncTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// NewBridge constructs a Bridge. initialServerToken is the access token the
// server last observed, received as initial render-time state; comparisons
// against it keep repeated events from producing repeated writes.
func NewBridge(initialServerToken string, syncFn SyncFunc, opts ...BridgeOption) (*Bridge, error) {
	if syncFn == nil {
		return nil, errors.New("session: sync func is required")
	}
	b := &Bridge{
		syncFn:      syncFn,
		timeout:     10 * time.Second,
		serverToken: initialServerToken,
		queue:       make(chan bridgeEvent, 16),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.run()
	return b, nil
}

// Notify enqueues a passive auth-state event (token refresh, initial event).
// Fire-and-forget: a failed relay is retried on the next observed event.
// Safe to call concurrently with Close; events arriving during teardown are
// dropped.
func (b *Bridge) Notify(event Event, s *Session) {
	select {
	case b.queue <- bridgeEvent{ctx: context.Background(), event: event, session: s}:
	case <-b.quit:
	}
}

// Sync relays a user-initiated event and blocks until the relay completes.
// Callers must not treat the user as authenticated unless this returns nil.
func (b *Bridge) Sync(ctx context.Context, event Event, s *Session) error {
	reply := make(chan error, 1)
	select {
	case b.queue <- bridgeEvent{ctx: ctx, event: event, session: s, reply: reply}:
	case <-b.quit:
		return ErrBridgeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-b.quit:
		return ErrBridgeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current sync state.
func (b *Bridge) State() SyncState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Close tears down the event queue. Must be called when the owning scope goes
// away so listeners do not accumulate. Events still buffered at teardown are
// dropped.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		close(b.quit)
	})
	<-b.done
}

func (b *Bridge) run() {
	defer close(b.done)
	for {
		select {
		case <-b.quit:
			return
		case ev := <-b.queue:
			err := b.process(ev.ctx, ev.event, ev.session)
			if ev.reply != nil {
				ev.reply <- err
			}
		}
	}
}

func (b *Bridge) process(ctx context.Context, event Event, s *Session) error {
	// SIGNED_OUT and nil sessions both target the cleared state.
	target := ""
	if event != EventSignedOut && s != nil {
		target = s.AccessToken
	}

	b.mu.Lock()
	if target == b.serverToken {
		// The server already observes this session. Mandatory comparison:
		// no network write happens for an unchanged token.
		b.mu.Unlock()
		return nil
	}
	b.state = StateSyncing
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	err := b.syncFn(ctx, event, s)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		// serverToken stays put, so the next event re-triggers the relay.
		b.state = StateFailed
		return err
	}
	b.serverToken = target
	b.state = StateSynced
	return nil
}

// HTTPSync returns a SyncFunc that POSTs {event, session} to the server's
// bridge endpoint. The server either fully replaces its cookie-backed session
// or fails; there is no partial apply to roll back.
func HTTPSync(client *http.Client, endpoint string) SyncFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, event Event, s *Session) error {
		payload, err := json.Marshal(struct {
			Event   Event    `json:"event"`
			Session *Session `json:"session"`
		}{Event: event, Session: s})
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("session: bridge request failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("session: bridge returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
		}
		return nil
	}
}
