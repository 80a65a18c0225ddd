// Package feed maintains a small, deduplicated window of the most recent
// purchase transactions, seeded from a backend query and kept live through
// a websocket stream.
package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/tokenmart/storefront-sdk/pkg/types"
)

const (
	// FetchLimit is how many transactions the initial query requests.
	FetchLimit = 20
	// WindowSize is how many transactions the live window retains.
	WindowSize = 5
)

// Querier is the backend transaction query.
type Querier interface {
	RecentTransactions(ctx context.Context, limit int) ([]types.Transaction, error)
}

// Stream delivers live transaction events. Implementations reconnect on
// their own; the events channel stays open until Close.
type Stream interface {
	Start(ctx context.Context) error
	Events() <-chan types.Transaction
	Close() error
}

// Window is an immutable snapshot of the recent-transaction list, newest
// first. Never mutated in place; updates build a fresh slice.
type Window []types.Transaction

// apply returns the window that results from receiving event e.
// An empty window accepts the event. An event whose hash matches the
// current head is a duplicate delivery and is dropped. Anything else is
// prepended, evicting the oldest entry past WindowSize.
func (w Window) apply(e types.Transaction) Window {
	if len(w) == 0 {
		return Window{e}
	}
	if w[0].Hash == e.Hash {
		return w
	}

	next := make(Window, 0, WindowSize)
	next = append(next, e)
	if len(w) >= WindowSize {
		next = append(next, w[:WindowSize-1]...)
	} else {
		next = append(next, w...)
	}
	return next
}

// Feed owns the live window. Safe for concurrent use; readers get
// consistent snapshots, never a half-applied update.
type Feed struct {
	querier Querier
	stream  Stream
	onError func(error)

	mu     sync.RWMutex
	window Window

	wg sync.WaitGroup
}

// New creates a feed. onError receives non-fatal fetch and stream errors
// and may be nil.
func New(querier Querier, stream Stream, onError func(error)) *Feed {
	return &Feed{
		querier: querier,
		stream:  stream,
		onError: onError,
	}
}

// Start seeds the window from the backend and begins consuming the live
// stream. A failed seed query is reported and the feed starts empty; the
// stream still runs so the window fills as events arrive.
func (f *Feed) Start(ctx context.Context) error {
	txs, err := f.querier.RecentTransactions(ctx, FetchLimit)
	if err != nil {
		f.reportError(fmt.Errorf("failed to seed transaction feed: %w", err))
	} else {
		if len(txs) > WindowSize {
			txs = txs[:WindowSize]
		}
		seed := make(Window, len(txs))
		copy(seed, txs)

		f.mu.Lock()
		f.window = seed
		f.mu.Unlock()
	}

	if f.stream == nil {
		return nil
	}

	if err := f.stream.Start(ctx); err != nil {
		return fmt.Errorf("failed to start transaction stream: %w", err)
	}

	f.wg.Add(1)
	go f.consume(ctx)

	return nil
}

// Snapshot returns the current window. The returned slice is immutable.
func (f *Feed) Snapshot() Window {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.window
}

// Apply folds a single event into the window.
func (f *Feed) Apply(e types.Transaction) {
	f.mu.Lock()
	f.window = f.window.apply(e)
	f.mu.Unlock()
}

// Close stops the stream and waits for the consumer to drain.
func (f *Feed) Close() error {
	var err error
	if f.stream != nil {
		err = f.stream.Close()
	}
	f.wg.Wait()
	return err
}

func (f *Feed) consume(ctx context.Context) {
	defer f.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-f.stream.Events():
			if !ok {
				return
			}
			f.Apply(e)
		}
	}
}

func (f *Feed) reportError(err error) {
	if f.onError != nil {
		f.onError(err)
	}
}
