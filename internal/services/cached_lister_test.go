package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/storage/memory"
)

type countingLister struct {
	next    *memory.Store
	calls   atomic.Int64
	gate    chan struct{}
	entered chan struct{}
	// loaded runs after the underlying query, before the result is returned.
	loaded func()
}

func (c *countingLister) ListTransactions(ctx context.Context, budgetID int64, month *core.Month) ([]core.TransactionView, error) {
	c.calls.Add(1)
	if c.entered != nil {
		select {
		case c.entered <- struct{}{}:
		default:
		}
	}
	if c.gate != nil {
		<-c.gate
	}
	txs, err := c.next.ListTransactions(ctx, budgetID, month)
	if c.loaded != nil {
		c.loaded()
	}
	return txs, err
}

type hitMiss struct {
	mu         sync.Mutex
	hits, miss int
}

func (h *hitMiss) CacheHit()  { h.mu.Lock(); h.hits++; h.mu.Unlock() }
func (h *hitMiss) CacheMiss() { h.mu.Lock(); h.miss++; h.mu.Unlock() }

func TestCachedLister_HitAfterMiss(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b, _ := store.CreateBudget(ctx, "Home")
	if _, err := store.CreateTransaction(ctx, newTx(b.ID, "-10")); err != nil {
		t.Fatal(err)
	}

	src := &countingLister{next: store}
	obs := &hitMiss{}
	l := NewCachedLister(src, 16, time.Minute, obs)
	jan := core.Month{Year: 2024, Month: 1}

	for i := 0; i < 3; i++ {
		txs, err := l.ListTransactions(ctx, b.ID, &jan)
		if err != nil {
			t.Fatalf("ListTransactions: %v", err)
		}
		if len(txs) != 1 {
			t.Fatalf("len = %d", len(txs))
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("underlying calls = %d, want 1", got)
	}
	if obs.hits != 2 || obs.miss != 1 {
		t.Errorf("hits=%d misses=%d", obs.hits, obs.miss)
	}

	// Distinct windows are distinct entries.
	if _, err := l.ListTransactions(ctx, b.ID, nil); err != nil {
		t.Fatal(err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("underlying calls = %d, want 2", got)
	}
}

func TestCachedLister_InvalidateSeesNewWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b, _ := store.CreateBudget(ctx, "Home")
	l := NewCachedLister(store, 16, time.Minute, nil)

	txs, _ := l.ListTransactions(ctx, b.ID, nil)
	if len(txs) != 0 {
		t.Fatalf("len = %d", len(txs))
	}

	svc := NewLedgerService(store, WithInvalidator(l))
	if _, err := svc.CreateTransaction(ctx, newTx(b.ID, "100")); err != nil {
		t.Fatal(err)
	}

	txs, _ = l.ListTransactions(ctx, b.ID, nil)
	if len(txs) != 1 {
		t.Fatalf("after write len = %d, want 1", len(txs))
	}
}

func TestCachedLister_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b, _ := store.CreateBudget(ctx, "Home")
	_, _ = store.CreateTransaction(ctx, newTx(b.ID, "1"))
	l := NewCachedLister(store, 16, time.Minute, nil)

	first, _ := l.ListTransactions(ctx, b.ID, nil)
	first[0].Description = "mutated"

	second, _ := l.ListTransactions(ctx, b.ID, nil)
	if second[0].Description != "Groceries" {
		t.Errorf("cached entry was mutated through a returned slice: %q", second[0].Description)
	}
}

func TestCachedLister_ConcurrentMissesShareOneQuery(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b, _ := store.CreateBudget(ctx, "Home")
	src := &countingLister{next: store, gate: make(chan struct{})}
	l := NewCachedLister(src, 16, time.Minute, nil)

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := l.ListTransactions(ctx, b.ID, nil); err != nil {
				t.Error(err)
			}
		}()
	}
	// Let the callers pile up behind the first query before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Errorf("underlying calls = %d, want 1", got)
	}
}

func TestCachedLister_StaleLoadNotCached(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b, _ := store.CreateBudget(ctx, "Home")
	src := &countingLister{next: store, gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	l := NewCachedLister(src, 16, time.Minute, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = l.ListTransactions(ctx, b.ID, nil)
	}()
	<-src.entered
	l.Invalidate(b.ID)
	close(src.gate)
	<-done

	if l.Cache().Size() != 0 {
		t.Errorf("a load that raced an invalidation was cached")
	}
}

func TestCachedLister_InvalidateDuringLoadForcesReload(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b, _ := store.CreateBudget(ctx, "Home")
	src := &countingLister{next: store}
	l := NewCachedLister(src, 16, time.Minute, nil)

	// A write commits and invalidates after the query read its rows.
	src.loaded = func() {
		src.loaded = nil
		if _, err := store.CreateTransaction(ctx, newTx(b.ID, "-5")); err != nil {
			t.Error(err)
		}
		l.Invalidate(b.ID)
	}
	txs, err := l.ListTransactions(ctx, b.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 0 {
		t.Fatalf("first load len = %d, want 0", len(txs))
	}

	txs, err = l.ListTransactions(ctx, b.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 {
		t.Fatalf("after invalidation len = %d, want 1", len(txs))
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("underlying calls = %d, want 2", got)
	}
}

func TestCachedLister_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	store := memory.New()
	b, _ := store.CreateBudget(context.Background(), "Home")
	_, _ = store.CreateTransaction(context.Background(), newTx(b.ID, "-5"))
	src := &countingLister{next: store, gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	l := NewCachedLister(src, 16, time.Minute, nil)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := l.ListTransactions(firstCtx, b.ID, nil)
		firstErr <- err
	}()
	<-src.entered

	type result struct {
		txs []core.TransactionView
		err error
	}
	second := make(chan result, 1)
	go func() {
		txs, err := l.ListTransactions(context.Background(), b.ID, nil)
		second <- result{txs, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller err = %v, want context.Canceled", err)
	}
	close(src.gate)

	res := <-second
	if res.err != nil {
		t.Fatalf("second caller err = %v", res.err)
	}
	if len(res.txs) != 1 {
		t.Fatalf("second caller len = %d, want 1", len(res.txs))
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("underlying calls = %d, want 1", got)
	}
}

func TestCacheKey(t *testing.T) {
	m := core.Month{Year: 2024, Month: 3}
	if got := cacheKey(7, &m); got != "budget:7:2024-03" {
		t.Errorf("cacheKey = %q", got)
	}
	if got := cacheKey(7, nil); got != "budget:7:all" {
		t.Errorf("cacheKey = %q", got)
	}
}
