package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/ports"

	"golang.org/x/sync/singleflight"
)

// CacheObserver receives hit/miss notifications. *metrics.Metrics satisfies it.
type CacheObserver interface {
	CacheHit()
	CacheMiss()
}

// CachedLister memoizes transaction snapshots per budget and month.
// Concurrent misses for the same key share one query.
type CachedLister struct {
	next     ports.TransactionLister
	cache    *cache.LRUCache[[]core.TransactionView]
	group    singleflight.Group
	observer CacheObserver

	mu          sync.Mutex
	generations map[int64]uint64
}

var _ ports.TransactionLister = (*CachedLister)(nil)

func NewCachedLister(next ports.TransactionLister, size int, ttl time.Duration, observer CacheObserver) *CachedLister {
	return &CachedLister{
		next:        next,
		cache:       cache.NewLRUCache[[]core.TransactionView](size, ttl),
		observer:    observer,
		generations: make(map[int64]uint64),
	}
}

func (l *CachedLister) ListTransactions(ctx context.Context, budgetID int64, month *core.Month) ([]core.TransactionView, error) {
	gen := l.generation(budgetID)
	key := cacheKey(budgetID, month)

	if txs, ok := l.cache.Get(key); ok {
		l.hit()
		return clone(txs), nil
	}
	l.miss()

	ch := l.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		// The shared load outlives the caller that started it; every caller
		// still stops waiting when its own context ends.
		loadCtx := context.WithoutCancel(ctx)
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithDeadline(loadCtx, deadline)
			defer cancel()
		}
		txs, err := l.next.ListTransactions(loadCtx, budgetID, month)
		if err != nil {
			return nil, err
		}
		l.store(budgetID, gen, key, txs)
		return txs, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]core.TransactionView)), nil
	}
}

// store caches txs unless a write landed while they were loading.
func (l *CachedLister) store(budgetID int64, gen uint64, key string, txs []core.TransactionView) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generations[budgetID] == gen {
		l.cache.Set(key, txs)
	}
}

// Invalidate drops every cached snapshot of the budget.
func (l *CachedLister) Invalidate(budgetID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generations[budgetID]++
	l.cache.DeletePrefix(fmt.Sprintf("budget:%d:", budgetID))
}

// Cache exposes the underlying cache for cleanup registration and gauges.
func (l *CachedLister) Cache() *cache.LRUCache[[]core.TransactionView] {
	return l.cache
}

func (l *CachedLister) generation(budgetID int64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[budgetID]
}

func (l *CachedLister) hit() {
	if l.observer != nil {
		l.observer.CacheHit()
	}
}

func (l *CachedLister) miss() {
	if l.observer != nil {
		l.observer.CacheMiss()
	}
}

func cacheKey(budgetID int64, month *core.Month) string {
	if month == nil {
		return fmt.Sprintf("budget:%d:all", budgetID)
	}
	return fmt.Sprintf("budget:%d:%s", budgetID, month.String())
}

func clone(txs []core.TransactionView) []core.TransactionView {
	out := make([]core.TransactionView, len(txs))
	copy(out, txs)
	return out
}
