package cache

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	calls   int32
	balance float64
}

func (f *fakeAccounts) AccountsByEmail(_ context.Context, _ string) ([]Account, error) {
	atomic.AddInt32(&f.calls, 1)
	return []Account{{ID: "ACC-1", Balance: f.balance}}, nil
}

func (f *fakeAccounts) AccountDetails(_ context.Context, _ string) (map[string]any, error) {
	return map[string]any{"accountHolderFullName": "Alice"}, nil
}

type fakeTx struct{}

func (fakeTx) RecentTransactions(_ context.Context, _ string, _ int) ([]map[string]any, error) {
	return []map[string]any{{"id": "TX-1"}}, nil
}

func newTestManager(t *testing.T) *Manager {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	return m
}

func TestManager_InitializeThenGetRoundTrip(t *testing.T) {
	m := newTestManager(t)
	accounts := &fakeAccounts{balance: 89850.00}

	entry, err := m.Initialize(context.Background(), "CUST-1", "alice@example.com", Sources{
		Accounts:     accounts,
		Transactions: fakeTx{},
	})
	require.NoError(t, err)
	assert.Equal(t, 89850.00, entry.Data["balance"])

	value, ok := m.Get(context.Background(), "CUST-1", "balance")
	require.True(t, ok)
	assert.Equal(t, 89850.00, value)

	txs, ok := m.Get(context.Background(), "CUST-1", "last_5_transactions")
	require.True(t, ok)
	assert.NotEmpty(t, txs)
}

func TestManager_ZeroBalanceIsTreatedAsCacheMiss(t *testing.T) {
	m := newTestManager(t)
	accounts := &fakeAccounts{balance: 0}

	_, err := m.Initialize(context.Background(), "CUST-2", "bob@example.com", Sources{Accounts: accounts})
	require.NoError(t, err)

	_, ok := m.Get(context.Background(), "CUST-2", "balance")
	assert.False(t, ok, "a stored zero balance must be treated as a stale sentinel, not a hit")
}

func TestManager_GetMissingCustomerReturnsMiss(t *testing.T) {
	m := newTestManager(t)
	_, ok := m.Get(context.Background(), "CUST-UNKNOWN", "balance")
	assert.False(t, ok)
}

func TestManager_ExpiredEntryIsAMiss(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.writeAtomic("CUST-3", Entry{
		CustomerID: "CUST-3",
		CachedAt:   time.Now().Add(-time.Hour),
		TTLSeconds: 300,
		Data:       map[string]any{"balance": 100.0},
	}))

	_, ok := m.Get(context.Background(), "CUST-3", "balance")
	assert.False(t, ok)
}

func TestManager_ConcurrentInitializeCoalescesToOneFetch(t *testing.T) {
	m := newTestManager(t)
	accounts := &fakeAccounts{balance: 42}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Initialize(context.Background(), "CUST-4", "carol@example.com", Sources{Accounts: accounts})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&accounts.calls), "concurrent Initialize calls for the same customer must coalesce into a single fetch")
}

func TestManager_UpdateMergesAndRefreshesTimestamp(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Update("CUST-5", map[string]any{"balance": 500.0}))

	entry, err := m.readRaw("CUST-5")
	require.NoError(t, err)
	assert.Equal(t, 500.0, entry.Data["balance"])
	assert.WithinDuration(t, time.Now().UTC(), entry.CachedAt, 5*time.Second)
}

func TestManager_InvalidateIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Update("CUST-6", map[string]any{"balance": 1.0}))
	require.NoError(t, m.Invalidate("CUST-6"))
	require.NoError(t, m.Invalidate("CUST-6"))

	_, ok := m.Get(context.Background(), "CUST-6", "balance")
	assert.False(t, ok)
}

func TestManager_CleanupOldDeletesStaleFiles(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Update("CUST-7", map[string]any{"balance": 1.0}))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(m.path("CUST-7"), old, old))

	deleted, err := m.CleanupOld()
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
}
