package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Manager is the User Cache (spec.md §4.8, C8): one JSON file per customer
// under Dir, with TTL-bounded reads and coalesced concurrent initialization.
// Grounded on original_source's UserCacheManager, with the file-lock +
// temp-rename pattern generalized to Go's os.Rename (atomic on POSIX and
// Windows NTFS within the same volume) and _initializing's polling loop
// replaced by a per-customer channel close.
type Manager struct {
	dir string

	mu           sync.Mutex
	initializing map[string]chan struct{} // customer_id -> closed when init completes

	logger *slog.Logger
}

// NewManager builds a Manager rooted at dir, creating it if necessary.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create cache dir: %w", err)
	}
	return &Manager{
		dir:          dir,
		initializing: make(map[string]chan struct{}),
		logger:       slog.Default().With("component", "user_cache"),
	}, nil
}

func (m *Manager) path(customerID string) string {
	return filepath.Join(m.dir, customerID+".json")
}

// Initialize fetches the customer's primary account, then fans the
// remaining sections out in parallel, composes them into one Entry, and
// writes it atomically. Concurrent Initialize calls for the same customer
// are coalesced: only the first actually fetches; the rest wait for it.
func (m *Manager) Initialize(ctx context.Context, customerID, userEmail string, src Sources) (Entry, error) {
	m.mu.Lock()
	if done, inFlight := m.initializing[customerID]; inFlight {
		m.mu.Unlock()
		select {
		case <-done:
		case <-time.After(coalesceWait):
			m.logger.Warn("timed out waiting for in-flight cache init", "customer_id", customerID)
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		}
		return m.readRaw(customerID)
	}
	done := make(chan struct{})
	m.initializing[customerID] = done
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.initializing, customerID)
		m.mu.Unlock()
		close(done)
	}()

	data := make(map[string]any)
	var primaryAccountID string

	if src.Accounts != nil {
		accountSection, accountID, err := m.fetchAccountSection(ctx, customerID, userEmail, src.Accounts)
		if err != nil {
			m.logger.Error("account fetch failed during cache init", "customer_id", customerID, "error", err)
		} else {
			for k, v := range accountSection {
				data[k] = v
			}
			primaryAccountID = accountID
		}
	}

	if primaryAccountID != "" {
		m.fetchParallelSections(ctx, primaryAccountID, src, data)
	}

	entry := Entry{
		CustomerID: customerID,
		CachedAt:   time.Now().UTC(),
		TTLSeconds: int(DefaultTTL.Seconds()),
		Data:       data,
	}

	if err := m.writeAtomic(customerID, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (m *Manager) fetchAccountSection(ctx context.Context, customerID, userEmail string, fetcher AccountFetcher) (map[string]any, string, error) {
	accounts, err := fetcher.AccountsByEmail(ctx, userEmail)
	if err != nil {
		return nil, "", err
	}

	section := map[string]any{"accounts": accounts}
	var primaryAccountID string
	var totalBalance float64

	if len(accounts) > 0 {
		primaryAccountID = accounts[0].ID
		for _, acc := range accounts {
			if f, ok := acc.Balance.(float64); ok {
				totalBalance += f
			}
		}
	}
	section["balance"] = totalBalance

	if primaryAccountID != "" {
		details, err := fetcher.AccountDetails(ctx, primaryAccountID)
		if err != nil {
			m.logger.Error("account details fetch failed", "customer_id", customerID, "error", err)
		} else {
			section["account_details"] = details
		}
	}
	return section, primaryAccountID, nil
}

// fetchParallelSections fetches transactions, beneficiaries, and limits
// concurrently for accountID, merging each into data as it completes. A
// failure in one section never blocks the others (spec.md §4.8: compose
// what succeeds).
func (m *Manager) fetchParallelSections(ctx context.Context, accountID string, src Sources, data map[string]any) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	if src.Transactions != nil {
		g.Go(func() error {
			txs, err := src.Transactions.RecentTransactions(gctx, accountID, 5)
			if err != nil {
				m.logger.Error("transaction fetch failed", "account_id", accountID, "error", err)
				return nil
			}
			mu.Lock()
			data["last_5_transactions"] = txs
			if len(txs) > 0 {
				data["last_transaction"] = txs[0]
			}
			mu.Unlock()
			return nil
		})
	}

	if src.Beneficiaries != nil {
		g.Go(func() error {
			beneficiaries, err := src.Beneficiaries.Beneficiaries(gctx, accountID)
			if err != nil {
				m.logger.Error("beneficiaries fetch failed", "account_id", accountID, "error", err)
				return nil
			}
			mu.Lock()
			data["beneficiaries"] = beneficiaries
			mu.Unlock()
			return nil
		})
	}

	if src.Limits != nil {
		g.Go(func() error {
			limits, err := src.Limits.Limits(gctx, accountID)
			if err != nil {
				m.logger.Error("limits fetch failed", "account_id", accountID, "error", err)
				return nil
			}
			mu.Lock()
			data["limits"] = limits
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() // stage goroutines never return a non-nil error; failures are logged and skipped
}

// Get returns the cached value at key (or the whole data map if key is
// empty), or (nil, false) if the entry is missing, expired, or — for
// "balance" — the stale zero sentinel (spec.md §9).
func (m *Manager) Get(ctx context.Context, customerID, key string) (any, bool) {
	m.mu.Lock()
	done, inFlight := m.initializing[customerID]
	m.mu.Unlock()
	if inFlight {
		select {
		case <-done:
		case <-time.After(coalesceWait):
			m.logger.Warn("timed out waiting for in-flight cache init on read", "customer_id", customerID)
		case <-ctx.Done():
			return nil, false
		}
	}

	entry, err := m.readWithRetry(customerID)
	if err != nil {
		return nil, false
	}
	if entry.expired(time.Now().UTC()) {
		return nil, false
	}

	if key == "" {
		return entry.Data, true
	}
	value, ok := entry.Data[key]
	if !ok || sentinelZero(key, value) {
		return nil, false
	}
	return value, true
}

// Update merges partial into the existing entry's data and refreshes
// cached_at (spec.md §4.8 "update").
func (m *Manager) Update(customerID string, partial map[string]any) error {
	entry, err := m.readRaw(customerID)
	if err != nil {
		entry = Entry{CustomerID: customerID, TTLSeconds: int(DefaultTTL.Seconds()), Data: make(map[string]any)}
	}
	if entry.Data == nil {
		entry.Data = make(map[string]any)
	}
	for k, v := range partial {
		entry.Data[k] = v
	}
	entry.CachedAt = time.Now().UTC()
	return m.writeAtomic(customerID, entry)
}

// Invalidate deletes the customer's cache file, if any.
func (m *Manager) Invalidate(customerID string) error {
	err := os.Remove(m.path(customerID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CleanupOld deletes cache files whose modification time is older than
// CleanupAge (spec.md §4.8 "cleanup_old", run on a background schedule by
// pkg/cleanup).
func (m *Manager) CleanupOld() (deleted int, err error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-CleanupAge)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(filepath.Join(m.dir, e.Name())); rmErr == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

// readWithRetry reads the cache file, retrying on OS-level contention
// (spec.md §4.8: "retry up to 3 times with 100 ms backoff").
func (m *Manager) readWithRetry(customerID string) (Entry, error) {
	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		entry, err := m.readRaw(customerID)
		if err == nil {
			return entry, nil
		}
		lastErr = err
		if attempt < maxAttempts-1 {
			time.Sleep(100 * time.Millisecond)
		}
	}
	return Entry{}, lastErr
}

func (m *Manager) readRaw(customerID string) (Entry, error) {
	raw, err := os.ReadFile(m.path(customerID))
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// writeAtomic writes entry via a temp file plus rename, so a reader never
// observes a partially written cache file.
func (m *Manager) writeAtomic(customerID string, entry Entry) error {
	encoded, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	finalPath := m.path(customerID)
	tempPath := finalPath + ".tmp"
	if err := os.WriteFile(tempPath, encoded, 0o644); err != nil {
		return fmt.Errorf("cache: write temp file: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		return fmt.Errorf("cache: rename temp file: %w", err)
	}
	return nil
}
