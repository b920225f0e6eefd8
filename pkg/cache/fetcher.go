package cache

import "context"

// Account is the subset of account data the cache composes into a snapshot,
// grounded on original_source's _fetch_account_data.
type Account struct {
	ID      string `json:"id"`
	Balance any    `json:"balance"`
}

// Sources bundles the downstream tool clients Initialize fans out to.
// Any field may be nil, in which case that section of the cache is skipped
// (spec.md §4.8: "fetch the primary account... then in parallel fetch
// last-5 transactions, beneficiaries, and limits for the primary account").
type Sources struct {
	Accounts      AccountFetcher
	Transactions  TransactionFetcher
	Beneficiaries BeneficiaryFetcher
	Limits        LimitsFetcher
}

// AccountFetcher resolves the accounts owned by a customer, by email.
type AccountFetcher interface {
	AccountsByEmail(ctx context.Context, email string) ([]Account, error)
	AccountDetails(ctx context.Context, accountID string) (map[string]any, error)
}

// TransactionFetcher resolves the most recent transactions on an account.
type TransactionFetcher interface {
	RecentTransactions(ctx context.Context, accountID string, limit int) ([]map[string]any, error)
}

// BeneficiaryFetcher resolves an account's registered beneficiaries.
type BeneficiaryFetcher interface {
	Beneficiaries(ctx context.Context, accountID string) ([]map[string]any, error)
}

// LimitsFetcher resolves an account's transaction limits.
type LimitsFetcher interface {
	Limits(ctx context.Context, accountID string) (map[string]any, error)
}
