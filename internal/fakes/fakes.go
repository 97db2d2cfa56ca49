// Package fakes provides in-memory store implementations for service tests.
// The tx argument of mutating methods is ignored, so tests can pass nil and
// exercise service logic without a database.
package fakes

import (
	"context"
	"sync"
	"time"

	"pawnshop/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type ReserveStore struct {
	mu       sync.Mutex
	reserves map[string]*core.Reserve
}

func NewReserveStore() *ReserveStore {
	return &ReserveStore{reserves: map[string]*core.Reserve{}}
}

func (s *ReserveStore) Create(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reserves[reserve.AssetID]; ok {
		return nil
	}

	reserve.ID = uint64(len(s.reserves) + 1)
	clone := *reserve
	s.reserves[reserve.AssetID] = &clone
	return nil
}

func (s *ReserveStore) Find(ctx context.Context, assetID string) (*core.Reserve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reserve, ok := s.reserves[assetID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	clone := *reserve
	return &clone, nil
}

func (s *ReserveStore) FindBySymbol(ctx context.Context, symbol string) (*core.Reserve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, reserve := range s.reserves {
		if reserve.Symbol == symbol {
			clone := *reserve
			return &clone, nil
		}
	}

	return nil, gorm.ErrRecordNotFound
}

func (s *ReserveStore) All(ctx context.Context) ([]*core.Reserve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*core.Reserve, 0, len(s.reserves))
	for _, reserve := range s.reserves {
		clone := *reserve
		out = append(out, &clone)
	}

	return out, nil
}

func (s *ReserveStore) Update(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.reserves[reserve.AssetID]
	if !ok || current.Version != reserve.Version {
		return db.ErrOptimisticLock
	}

	reserve.Version++
	clone := *reserve
	s.reserves[reserve.AssetID] = &clone
	return nil
}

type LoanStore struct {
	mu    sync.Mutex
	loans []*core.Loan
}

func NewLoanStore() *LoanStore {
	return &LoanStore{}
}

func (s *LoanStore) Create(ctx context.Context, tx *db.DB, loan *core.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan.ID = uint64(len(s.loans) + 1)
	clone := *loan
	s.loans = append(s.loans, &clone)
	return nil
}

func (s *LoanStore) Find(ctx context.Context, id uint64) (*core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, loan := range s.loans {
		if loan.ID == id {
			clone := *loan
			return &clone, nil
		}
	}

	return nil, gorm.ErrRecordNotFound
}

func (s *LoanStore) FindLive(ctx context.Context, collectionID, tokenID string) (*core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, loan := range s.loans {
		if loan.CollectionID == collectionID && loan.TokenID == tokenID && !loan.State.IsTerminal() {
			clone := *loan
			return &clone, nil
		}
	}

	return nil, gorm.ErrRecordNotFound
}

func (s *LoanStore) FindByBorrower(ctx context.Context, borrower string) ([]*core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.Loan
	for _, loan := range s.loans {
		if loan.Borrower == borrower {
			clone := *loan
			out = append(out, &clone)
		}
	}

	return out, nil
}

func (s *LoanStore) ListByState(ctx context.Context, state core.LoanState, limit int) ([]*core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.Loan
	for _, loan := range s.loans {
		if loan.State == state {
			clone := *loan
			out = append(out, &clone)
		}
		if len(out) >= limit {
			break
		}
	}

	return out, nil
}

func (s *LoanStore) All(ctx context.Context) ([]*core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*core.Loan, 0, len(s.loans))
	for _, loan := range s.loans {
		clone := *loan
		out = append(out, &clone)
	}

	return out, nil
}

func (s *LoanStore) Update(ctx context.Context, tx *db.DB, loan *core.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, current := range s.loans {
		if current.ID == loan.ID {
			if current.Version != loan.Version {
				return db.ErrOptimisticLock
			}

			loan.Version++
			clone := *loan
			s.loans[idx] = &clone
			return nil
		}
	}

	return db.ErrOptimisticLock
}

type CollateralStore struct {
	mu      sync.Mutex
	configs map[string]*core.CollateralConfig
}

func NewCollateralStore() *CollateralStore {
	return &CollateralStore{configs: map[string]*core.CollateralConfig{}}
}

func (s *CollateralStore) Save(ctx context.Context, tx *db.DB, config *core.CollateralConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *config
	clone.ID = uint64(len(s.configs) + 1)
	s.configs[config.CollectionID] = &clone
	return nil
}

func (s *CollateralStore) Find(ctx context.Context, collectionID string) (*core.CollateralConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, ok := s.configs[collectionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	clone := *config
	return &clone, nil
}

func (s *CollateralStore) All(ctx context.Context) ([]*core.CollateralConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*core.CollateralConfig, 0, len(s.configs))
	for _, config := range s.configs {
		clone := *config
		out = append(out, &clone)
	}

	return out, nil
}

type TransferStore struct {
	mu        sync.Mutex
	transfers []*core.Transfer
}

func NewTransferStore() *TransferStore {
	return &TransferStore{}
}

func (s *TransferStore) Create(ctx context.Context, tx *db.DB, transfer *core.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.transfers {
		if t.TraceID == transfer.TraceID {
			return nil
		}
	}

	transfer.ID = uint64(len(s.transfers) + 1)
	clone := *transfer
	s.transfers = append(s.transfers, &clone)
	return nil
}

func (s *TransferStore) Top(ctx context.Context, limit int) ([]*core.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*core.Transfer, 0, limit)
	for _, transfer := range s.transfers {
		clone := *transfer
		out = append(out, &clone)
		if len(out) >= limit {
			break
		}
	}

	return out, nil
}

func (s *TransferStore) Delete(ctx context.Context, tx *db.DB, ids ...uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := s.transfers[:0]
	for _, transfer := range s.transfers {
		drop := false
		for _, id := range ids {
			if transfer.ID == id {
				drop = true
				break
			}
		}
		if !drop {
			keep = append(keep, transfer)
		}
	}

	s.transfers = keep
	return nil
}

// Sent all scheduled transfers, oldest first
func (s *TransferStore) Sent() []*core.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*core.Transfer, len(s.transfers))
	copy(out, s.transfers)
	return out
}

// Oracle a price oracle fed by the test
type Oracle struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func NewOracle() *Oracle {
	return &Oracle{prices: map[string]decimal.Decimal{}}
}

func (o *Oracle) SetPrice(assetID string, price decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[assetID] = price
}

func (o *Oracle) GetPrice(ctx context.Context, assetID string, at time.Time) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	price, ok := o.prices[assetID]
	if !ok || !price.IsPositive() {
		return decimal.Zero, core.ErrInvalidPrice
	}

	return price, nil
}

func (o *Oracle) PullTickers(ctx context.Context, at time.Time) ([]*core.PriceData, error) {
	return nil, nil
}
