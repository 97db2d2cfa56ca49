package loan

import (
	"context"

	"pawnshop/core"

	"github.com/fox-one/pkg/store/db"
)

type loanStore struct {
	db *db.DB
}

// New new loan store
func New(db *db.DB) core.ILoanStore {
	return &loanStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Loan{})
		if err := tx.AutoMigrate(core.Loan{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *loanStore) Create(ctx context.Context, tx *db.DB, loan *core.Loan) error {
	return tx.Update().Create(loan).Error
}

func (s *loanStore) Find(ctx context.Context, id uint64) (*core.Loan, error) {
	var loan core.Loan
	if err := s.db.View().Where("id=?", id).First(&loan).Error; err != nil {
		return nil, err
	}

	return &loan, nil
}

func (s *loanStore) FindLive(ctx context.Context, collectionID, tokenID string) (*core.Loan, error) {
	var loan core.Loan
	if err := s.db.View().
		Where("collection_id=? and token_id=? and state in (?)",
			collectionID, tokenID,
			[]core.LoanState{core.LoanStateActive, core.LoanStateAuction}).
		First(&loan).Error; err != nil {
		return nil, err
	}

	return &loan, nil
}

func (s *loanStore) FindByBorrower(ctx context.Context, borrower string) ([]*core.Loan, error) {
	var loans []*core.Loan
	if err := s.db.View().Where("borrower=?", borrower).Find(&loans).Error; err != nil {
		return nil, err
	}

	return loans, nil
}

func (s *loanStore) ListByState(ctx context.Context, state core.LoanState, limit int) ([]*core.Loan, error) {
	var loans []*core.Loan
	if err := s.db.View().
		Where("state=?", state).
		Order("id ASC").
		Limit(limit).
		Find(&loans).Error; err != nil {
		return nil, err
	}

	return loans, nil
}

func (s *loanStore) All(ctx context.Context) ([]*core.Loan, error) {
	var loans []*core.Loan
	if err := s.db.View().Find(&loans).Error; err != nil {
		return nil, err
	}

	return loans, nil
}

func (s *loanStore) Update(ctx context.Context, tx *db.DB, loan *core.Loan) error {
	version := loan.Version
	loan.Version++
	// map updates so cleared bid fields are written back as zero values
	updates := tx.Update().Model(core.Loan{}).
		Where("id=? and version=?", loan.ID, version).
		Updates(map[string]interface{}{
			"scaled_debt":  loan.ScaledDebt,
			"state":        loan.State,
			"bidder":       loan.Bidder,
			"bid_price":    loan.BidPrice,
			"bid_fine":     loan.BidFine,
			"auctioned_at": loan.AuctionedAt,
			"first_bid_at": loan.FirstBidAt,
			"version":      loan.Version,
		})
	if err := updates.Error; err != nil {
		return err
	}

	if updates.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}

	return nil
}
