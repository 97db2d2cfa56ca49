package reserve

import (
	"context"
	"errors"

	"pawnshop/core"

	"github.com/fox-one/pkg/store/db"
)

type reserveStore struct {
	db *db.DB
}

// New new reserve store
func New(db *db.DB) core.IReserveStore {
	return &reserveStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Reserve{})
		if err := tx.AutoMigrate(core.Reserve{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *reserveStore) Create(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	return tx.Update().Where("asset_id=?", reserve.AssetID).FirstOrCreate(reserve).Error
}

func (s *reserveStore) Find(ctx context.Context, assetID string) (*core.Reserve, error) {
	if assetID == "" {
		return nil, errors.New("invalid asset_id")
	}

	var reserve core.Reserve
	if err := s.db.View().Where("asset_id=?", assetID).First(&reserve).Error; err != nil {
		return nil, err
	}

	return &reserve, nil
}

func (s *reserveStore) FindBySymbol(ctx context.Context, symbol string) (*core.Reserve, error) {
	if symbol == "" {
		return nil, errors.New("invalid symbol")
	}

	var reserve core.Reserve
	if err := s.db.View().Where("symbol=?", symbol).First(&reserve).Error; err != nil {
		return nil, err
	}

	return &reserve, nil
}

func (s *reserveStore) All(ctx context.Context) ([]*core.Reserve, error) {
	var reserves []*core.Reserve
	if err := s.db.View().Find(&reserves).Error; err != nil {
		return nil, err
	}

	return reserves, nil
}

func (s *reserveStore) Update(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	version := reserve.Version
	reserve.Version++
	updates := tx.Update().Model(core.Reserve{}).
		Where("id=? and version=?", reserve.ID, version).
		Updates(reserve)
	if err := updates.Error; err != nil {
		return err
	}

	if updates.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}

	return nil
}
