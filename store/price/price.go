package price

import (
	"context"
	"errors"

	"pawnshop/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type priceStore struct {
	db *db.DB
}

// New new price store
func New(db *db.DB) core.IPriceStore {
	return &priceStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Price{})
		if err := tx.AutoMigrate(core.Price{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *priceStore) Save(ctx context.Context, tx *db.DB, price *core.Price) error {
	var existing core.Price
	err := tx.Update().Where("asset_id=?", price.AssetID).First(&existing).Error
	if gorm.IsRecordNotFoundError(err) {
		return tx.Update().Create(price).Error
	} else if err != nil {
		return err
	}

	version := existing.Version
	updates := tx.Update().Model(core.Price{}).
		Where("id=? and version=?", existing.ID, version).
		Updates(map[string]interface{}{
			"price":   price.Price,
			"content": price.Content,
			"version": version + 1,
		})
	if err := updates.Error; err != nil {
		return err
	}

	if updates.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}

	return nil
}

func (s *priceStore) Find(ctx context.Context, assetID string) (*core.Price, error) {
	if assetID == "" {
		return nil, errors.New("invalid asset_id")
	}

	var price core.Price
	if err := s.db.View().Where("asset_id=?", assetID).First(&price).Error; err != nil {
		return nil, err
	}

	return &price, nil
}

func (s *priceStore) All(ctx context.Context) ([]*core.Price, error) {
	var prices []*core.Price
	if err := s.db.View().Find(&prices).Error; err != nil {
		return nil, err
	}

	return prices, nil
}
