package collateral

import (
	"context"
	"errors"

	"pawnshop/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type collateralStore struct {
	db *db.DB
}

// New new collateral config store
func New(db *db.DB) core.ICollateralStore {
	return &collateralStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.CollateralConfig{})
		if err := tx.AutoMigrate(core.CollateralConfig{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *collateralStore) Save(ctx context.Context, tx *db.DB, config *core.CollateralConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	var existing core.CollateralConfig
	err := tx.Update().Where("collection_id=?", config.CollectionID).First(&existing).Error
	if gorm.IsRecordNotFoundError(err) {
		return tx.Update().Create(config).Error
	} else if err != nil {
		return err
	}

	version := existing.Version
	config.ID = existing.ID
	config.Version = version + 1
	updates := tx.Update().Model(core.CollateralConfig{}).
		Where("id=? and version=?", existing.ID, version).
		Updates(config)
	if err := updates.Error; err != nil {
		return err
	}

	if updates.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}

	return nil
}

func (s *collateralStore) Find(ctx context.Context, collectionID string) (*core.CollateralConfig, error) {
	if collectionID == "" {
		return nil, errors.New("invalid collection_id")
	}

	var config core.CollateralConfig
	if err := s.db.View().Where("collection_id=?", collectionID).First(&config).Error; err != nil {
		return nil, err
	}

	return &config, nil
}

func (s *collateralStore) All(ctx context.Context) ([]*core.CollateralConfig, error) {
	var configs []*core.CollateralConfig
	if err := s.db.View().Find(&configs).Error; err != nil {
		return nil, err
	}

	return configs, nil
}
