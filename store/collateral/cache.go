package collateral

import (
	"context"
	"fmt"
	"time"

	"pawnshop/core"

	"github.com/bluele/gcache"
	"github.com/fox-one/pkg/store/db"
	"golang.org/x/sync/singleflight"
)

// Cache wraps a collateral store with an expiring read cache. Collateral
// configs change rarely, so stale reads within exp are acceptable.
func Cache(store core.ICollateralStore, exp time.Duration) core.ICollateralStore {
	return &cacheCollateralStore{
		ICollateralStore: store,
		cache:            gcache.New(256).LRU().Expiration(exp).Build(),
		sf:               &singleflight.Group{},
	}
}

type cacheCollateralStore struct {
	core.ICollateralStore
	cache gcache.Cache
	sf    *singleflight.Group
}

func (s *cacheCollateralStore) Save(ctx context.Context, tx *db.DB, config *core.CollateralConfig) error {
	if err := s.ICollateralStore.Save(ctx, tx, config); err != nil {
		return err
	}
	s.cache.Remove(s.collectionKey(config.CollectionID))
	return nil
}

func (s *cacheCollateralStore) Find(ctx context.Context, collectionID string) (*core.CollateralConfig, error) {
	key := s.collectionKey(collectionID)
	if v, err := s.cache.Get(key); err == nil {
		if config, ok := v.(*core.CollateralConfig); ok {
			return config, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		config, err := s.ICollateralStore.Find(ctx, collectionID)
		if err != nil {
			return nil, err
		}
		if config.ID > 0 {
			s.cache.Set(key, config)
		}
		return config, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*core.CollateralConfig), nil
}

func (s *cacheCollateralStore) collectionKey(collectionID string) string {
	return fmt.Sprintf("collateral:collection:%s", collectionID)
}
