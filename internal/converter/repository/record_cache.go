package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"music_converter_service/internal/converter/domain"
	"music_converter_service/pkg/database"
	"music_converter_service/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// cachedTrackRepo 在 TrackRepo 外包一層 redis 讀穿快取。
// 快取失效或 redis 不可用時一律退回 Mongo。
type cachedTrackRepo struct {
	repo  TrackRepo
	cache database.RedisRepository[domain.ConversionRecord]
	ttl   time.Duration
}

// NewCachedTrackRepo wrap a TrackRepo with a redis record cache
func NewCachedTrackRepo(repo TrackRepo, cache database.RedisRepository[domain.ConversionRecord], ttl time.Duration) TrackRepo {
	return &cachedTrackRepo{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

func recordKey(identifier string) string {
	return fmt.Sprintf("track:%s", identifier)
}

func (r *cachedTrackRepo) EnsureIndexes(ctx context.Context) error {
	return r.repo.EnsureIndexes(ctx)
}

// Save 寫入 Mongo 成功後回填快取。快取寫入失敗只記 log，紀錄本身已持久化。
func (r *cachedTrackRepo) Save(ctx context.Context, record *domain.ConversionRecord) error {
	if err := r.repo.Save(ctx, record); err != nil {
		return err
	}
	if err := r.cache.Set(ctx, recordKey(record.Identifier), *record, r.ttl); err != nil {
		logger.Log.Warn(fmt.Sprintf("identifier[%s] 快取寫入失敗: %v", record.Identifier, err))
	}
	return nil
}

func (r *cachedTrackRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.ConversionRecord, error) {
	record, err := r.cache.Get(ctx, recordKey(identifier))
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, redis.Nil) {
		logger.Log.Warn(fmt.Sprintf("identifier[%s] 快取讀取失敗: %v", identifier, err))
	}

	found, err := r.repo.FindByIdentifier(ctx, identifier)
	if err != nil || found == nil {
		return found, err
	}
	if err := r.cache.Set(ctx, recordKey(identifier), *found, r.ttl); err != nil {
		logger.Log.Warn(fmt.Sprintf("identifier[%s] 快取回填失敗: %v", identifier, err))
	}
	return found, nil
}

func (r *cachedTrackRepo) ListRecent(ctx context.Context, limit int64) ([]domain.ConversionRecord, error) {
	return r.repo.ListRecent(ctx, limit)
}
