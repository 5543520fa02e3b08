package repository

import (
	"context"
	"testing"
	"time"

	"music_converter_service/internal/converter/domain"
	"music_converter_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTrackRepo 模擬底層 Mongo 儲存
type MockTrackRepo struct {
	mock.Mock
}

func (m *MockTrackRepo) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTrackRepo) Save(ctx context.Context, record *domain.ConversionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockTrackRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.ConversionRecord, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConversionRecord), args.Error(1)
}

func (m *MockTrackRepo) ListRecent(ctx context.Context, limit int64) ([]domain.ConversionRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConversionRecord), args.Error(1)
}

// MockRecordCache 模擬 redis 快取
type MockRecordCache struct {
	mock.Mock
}

func (m *MockRecordCache) Set(ctx context.Context, key string, value domain.ConversionRecord, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockRecordCache) Get(ctx context.Context, key string) (domain.ConversionRecord, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.ConversionRecord), args.Error(1)
}

func (m *MockRecordCache) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func TestCachedTrackRepo(t *testing.T) {
	logger.SetNewNop()
	ttl := time.Hour

	// **情境 1: 快取命中時不查 Mongo**
	t.Run("快取命中", func(t *testing.T) {
		repo := new(MockTrackRepo)
		cache := new(MockRecordCache)
		r := NewCachedTrackRepo(repo, cache, ttl)

		want := domain.ConversionRecord{Identifier: "abc12345678", Title: "Test Song"}
		cache.On("Get", mock.Anything, "track:abc12345678").Return(want, nil)

		got, err := r.FindByIdentifier(context.Background(), "abc12345678")
		require.NoError(t, err)
		assert.Equal(t, &want, got)
		repo.AssertNotCalled(t, "FindByIdentifier")
	})

	// **情境 2: 快取未命中時查 Mongo 並回填**
	t.Run("快取未命中回填", func(t *testing.T) {
		repo := new(MockTrackRepo)
		cache := new(MockRecordCache)
		r := NewCachedTrackRepo(repo, cache, ttl)

		want := domain.ConversionRecord{Identifier: "abc12345678"}
		cache.On("Get", mock.Anything, "track:abc12345678").Return(domain.ConversionRecord{}, redis.Nil)
		repo.On("FindByIdentifier", mock.Anything, "abc12345678").Return(&want, nil)
		cache.On("Set", mock.Anything, "track:abc12345678", want, ttl).Return(nil)

		got, err := r.FindByIdentifier(context.Background(), "abc12345678")
		require.NoError(t, err)
		assert.Equal(t, &want, got)
		cache.AssertExpectations(t)
	})

	// **情境 3: Mongo 也查無資料時不回填**
	t.Run("查無資料不回填", func(t *testing.T) {
		repo := new(MockTrackRepo)
		cache := new(MockRecordCache)
		r := NewCachedTrackRepo(repo, cache, ttl)

		cache.On("Get", mock.Anything, "track:abc12345678").Return(domain.ConversionRecord{}, redis.Nil)
		repo.On("FindByIdentifier", mock.Anything, "abc12345678").Return(nil, nil)

		got, err := r.FindByIdentifier(context.Background(), "abc12345678")
		require.NoError(t, err)
		assert.Nil(t, got)
		cache.AssertNotCalled(t, "Set")
	})

	// **情境 4: redis 故障時退回 Mongo**
	t.Run("redis故障退回Mongo", func(t *testing.T) {
		repo := new(MockTrackRepo)
		cache := new(MockRecordCache)
		r := NewCachedTrackRepo(repo, cache, ttl)

		want := domain.ConversionRecord{Identifier: "abc12345678"}
		cache.On("Get", mock.Anything, "track:abc12345678").Return(domain.ConversionRecord{}, assert.AnError)
		repo.On("FindByIdentifier", mock.Anything, "abc12345678").Return(&want, nil)
		cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		got, err := r.FindByIdentifier(context.Background(), "abc12345678")
		require.NoError(t, err)
		assert.Equal(t, &want, got)
	})

	// **情境 5: Save 寫入 Mongo 後回填快取，快取失敗不影響結果**
	t.Run("Save寫入後回填快取", func(t *testing.T) {
		repo := new(MockTrackRepo)
		cache := new(MockRecordCache)
		r := NewCachedTrackRepo(repo, cache, ttl)

		record := &domain.ConversionRecord{Identifier: "abc12345678"}
		repo.On("Save", mock.Anything, record).Return(nil)
		cache.On("Set", mock.Anything, "track:abc12345678", *record, ttl).Return(assert.AnError)

		err := r.Save(context.Background(), record)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})
}
