package repository

import (
	"context"
	"errors"
	"fmt"

	"music_converter_service/internal/converter/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TrackRepo definition conversion record store。
// queue manager 只新增紀錄，不更新也不刪除。
type TrackRepo interface {
	// EnsureIndexes 建立 identifier 唯一索引
	EnsureIndexes(ctx context.Context) error
	// Save 寫入一筆完成的轉檔紀錄
	Save(ctx context.Context, record *domain.ConversionRecord) error
	// FindByIdentifier 以 identifier 等值查詢，查無資料時回傳 (nil, nil)
	FindByIdentifier(ctx context.Context, identifier string) (*domain.ConversionRecord, error)
	// ListRecent 依建立時間倒序取最近 limit 筆
	ListRecent(ctx context.Context, limit int64) ([]domain.ConversionRecord, error)
}

type trackRepository struct {
	coll *mongo.Collection
}

// NewMongoTrackRepository create a TrackRepo
func NewMongoTrackRepository(db *mongo.Database) TrackRepo {
	return &trackRepository{
		coll: db.Collection("tracks"),
	}
}

// EnsureIndexes identifier 是查詢主鍵，必須等值索引而非對檔案路徑做模糊比對
func (r *trackRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "identifier", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create identifier index error: %w", err)
	}
	return nil
}

func (r *trackRepository) Save(ctx context.Context, record *domain.ConversionRecord) error {
	_, err := r.coll.InsertOne(ctx, record)
	return err
}

func (r *trackRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.ConversionRecord, error) {
	filter := bson.M{"identifier": identifier}
	var record domain.ConversionRecord
	err := r.coll.FindOne(ctx, filter).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *trackRepository) ListRecent(ctx context.Context, limit int64) ([]domain.ConversionRecord, error) {
	opts := options.Find()
	opts.SetSort(bson.M{"created_at": -1})
	opts.SetLimit(limit)

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var records []domain.ConversionRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
