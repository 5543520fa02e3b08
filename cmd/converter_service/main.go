package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"music_converter_service/internal/converter/api/handlers"
	"music_converter_service/internal/converter/api/router"
	"music_converter_service/internal/converter/app"
	"music_converter_service/internal/converter/domain"
	"music_converter_service/internal/converter/repository"
	"music_converter_service/pkg/config"
	"music_converter_service/pkg/database"
	"music_converter_service/pkg/logger"
	"music_converter_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.Converter, config.EnvConfig.ConverterLogPath)

	cfg := config.LoadConfig[config.Converter](config.EnvConfig.Converter, config.EnvConfig.ConverterYAMLPath)

	// 1. 確保下載目錄存在
	if err := os.MkdirAll(cfg.DownloadDir, 0755); err != nil {
		logger.Log.Fatal("建立下載目錄失敗", zap.String("dir", cfg.DownloadDir), zap.Error(err))
	}

	// 2. 連線 MongoDB（Track Store）
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d",
		cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoDB, err := database.NewMongoDB(ctx, database.Connection{
		ConnectStr: uri,

		RetryCount:    cfg.Mongo.RetryCount,
		RetryInterval: time.Duration(cfg.Mongo.RetryInterval) * time.Second,
	}, cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.Mongo.Host, cfg.Mongo.Port)),
			zap.Error(err),
		)
	}
	defer mongoDB.Close(ctx)

	trackRepo := repository.NewMongoTrackRepository(mongoDB.Database)
	if err := trackRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("identifier 索引建立失敗: %v", err)
	}

	// 3. redis 可選：有設定才包快取層
	if cfg.Redis.Addr != "" {
		redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.RedisDB)
		if err != nil {
			logger.Log.Warn(fmt.Sprintf("redis[%s] 連線失敗，停用紀錄快取: %v", cfg.Redis.Addr, err))
		} else {
			cache := database.NewRedisRepository[domain.ConversionRecord](redisClient)
			trackRepo = repository.NewCachedTrackRepo(trackRepo, cache, 24*time.Hour)
		}
	}

	// 4. MinIO 可選：有設定才鏡像轉檔結果
	var storage database.MinIOClientRepo
	if cfg.MinIO.Host != "" {
		minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
			Endpoint:   fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
			User:       cfg.MinIO.User,
			Password:   cfg.MinIO.Password,
			BucketName: cfg.MinIO.BucketName,
			UseSSL:     cfg.MinIO.UseSSL,

			RetryCount:    cfg.MinIO.RetryCount,
			RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal(
				"Unable to connect to minio after retries",
				zap.String("address", fmt.Sprintf("[%s:%d]", cfg.MinIO.Host, cfg.MinIO.Port)),
				zap.Error(err),
			)
		}
		storage = minioClient
	}

	// 5. 組裝轉檔佇列
	tool := app.NewYTDLPTool(cfg.YTDLPPath)
	usecase := app.NewDownloadQueueUseCase(
		tool,
		tool,
		trackRepo,
		storage,
		app.NewDurationEstimator(),
		cfg.DownloadDir,
	)

	// 6. 建立 Fiber 應用
	r := fiber.New()

	// 添加日誌中間件
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ConverterLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	// 7. 設定 API 路由
	downloadHandler := &handlers.DownloadHandler{
		Usecase:     usecase,
		Storage:     storage,
		DownloadDir: cfg.DownloadDir,
	}
	rps := cfg.RateLimit.RPS
	burst := cfg.RateLimit.Burst
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 5
	}
	router.RegisterRoutes(r, downloadHandler, middlewares.RateLimit(rps, burst))

	// 8. 啟動 API 服務
	logger.Log.Info(fmt.Sprintf("ConverterService listening on : %s", cfg.Port))
	if err := r.Listen(cfg.IP + ":" + cfg.Port); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}
