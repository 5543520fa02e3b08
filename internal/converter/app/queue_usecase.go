package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"music_converter_service/internal/converter/domain"
	"music_converter_service/internal/converter/repository"
	"music_converter_service/pkg/database"
	errprocess "music_converter_service/pkg/err"
	"music_converter_service/pkg/logger"

	"github.com/google/uuid"
)

// DownloadQueueUseCase 這裡封裝了對外提供的轉檔佇列服務
type DownloadQueueUseCase interface {
	// Submit 接受一個來源 URL：已有檔案直接回報、重複提交回報既有位置、
	// 否則探測 metadata 後入列。永遠立即返回，不等待轉檔。
	Submit(ctx context.Context, url string) (*domain.SubmitRes, error)
	// Status 查詢 identifier 目前的狀態，查無資料時回傳 (nil, nil)
	Status(ctx context.Context, identifier string) (*domain.StatusRes, error)
	// Tracks 取最近完成的轉檔紀錄
	Tracks(ctx context.Context, limit int64) ([]domain.ConversionRecord, error)
}

type downloadQueueUseCase struct {
	prober    MediaProber
	converter AudioConverter
	trackRepo repository.TrackRepo
	storage   database.MinIOClientRepo // 可為 nil：不做物件儲存鏡像
	estimator *DurationEstimator

	downloadDir string

	// 佇列狀態只屬於這個 usecase，外部只能透過 Submit/Status 存取
	mu         sync.Mutex
	queue      []*domain.Job
	inflight   map[string]domain.JobStatus // 入列到完成（成功或失敗）之間的 identifier
	failures   map[string]string           // identifier -> 最近一次失敗的診斷訊息
	processing bool
}

// NewDownloadQueueUseCase 建立一個新的 DownloadQueueUseCase
func NewDownloadQueueUseCase(
	prober MediaProber,
	converter AudioConverter,
	trackRepo repository.TrackRepo,
	storage database.MinIOClientRepo,
	estimator *DurationEstimator,
	downloadDir string,
) DownloadQueueUseCase {
	return &downloadQueueUseCase{
		prober:      prober,
		converter:   converter,
		trackRepo:   trackRepo,
		storage:     storage,
		estimator:   estimator,
		downloadDir: downloadDir,
		inflight:    make(map[string]domain.JobStatus),
		failures:    make(map[string]string),
	}
}

// fileName 固定的輸出檔名規則：<identifier>.mp3
func fileName(identifier string) string {
	return identifier + ".mp3"
}

func (u *downloadQueueUseCase) outputPath(identifier string) string {
	return filepath.Join(u.downloadDir, fileName(identifier))
}

func (u *downloadQueueUseCase) Submit(ctx context.Context, url string) (*domain.SubmitRes, error) {
	identifier, err := domain.VideoIDFromURL(url)
	if err != nil {
		return nil, err
	}

	// 快取命中：檔案已存在就不碰佇列
	if _, err := os.Stat(u.outputPath(identifier)); err == nil {
		return &domain.SubmitRes{
			AlreadyExists: true,
			FileURL:       "/files/" + fileName(identifier),
		}, nil
	}

	// 重複提交：回報既有 job 的位置，絕不重複入列
	u.mu.Lock()
	if res, ok := u.existingLocked(identifier); ok {
		u.mu.Unlock()
		return res, nil
	}
	u.mu.Unlock()

	// metadata 探測在鎖外執行，探測失敗的 job 不入列
	meta, err := u.prober.Probe(ctx, url)
	if err != nil {
		logger.Log.Errorf(fmt.Sprintf("identifier[%s] metadata 探測失敗", identifier), err)
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	// 探測期間可能有相同 identifier 的提交搶先入列，檢查與插入必須同一臨界區
	if res, ok := u.existingLocked(identifier); ok {
		return res, nil
	}

	delete(u.failures, identifier)

	position := len(u.queue)
	estimated := position * u.estimator.Average()

	u.queue = append(u.queue, &domain.Job{
		Identifier:      identifier,
		URL:             url,
		Title:           meta.Title,
		Author:          meta.Author,
		DurationSeconds: meta.DurationSeconds,
		EnqueuedAt:      time.Now(),
	})
	u.inflight[identifier] = domain.JobPending

	logger.Log.Info(fmt.Sprintf("identifier[%s] 已入列，position=%d estimated=%ds", identifier, position, estimated))

	u.startProcessingLocked()

	return &domain.SubmitRes{
		Position:         position,
		EstimatedSeconds: estimated,
	}, nil
}

// existingLocked 回報 identifier 既有 job 的位置。caller 必須持有 mu。
func (u *downloadQueueUseCase) existingLocked(identifier string) (*domain.SubmitRes, bool) {
	if _, ok := u.inflight[identifier]; !ok {
		return nil, false
	}

	// 正在轉檔的 job 不在佇列裡，位置視為 0
	position := 0
	for i, job := range u.queue {
		if job.Identifier == identifier {
			position = i
			break
		}
	}
	return &domain.SubmitRes{
		Position:         position,
		EstimatedSeconds: position * u.estimator.Average(),
	}, true
}

// startProcessingLocked 佇列有工作且 worker 閒置時啟動 drain。caller 必須持有 mu。
// processing flag 保證同一時間只有一個 drain goroutine，也就是單飛轉檔。
func (u *downloadQueueUseCase) startProcessingLocked() {
	if u.processing || len(u.queue) == 0 {
		return
	}
	u.processing = true
	go u.processQueue()
}

// processQueue 依 FIFO 順序逐一處理，直到佇列清空。
// 任何單筆失敗都不會中斷 drain，失敗只屬於那筆 job。
func (u *downloadQueueUseCase) processQueue() {
	for {
		u.mu.Lock()
		if len(u.queue) == 0 {
			u.processing = false
			u.mu.Unlock()
			return
		}
		job := u.queue[0]
		u.queue = u.queue[1:]
		u.inflight[job.Identifier] = domain.JobConverting
		u.mu.Unlock()

		err := u.runJob(job)

		u.mu.Lock()
		delete(u.inflight, job.Identifier)
		if err != nil {
			u.failures[job.Identifier] = err.Error()
		}
		u.mu.Unlock()
	}
}

// runJob 執行一筆轉檔：外部工具 -> 估計器 -> 持久化 -> 物件儲存鏡像。
// 持久化與鏡像失敗只記 log：檔案已在磁碟上，可以照常提供。
func (u *downloadQueueUseCase) runJob(job *domain.Job) error {
	logger.Log.Info(fmt.Sprintf("identifier[%s] 開始轉檔: %s", job.Identifier, job.URL))

	start := time.Now()
	outputPath := u.outputPath(job.Identifier)

	// 轉檔期間不持有任何鎖，新的提交照常入列
	res, err := u.converter.Convert(context.Background(), job.URL, outputPath)
	if err != nil {
		logger.Log.Errorf(fmt.Sprintf("identifier[%s] 轉檔失敗", job.Identifier), err)
		return err
	}

	elapsed := time.Since(start).Seconds()
	u.estimator.Record(elapsed)

	bitrate := 0
	if job.DurationSeconds > 0 {
		bitrate = int(float64(res.FileSizeBytes) * 8 / job.DurationSeconds / 1000)
	}

	record := &domain.ConversionRecord{
		ID:              uuid.NewString(),
		Identifier:      job.Identifier,
		Title:           job.Title,
		Author:          job.Author,
		DurationSeconds: job.DurationSeconds,
		BitrateKbps:     bitrate,
		Ext:             "mp3",
		FilePath:        "/files/" + fileName(job.Identifier),
		CreatedAt:       time.Now(),
	}

	ctx := context.Background()
	if err := u.trackRepo.Save(ctx, record); err != nil {
		// 紀錄寫入失敗不影響佇列，檔案仍可由 /files 取得
		logger.Log.Errorf(fmt.Sprintf("identifier[%s] 轉檔紀錄寫入失敗", job.Identifier), err)
	}

	if u.storage != nil {
		objectName := "tracks/" + fileName(job.Identifier)
		if err := u.storage.UploadFile(ctx, objectName, outputPath, "audio/mpeg"); err != nil {
			logger.Log.Errorf(fmt.Sprintf("identifier[%s] 物件儲存鏡像失敗", job.Identifier), err)
		}
	}

	logger.Log.Info(fmt.Sprintf("identifier[%s] 轉檔完成，耗時 %.1fs，bitrate=%dkbps", job.Identifier, elapsed, bitrate))
	return nil
}

func (u *downloadQueueUseCase) Status(ctx context.Context, identifier string) (*domain.StatusRes, error) {
	u.mu.Lock()
	if status, ok := u.inflight[identifier]; ok {
		u.mu.Unlock()
		return &domain.StatusRes{Identifier: identifier, Status: status}, nil
	}
	if _, ok := u.failures[identifier]; ok {
		u.mu.Unlock()
		return &domain.StatusRes{Identifier: identifier, Status: domain.JobFailed}, nil
	}
	u.mu.Unlock()

	// 不在佇列內：看檔案或紀錄是否存在
	if _, err := os.Stat(u.outputPath(identifier)); err == nil {
		return &domain.StatusRes{Identifier: identifier, Status: domain.JobDone}, nil
	}
	record, err := u.trackRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("identifier[%s] 查詢轉檔紀錄失敗 : %v", identifier, err))
	}
	if record != nil {
		return &domain.StatusRes{Identifier: identifier, Status: domain.JobDone}, nil
	}
	return nil, nil
}

func (u *downloadQueueUseCase) Tracks(ctx context.Context, limit int64) ([]domain.ConversionRecord, error) {
	records, err := u.trackRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("limit[%d] 查詢最近轉檔紀錄失敗 : %v", limit, err))
	}
	return records, nil
}
