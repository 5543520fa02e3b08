package domain

import (
	"errors"
	"time"
)

// JobStatus definition conversion job status
type JobStatus string

const (
	// JobPending job 已入列等待轉檔
	JobPending JobStatus = "pending"
	// JobConverting job 正在轉檔
	JobConverting JobStatus = "converting"
	// JobDone job 轉檔完成，檔案可取得
	JobDone JobStatus = "done"
	// JobFailed job 轉檔失敗
	JobFailed JobStatus = "failed"
)

// 提交與轉檔的錯誤分類。handler 依此決定回應碼。
var (
	// ErrInvalidURL 無法從 URL 取出 video identifier
	ErrInvalidURL = errors.New("invalid url: no video identifier")
	// ErrProbeFailed metadata 探測失敗
	ErrProbeFailed = errors.New("metadata probe failed")
	// ErrConversionFailed 外部工具轉檔失敗
	ErrConversionFailed = errors.New("conversion failed")
)

// 缺少的 metadata 以固定占位字串補上，探測不會因此失敗
const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
)

// Job 佇列中的一筆轉檔工作
type Job struct {
	Identifier string
	URL        string

	// metadata 來自入列前的探測
	Title           string
	Author          string
	DurationSeconds float64

	EnqueuedAt time.Time
}

// ProbeRes 探測工具回傳的 metadata
type ProbeRes struct {
	Identifier      string
	Title           string
	Author          string
	DurationSeconds float64
}

// ConvertRes 轉檔工具回傳的結果
type ConvertRes struct {
	FilePath      string
	FileSizeBytes int64
}

// SubmitRes usecase submit response
type SubmitRes struct {
	AlreadyExists bool
	FileURL       string

	// 入列（或重複提交時既有 job）的佇列資訊
	Position         int
	EstimatedSeconds int
}

// StatusRes usecase status response
type StatusRes struct {
	Identifier string    `json:"identifier"`
	Status     JobStatus `json:"status"`
}
