package app

import (
	"math"
	"sync"
)

const (
	// historySize 只保留最近 N 筆完成時長
	historySize = 10
	// defaultEstimateSeconds 沒有歷史資料時的預設估計
	defaultEstimateSeconds = 15
)

// DurationEstimator 以固定長度的滾動視窗估計單筆轉檔時長。
// 這只是給使用者量級參考的粗略估計，不是統計模型。
type DurationEstimator struct {
	mu      sync.Mutex
	history []float64
}

// NewDurationEstimator create a DurationEstimator
func NewDurationEstimator() *DurationEstimator {
	return &DurationEstimator{
		history: make([]float64, 0, historySize),
	}
}

// Record 記錄一筆完成的轉檔秒數，超過視窗大小時淘汰最舊的一筆
func (e *DurationEstimator) Record(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, seconds)
	if len(e.history) > historySize {
		e.history = e.history[1:]
	}
}

// Average 目前視窗的平均秒數（四捨五入）。沒有資料時回傳預設值。
func (e *DurationEstimator) Average() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.history) == 0 {
		return defaultEstimateSeconds
	}

	var sum float64
	for _, s := range e.history {
		sum += s
	}
	return int(math.Round(sum / float64(len(e.history))))
}
