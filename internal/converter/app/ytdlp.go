package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"music_converter_service/internal/converter/domain"
)

// MediaProber 以 metadata-only 模式取得影片資訊，不下載音訊
type MediaProber interface {
	Probe(ctx context.Context, url string) (*domain.ProbeRes, error)
}

// AudioConverter 下載並轉出 mp3 到指定路徑
type AudioConverter interface {
	Convert(ctx context.Context, url, outputPath string) (*domain.ConvertRes, error)
}

// 讓測試可以替換 subprocess 與 stat 行為
var (
	execCommand = exec.CommandContext
	statFile    = os.Stat
)

const probeTimeout = 45 * time.Second

// YTDLPTool 包裝外部 yt-dlp 執行檔，同時實作 MediaProber 與 AudioConverter
type YTDLPTool struct {
	binPath string
}

// NewYTDLPTool create a YTDLPTool（binPath 空字串時使用 PATH 上的 yt-dlp）
func NewYTDLPTool(binPath string) *YTDLPTool {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &YTDLPTool{binPath: binPath}
}

// ytdlpInfo yt-dlp -J 輸出中會用到的欄位
type ytdlpInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Duration float64 `json:"duration"`
}

// Probe 執行 metadata 探測。title/uploader 缺漏以占位字串補上，
// 缺 identifier 視為 InvalidURL。
func (t *YTDLPTool) Probe(ctx context.Context, url string) (*domain.ProbeRes, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := execCommand(ctxTimeout, t.binPath, "-J", "--no-warnings", "--skip-download", url)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v | %s", domain.ErrProbeFailed, err, strings.TrimSpace(stderr.String()))
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("%w: parse error: %v", domain.ErrProbeFailed, err)
	}

	if info.ID == "" {
		return nil, domain.ErrInvalidURL
	}
	if info.Title == "" {
		info.Title = domain.UnknownTitle
	}
	if info.Uploader == "" {
		info.Uploader = domain.UnknownAuthor
	}

	return &domain.ProbeRes{
		Identifier:      info.ID,
		Title:           info.Title,
		Author:          info.Uploader,
		DurationSeconds: info.Duration,
	}, nil
}

// Convert 下載並轉出 mp3。轉檔不設 timeout，時長由外部網路與 CPU 決定。
func (t *YTDLPTool) Convert(ctx context.Context, url, outputPath string) (*domain.ConvertRes, error) {
	cmd := execCommand(ctx, t.binPath, "-x", "--audio-format", "mp3", "-o", outputPath, url)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: %v | %s", domain.ErrConversionFailed, err, strings.TrimSpace(string(output)))
	}

	fi, err := statFile(outputPath)
	if err != nil {
		// 工具回報成功但檔案不存在，同樣視為轉檔失敗
		return nil, fmt.Errorf("%w: output file missing: %v", domain.ErrConversionFailed, err)
	}

	return &domain.ConvertRes{
		FilePath:      outputPath,
		FileSizeBytes: fi.Size(),
	}, nil
}
