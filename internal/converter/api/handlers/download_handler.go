package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"music_converter_service/internal/converter/app"
	"music_converter_service/internal/converter/domain"
	"music_converter_service/pkg/database"
	"music_converter_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
)

// DownloadHandler 定義轉檔服務的 HTTP 處理器
type DownloadHandler struct {
	Usecase     app.DownloadQueueUseCase
	Storage     database.MinIOClientRepo // 可為 nil：/files 只讀本地磁碟
	DownloadDir string
}

// Download 接收轉檔提交。立即返回，不等待轉檔完成。
func (h *DownloadHandler) Download(c *fiber.Ctx) error {
	url := c.Query("url")
	if url == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No URL provided",
		})
	}

	res, err := h.Usecase.Submit(c.Context(), url)
	if err != nil {
		// 提交階段的失敗同步回報給呼叫端
		if errors.Is(err, domain.ErrInvalidURL) || errors.Is(err, domain.ErrProbeFailed) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	if res.AlreadyExists {
		return c.JSON(fiber.Map{
			"success": true,
			"message": fmt.Sprintf("File already exists! Access at: %s", res.FileURL),
			"url":     res.FileURL,
		})
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"message":           "Download queued! Once ready, access: /files/<id>.mp3",
		"position":          res.Position,
		"estimated_seconds": res.EstimatedSeconds,
	})
}

// GetFile 提供轉檔完成的 mp3。本地檔案優先，其次物件儲存鏡像。
func (h *DownloadHandler) GetFile(c *fiber.Ctx) error {
	// Base 避免路徑跳脫出下載目錄
	filename := filepath.Base(c.Params("filename"))
	path := filepath.Join(h.DownloadDir, filename)

	c.Set("Content-Type", "audio/mpeg")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		if _, err := io.Copy(c.Response().BodyWriter(), file); err != nil {
			return c.Status(http.StatusInternalServerError).SendString("Error sending file: " + err.Error())
		}
		return nil
	}

	if h.Storage == nil {
		return c.Status(http.StatusNotFound).SendString("File not found")
	}

	// 本地沒有，試物件儲存鏡像
	obj, err := h.Storage.GetObject(c.Context(), "tracks/"+filename, minio.GetObjectOptions{})
	if err != nil {
		return c.Status(http.StatusNotFound).SendString("File not found")
	}
	if _, err := io.Copy(c.Response().BodyWriter(), obj); err != nil {
		logger.Log.Errorf(fmt.Sprintf("filename[%s] 讀取物件儲存鏡像失敗", filename), err)
		return c.Status(http.StatusNotFound).SendString("File not found")
	}
	return nil
}

// GetStatus 查詢一筆轉檔工作目前的狀態
func (h *DownloadHandler) GetStatus(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	res, err := h.Usecase.Status(c.Context(), identifier)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "查詢狀態失敗"})
	}
	if res == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "unknown identifier"})
	}
	return c.JSON(res)
}

// GetTracks 取最近完成的轉檔紀錄
func (h *DownloadHandler) GetTracks(c *fiber.Ctx) error {
	limit, err := strconv.ParseInt(c.Query("limit"), 10, 64)
	if err != nil || limit <= 0 {
		limit = 50
	}

	records, err := h.Usecase.Tracks(c.Context(), limit)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "查詢轉檔紀錄失敗"})
	}
	return c.JSON(records)
}
