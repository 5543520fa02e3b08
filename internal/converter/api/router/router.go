package router

import (
	"music_converter_service/internal/converter/api/handlers"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes 註冊轉檔服務相關的路由
func RegisterRoutes(app *fiber.App, h *handlers.DownloadHandler, submitLimiter fiber.Handler) {
	app.Get("/download", submitLimiter, h.Download)
	app.Get("/files/:filename", h.GetFile)
	app.Get("/status/:identifier", h.GetStatus)
	app.Get("/tracks", h.GetTracks)
}
