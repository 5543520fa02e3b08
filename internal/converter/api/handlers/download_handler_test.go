package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"music_converter_service/internal/converter/api/handlers"
	"music_converter_service/internal/converter/api/router"
	"music_converter_service/internal/converter/domain"
	"music_converter_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUsecase 模擬轉檔佇列 usecase
type MockUsecase struct {
	mock.Mock
}

func (m *MockUsecase) Submit(ctx context.Context, url string) (*domain.SubmitRes, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SubmitRes), args.Error(1)
}

func (m *MockUsecase) Status(ctx context.Context, identifier string) (*domain.StatusRes, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatusRes), args.Error(1)
}

func (m *MockUsecase) Tracks(ctx context.Context, limit int64) ([]domain.ConversionRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConversionRecord), args.Error(1)
}

func noLimit(c *fiber.Ctx) error { return c.Next() }

func newTestApp(usecase *MockUsecase, downloadDir string) *fiber.App {
	app := fiber.New()
	router.RegisterRoutes(app, &handlers.DownloadHandler{
		Usecase:     usecase,
		DownloadDir: downloadDir,
	}, noLimit)
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestDownload(t *testing.T) {
	logger.SetNewNop()

	// **情境 1: 缺 url 參數回 400**
	t.Run("缺url參數", func(t *testing.T) {
		usecase := new(MockUsecase)
		app := newTestApp(usecase, t.TempDir())

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/download", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, false, body["success"])
		usecase.AssertNotCalled(t, "Submit")
	})

	// **情境 2: 無效 URL 回 400**
	t.Run("無效URL", func(t *testing.T) {
		usecase := new(MockUsecase)
		app := newTestApp(usecase, t.TempDir())

		usecase.On("Submit", mock.Anything, "https://example.com/nope").Return(nil, domain.ErrInvalidURL)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/download?url=https%3A%2F%2Fexample.com%2Fnope", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, false, body["success"])
	})

	// **情境 3: 入列成功回報位置與估計等待**
	t.Run("入列成功", func(t *testing.T) {
		usecase := new(MockUsecase)
		app := newTestApp(usecase, t.TempDir())

		usecase.On("Submit", mock.Anything, mock.Anything).
			Return(&domain.SubmitRes{Position: 2, EstimatedSeconds: 30}, nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/download?url=https%3A%2F%2Fyoutu.be%2Fabc12345678", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(2), body["position"])
		assert.Equal(t, float64(30), body["estimated_seconds"])
	})

	// **情境 4: 檔案已存在時回報下載連結**
	t.Run("檔案已存在", func(t *testing.T) {
		usecase := new(MockUsecase)
		app := newTestApp(usecase, t.TempDir())

		usecase.On("Submit", mock.Anything, mock.Anything).
			Return(&domain.SubmitRes{AlreadyExists: true, FileURL: "/files/abc12345678.mp3"}, nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/download?url=https%3A%2F%2Fyoutu.be%2Fabc12345678", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "/files/abc12345678.mp3", body["url"])
	})
}

func TestGetFile(t *testing.T) {
	logger.SetNewNop()

	// **情境 1: 本地檔案存在時附檔下載**
	t.Run("本地檔案存在", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "abc12345678.mp3"), []byte("mp3data"), 0644))

		app := newTestApp(new(MockUsecase), dir)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/files/abc12345678.mp3", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "mp3data", string(raw))
	})

	// **情境 2: 檔案不存在且沒有物件儲存鏡像時回 404**
	t.Run("檔案不存在", func(t *testing.T) {
		app := newTestApp(new(MockUsecase), t.TempDir())

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/files/missing.mp3", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGetStatus(t *testing.T) {
	logger.SetNewNop()

	// **情境 1: 查得到狀態**
	t.Run("查得到狀態", func(t *testing.T) {
		usecase := new(MockUsecase)
		app := newTestApp(usecase, t.TempDir())

		usecase.On("Status", mock.Anything, "abc12345678").
			Return(&domain.StatusRes{Identifier: "abc12345678", Status: domain.JobConverting}, nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/status/abc12345678", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "abc12345678", body["identifier"])
		assert.Equal(t, "converting", body["status"])
	})

	// **情境 2: 查無此 identifier 回 404**
	t.Run("查無identifier", func(t *testing.T) {
		usecase := new(MockUsecase)
		app := newTestApp(usecase, t.TempDir())

		usecase.On("Status", mock.Anything, "abc12345678").Return(nil, nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/status/abc12345678", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGetTracks(t *testing.T) {
	logger.SetNewNop()

	// **情境 1: limit 缺省為 50**
	t.Run("limit缺省", func(t *testing.T) {
		usecase := new(MockUsecase)
		app := newTestApp(usecase, t.TempDir())

		usecase.On("Tracks", mock.Anything, int64(50)).
			Return([]domain.ConversionRecord{{Identifier: "abc12345678"}}, nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tracks", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		var records []domain.ConversionRecord
		require.NoError(t, json.Unmarshal(raw, &records))
		require.Len(t, records, 1)
		assert.Equal(t, "abc12345678", records[0].Identifier)
	})

	// **情境 2: 帶 limit 參數**
	t.Run("帶limit參數", func(t *testing.T) {
		usecase := new(MockUsecase)
		app := newTestApp(usecase, t.TempDir())

		usecase.On("Tracks", mock.Anything, int64(5)).Return([]domain.ConversionRecord{}, nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/tracks?limit=5", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		usecase.AssertExpectations(t)
	})
}
