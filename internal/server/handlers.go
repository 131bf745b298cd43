package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"burstcam/internal/burst"
	"burstcam/internal/camera"
	"burstcam/internal/stream"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

// captureResponse は撮影エンドポイントの応答
type captureResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	SaveDirectory string `json:"save_directory,omitempty"`
}

// handleIndex は操作用ページを返す
func (s *Server) handleIndex(c *gin.Context) {
	cfg := s.burst.Config()
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Width":    s.config.Camera.Width,
		"Height":   s.config.Camera.Height,
		"Count":    cfg.Count,
		"Duration": cfg.Duration,
		"SaveDir":  cfg.SaveDir,
	})
}

// handleVideoFeed はMJPEGストリームを配信する
func (s *Server) handleVideoFeed(c *gin.Context) {
	// レスポンスヘッダーを設定
	c.Header("Content-Type", stream.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// レスポンスライターを取得
	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusOK)

	// クライアントが切断するとリクエストのコンテキストが終わり、列も終わる
	gen := stream.NewGenerator(s.camera)
	for chunk := range gen.Chunks(c.Request.Context()) {
		if _, err := writer.Write(chunk); err != nil {
			return
		}
		// バッファをフラッシュ
		flusher.Flush()
	}
}

// handleCapture はバースト撮影を実行して結果を返す
func (s *Server) handleCapture(c *gin.Context) {
	// クライアントが切断しても撮影は最後まで続ける
	ctx := context.WithoutCancel(c.Request.Context())

	result, err := s.burst.Capture(ctx)
	if err != nil {
		status, message := captureError(err)
		log.Printf("撮影リクエストが失敗しました: %v", err)
		c.JSON(status, captureResponse{Status: "error", Message: message})
		return
	}

	c.JSON(http.StatusOK, captureResponse{
		Status:        "success",
		Message:       fmt.Sprintf("Captured %d images in %.2f seconds", result.Count, result.ElapsedSeconds()),
		SaveDirectory: result.Directory,
	})
}

// captureError はエラーをHTTPステータスと応答メッセージに変換する
func captureError(err error) (int, string) {
	switch {
	case errors.Is(err, burst.ErrInProgress):
		return http.StatusConflict, "Capture already in progress"
	case errors.Is(err, camera.ErrReadFailure):
		return http.StatusInternalServerError, "Camera read failed"
	case errors.Is(err, burst.ErrWriteFailure), errors.Is(err, burst.ErrEncodeFailure):
		return http.StatusInternalServerError, "Image save failed"
	default:
		return http.StatusInternalServerError, "Capture failed"
	}
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleStatus はステータス確認エンドポイント
func (s *Server) handleStatus(c *gin.Context) {
	settings := s.camera.Settings()
	cfg := s.burst.Config()

	burstInfo := gin.H{
		"running":  s.burst.Running(),
		"count":    cfg.Count,
		"duration": cfg.Duration.String(),
		"workers":  cfg.Workers,
		"quality":  cfg.Quality,
		"save_dir": cfg.SaveDir,
	}
	if last, ok := s.burst.LastResult(); ok {
		burstInfo["last"] = gin.H{
			"id":              last.ID,
			"count":           last.Count,
			"elapsed_seconds": last.ElapsedSeconds(),
			"directory":       last.Directory,
			"started_at":      last.StartedAt.Format(time.RFC3339),
			"total_size":      humanize.Bytes(last.TotalBytes()),
			"ago":             humanize.Time(last.StartedAt),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "running",
		"server": gin.H{
			"host":   s.config.Server.Host,
			"port":   s.config.Server.Port,
			"uptime": humanize.Time(s.startedAt),
		},
		"camera": gin.H{
			"driver": settings.Driver,
			"device": settings.Device,
			"width":  settings.Width,
			"height": settings.Height,
			"fps":    settings.FPS,
			"reads":  s.camera.Reads(),
		},
		"burst":     burstInfo,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
