// Package cvcapture はOpenCV (gocv) のVideoCaptureを使うカメラドライバー
//
// このパッケージをブランクインポートすると "opencv" ドライバーが登録される。
package cvcapture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"sync"

	"burstcam/internal/camera"

	"gocv.io/x/gocv"
)

// DriverName は登録されるドライバー名
const DriverName = "opencv"

var errEmptyFrame = errors.New("取得したフレームが空です")

func init() {
	camera.RegisterDriver(DriverName, Open)
}

// Source はgocv.VideoCaptureをラップしたcamera.Source
type Source struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	mu      sync.Mutex
}

// Open はデバイスを開き、解像度とFPSを設定する
//
// Deviceが数値ならデバイスインデックス、それ以外はパスとして扱う。
func Open(_ context.Context, settings camera.Settings) (camera.Source, error) {
	var device interface{} = settings.Device
	if index, err := strconv.Atoi(settings.Device); err == nil {
		device = index
	}

	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("VideoCaptureのオープンに失敗: %w", err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, fmt.Errorf("デバイスを開けません: %s", settings.Device)
	}

	// ドライバーが対応しない値は黙って無視される
	if settings.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(settings.Width))
	}
	if settings.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(settings.Height))
	}
	if settings.FPS > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(settings.FPS))
	}

	return &Source{
		capture: capture,
		mat:     gocv.NewMat(),
	}, nil
}

// Read は1フレームを読み取り、Goのimage.Imageにコピーして返す
func (s *Source) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok := s.capture.Read(&s.mat); !ok {
		return nil, errors.New("VideoCaptureからの読み取りに失敗")
	}
	if s.mat.Empty() {
		return nil, errEmptyFrame
	}

	// ToImageは新しいバッファを確保するため、Matの再利用と干渉しない
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("Matの変換に失敗: %w", err)
	}
	return img, nil
}

// Close はMatとデバイスを解放する
//
// OpenCVは読み取り中の解放に対応しないため、実行中のReadが戻るのを待つ。
// V4L2バックエンドの読み取りはタイムアウトで戻る。
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mat.Close(); err != nil {
		return err
	}
	return s.capture.Close()
}
