package camera

import (
	"context"
	"errors"
	"image"
	"time"
)

var (
	// ErrDeviceUnavailable はカメラデバイスを開けなかったことを表す
	ErrDeviceUnavailable = errors.New("camera device unavailable")

	// ErrReadFailure はフレームの読み取りに失敗したことを表す
	ErrReadFailure = errors.New("camera read failed")

	// ErrClosed はクローズ済みのハンドルへの操作を表す
	ErrClosed = errors.New("camera handle closed")
)

// Frame はカメラから取得した1枚の生フレーム
type Frame struct {
	Image      image.Image // 画素データ
	CapturedAt time.Time   // 取得時刻
}

// Width はフレームの幅を返す
func (f Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height はフレームの高さを返す
func (f Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// Settings はカメラを開くときの設定
type Settings struct {
	Driver string // ドライバー名 (ffmpeg, opencv)
	Device string // デバイスパスまたはインデックス（例: /dev/video0, 0）
	Width  int    // 要求する画像幅
	Height int    // 要求する画像高さ
	FPS    int    // 要求するフレームレート
}

// Source はフレームを1枚ずつ取り出せるデバイスドライバー
//
// 解像度とFPSはベストエフォートで適用され、ドライバーが無視しても
// エラーにはならない。
type Source interface {
	// Read は次のフレームが得られるまでブロックする
	Read(ctx context.Context) (image.Image, error)

	// Close はデバイスを解放する。実行中のReadと並行して呼ばれることがあり、
	// その場合はReadを中断させる
	Close() error
}

// Discovery はカメラデバイスの検出機能を提供する
type Discovery interface {
	// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
	ScanDevices(ctx context.Context) ([]string, error)

	// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, device string) bool

	// GetDeviceInfo はデバイスの詳細情報を取得する
	GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error)
}

// DeviceInfo はカメラデバイスの詳細情報を表す
type DeviceInfo struct {
	Device      string       // デバイスパス
	Name        string       // デバイス名
	Driver      string       // ドライバー名
	Resolutions []Resolution // サポートされる解像度
	Formats     []string     // サポートされるフォーマット
}

// Resolution はカメラの解像度を表す
type Resolution struct {
	Width  int // 幅
	Height int // 高さ
}
