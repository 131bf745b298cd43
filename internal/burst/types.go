package burst

import (
	"errors"
	"time"

	"burstcam/internal/camera"
)

var (
	// ErrEncodeFailure は保存用のJPEGエンコードに失敗したことを表す
	ErrEncodeFailure = errors.New("image encode failed")

	// ErrWriteFailure は画像ファイルの書き込みに失敗したことを表す
	ErrWriteFailure = errors.New("image write failed")

	// ErrInProgress は別のバースト撮影が実行中であることを表す
	ErrInProgress = errors.New("capture already in progress")
)

// CapturedFrame はバースト内の連番付きフレーム
type CapturedFrame struct {
	camera.Frame
	Index int // 0始まりの取得順
}

// SavedImage はディスクに書き出された画像
type SavedImage struct {
	Index   int    `json:"index"`
	Path    string `json:"path"`
	Size    int    `json:"size"`
	Quality int    `json:"quality"`
}

// Result は1回のバースト撮影の結果
type Result struct {
	ID        string        `json:"id"`
	Count     int           `json:"count"`
	Elapsed   time.Duration `json:"elapsed"`
	Directory string        `json:"directory"`
	StartedAt time.Time     `json:"started_at"`
	Images    []SavedImage  `json:"-"`
}

// ElapsedSeconds は経過時間を秒で返す
func (r Result) ElapsedSeconds() float64 {
	return r.Elapsed.Seconds()
}

// TotalBytes は保存した画像の合計サイズを返す
func (r Result) TotalBytes() uint64 {
	var total uint64
	for _, img := range r.Images {
		total += uint64(img.Size)
	}
	return total
}

// Config はバースト撮影の設定
type Config struct {
	Count    int           `yaml:"count"`    // 撮影枚数
	Duration time.Duration `yaml:"duration"` // 取得フェーズの目標時間
	Workers  int           `yaml:"workers"`  // 後処理の並列数
	Quality  int           `yaml:"quality"`  // JPEG品質 (1-100)
	Width    int           `yaml:"width"`    // 保存画像の幅
	Height   int           `yaml:"height"`   // 保存画像の高さ
	SaveDir  string        `yaml:"save_dir"` // 保存先ディレクトリ
}

// DefaultConfig はデフォルトのバースト設定を返す
func DefaultConfig() Config {
	return Config{
		Count:    100,
		Duration: 10 * time.Second,
		Workers:  4,
		Quality:  80,
		Width:    640,
		Height:   480,
		SaveDir:  "captured_images",
	}
}

// Interval は1フレームあたりの目標間隔を返す
func (c Config) Interval() time.Duration {
	if c.Count <= 0 {
		return 0
	}
	return c.Duration / time.Duration(c.Count)
}
