package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"burstcam/internal/burst"
	"burstcam/internal/camera"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig `yaml:"server"`
	Camera CameraConfig `yaml:"camera"`
	Burst  burst.Config `yaml:"burst"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host  string `yaml:"host"`  // リッスンするホスト
	Port  int    `yaml:"port"`  // リッスンするポート番号
	Debug bool   `yaml:"debug"` // ginのデバッグモード

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	Driver string `yaml:"driver"` // ffmpeg, opencv, mock
	Device string `yaml:"device"` // デバイスパスまたはインデックス
	Width  int    `yaml:"width"`  // 要求する画像幅
	Height int    `yaml:"height"` // 要求する画像高さ
	FPS    int    `yaml:"fps"`    // 要求するフレームレート
}

// Settings はcamera.Openに渡す設定に変換する
func (c CameraConfig) Settings() camera.Settings {
	return camera.Settings{
		Driver: c.Driver,
		Device: c.Device,
		Width:  c.Width,
		Height: c.Height,
		FPS:    c.FPS,
	}
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         5000,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			Driver: camera.DriverFFmpeg,
			Device: "/dev/video0",
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Burst: burst.DefaultConfig(),
	}
}

// Override は読み込んだ設定を検証前に書き換える（コマンドラインフラグなど）
type Override func(*Config)

// Load はデフォルト値と環境変数から設定を読み込む
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile はYAMLファイル、環境変数、overridesの順に設定を重ねて読み込み、
// 最後に1度だけ検証する。pathが空の場合はファイルを読まない
func LoadFile(path string, overrides ...Override) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
		}
	}

	cfg.applyEnv()
	for _, override := range overrides {
		override(cfg)
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("SERVER_PORT", getEnvAsIntOrDefault("PORT", c.Server.Port))
	c.Server.Debug = getEnvAsBoolOrDefault("GIN_DEBUG", c.Server.Debug)

	c.Camera.Driver = getEnvOrDefault("CAMERA_DRIVER", c.Camera.Driver)
	c.Camera.Device = getEnvOrDefault("CAMERA_DEVICE", c.Camera.Device)

	c.Burst.SaveDir = getEnvOrDefault("SAVE_DIR", c.Burst.SaveDir)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	var errs []error

	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("無効なポート番号: %d", c.Server.Port))
	}

	// カメラ設定の検証
	if c.Camera.Driver == "" {
		errs = append(errs, errors.New("カメラドライバーが指定されていません"))
	}
	if c.Camera.Device == "" && c.Camera.Driver != camera.DriverMock {
		errs = append(errs, errors.New("カメラデバイスが指定されていません"))
	}

	// バースト設定の検証
	b := c.Burst
	if b.Count <= 0 {
		errs = append(errs, fmt.Errorf("無効な撮影枚数: %d", b.Count))
	}
	if b.Duration < 0 {
		errs = append(errs, fmt.Errorf("無効な撮影時間: %v", b.Duration))
	}
	if b.Workers <= 0 {
		errs = append(errs, fmt.Errorf("無効なワーカー数: %d", b.Workers))
	}
	if b.Quality < 1 || b.Quality > 100 {
		errs = append(errs, fmt.Errorf("無効なJPEG品質: %d", b.Quality))
	}
	if b.Width <= 0 || b.Height <= 0 {
		errs = append(errs, fmt.Errorf("無効な保存解像度: %dx%d", b.Width, b.Height))
	}
	if b.SaveDir == "" {
		errs = append(errs, errors.New("保存先ディレクトリが指定されていません"))
	}

	return errors.Join(errs...)
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault は環境変数を真偽値として取得する
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
