// Package cmd はburstcamのコマンドラインインターフェース
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"burstcam/internal/camera"
	"burstcam/internal/config"

	"github.com/spf13/cobra"
)

// Version はアプリケーションのバージョン
const Version = "0.1.0"

var (
	// configPath はYAML設定ファイルのパス
	configPath string
	// driver と device はカメラ設定を上書きする
	driver string
	device string
)

var rootCmd = &cobra.Command{
	Use:          "burstcam",
	Short:        "カメラのライブ配信とバースト撮影",
	Version:      Version,
	SilenceUsage: true,
}

// Execute はルートコマンドを実行する
func Execute() {
	// Ctrl+C (SIGINT) か SIGTERM でキャンセルされるコンテキスト
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML設定ファイルのパス")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", fmt.Sprintf("カメラドライバー %v", camera.Drivers()))
	rootCmd.PersistentFlags().StringVar(&device, "device", "", "カメラデバイス (例: /dev/video0, 0)")
}

// loadConfig は設定ファイル、環境変数、共通フラグ、サブコマンドのフラグの順に
// 設定を重ねて読み込む
func loadConfig(overrides ...config.Override) (*config.Config, error) {
	cameraFlags := func(cfg *config.Config) {
		if driver != "" {
			cfg.Camera.Driver = driver
		}
		if device != "" {
			cfg.Camera.Device = device
		}
	}
	return config.LoadFile(configPath, append([]config.Override{cameraFlags}, overrides...)...)
}

// openCamera は設定に従ってカメラを開く
func openCamera(ctx context.Context, cfg *config.Config) (*camera.Handle, error) {
	handle, err := camera.Open(ctx, cfg.Camera.Settings())
	if err != nil {
		return nil, fmt.Errorf("カメラを開けませんでした: %w", err)
	}
	return handle, nil
}

// closeCamera はカメラを閉じ、失敗をログに残す
func closeCamera(handle *camera.Handle) {
	if err := handle.Close(); err != nil {
		log.Printf("カメラのクローズに失敗しました: %v", err)
	}
}
