package cmd

import (
	"fmt"
	"os"
	"time"

	"burstcam/internal/burst"
	"burstcam/internal/config"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	captureCount    int
	captureDuration time.Duration
	captureDir      string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "バースト撮影を1回実行して終了する",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		cfg, err := loadConfig(func(cfg *config.Config) {
			if flags.Changed("count") {
				cfg.Burst.Count = captureCount
			}
			if flags.Changed("duration") {
				cfg.Burst.Duration = captureDuration
			}
			if flags.Changed("dir") {
				cfg.Burst.SaveDir = captureDir
			}
		})
		if err != nil {
			return err
		}

		handle, err := openCamera(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeCamera(handle)

		// 取得と保存の2フェーズ分を1本のバーで表示する
		bar := progressbar.NewOptions(cfg.Burst.Count*2,
			progressbar.OptionSetDescription("取得中"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)

		controller := burst.NewController(handle, cfg.Burst)
		controller.OnProgress = func(phase burst.Phase, done, total int) {
			if phase == burst.PhaseSave && done == 1 {
				bar.Describe("保存中")
			}
			bar.Add(1)
		}

		result, err := controller.Capture(cmd.Context())
		if err != nil {
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("撮影に失敗しました: %w", err)
		}
		bar.Finish()
		fmt.Fprintln(os.Stderr)

		fmt.Printf("Captured %d images in %.2f seconds\n", result.Count, result.ElapsedSeconds())
		fmt.Printf("保存先: %s (%s)\n", result.Directory, humanize.Bytes(result.TotalBytes()))
		return nil
	},
}

func init() {
	captureCmd.Flags().IntVarP(&captureCount, "count", "n", 100, "撮影枚数")
	captureCmd.Flags().DurationVarP(&captureDuration, "duration", "d", 10*time.Second, "取得フェーズの目標時間")
	captureCmd.Flags().StringVarP(&captureDir, "dir", "o", "captured_images", "保存先ディレクトリ")
	rootCmd.AddCommand(captureCmd)
}
