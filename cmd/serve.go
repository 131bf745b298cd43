package cmd

import (
	"log"

	"burstcam/internal/burst"
	"burstcam/internal/config"
	"burstcam/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "ライブ配信と撮影用のHTTPサーバーを起動する",
	RunE: func(cmd *cobra.Command, args []string) error {
		// コマンドラインオプションで設定を上書き
		cfg, err := loadConfig(func(cfg *config.Config) {
			if serveHost != "" {
				cfg.Server.Host = serveHost
			}
			if servePort != 0 {
				cfg.Server.Port = servePort
			}
		})
		if err != nil {
			return err
		}

		if !cfg.Server.Debug {
			gin.SetMode(gin.ReleaseMode)
		}

		handle, err := openCamera(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeCamera(handle)

		controller := burst.NewController(handle, cfg.Burst)
		srv := server.New(cfg, handle, controller)

		log.Printf("burstcam サーバーを起動します: http://%s", cfg.ServerAddress())
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "サーバーのホスト (デフォルト: 127.0.0.1)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "サーバーのポート (デフォルト: 5000)")
	rootCmd.AddCommand(serveCmd)

	// サブコマンドなしで起動した場合もサーバーを起動する
	rootCmd.RunE = serveCmd.RunE
}
