package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"burstcam/internal/camera"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "利用可能なカメラデバイスとドライバーを表示する",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		discovery := camera.NewLinuxDiscovery()

		devices, err := discovery.ScanDevices(ctx)
		if err != nil {
			return fmt.Errorf("デバイスの検出に失敗しました: %w", err)
		}

		fmt.Printf("ドライバー: %s\n\n", strings.Join(camera.Drivers(), ", "))

		if len(devices) == 0 {
			fmt.Println("カメラデバイスが見つかりませんでした")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "DEVICE\tNAME\tFORMATS")
		fmt.Fprintln(w, "------\t----\t-------")
		for _, dev := range devices {
			info, err := discovery.GetDeviceInfo(ctx, dev)
			if err != nil {
				fmt.Fprintf(w, "%s\t(%v)\t\n", dev, err)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", info.Device, info.Name, strings.Join(info.Formats, ","))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
