//go:build opencv

package cmd

// "opencv" ドライバーを登録する。OpenCV 4 とcgoが必要
import _ "burstcam/internal/camera/cvcapture"
