// Package camera ローカルに接続されたカメラデバイスへのアクセスを担う
//
// # 責務
// - デバイスを1度だけ開き、プロセスの寿命の間保持する (Handle)
// - フレーム読み取りの直列化
// - ドライバーの登録と選択 (ffmpeg, opencv, mock)
// - V4L2デバイスの検出
//
// # 仕様
// - Handle.Read はミューテックスで直列化される
// - 解像度とFPSの設定はベストエフォートで、ドライバーが無視してもエラーにしない
// - デバイスを開けない場合は ErrDeviceUnavailable、読み取り失敗は ErrReadFailure を返す
// - opencvドライバーは cvcapture パッケージをインポートすると登録される
//
// # 前提要件
//   - ffmpeg: ffmpegドライバーでの画像キャプチャに使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - v4l-utils: カメラ名とフォーマットの取得に使用（任意）
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - OpenCV 4: opencvドライバーを使う場合のみ
//     go build -tags opencv でビルドしたバイナリに登録される
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
