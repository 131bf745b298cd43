// Package server は、カメラのライブ配信とバースト撮影をHTTPで提供します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - 操作用HTMLページの配信
//   - MJPEGライブストリームの配信
//   - バースト撮影リクエストの受付と結果のJSON応答
//
// 仕様:
//   - ルーティングはginを使用
//   - グレースフルシャットダウンに対応
//   - 複数クライアントの同時接続をサポート（カメラの読み取りは直列化される）
package server
