// Package stream はカメラのフレームをMJPEGのマルチパートチャンクに変換する
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"iter"
	"log"

	"burstcam/internal/camera"
)

// Boundary はマルチパートの境界文字列
const Boundary = "frame"

// ContentType は/video_feedのレスポンスヘッダー
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// ErrEncodeFailure はフレームのエンコードに失敗したことを表す
var ErrEncodeFailure = errors.New("frame encode failed")

// FrameReader はフレームを1枚ずつ読み取る（camera.Handleが実装する）
type FrameReader interface {
	Read(ctx context.Context) (camera.Frame, error)
}

// EncodeFrame はフレームをデフォルト品質のJPEGに変換する
func EncodeFrame(frame camera.Frame) ([]byte, error) {
	if frame.Image == nil {
		return nil, fmt.Errorf("%w: 画像がありません", ErrEncodeFailure)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailure, err)
	}
	return buf.Bytes(), nil
}

// Chunk はエンコード済みJPEGを1つのマルチパートチャンクに包む
func Chunk(jpegData []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(jpegData) + 64)
	buf.WriteString("--" + Boundary + "\r\n")
	buf.WriteString("Content-Type: image/jpeg\r\n\r\n")
	buf.Write(jpegData)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

// Generator はライブストリームのチャンク列を生成する
type Generator struct {
	reader FrameReader
}

// NewGenerator は新しいGeneratorを作成する
func NewGenerator(reader FrameReader) *Generator {
	return &Generator{reader: reader}
}

// Chunks は終わりのないチャンク列を返す
//
// 1回のプルにつき1回だけReadを呼び、先読みはしない。読み取りか
// エンコードに失敗するか、ctxがキャンセルされるか、呼び出し側が
// ループを抜けると列は終わる。呼び出しごとに独立した列になる。
func (g *Generator) Chunks(ctx context.Context) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for {
			if ctx.Err() != nil {
				return
			}

			frame, err := g.reader.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("ストリームを終了します: %v", err)
				}
				return
			}

			data, err := EncodeFrame(frame)
			if err != nil {
				log.Printf("ストリームを終了します: %v", err)
				return
			}

			if !yield(Chunk(data)) {
				return
			}
		}
	}
}
