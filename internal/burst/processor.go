package burst

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Processor は取得済みフレームをグレースケール化・リサイズ・JPEG化して保存する
type Processor struct {
	dir     string
	width   int
	height  int
	quality int
}

// NewProcessor は新しいProcessorを作成する
func NewProcessor(dir string, width, height, quality int) *Processor {
	return &Processor{
		dir:     dir,
		width:   width,
		height:  height,
		quality: quality,
	}
}

// FileName はインデックスに対応するファイル名を返す
func FileName(index int) string {
	return fmt.Sprintf("image_%d.jpg", index+1)
}

// Path はインデックスに対応する保存先パスを返す
func (p *Processor) Path(index int) string {
	return filepath.Join(p.dir, FileName(index))
}

// Process は1フレームを処理してファイルに書き出す
//
// 同じフレームとインデックスからは常に同じバイト列が書き出される。
func (p *Processor) Process(frame CapturedFrame) (SavedImage, error) {
	data, err := p.Encode(frame)
	if err != nil {
		return SavedImage{}, err
	}

	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return SavedImage{}, fmt.Errorf("%w: 保存先ディレクトリの作成に失敗: %w", ErrWriteFailure, err)
	}

	path := p.Path(frame.Index)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return SavedImage{}, fmt.Errorf("%w: %s: %w", ErrWriteFailure, path, err)
	}

	return SavedImage{
		Index:   frame.Index,
		Path:    path,
		Size:    len(data),
		Quality: p.quality,
	}, nil
}

// Encode はグレースケール化とリサイズを行い、固定品質でJPEGにエンコードする
func (p *Processor) Encode(frame CapturedFrame) ([]byte, error) {
	if frame.Image == nil {
		return nil, fmt.Errorf("%w: 画像がありません", ErrEncodeFailure)
	}

	gray := toGray(frame.Image)

	// 実際の取得解像度は要求と異なることがあるので、常にリサイズする
	resized := toGray(imaging.Resize(gray, p.width, p.height, imaging.Linear))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailure, err)
	}
	return buf.Bytes(), nil
}

// toGray は1チャンネルのグレースケール画像に変換する
func toGray(src image.Image) *image.Gray {
	if gray, ok := src.(*image.Gray); ok && gray.Rect.Min == (image.Point{}) {
		return gray
	}

	bounds := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst
}
