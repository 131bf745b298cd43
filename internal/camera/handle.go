package camera

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Handle はプロセス全体で1つだけ開かれるカメラデバイスを保持する
//
// Read はミューテックスで直列化されるため、ストリーミングと
// バースト撮影が同時に走ってもフレームが混ざることはない。
// Close はそのミューテックスを取らないので、止まったReadがあっても
// デバイスを解放でき、ドライバー側でReadが中断される。
type Handle struct {
	source   Source
	settings Settings

	mu     sync.Mutex
	reads  uint64
	closed atomic.Bool
}

// NewHandle は既に開かれたSourceからHandleを作成する
func NewHandle(source Source, settings Settings) *Handle {
	return &Handle{
		source:   source,
		settings: settings,
	}
}

// Open は登録済みドライバーでデバイスを開き、Handleを返す
func Open(ctx context.Context, settings Settings) (*Handle, error) {
	source, err := openDriver(ctx, settings)
	if err != nil {
		return nil, err
	}

	log.Printf("カメラを開きました: driver=%s device=%s %dx%d@%dfps",
		settings.Driver, settings.Device, settings.Width, settings.Height, settings.FPS)
	return NewHandle(source, settings), nil
}

// Read は1フレームを読み取る
func (h *Handle) Read(ctx context.Context) (Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed.Load() {
		return Frame{}, fmt.Errorf("%w: %w", ErrReadFailure, ErrClosed)
	}

	img, err := h.source.Read(ctx)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	if img == nil || img.Bounds().Empty() {
		return Frame{}, fmt.Errorf("%w: 空のフレーム", ErrReadFailure)
	}

	h.reads++
	return Frame{Image: img, CapturedAt: time.Now()}, nil
}

// Settings は開いたときの設定を返す
func (h *Handle) Settings() Settings {
	return h.settings
}

// Reads はこれまでに成功した読み取り回数を返す
func (h *Handle) Reads() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reads
}

// Close はデバイスを解放する。二回目以降の呼び出しは何もしない
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := h.source.Close(); err != nil {
		return fmt.Errorf("カメラのクローズに失敗: %w", err)
	}
	return nil
}
