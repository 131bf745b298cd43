package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"
)

// DriverMock はテスト用のモックドライバー名
const DriverMock = "mock"

func init() {
	RegisterDriver(DriverMock, func(_ context.Context, settings Settings) (Source, error) {
		return NewMockSource(settings.Width, settings.Height), nil
	})
}

// errMockRead はモックで発生させる読み取りエラー
var errMockRead = errors.New("モック: 読み取り失敗")

// MockSource は単色のグレーフレームを返すテスト用Source
type MockSource struct {
	width  int
	height int
	gray   uint8

	mu      sync.Mutex
	calls   int
	failOn  int
	latency time.Duration
	closed  bool
}

// NewMockSource は新しいMockSourceを作成する
func NewMockSource(width, height int) *MockSource {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	return &MockSource{width: width, height: height, gray: 128}
}

// Read は毎回同じグレー画像の新しいコピーを返す
func (m *MockSource) Read(ctx context.Context) (image.Image, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	failOn := m.failOn
	latency := m.latency
	closed := m.closed
	gray := m.gray
	m.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if failOn > 0 && call >= failOn {
		return nil, errMockRead
	}

	img := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	c := color.RGBA{R: gray, G: gray, B: gray, A: 0xFF}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img, nil
}

// Close はモックを閉じる
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetFailOn はn回目以降の読み取りを失敗させる。0で無効
func (m *MockSource) SetFailOn(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn = n
}

// SetLatency は1回の読み取りにかかる時間を設定する
func (m *MockSource) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// SetGray は返すグレー値を設定する
func (m *MockSource) SetGray(v uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gray = v
}

// Calls はReadが呼ばれた回数を返す
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
