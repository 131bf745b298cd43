package burst

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"burstcam/internal/camera"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Phase はバースト撮影の段階
type Phase string

const (
	PhaseAcquire Phase = "acquire" // 一定間隔でのフレーム取得
	PhaseSave    Phase = "save"    // 並列の後処理と保存
)

// FrameReader はフレームを1枚ずつ読み取る（camera.Handleが実装する）
type FrameReader interface {
	Read(ctx context.Context) (camera.Frame, error)
}

// ProgressFunc は進捗の通知を受け取る。保存フェーズでは複数のゴルーチンから呼ばれる
type ProgressFunc func(phase Phase, done, total int)

// Controller はバースト撮影を制御する
type Controller struct {
	reader    FrameReader
	processor *Processor
	config    Config

	// OnProgress が設定されていれば各フレームの取得・保存後に呼ばれる
	OnProgress ProgressFunc

	running atomic.Bool

	mu   sync.RWMutex
	last *Result
}

// NewController は新しいControllerを作成する
func NewController(reader FrameReader, config Config) *Controller {
	if config.Workers <= 0 {
		config.Workers = 1
	}

	return &Controller{
		reader:    reader,
		processor: NewProcessor(config.SaveDir, config.Width, config.Height, config.Quality),
		config:    config,
	}
}

// Config は現在の設定を返す
func (c *Controller) Config() Config {
	return c.config
}

// Running はバースト撮影が実行中かどうかを返す
func (c *Controller) Running() bool {
	return c.running.Load()
}

// LastResult は最後に成功したバーストの結果を返す
func (c *Controller) LastResult() (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

// Capture はバースト撮影を1回実行する
//
// 取得フェーズで1枚でも読み取りに失敗すると、何も保存せずに
// camera.ErrReadFailure を返す。保存フェーズは最初のエラーで打ち切る。
// 同時に実行できるのは1回だけで、実行中の呼び出しは ErrInProgress になる。
func (c *Controller) Capture(ctx context.Context) (Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		return Result{}, ErrInProgress
	}
	defer c.running.Store(false)

	result := Result{
		ID:        uuid.NewString(),
		Directory: c.config.SaveDir,
		StartedAt: time.Now(),
	}
	log.Printf("バースト %s を開始: %d枚 / %v", result.ID, c.config.Count, c.config.Duration)

	frames, err := c.acquire(ctx)
	if err != nil {
		log.Printf("バースト %s を中断しました: %v", result.ID, err)
		return Result{}, err
	}

	images, err := c.save(ctx, frames)
	if err != nil {
		log.Printf("バースト %s の保存に失敗しました: %v", result.ID, err)
		return Result{}, err
	}

	result.Images = images
	result.Count = len(images)
	result.Elapsed = time.Since(result.StartedAt)

	log.Printf("バースト %s: %d枚を%.2f秒で保存しました (%s, %s)",
		result.ID, result.Count, result.ElapsedSeconds(),
		humanize.Bytes(result.TotalBytes()), result.Directory)

	c.mu.Lock()
	c.last = &result
	c.mu.Unlock()

	return result, nil
}

// acquire は一定間隔でフレームを取得する。遅れた分の取り戻しはしない
func (c *Controller) acquire(ctx context.Context) ([]CapturedFrame, error) {
	interval := c.config.Interval()
	frames := make([]CapturedFrame, 0, c.config.Count)

	for index := 0; index < c.config.Count; index++ {
		frameStart := time.Now()

		frame, err := c.reader.Read(ctx)
		if err != nil {
			if !errors.Is(err, camera.ErrReadFailure) {
				err = fmt.Errorf("%w: %w", camera.ErrReadFailure, err)
			}
			return nil, fmt.Errorf("%d枚目の取得に失敗: %w", index+1, err)
		}

		frames = append(frames, CapturedFrame{Frame: frame, Index: index})
		c.progress(PhaseAcquire, index+1, c.config.Count)

		if wait := interval - time.Since(frameStart); wait > 0 {
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	return frames, nil
}

// save は固定数のワーカーでフレームを後処理して保存する
func (c *Controller) save(ctx context.Context, frames []CapturedFrame) ([]SavedImage, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Workers)

	images := make([]SavedImage, len(frames))
	var done atomic.Int64

	for i, frame := range frames {
		g.Go(func() error {
			// 先に失敗したワーカーがいれば残りは処理しない
			if err := gctx.Err(); err != nil {
				return err
			}

			saved, err := c.processor.Process(frame)
			if err != nil {
				return err
			}

			images[i] = saved
			c.progress(PhaseSave, int(done.Add(1)), len(frames))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func (c *Controller) progress(phase Phase, done, total int) {
	if c.OnProgress != nil {
		c.OnProgress(phase, done, total)
	}
}

// sleep はctxがキャンセルされるまでの間だけ待機する
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
