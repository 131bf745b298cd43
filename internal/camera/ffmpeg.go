package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// DriverFFmpeg はffmpeg経由でV4L2デバイスを読むドライバー名
const DriverFFmpeg = "ffmpeg"

var (
	jpegSOI = []byte{0xFF, 0xD8} // Start of Image
	jpegEOI = []byte{0xFF, 0xD9} // End of Image
)

// FFmpegSource はffmpegのimage2pipe出力からJPEGフレームを取り出す
//
// 読み取りループがパイプを常に読み続け、最新の1枚だけを保持する。
// Readは前回返したものより新しいフレームを待って返すため、
// 誰も読んでいない間にパイプへ古いフレームが溜まることはない。
type FFmpegSource struct {
	device string
	cmd    *exec.Cmd
	cancel func()
	stderr *stderrBuffer

	mu       sync.Mutex
	latest   []byte        // 最新のJPEGデータ
	seq      uint64        // 受信したフレームの通し番号
	returned uint64        // Readが最後に返したフレームの通し番号
	updated  chan struct{} // 新しいフレームか終了でクローズされる
	err      error         // 読み取りループの終了理由
	done     chan struct{} // 読み取りループの終了

	closeOnce sync.Once
	closeErr  error
}

// OpenFFmpeg はffmpegプロセスを起動してFFmpegSourceを返す
func OpenFFmpeg(ctx context.Context, settings Settings) (Source, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpegが見つかりません: %w", err)
	}

	discovery := NewLinuxDiscovery()
	if !discovery.IsDeviceAvailable(ctx, settings.Device) {
		return nil, fmt.Errorf("デバイスが利用できません: %s", settings.Device)
	}

	// プロセスはハンドルと同じ寿命なので、リクエストのコンテキストからは切り離す
	procCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := exec.CommandContext(procCtx, "ffmpeg", ffmpegArgs(settings)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
	}

	stderr := &stderrBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpegの起動に失敗: %w", err)
	}

	return newFFmpegSource(settings.Device, stdout, cmd, cancel, stderr), nil
}

// newFFmpegSource は読み取りループを開始したFFmpegSourceを返す
//
// cancelはrからの読み取りを終わらせる関数。cmdがnilでなければCloseで終了を待つ。
func newFFmpegSource(device string, r io.Reader, cmd *exec.Cmd, cancel func(), stderr *stderrBuffer) *FFmpegSource {
	s := &FFmpegSource{
		device:  device,
		cmd:     cmd,
		cancel:  cancel,
		stderr:  stderr,
		updated: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.readLoop(newJPEGScanner(r))
	return s
}

// readLoop はパイプを読み続け、最新のフレームだけを保持する
func (s *FFmpegSource) readLoop(scanner *bufio.Scanner) {
	defer close(s.done)

	for scanner.Scan() {
		// scanner.Bytesは次のScanで上書きされる
		s.publish(bytes.Clone(scanner.Bytes()))
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.fail(fmt.Errorf("フレーム読み取りエラー: %w (stderr: %s)", err, s.stderr.String()))
}

// publish は最新フレームを差し替え、待機中のReadを起こす
func (s *FFmpegSource) publish(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = data
	s.seq++
	s.notifyLocked()
}

// fail は最初の終了理由を記録し、待機中のReadを起こす
func (s *FFmpegSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err == nil {
		s.err = err
		s.notifyLocked()
	}
}

func (s *FFmpegSource) notifyLocked() {
	close(s.updated)
	s.updated = make(chan struct{})
}

// ffmpegArgs は連続キャプチャ用のffmpeg引数を組み立てる
func ffmpegArgs(settings Settings) []string {
	args := []string{"-loglevel", "error", "-f", "v4l2"}
	if settings.Width > 0 && settings.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", settings.Width, settings.Height))
	}
	if settings.FPS > 0 {
		args = append(args, "-framerate", strconv.Itoa(settings.FPS))
	}
	return append(args,
		"-i", settings.Device,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "2",
		"-",
	)
}

// Read は前回より新しいフレームを待ち、デコードして返す
func (s *FFmpegSource) Read(ctx context.Context) (image.Image, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.err != nil {
			err := s.err
			s.mu.Unlock()
			return nil, err
		}
		if s.seq > s.returned {
			data := s.latest
			s.returned = s.seq
			s.mu.Unlock()

			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("JPEG画像のデコードに失敗: %w", err)
			}
			return img, nil
		}
		updated := s.updated
		s.mu.Unlock()

		select {
		case <-updated:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close はffmpegプロセスを停止する。待機中のReadはErrClosedで戻る
func (s *FFmpegSource) Close() error {
	s.closeOnce.Do(func() {
		s.fail(ErrClosed)
		s.cancel()
		<-s.done

		if s.cmd == nil {
			return
		}
		err := s.cmd.Wait()
		// キャンセルによる終了はエラーとして扱わない
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, context.Canceled) {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// stderrBuffer はffmpegのstderrを並行して書き込み・参照できるバッファ
type stderrBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *stderrBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *stderrBuffer) String() string {
	if b == nil {
		return ""
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newJPEGScanner はSOI/EOIマーカーでJPEGを切り出すScannerを作成する
func newJPEGScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	scanner.Split(splitJPEG)
	return scanner
}

// splitJPEG はbufio.SplitFuncとして完全なJPEGを1枚ずつ返す
func splitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	startIdx := bytes.Index(data, jpegSOI)
	if startIdx == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		// 最後の1バイトはマーカーの前半の可能性がある
		if len(data) > 1 {
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}

	endIdx := bytes.Index(data[startIdx+len(jpegSOI):], jpegEOI)
	if endIdx == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		// 完全なフレームがまだない
		return startIdx, nil, nil
	}

	end := startIdx + len(jpegSOI) + endIdx + len(jpegEOI)
	return end, data[startIdx:end], nil
}
