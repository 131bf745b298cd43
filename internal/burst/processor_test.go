package burst

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"burstcam/internal/camera"
)

func readFrame(t *testing.T, width, height int) camera.Frame {
	t.Helper()

	handle := camera.NewHandle(camera.NewMockSource(width, height), camera.Settings{})
	frame, err := handle.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return frame
}

func decodeGray(t *testing.T, path string) *image.Gray {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("%s is not a JPEG: %v", path, err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("%s is not single-channel: %T", path, img)
	}
	return gray
}

func TestFileName(t *testing.T) {
	testCases := map[int]string{
		0:  "image_1.jpg",
		49: "image_50.jpg",
		99: "image_100.jpg",
	}

	for index, want := range testCases {
		if got := FileName(index); got != want {
			t.Errorf("FileName(%d) = %s, want %s", index, got, want)
		}
	}
}

func TestProcessor_Process(t *testing.T) {
	testCases := []struct {
		name          string
		width, height int
	}{
		{"要求通りの解像度", 640, 480},
		{"小さい解像度", 320, 240},
		{"大きい解像度", 1280, 720},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "captured_images")
			processor := NewProcessor(dir, 640, 480, 80)

			saved, err := processor.Process(CapturedFrame{Frame: readFrame(t, tc.width, tc.height), Index: 4})
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}

			if saved.Path != filepath.Join(dir, "image_5.jpg") {
				t.Errorf("Unexpected path: %s", saved.Path)
			}
			if saved.Quality != 80 {
				t.Errorf("Expected quality 80, got %d", saved.Quality)
			}

			gray := decodeGray(t, saved.Path)
			if gray.Bounds().Dx() != 640 || gray.Bounds().Dy() != 480 {
				t.Errorf("Expected 640x480, got %v", gray.Bounds())
			}

			info, err := os.Stat(saved.Path)
			if err != nil {
				t.Fatalf("Stat failed: %v", err)
			}
			if info.Size() != int64(saved.Size) {
				t.Errorf("Size mismatch: file %d, reported %d", info.Size(), saved.Size)
			}
		})
	}
}

func TestProcessor_Grayscale(t *testing.T) {
	// 赤一色の画像は輝度に変換される
	src := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	processor := NewProcessor(t.TempDir(), 640, 480, 80)
	saved, err := processor.Process(CapturedFrame{Frame: camera.Frame{Image: src}, Index: 0})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	want := color.GrayModel.Convert(color.RGBA{R: 255, A: 255}).(color.Gray).Y
	got := decodeGray(t, saved.Path).GrayAt(320, 240).Y
	if diff := int(got) - int(want); diff < -3 || diff > 3 {
		t.Errorf("Expected luminance ~%d, got %d", want, got)
	}
}

func TestProcessor_Idempotent(t *testing.T) {
	dir := t.TempDir()
	processor := NewProcessor(dir, 640, 480, 80)
	frame := CapturedFrame{Frame: readFrame(t, 640, 480), Index: 7}

	first, err := processor.Process(frame)
	if err != nil {
		t.Fatalf("First Process failed: %v", err)
	}
	firstData, _ := os.ReadFile(first.Path)

	second, err := processor.Process(frame)
	if err != nil {
		t.Fatalf("Second Process failed: %v", err)
	}
	secondData, _ := os.ReadFile(second.Path)

	if first.Path != second.Path {
		t.Errorf("Paths differ: %s, %s", first.Path, second.Path)
	}
	if !bytes.Equal(firstData, secondData) {
		t.Error("Output is not byte-identical across runs")
	}
}

func TestProcessor_WriteFailure(t *testing.T) {
	// 通常ファイルの下にはディレクトリを作れない
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	processor := NewProcessor(filepath.Join(blocker, "images"), 640, 480, 80)
	_, err := processor.Process(CapturedFrame{Frame: readFrame(t, 64, 48), Index: 0})
	if !errors.Is(err, ErrWriteFailure) {
		t.Errorf("Expected ErrWriteFailure, got %v", err)
	}
}

func TestProcessor_EncodeFailure(t *testing.T) {
	processor := NewProcessor(t.TempDir(), 640, 480, 80)

	_, err := processor.Process(CapturedFrame{Index: 0})
	if !errors.Is(err, ErrEncodeFailure) {
		t.Errorf("Expected ErrEncodeFailure, got %v", err)
	}
}
