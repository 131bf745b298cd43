package stream

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"io"
	"mime/multipart"
	"testing"

	"burstcam/internal/camera"
)

func newTestHandle(failOn int) (*camera.Handle, *camera.MockSource) {
	source := camera.NewMockSource(64, 48)
	source.SetFailOn(failOn)
	return camera.NewHandle(source, camera.Settings{}), source
}

func TestEncodeFrame(t *testing.T) {
	handle, _ := newTestHandle(0)

	frame, err := handle.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	data, err := EncodeFrame(frame)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Encoded data is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("Expected 64x48, got %v", img.Bounds())
	}

	if _, err := EncodeFrame(camera.Frame{}); !errors.Is(err, ErrEncodeFailure) {
		t.Errorf("Expected ErrEncodeFailure for empty frame, got %v", err)
	}
}

func TestChunk(t *testing.T) {
	chunk := Chunk([]byte{0xFF, 0xD8, 0xFF, 0xD9})

	want := "--frame\r\nContent-Type: image/jpeg\r\n\r\n\xff\xd8\xff\xd9\r\n"
	if string(chunk) != want {
		t.Errorf("Unexpected chunk: %q", chunk)
	}
}

func TestGenerator_UnboundedWhileReadsSucceed(t *testing.T) {
	handle, source := newTestHandle(0)
	gen := NewGenerator(handle)

	const pulls = 50
	count := 0
	for range gen.Chunks(context.Background()) {
		count++
		if count == pulls {
			break
		}
	}

	if count != pulls {
		t.Fatalf("Expected %d chunks, got %d", pulls, count)
	}
	// 先読みしないので、読み取り回数はプル回数と一致する
	if source.Calls() != pulls {
		t.Errorf("Expected %d reads, got %d", pulls, source.Calls())
	}
}

func TestGenerator_EndsOnReadFailure(t *testing.T) {
	handle, _ := newTestHandle(4)
	gen := NewGenerator(handle)

	count := 0
	for range gen.Chunks(context.Background()) {
		count++
	}

	if count != 3 {
		t.Errorf("Expected 3 chunks before failure, got %d", count)
	}
}

func TestGenerator_StopsOnCancel(t *testing.T) {
	handle, source := newTestHandle(0)
	gen := NewGenerator(handle)

	ctx, cancel := context.WithCancel(context.Background())

	count := 0
	for range gen.Chunks(ctx) {
		count++
		if count == 5 {
			cancel()
		}
	}

	if count != 5 {
		t.Errorf("Expected stream to stop after cancel at 5 chunks, got %d", count)
	}
	if source.Calls() != 5 {
		t.Errorf("Expected no reads after cancel, got %d", source.Calls())
	}
}

func TestGenerator_MultipartParsable(t *testing.T) {
	handle, _ := newTestHandle(0)
	gen := NewGenerator(handle)

	var body bytes.Buffer
	count := 0
	for chunk := range gen.Chunks(context.Background()) {
		body.Write(chunk)
		count++
		if count == 3 {
			break
		}
	}
	body.WriteString("--" + Boundary + "--\r\n")

	reader := multipart.NewReader(&body, Boundary)
	parts := 0
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart failed: %v", err)
		}
		if ct := part.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("Unexpected part content type: %s", ct)
		}
		if _, err := jpeg.Decode(part); err != nil {
			t.Errorf("Part %d is not a JPEG: %v", parts, err)
		}
		parts++
	}

	if parts != 3 {
		t.Errorf("Expected 3 parts, got %d", parts)
	}
}
