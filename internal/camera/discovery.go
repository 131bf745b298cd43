package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	videoDevicePattern = regexp.MustCompile(`^/dev/video(\d+)$`)
	deviceNumberRe     = regexp.MustCompile(`video(\d+)`)
)

// LinuxDiscovery はLinux環境でのV4L2デバイス検出を実装する
type LinuxDiscovery struct {
	// v4l2-ctlのパス。空の場合はカメラ名とフォーマットの判定を省略する
	v4l2ctl string
}

// NewLinuxDiscovery は新しいLinuxDiscoveryを作成する
func NewLinuxDiscovery() *LinuxDiscovery {
	path, _ := exec.LookPath("v4l2-ctl")
	return &LinuxDiscovery{v4l2ctl: path}
}

// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
func (d *LinuxDiscovery) ScanDevices(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	// デバイス番号でソート
	sort.Slice(matches, func(i, j int) bool {
		return extractDeviceNumber(matches[i]) < extractDeviceNumber(matches[j])
	})

	var devices []string
	for _, match := range matches {
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		if d.IsDeviceAvailable(ctx, match) && d.supportsColor(ctx, match) {
			devices = append(devices, match)
		}
	}

	return devices, nil
}

// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
func (d *LinuxDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	if !videoDevicePattern.MatchString(device) {
		return false
	}

	// デバイスファイルの読み取り権限チェック
	file, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	_ = file.Close()

	return true
}

// GetDeviceInfo はデバイスの詳細情報を取得する
func (d *LinuxDiscovery) GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error) {
	if !d.IsDeviceAvailable(ctx, device) {
		return nil, fmt.Errorf("デバイスが利用できません: %s", device)
	}

	name := d.cardType(ctx, device)
	if name == "" {
		name = fmt.Sprintf("カメラ %d", extractDeviceNumber(device))
	}

	return &DeviceInfo{
		Device: device,
		Name:   name,
		Driver: "v4l2",
		Resolutions: []Resolution{
			{Width: 640, Height: 480},
			{Width: 1280, Height: 720},
		},
		Formats: d.formats(ctx, device),
	}, nil
}

// supportsColor はデバイスがカラーフォーマット（YUYV/MJPG）を出せるか判定する
// メタデータ用のノードやグレースケール専用デバイスを除外するために使う
func (d *LinuxDiscovery) supportsColor(ctx context.Context, device string) bool {
	if d.v4l2ctl == "" {
		return true
	}

	for _, format := range d.formats(ctx, device) {
		if strings.Contains(format, "YUYV") || strings.Contains(format, "MJPG") {
			return true
		}
	}
	return false
}

// formats はv4l2-ctlからフォーマット行を取得する
func (d *LinuxDiscovery) formats(ctx context.Context, device string) []string {
	output := d.run(ctx, device, "--list-formats-ext")

	var formats []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && strings.Contains(line, "]") {
			formats = append(formats, line)
		}
	}
	return formats
}

// cardType は "Card type" の行からカメラ名を抽出する
func (d *LinuxDiscovery) cardType(ctx context.Context, device string) string {
	for _, line := range strings.Split(d.run(ctx, device, "--info"), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Card type") {
			continue
		}
		if parts := strings.SplitN(line, ":", 2); len(parts) == 2 {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

// run はv4l2-ctlを実行して標準出力を返す。失敗時は空文字列
func (d *LinuxDiscovery) run(ctx context.Context, device string, args ...string) string {
	if d.v4l2ctl == "" {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.v4l2ctl, append([]string{"--device", device}, args...)...)
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(output)
}

// extractDeviceNumber はデバイスパスから番号を抽出する
func extractDeviceNumber(device string) int {
	matches := deviceNumberRe.FindStringSubmatch(device)
	if len(matches) < 2 {
		return 0
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return num
}

// MockDiscovery はテスト用のモックDiscovery実装
type MockDiscovery struct {
	devices []string
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(devices []string) *MockDiscovery {
	return &MockDiscovery{devices: devices}
}

// ScanDevices はモックデバイス一覧を返す
func (m *MockDiscovery) ScanDevices(_ context.Context) ([]string, error) {
	return m.devices, nil
}

// IsDeviceAvailable はモックデバイスが利用可能かチェックする
func (m *MockDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	for _, d := range m.devices {
		if d == device {
			return true
		}
	}
	return false
}

// GetDeviceInfo はモックデバイス情報を取得する
func (m *MockDiscovery) GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error) {
	if !m.IsDeviceAvailable(ctx, device) {
		return nil, fmt.Errorf("デバイスが見つかりません: %s", device)
	}

	return &DeviceInfo{
		Device:      device,
		Name:        fmt.Sprintf("テストカメラ %d", extractDeviceNumber(device)),
		Driver:      "mock",
		Resolutions: []Resolution{{Width: 640, Height: 480}},
		Formats:     []string{"MJPEG"},
	}, nil
}
