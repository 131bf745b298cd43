package camera

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Opener はドライバーごとのSource作成関数
type Opener func(ctx context.Context, settings Settings) (Source, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Opener)
)

func init() {
	RegisterDriver(DriverFFmpeg, OpenFFmpeg)
}

// RegisterDriver はドライバーを登録する。同名の登録は上書きされる
func RegisterDriver(name string, opener Opener) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = opener
}

// Drivers は登録済みドライバー名をソートして返す
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// openDriver は設定に対応するドライバーでデバイスを開く
func openDriver(ctx context.Context, settings Settings) (Source, error) {
	driversMu.RLock()
	opener, exists := drivers[settings.Driver]
	driversMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: サポートされていないドライバー: %q", ErrDeviceUnavailable, settings.Driver)
	}

	source, err := opener(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, settings.Device, err)
	}
	return source, nil
}
