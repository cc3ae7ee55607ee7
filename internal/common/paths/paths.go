// internal/common/paths/paths.go
package paths

import (
	"fmt"
	"strings"
)

// Store Path Patterns 상태 저장소 경로 패턴
const (
	DevicesRoot            = "devices"
	DevicePattern          = "devices/%s"
	DeviceInfoPattern      = "devices/%s/info"
	EnvironmentPattern     = "devices/%s/environment"
	PanelParametersPattern = "devices/%s/panelParameters"
	PanelStatusPattern     = "devices/%s/panelStatus"
	CleaningControlPattern = "devices/%s/cleaningControl"
	HistoryPattern         = "devices/%s/history"
	HistoryDayPattern      = "devices/%s/history/%s"
	UserDevicesPattern     = "users/%s/devices"
	UserDevicePattern      = "users/%s/devices/%s"
	WeatherConfig          = "config/weatherAPI"
)

// HistoryDateLayout 일별 기록 키 형식
const HistoryDateLayout = "2006-01-02"

func Device(deviceID string) string { return fmt.Sprintf(DevicePattern, deviceID) }

func DeviceInfo(deviceID string) string { return fmt.Sprintf(DeviceInfoPattern, deviceID) }

func Environment(deviceID string) string { return fmt.Sprintf(EnvironmentPattern, deviceID) }

func PanelParameters(deviceID string) string {
	return fmt.Sprintf(PanelParametersPattern, deviceID)
}

func PanelStatus(deviceID string) string { return fmt.Sprintf(PanelStatusPattern, deviceID) }

func CleaningControl(deviceID string) string {
	return fmt.Sprintf(CleaningControlPattern, deviceID)
}

func History(deviceID string) string { return fmt.Sprintf(HistoryPattern, deviceID) }

func HistoryDay(deviceID, day string) string {
	return fmt.Sprintf(HistoryDayPattern, deviceID, day)
}

func UserDevices(userID string) string { return fmt.Sprintf(UserDevicesPattern, userID) }

func UserDevice(userID, deviceID string) string {
	return fmt.Sprintf(UserDevicePattern, userID, deviceID)
}

// DeviceWatchPaths 대시보드가 구독하는 디바이스 하위 경로
func DeviceWatchPaths(deviceID string) []string {
	return []string{
		Environment(deviceID),
		PanelParameters(deviceID),
		PanelStatus(deviceID),
		CleaningControl(deviceID),
	}
}

// Split 경로를 세그먼트로 분리 (빈 세그먼트 제거)
func Split(path string) []string {
	raw := strings.Split(path, "/")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// Join 세그먼트를 경로로 결합
func Join(segments ...string) string {
	return strings.Join(Split(strings.Join(segments, "/")), "/")
}

// IsWithin child가 parent 경로와 같거나 그 하위인지 확인
func IsWithin(child, parent string) bool {
	c, p := Split(child), Split(parent)
	if len(c) < len(p) {
		return false
	}
	for i := range p {
		if c[i] != p[i] {
			return false
		}
	}
	return true
}

// Overlaps 두 경로 중 하나가 다른 하나를 포함하는지 확인
func Overlaps(a, b string) bool {
	return IsWithin(a, b) || IsWithin(b, a)
}
