// internal/common/constants/status.go
package constants

// Device Connection Status 디바이스 연결 상태
const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
)

// Cleaning Mode 청소 모드
const (
	CleaningModeManual    = "manual"
	CleaningModeAutomatic = "automatic"
)

// Cleaning Method 청소 방식
const (
	CleaningMethodDry = "dry"
	CleaningMethodWet = "wet"
)

// Cleaning Status 청소 상태
const (
	CleaningStatusIdle      = "idle"
	CleaningStatusScanning  = "scanning"
	CleaningStatusCleaning  = "cleaning"
	CleaningStatusCompleted = "completed"
	CleaningStatusError     = "error"
)

// Cleaning Trigger 트리거 값
const (
	TriggerOff = 0
	TriggerOn  = 1
)

// Auto Schedule 자동 청소 주기
const (
	ScheduleDaily   = "daily"
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
)

// Dust Category 먼지 등급
const (
	DustCategoryLight    = "light"
	DustCategoryModerate = "moderate"
	DustCategoryHigh     = "high"
)

// Dust category boundaries (avg of PM2.5 and PM10, µg/m³)
const (
	DustModerateFrom = 50.0
	DustHighAbove    = 150.0
)

// Defaults 신규 디바이스 기본값
const (
	DefaultPWMDry        = 150
	DefaultPWMWet        = 180
	DefaultDustThreshold = 100.0
	DefaultSchedule      = ScheduleWeekly
)

// Method selection 청소 방식 선택 기준
const (
	WetDustAbove        = 100.0
	WetTemperatureBelow = 45.0
	CompletedProgress   = 100.0
)

// Response Status 응답 상태
const (
	ResponseSuccess = "success"
	ResponseError   = "error"
)

// IsValidMethod 유효한 청소 방식인지 확인
func IsValidMethod(method string) bool {
	return method == CleaningMethodDry || method == CleaningMethodWet
}

// IsValidMode 유효한 청소 모드인지 확인
func IsValidMode(mode string) bool {
	return mode == CleaningModeManual || mode == CleaningModeAutomatic
}

// IsValidSchedule 유효한 자동 청소 주기인지 확인
func IsValidSchedule(schedule string) bool {
	switch schedule {
	case ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
		return true
	default:
		return false
	}
}

// ScheduleDays 주기별 경과 일수 (알 수 없는 주기는 0)
func ScheduleDays(schedule string) int {
	switch schedule {
	case ScheduleDaily:
		return 1
	case ScheduleWeekly:
		return 7
	case ScheduleMonthly:
		return 30
	default:
		return 0
	}
}

// DustCategory 먼지 수치를 등급으로 변환
func DustCategory(level float64) string {
	switch {
	case level < DustModerateFrom:
		return DustCategoryLight
	case level > DustHighAbove:
		return DustCategoryHigh
	default:
		return DustCategoryModerate
	}
}
