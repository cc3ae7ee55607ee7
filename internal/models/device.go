// internal/models/device.go
package models

// Device 디바이스 전체 상태 트리 (devices/{id})
type Device struct {
	ID              string                 `json:"id,omitempty"`
	Owner           string                 `json:"owner"`
	Info            DeviceInfo             `json:"info"`
	Environment     Environment            `json:"environment"`
	PanelParameters PanelParameters        `json:"panelParameters"`
	PanelStatus     PanelStatus            `json:"panelStatus"`
	CleaningControl CleaningControl        `json:"cleaningControl"`
	History         map[string]DailyRecord `json:"history,omitempty"`
}

// DeviceInfo 설치 정보
type DeviceInfo struct {
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	InstallDate string  `json:"installDate"`
	PanelRating float64 `json:"panelRating"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Status      string  `json:"status"`
	LastUpdated int64   `json:"lastUpdated"`
}

// HasCoordinates 좌표가 등록되어 있는지 확인
func (i DeviceInfo) HasCoordinates() bool {
	return i.Latitude != 0 || i.Longitude != 0
}

// Environment 환경 센서 값
type Environment struct {
	Humidity     float64 `json:"humidity"`
	Temperature  float64 `json:"temperature"`
	DustPresence bool    `json:"dustPresence"`
	Timestamp    int64   `json:"timestamp"`
}

// PanelParameters 패널 전기 파라미터
type PanelParameters struct {
	Voltage   float64 `json:"voltage"`
	Current   float64 `json:"current"`
	Power     float64 `json:"power"`
	Timestamp int64   `json:"timestamp"`
}

// PanelStatus 먼지/효율 상태
type PanelStatus struct {
	DustLevel    float64 `json:"dustLevel"`
	DustCategory string  `json:"dustCategory"`
	Efficiency   float64 `json:"efficiency"`
	DailyLoss    float64 `json:"dailyLoss"`
	WeeklyLoss   float64 `json:"weeklyLoss"`
	MonthlyLoss  float64 `json:"monthlyLoss"`
	PM25         float64 `json:"pm25"`
	PM10         float64 `json:"pm10"`
	AQI          float64 `json:"aqi"`
	Timestamp    int64   `json:"timestamp"`
}

// CleaningControl 청소 제어 상태
type CleaningControl struct {
	Mode             string           `json:"mode"`
	Method           string           `json:"method"`
	Status           string           `json:"status"`
	PWMDry           int              `json:"pwmDry"`
	PWMWet           int              `json:"pwmWet"`
	Trigger          int              `json:"trigger"`
	AutoSettings     AutoSettings     `json:"autoSettings"`
	CurrentOperation CurrentOperation `json:"currentOperation"`
	Error            *CleaningError   `json:"error,omitempty"`
}

// PWMFor 방식별 PWM 값
func (c CleaningControl) PWMFor(method string) int {
	if method == "wet" {
		return c.PWMWet
	}
	return c.PWMDry
}

// AutoSettings 자동 청소 설정
type AutoSettings struct {
	Enabled         bool    `json:"enabled"`
	DustThreshold   float64 `json:"dustThreshold"`
	ScheduleEnabled bool    `json:"scheduleEnabled"`
	Schedule        string  `json:"schedule"`
	LastCleaning    int64   `json:"lastCleaning"`
}

// AutoSettingsPatch 자동 청소 설정 부분 수정 (nil 필드는 저장된 값 유지)
type AutoSettingsPatch struct {
	Enabled         *bool    `json:"enabled"`
	DustThreshold   *float64 `json:"dustThreshold"`
	ScheduleEnabled *bool    `json:"scheduleEnabled"`
	Schedule        *string  `json:"schedule"`
}

// CurrentOperation 진행 중인 청소 작업
type CurrentOperation struct {
	StartTime int64   `json:"startTime"`
	Progress  float64 `json:"progress"`
	WaterUsed float64 `json:"waterUsed"`
}

// CleaningError 마지막 오류
type CleaningError struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// DailyRecord 일별 기록 (history/{YYYY-MM-DD})
type DailyRecord struct {
	Cleanings     int     `json:"cleanings"`
	WaterUsed     float64 `json:"waterUsed"`
	PeakPower     float64 `json:"peakPower"`
	EfficiencySum float64 `json:"efficiencySum"`
	Samples       int     `json:"samples"`
}

// MeanEfficiency 하루 평균 효율 (샘플이 없으면 false)
func (r DailyRecord) MeanEfficiency() (float64, bool) {
	if r.Samples == 0 {
		return 0, false
	}
	return r.EfficiencySum / float64(r.Samples), true
}

// WeatherConfig 먼지 데이터 제공자 설정 (config/weatherAPI)
type WeatherConfig struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
}
