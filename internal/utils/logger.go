package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.SetFormatter(&logrus.JSONFormatter{})
}

func SetupLogger(level string) {
	Logger.SetLevel(ParseLevel(level))
}

// ParseLevel 로그 레벨 문자열 변환 (알 수 없는 값은 info)
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// EnableFileOutput 로그를 stdout과 시간 단위로 회전되는 파일에 함께 기록
func EnableFileOutput(logger *logrus.Logger, logFile string, maxAgeDays int) error {
	if logFile == "" {
		return nil
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 7
	}

	dir := filepath.Dir(logFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	writer, err := rotatelogs.New(
		fmt.Sprintf("%s/%%Y-%%m-%%d-%%H-%s", dir, filepath.Base(logFile)),
		rotatelogs.WithLinkName(logFile),
		rotatelogs.WithRotationTime(time.Hour),
		rotatelogs.WithMaxAge(time.Duration(maxAgeDays)*24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to open rotating log file: %w", err)
	}

	logger.SetOutput(io.MultiWriter(os.Stdout, writer))
	return nil
}
