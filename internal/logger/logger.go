// Package logger initializes the global zap logger used across the backend.
package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init configures the global logger: human-readable console output plus a
// rotated JSON file under logDir. Packages log through zap.L().
func Init(logDir string, development bool) error {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}

	level := zap.InfoLevel
	encoderCfg := zap.NewProductionEncoderConfig()
	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	if development {
		level = zap.DebugLevel
	}

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(consoleEncoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(logDir, "dashboard.log"),
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
			LocalTime:  true,
		}),
		zap.InfoLevel,
	)

	logger := zap.New(zapcore.NewTee(consoleCore, fileCore))
	zap.ReplaceGlobals(logger)
	return nil
}
