// Package logging builds the structured loggers shared by the server, the scheduler and the CLI
package logging

import (
	"os"
	"path/filepath"

	"github.com/amirphl/harga-pangan/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a zap logger from the logging configuration.
// Output "file" writes only to a rotated file, "both" tees stdout and the file.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = cfg.Encoding
	if zcfg.Encoding == "" {
		zcfg.Encoding = "json"
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if level == zapcore.DebugLevel {
		zcfg.Development = true
	}
	zcfg.OutputPaths = []string{"stdout"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.Output == "" || cfg.Output == "stdout" {
		return zcfg.Build()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, err
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var encoder zapcore.Encoder
	if zcfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(zcfg.EncoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(zcfg.EncoderConfig)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(rotator), zcfg.Level),
	}
	if cfg.Output == "both" {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zcfg.Level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
