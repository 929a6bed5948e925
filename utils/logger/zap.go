package logger

import (
	"log"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultLogger = zap.NewNop()

// Initialize 初始化全局 logger
func Initialize(level string, isDebug bool) error {
	l, err := New(level, isDebug)
	if err != nil {
		return err
	}

	defaultLogger = l
	return nil
}

// New 根据级别创建 zap logger，debug 模式使用开发配置
func New(level string, isDebug bool) (*zap.Logger, error) {
	var config zap.Config

	if isDebug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	l := zap.InfoLevel
	switch strings.ToUpper(level) {
	case "TRACE", "DEBUG":
		l = zap.DebugLevel
	case "WARN":
		l = zap.WarnLevel
	case "ERROR":
		l = zap.ErrorLevel
	}
	config.Level = zap.NewAtomicLevelAt(l)

	return config.Build()
}

func Debug(msg string, fields ...zap.Field) {
	defaultLogger.WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	defaultLogger.WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	defaultLogger.WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	defaultLogger.WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	defaultLogger.WithOptions(zap.AddCallerSkip(1)).Fatal(msg, fields...)
}

// Named 返回带组件名的子 logger
func Named(component string) *zap.Logger {
	return defaultLogger.Named(component)
}

// StdLog 供 gorm 等只接受标准库 logger 的组件使用
func StdLog() *log.Logger {
	return zap.NewStdLog(defaultLogger)
}

// Sync 刷新缓冲
func Sync() {
	_ = defaultLogger.Sync()
}
