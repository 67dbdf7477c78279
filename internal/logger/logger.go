package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 日志配置
type Config struct {
	Level       string
	Development bool
	LogFile     string // 留空只写控制台
	MaxSize     int    // MB
	MaxBackups  int
	MaxAge      int // days
	Compress    bool
}

// New 创建日志记录器
//
// 开发模式使用彩色控制台编码并在 error 级别附带堆栈，生产模式输出 JSON。
// 配置了 LogFile 时同时写入按大小轮转的文件。
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	writeSyncer, err := newWriteSyncer(cfg)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder, writeSyncer, level)

	opts := []zap.Option{zap.AddCaller()}
	if cfg.Development {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(core, opts...), nil
}

func newWriteSyncer(cfg Config) (zapcore.WriteSyncer, error) {
	if cfg.LogFile == "" {
		return zapcore.AddSync(os.Stdout), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, err
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    withDefault(cfg.MaxSize, 100),
		MaxBackups: withDefault(cfg.MaxBackups, 3),
		MaxAge:     withDefault(cfg.MaxAge, 28),
		Compress:   cfg.Compress,
	}

	return zapcore.NewMultiWriteSyncer(
		zapcore.AddSync(rotating),
		zapcore.AddSync(os.Stdout),
	), nil
}

func withDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
