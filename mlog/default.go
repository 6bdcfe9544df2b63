package mlog

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions 文件日志配置, 大小单位MB
type FileOptions struct {
	Path       string
	Name       string
	Level      Level
	StdOut     bool
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// zapLogger 把mlog的级别映射到zap, trace并入debug, notice并入info
type zapLogger struct {
	sugar *zap.SugaredLogger
	base  *zap.Logger
	level Level
}

// NewZapLogger 包装已有的zap.Logger
func NewZapLogger(base *zap.Logger, level Level) Logger {
	return &zapLogger{
		sugar: base.WithOptions(zap.AddCallerSkip(2)).Sugar(),
		base:  base,
		level: level,
	}
}

func newFileLogger(opt FileOptions) (*zapLogger, error) {
	// 默认使用当前路径
	if len(opt.Path) == 0 {
		opt.Path = "."
	}
	if err := os.MkdirAll(opt.Path, 0755); err != nil {
		return nil, err
	}
	if opt.MaxSize <= 0 {
		opt.MaxSize = 100
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(opt.Path, genLogName(opt.Name)),
		MaxSize:    opt.MaxSize,
		MaxBackups: opt.MaxBackups,
		MaxAge:     opt.MaxAge,
		Compress:   opt.Compress,
		LocalTime:  true,
	}
	lv := zapLevel(opt.Level)
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(rotator), lv),
	}
	if opt.StdOut {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stdout), lv))
	}
	base := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return NewZapLogger(base, opt.Level).(*zapLogger), nil
}

func newStdoutLogger(level Level) (*zapLogger, error) {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stdout), zapLevel(level))
	return NewZapLogger(zap.New(core, zap.AddCaller()), level).(*zapLogger), nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case FatalLevel:
		return zapcore.FatalLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case NoticeLevel, InfoLevel:
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

func genLogName(logName string) string {
	if logName == "" {
		logName = "mlog"
	}
	return logName + ".log"
}

func (l *zapLogger) IsLevelEnabled(level Level) bool {
	return l.level >= level
}

func (l *zapLogger) Sync() error {
	return l.base.Sync()
}

func (l *zapLogger) Trace(args ...any) {
	if l.IsLevelEnabled(TraceLevel) {
		l.sugar.Debug(args...)
	}
}

func (l *zapLogger) Tracef(format string, args ...any) {
	if l.IsLevelEnabled(TraceLevel) {
		l.sugar.Debugf(format, args...)
	}
}

func (l *zapLogger) Debug(args ...any) {
	if l.IsLevelEnabled(DebugLevel) {
		l.sugar.Debug(args...)
	}
}

func (l *zapLogger) Debugf(format string, args ...any) {
	if l.IsLevelEnabled(DebugLevel) {
		l.sugar.Debugf(format, args...)
	}
}

func (l *zapLogger) Info(args ...any) {
	if l.IsLevelEnabled(InfoLevel) {
		l.sugar.Info(args...)
	}
}

func (l *zapLogger) Infof(format string, args ...any) {
	if l.IsLevelEnabled(InfoLevel) {
		l.sugar.Infof(format, args...)
	}
}

func (l *zapLogger) Notice(args ...any) {
	if l.IsLevelEnabled(NoticeLevel) {
		l.sugar.Info(args...)
	}
}

func (l *zapLogger) Noticef(format string, args ...any) {
	if l.IsLevelEnabled(NoticeLevel) {
		l.sugar.Infof(format, args...)
	}
}

func (l *zapLogger) Warn(args ...any) {
	if l.IsLevelEnabled(WarnLevel) {
		l.sugar.Warn(args...)
	}
}

func (l *zapLogger) Warnf(format string, args ...any) {
	if l.IsLevelEnabled(WarnLevel) {
		l.sugar.Warnf(format, args...)
	}
}

func (l *zapLogger) Error(args ...any) {
	if l.IsLevelEnabled(ErrorLevel) {
		l.sugar.Error(args...)
	}
}

func (l *zapLogger) Errorf(format string, args ...any) {
	if l.IsLevelEnabled(ErrorLevel) {
		l.sugar.Errorf(format, args...)
	}
}

func (l *zapLogger) Fatal(args ...any) {
	l.sugar.Fatal(args...)
}

func (l *zapLogger) Fatalf(format string, args ...any) {
	l.sugar.Fatalf(format, args...)
}
