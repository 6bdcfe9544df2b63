package mlog

import (
	"context"
	"sync"
	"sync/atomic"
)

type Logger interface {
	Trace(v ...any)
	Debug(v ...any)
	Info(v ...any)
	Notice(v ...any)
	Warn(v ...any)
	Error(v ...any)
	Fatal(v ...any)

	Tracef(format string, v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Noticef(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Fatalf(format string, v ...any)

	Sync() error
}

type holder struct {
	l Logger
}

var current atomic.Pointer[holder]

func SetLogger(l Logger) {
	current.Store(&holder{l: l})
}

func get() Logger {
	if h := current.Load(); h != nil {
		return h.l
	}
	return nil
}

// UseDefaultLogger 文件日志, ctx结束时flush, wg用于等待落盘
func UseDefaultLogger(ctx context.Context, wg *sync.WaitGroup, opt FileOptions) error {
	l, err := newFileLogger(opt)
	if err != nil {
		return err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		_ = l.Sync()
	}()
	SetLogger(l)
	return nil
}

func UseStdLogger(level Level) error {
	l, err := newStdoutLogger(level)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

type Level uint32

const (
	FatalLevel Level = iota
	ErrorLevel
	WarnLevel
	NoticeLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

func ParseLevel(s string) Level {
	switch s {
	case "fatal":
		return FatalLevel
	case "error":
		return ErrorLevel
	case "warn":
		return WarnLevel
	case "notice":
		return NoticeLevel
	case "info":
		return InfoLevel
	case "debug":
		return DebugLevel
	case "trace":
		return TraceLevel
	}
	return InfoLevel
}

func Sync() error {
	if l := get(); l != nil {
		return l.Sync()
	}
	return nil
}

func Trace(a ...any) {
	if l := get(); l != nil {
		l.Trace(a...)
	}
}

func Tracef(format string, a ...any) {
	if l := get(); l != nil {
		l.Tracef(format, a...)
	}
}

func Debug(a ...any) {
	if l := get(); l != nil {
		l.Debug(a...)
	}
}

func Debugf(format string, a ...any) {
	if l := get(); l != nil {
		l.Debugf(format, a...)
	}
}

func Info(a ...any) {
	if l := get(); l != nil {
		l.Info(a...)
	}
}

func Infof(format string, a ...any) {
	if l := get(); l != nil {
		l.Infof(format, a...)
	}
}

func Notice(a ...any) {
	if l := get(); l != nil {
		l.Notice(a...)
	}
}

func Noticef(format string, a ...any) {
	if l := get(); l != nil {
		l.Noticef(format, a...)
	}
}

func Warn(a ...any) {
	if l := get(); l != nil {
		l.Warn(a...)
	}
}

func Warnf(format string, a ...any) {
	if l := get(); l != nil {
		l.Warnf(format, a...)
	}
}

func Error(a ...any) {
	if l := get(); l != nil {
		l.Error(a...)
	}
}

func Errorf(format string, a ...any) {
	if l := get(); l != nil {
		l.Errorf(format, a...)
	}
}

func Fatal(a ...any) {
	if l := get(); l != nil {
		l.Fatal(a...)
	}
}

func Fatalf(format string, a ...any) {
	if l := get(); l != nil {
		l.Fatalf(format, a...)
	}
}
