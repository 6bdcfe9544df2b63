package g

import (
	"errors"
	"sync/atomic"

	"github.com/fixkme/timerex/mlog"
)

var (
	ErrGoChanFull    = errors.New("go chan is full")
	ErrRoutineClosed = errors.New("routine agent is closed")
	ErrGoChanClosed  = errors.New("go chan is closed")
)

// Go 闭包邮箱, 由单个协程消费, 执行时隔离panic
type Go struct {
	ChanCb       chan func()
	panicHandler func(r any)
	closed       atomic.Bool
}

func NewGoChan(size int) *Go {
	if size < 1024 {
		size = 1024
	} else if size > 102400 {
		size = 102400
	}

	g := new(Go)
	g.ChanCb = make(chan func(), size)
	g.panicHandler = func(r any) {
		mlog.Errorf("go run panic: %v", r)
	}
	return g
}

func (g *Go) SetPanicHandler(f func(r any)) {
	if f != nil {
		g.panicHandler = f
	}
}

// Close 只能由消费协程在没有生产者时调用
func (g *Go) Close() {
	if g.closed.CompareAndSwap(false, true) {
		close(g.ChanCb)
	}
}

func (g *Go) Closed() bool {
	return g.closed.Load()
}

// SubmitWithResult 非阻塞投递, 返回的chan在f执行完或失败时可读
func (g *Go) SubmitWithResult(f func()) <-chan error {
	errCh := make(chan error, 1)
	call := func() {
		defer close(errCh)
		if g.closed.Load() {
			errCh <- ErrGoChanClosed
			return
		}
		f()
	}
	select {
	case g.ChanCb <- call:
	default:
		errCh <- ErrGoChanFull
		close(errCh)
	}
	return errCh
}

func (g *Go) TrySubmit(f func()) (ok bool) {
	select {
	case g.ChanCb <- f:
		return true
	default:
		return false
	}
}

// Exec 执行一个闭包, panic交给panicHandler
func (g *Go) Exec(cb func()) {
	defer func() {
		if r := recover(); r != nil {
			g.panicHandler(r)
		}
	}()

	cb()
}
