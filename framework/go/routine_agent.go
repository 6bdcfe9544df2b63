package g

import (
	"context"
	"sync"
	"time"

	"github.com/fixkme/timerex/clock"
)

// TickFunc 在触发协程上按固定间隔调用
type TickFunc func(nowMs int64)

// RoutineAgent 独占一个协程: 周期性调用tick, 并串行执行投递进来的闭包.
// 宿主希望所有定时器操作都在同一协程时, 通过SyncRunFunc投递.
type RoutineAgent struct {
	*Go
	clock       clock.Clock
	interval    time.Duration
	tick        TickFunc
	beforeClose func()
	closeSig    chan struct{}
	done        chan struct{}
	isClosed    bool
	running     bool
	mutex       sync.RWMutex
}

func NewRoutineAgent(taskChSize int, interval time.Duration, c clock.Clock) *RoutineAgent {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	if c == nil {
		c = clock.NewSystem(0)
	}
	return &RoutineAgent{
		Go:       NewGoChan(taskChSize),
		clock:    c,
		interval: interval,
		closeSig: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (a *RoutineAgent) Init(tick TickFunc, beforeClose func()) {
	a.tick = tick
	a.beforeClose = beforeClose
}

// Run 阻塞直到Close, Close之后才调用时直接返回
func (a *RoutineAgent) Run() {
	a.mutex.Lock()
	if a.isClosed {
		a.mutex.Unlock()
		return
	}
	a.running = true
	a.mutex.Unlock()
	defer a.onClose()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.closeSig:
			return
		case cb := <-a.Go.ChanCb:
			a.Go.Exec(cb)
		case <-ticker.C:
			if a.tick != nil {
				a.Go.Exec(func() { a.tick(a.clock.NowMs()) })
			}
		}
	}
}

func (a *RoutineAgent) onClose() {
	if a.beforeClose != nil {
		a.Go.Exec(a.beforeClose)
	}
	a.Go.Close()
	for cb := range a.Go.ChanCb {
		a.Go.Exec(cb)
	}
	close(a.done)
}

// Close Run没有启动过时, 在调用方协程上执行关闭流程
func (a *RoutineAgent) Close() {
	a.mutex.Lock()
	if a.isClosed {
		a.mutex.Unlock()
		return
	}
	a.isClosed = true
	close(a.closeSig)
	running := a.running
	a.mutex.Unlock()

	if !running {
		a.onClose()
	}
}

// Done Run退出后可读
func (a *RoutineAgent) Done() <-chan struct{} {
	return a.done
}

// SyncRunFunc 在触发协程上执行f并等待完成, 不能在触发协程内调用
func (a *RoutineAgent) SyncRunFunc(f func()) (err error) {
	a.mutex.RLock()
	if a.isClosed {
		a.mutex.RUnlock()
		return ErrRoutineClosed
	}

	errCh := a.Go.SubmitWithResult(f)
	a.mutex.RUnlock()
	return <-errCh
}

func (a *RoutineAgent) CtxRunFunc(ctx context.Context, f func()) (err error) {
	a.mutex.RLock()
	if a.isClosed {
		a.mutex.RUnlock()
		return ErrRoutineClosed
	}

	errCh := a.Go.SubmitWithResult(f)
	a.mutex.RUnlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (a *RoutineAgent) TryRunFunc(f func()) error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	if a.isClosed {
		return ErrRoutineClosed
	}

	if !a.Go.TrySubmit(f) {
		return ErrGoChanFull
	}
	return nil
}
