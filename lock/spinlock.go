package lock

import (
	"runtime"
	"sync"
	"sync/atomic"
)

const (
	KindMutex = "mutex"
	KindSpin  = "spin"
)

// New 按名字创建锁, 未知名字退回到sync.Mutex
func New(kind string) sync.Locker {
	switch kind {
	case KindSpin:
		return new(spinLock)
	default:
		return new(sync.Mutex)
	}
}

// spinLock 临界区很短时(只做id簿记)比Mutex少一次休眠唤醒
type spinLock struct {
	state atomic.Uint32
}

const maxBackoff = 16

func (sl *spinLock) Lock() {
	backoff := 1
	for !sl.state.CompareAndSwap(0, 1) {
		// 指数退避
		for i := 0; i < backoff; i++ {
			runtime.Gosched()
		}
		if backoff < maxBackoff {
			backoff <<= 1
		}
	}
}

func (sl *spinLock) TryLock() bool {
	return sl.state.CompareAndSwap(0, 1)
}

func (sl *spinLock) Unlock() {
	if !sl.state.CompareAndSwap(1, 0) {
		panic("lock: unlock of unlocked spinLock")
	}
}
