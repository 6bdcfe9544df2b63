package timer

import (
	"fmt"

	"github.com/fixkme/timerex/errs"
)

// Verdict 回调执行结果
type Verdict int32

const (
	Continue Verdict = iota
	Stop
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	}
	return fmt.Sprintf("verdict(%d)", int32(v))
}

// Dispatcher 由宿主实现, 负责真正调用回调.
// 返回error表示hook已不可执行, 定时器会被结束.
type Dispatcher interface {
	Invoke(hook Hook, owner Owner, userData int32) (Verdict, error)
}

type DispatcherFunc func(hook Hook, owner Owner, userData int32) (Verdict, error)

func (f DispatcherFunc) Invoke(hook Hook, owner Owner, userData int32) (Verdict, error) {
	return f(hook, owner, userData)
}

// Releaser 释放owner持有的资源句柄
type Releaser interface {
	Release(owner Owner, userData int32) error
}

type ReleaserFunc func(owner Owner, userData int32) error

func (f ReleaserFunc) Release(owner Owner, userData int32) error {
	return f(owner, userData)
}

// ErrNotRunnable Dispatcher找不到可执行的hook时返回
var ErrNotRunnable = errs.DispatchFailed.Print("hook not runnable")

// invoke 回调panic视为不可执行
func invoke(d Dispatcher, r *Record) (v Verdict, err error) {
	defer func() {
		if p := recover(); p != nil {
			v = Stop
			err = errs.DispatchFailed.Printf("timer:%d panic:%v", r.Id, p)
		}
	}()
	return d.Invoke(r.Hook, r.Owner, r.UserData)
}

// shouldRepeat 只有Continue且带FlagRepeat才重新计时
func shouldRepeat(r *Record, v Verdict, err error) bool {
	return err == nil && v == Continue && r.Flags.Has(FlagRepeat)
}
