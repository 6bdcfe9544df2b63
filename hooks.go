package main

import (
	"github.com/fixkme/timerex/mlog"
	"github.com/fixkme/timerex/timer"
)

// hookFunc 管理接口可注册的内置回调
type hookFunc func(owner timer.Owner, userData int32) timer.Verdict

// hookTable 按名字查回调, 同时负责释放资源句柄
type hookTable struct {
	hooks map[string]hookFunc
}

func newHookTable() *hookTable {
	return &hookTable{hooks: map[string]hookFunc{
		"log": func(owner timer.Owner, userData int32) timer.Verdict {
			mlog.Infof("timer fired, owner:%s user_data:%d", owner, userData)
			return timer.Continue
		},
		"once": func(owner timer.Owner, userData int32) timer.Verdict {
			mlog.Infof("timer fired once, owner:%s user_data:%d", owner, userData)
			return timer.Stop
		},
	}}
}

func (t *hookTable) Resolve(name string) (timer.Hook, bool) {
	if _, ok := t.hooks[name]; !ok {
		return nil, false
	}
	return name, true
}

func (t *hookTable) Invoke(hook timer.Hook, owner timer.Owner, userData int32) (timer.Verdict, error) {
	name, _ := hook.(string)
	f, ok := t.hooks[name]
	if !ok {
		return timer.Stop, timer.ErrNotRunnable
	}
	return f(owner, userData), nil
}

func (t *hookTable) Release(owner timer.Owner, userData int32) error {
	mlog.Infof("release handle, owner:%s handle:%d", owner, userData)
	return nil
}
