package timer

import (
	"fmt"
	"math"
	"reflect"
)

// Flags 定时器标记位, 未定义的位原样保留
type Flags int32

const (
	FlagRepeat          Flags = 1 << 0 // 回调返回Continue时重新计时
	FlagNoCarryOver     Flags = 1 << 1 // 环境重置(换图)时删除
	FlagReleaseOnFinish Flags = 1 << 9 // 结束时把UserData当作资源句柄释放
)

func (f Flags) Has(x Flags) bool {
	return f&x == x
}

func (f Flags) String() string {
	return fmt.Sprintf("0x%x", int32(f))
}

// Hook 回调引用, 由Dispatcher解释, 定时器本身从不解引用
type Hook any

// nilHook 包括装进接口的nil指针、函数、map等
func nilHook(hook Hook) bool {
	if hook == nil {
		return true
	}
	v := reflect.ValueOf(hook)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}

// Owner 注册者身份, 生命周期清理按它匹配
type Owner string

// NoDeadline 没有待触发定时器时的下次触发时间
const NoDeadline int64 = math.MaxInt64

// Record 一个定时器. 对外总是返回拷贝
type Record struct {
	Id          int64
	Hook        Hook
	Owner       Owner
	UserData    int32
	Flags       Flags
	Channel     int32 // 0表示不分组
	Interval    int64 // 毫秒, 创建后不变
	Deadline    int64 // 毫秒时间戳
	Paused      bool
	Dispatching bool // 已被取出, 正在执行回调
}

func (r *Record) due(now int64) bool {
	return !r.Paused && !r.Dispatching && r.Deadline <= now
}

func (r *Record) arm(now int64) {
	r.Deadline = addDeadline(now, r.Interval)
	r.Paused = false
	r.Dispatching = false
}

func (r Record) String() string {
	return fmt.Sprintf("timer{id:%d owner:%s ch:%d flags:%s interval:%d deadline:%d paused:%v}",
		r.Id, r.Owner, r.Channel, r.Flags, r.Interval, r.Deadline, r.Paused)
}

// addDeadline now+interval, 溢出时截断到NoDeadline-1
func addDeadline(now, interval int64) int64 {
	if interval > 0 && now > NoDeadline-1-interval {
		return NoDeadline - 1
	}
	return now + interval
}

func lessRecord(a, b Record) int {
	if a.Deadline != b.Deadline {
		if a.Deadline < b.Deadline {
			return -1
		}
		return 1
	}
	if a.Id < b.Id {
		return -1
	}
	if a.Id > b.Id {
		return 1
	}
	return 0
}
