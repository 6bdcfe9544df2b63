package clock

import (
	"sync/atomic"
	"time"
)

const (
	SecMs  = 1000
	MinMs  = 60 * SecMs
	HourMs = 60 * MinMs
	DayMs  = 24 * HourMs
)

// Clock 毫秒时间源, 定时器的deadline都基于它
type Clock interface {
	NowMs() int64
}

// System 系统时钟, 支持时间偏移(调时间用)
type System struct {
	offset atomic.Int64 // ms
}

func NewSystem(offset time.Duration) *System {
	c := &System{}
	c.SetOffset(offset)
	return c
}

// SetOffset 设置时间偏移量
func (c *System) SetOffset(offset time.Duration) {
	c.offset.Store(offset.Milliseconds())
}

// Offset 获取时间偏移量
func (c *System) Offset() time.Duration {
	return time.Duration(c.offset.Load()) * time.Millisecond
}

func (c *System) NowMs() int64 {
	return time.Now().UnixMilli() + c.offset.Load()
}

// Manual 手动推进的时钟, 用于测试和宿主自己驱动帧时间
type Manual struct {
	now atomic.Int64
}

func NewManual(startMs int64) *Manual {
	c := &Manual{}
	c.now.Store(startMs)
	return c
}

func (c *Manual) NowMs() int64 {
	return c.now.Load()
}

func (c *Manual) Set(ms int64) {
	c.now.Store(ms)
}

// Advance 推进ms毫秒, 返回推进后的时间
func (c *Manual) Advance(ms int64) int64 {
	return c.now.Add(ms)
}

// Ms2Time ms时间戳转化为时间
func Ms2Time(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// SecondsToMs 浮点秒转毫秒, 负数按0处理
func SecondsToMs(sec float64) uint32 {
	if sec <= 0 {
		return 0
	}
	ms := sec * SecMs
	if ms >= float64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(ms)
}
