package timer

import "sync/atomic"

// Scheduler 每个tick决定是否需要扫描Store.
// Store没有变化且缓存的最早deadline未到时跳过扫描, 结果与每tick全扫一致.
// Collect只能在一个触发上下文中调用, 统计可以并发读.
type Scheduler struct {
	store        *Store
	scanned      bool
	version      uint64
	nextDeadline atomic.Int64
	scans        atomic.Uint64
	skips        atomic.Uint64
}

func NewScheduler(store *Store) *Scheduler {
	s := &Scheduler{store: store}
	s.nextDeadline.Store(NoDeadline)
	return s
}

// Collect 返回now时刻到期的定时器
func (s *Scheduler) Collect(now int64) []Record {
	if s.scanned && now < s.nextDeadline.Load() && s.store.Version() == s.version {
		s.skips.Add(1)
		return nil
	}
	due, next, version := s.store.collectDue(now)
	s.scans.Add(1)
	s.scanned = true
	s.nextDeadline.Store(next)
	s.version = version
	return due
}

// NextDeadline 上次扫描后缓存的最早deadline, 没有时为NoDeadline
func (s *Scheduler) NextDeadline() int64 {
	return s.nextDeadline.Load()
}

func (s *Scheduler) Stats() (scans, skips uint64) {
	return s.scans.Load(), s.skips.Load()
}
