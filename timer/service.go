package timer

import (
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/fixkme/timerex/clock"
	"github.com/fixkme/timerex/errs"
	"github.com/fixkme/timerex/mlog"
)

type Options struct {
	Clock      clock.Clock
	Dispatcher Dispatcher
	Releaser   Releaser
	Locker     sync.Locker
	MaxLive    int
	// PoolSize >0时到期定时器的回调在ants协程池中并发执行, tick等待全部完成
	PoolSize int
}

type Stats struct {
	Live          int    `json:"live"`
	Paused        int    `json:"paused"`
	Dispatching   int    `json:"dispatching"`
	Fired         uint64 `json:"fired"`
	ReArmed       uint64 `json:"rearmed"`
	Finalized     uint64 `json:"finalized"`
	Released      uint64 `json:"released"`
	ReleaseFailed uint64 `json:"release_failed"`
	LostRaces     uint64 `json:"lost_races"`
	Scans         uint64 `json:"scans"`
	Skips         uint64 `json:"skips"`
	NextDeadline  int64  `json:"next_deadline"`
}

// Service 对外的定时器接口: 注册, 管理操作, tick驱动和生命周期清理.
// 管理操作可以在任意协程调用; Tick同一时刻只有一个在执行.
type Service struct {
	clock      clock.Clock
	store      *Store
	sched      *Scheduler
	sweeper    *Sweeper
	dispatcher Dispatcher
	pool       *ants.Pool

	tickMu sync.Mutex
	closed atomic.Bool

	fired         atomic.Uint64
	reArmed       atomic.Uint64
	finalized     atomic.Uint64
	released      atomic.Uint64
	releaseFailed atomic.Uint64
	lostRaces     atomic.Uint64
}

func NewService(opt Options) (*Service, error) {
	if opt.Dispatcher == nil {
		return nil, errs.InvalidHook.Print("dispatcher is nil")
	}
	if opt.Clock == nil {
		opt.Clock = clock.NewSystem(0)
	}
	s := &Service{
		clock:      opt.Clock,
		dispatcher: opt.Dispatcher,
	}
	storeOpts := []StoreOption{
		WithLocker(opt.Locker),
		WithMaxLive(opt.MaxLive),
		WithReleaser(s.countingReleaser(opt.Releaser)),
	}
	s.store = NewStore(storeOpts...)
	s.sched = NewScheduler(s.store)
	s.sweeper = NewSweeper(s.store)
	if opt.PoolSize > 0 {
		pool, err := ants.NewPool(opt.PoolSize, ants.WithPanicHandler(func(p any) {
			mlog.Errorf("timer dispatch pool panic: %v", p)
		}))
		if err != nil {
			return nil, err
		}
		s.pool = pool
	}
	return s, nil
}

func (s *Service) countingReleaser(r Releaser) Releaser {
	if r == nil {
		return nil
	}
	return ReleaserFunc(func(owner Owner, userData int32) error {
		if err := r.Release(owner, userData); err != nil {
			s.releaseFailed.Add(1)
			return err
		}
		s.released.Add(1)
		return nil
	})
}

// Create 注册定时器, 返回id
func (s *Service) Create(hook Hook, owner Owner, intervalMs uint32, userData int32, flags Flags, channel int32) (int64, error) {
	if s.closed.Load() {
		return 0, errs.Closed
	}
	id, err := s.store.Create(hook, owner, intervalMs, userData, flags, channel, s.clock.NowMs())
	if err != nil {
		mlog.Warnf("create timer failed, owner:%s channel:%d err:%v", owner, channel, err)
		return 0, err
	}
	mlog.Debugf("create timer id:%d owner:%s interval:%d flags:%s channel:%d", id, owner, intervalMs, flags, channel)
	return id, nil
}

// Remove 取消单个定时器, 按标记释放资源. 不存在时返回false
func (s *Service) Remove(id int64) bool {
	r, ok := s.store.Remove(id)
	if !ok {
		return false
	}
	s.releaseRemoved("remove", []Record{r})
	return true
}

func (s *Service) Get(id int64) (Record, bool) {
	return s.store.Get(id)
}

func (s *Service) Pause(ids ...int64) int {
	return s.store.PauseMany(ids)
}

func (s *Service) Resume(ids ...int64) int {
	return s.store.ResumeMany(ids)
}

func (s *Service) PauseChannel(ch int32) int {
	return s.store.PauseChannel(ch)
}

func (s *Service) ResumeChannel(ch int32) int {
	return s.store.ResumeChannel(ch)
}

func (s *Service) PauseAll() int {
	return s.store.PauseAll()
}

func (s *Service) ResumeAll() int {
	return s.store.ResumeAll()
}

// RemoveChannel 删除channel内全部定时器并释放资源
func (s *Service) RemoveChannel(ch int32) []Record {
	removed := s.store.RemoveChannel(ch)
	s.releaseRemoved("remove channel", removed)
	return removed
}

// ClearAll 删除全部定时器并释放资源
func (s *Service) ClearAll() []Record {
	removed := s.store.ClearAll()
	s.releaseRemoved("clear", removed)
	return removed
}

// OnEnvironmentReset 环境重置(换图)时调用
func (s *Service) OnEnvironmentReset() []Record {
	removed := s.sweeper.EnvironmentReset()
	s.releaseRemoved("environment reset", removed)
	return removed
}

// OnOwnerUnload owner加载/卸载时调用, 可重复调用
func (s *Service) OnOwnerUnload(owner Owner) []Record {
	removed := s.sweeper.OwnerUnload(owner)
	s.releaseRemoved("owner unload "+string(owner), removed)
	return removed
}

func (s *Service) releaseRemoved(op string, removed []Record) {
	if len(removed) == 0 {
		return
	}
	s.finalized.Add(uint64(len(removed)))
	released, err := s.store.ReleaseAll(removed)
	if err != nil {
		mlog.Errorf("%s: %d timers removed, %d released, release errors: %v", op, len(removed), released, err)
		return
	}
	mlog.Debugf("%s: %d timers removed, %d released", op, len(removed), released)
}

// TickNow 以当前时钟驱动一次
func (s *Service) TickNow() int {
	return s.Tick(s.clock.NowMs())
}

// Tick 触发now时刻到期的定时器, 返回触发个数.
// 回调在锁外执行, 执行期间的注册和管理操作不会被阻塞.
func (s *Service) Tick(now int64) int {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	due := s.sched.Collect(now)
	if len(due) == 0 {
		return 0
	}
	s.fired.Add(uint64(len(due)))
	if s.pool == nil {
		for i := range due {
			s.fire(&due[i], now)
		}
		return len(due)
	}

	wg := sync.WaitGroup{}
	for i := range due {
		r := &due[i]
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			s.fire(r, now)
		})
		if err != nil {
			wg.Done()
			mlog.Warnf("timer dispatch pool submit failed, fire inline: %v", err)
			s.fire(r, now)
		}
	}
	wg.Wait()
	return len(due)
}

// fire 执行回调, 再根据结果重新计时或结束
func (s *Service) fire(r *Record, now int64) {
	v, err := invoke(s.dispatcher, r)
	if err != nil {
		mlog.Warnf("timer %d dispatch failed, finalize: %v", r.Id, err)
	}
	if shouldRepeat(r, v, err) {
		if e := s.store.ReArm(r.Id, now); e != nil {
			s.lostRaces.Add(1)
			mlog.Debugf("timer %d removed while dispatching: %v", r.Id, e)
			return
		}
		s.reArmed.Add(1)
		return
	}
	if e := s.store.Finalize(r.Id); e != nil {
		if errs.CodeOf(e) == errs.ErrCode_NotFound {
			s.lostRaces.Add(1)
			mlog.Debugf("timer %d removed while dispatching: %v", r.Id, e)
			return
		}
	}
	s.finalized.Add(1)
}

func (s *Service) Snapshot() []Record {
	return s.store.Snapshot()
}

func (s *Service) ChannelIds(ch int32) []int64 {
	return s.store.ChannelIds(ch)
}

func (s *Service) Len() int {
	return s.store.Len()
}

func (s *Service) Stats() Stats {
	live, paused, dispatching := s.store.Counts()
	scans, skips := s.sched.Stats()
	return Stats{
		Live:          live,
		Paused:        paused,
		Dispatching:   dispatching,
		Fired:         s.fired.Load(),
		ReArmed:       s.reArmed.Load(),
		Finalized:     s.finalized.Load(),
		Released:      s.released.Load(),
		ReleaseFailed: s.releaseFailed.Load(),
		LostRaces:     s.lostRaces.Load(),
		Scans:         scans,
		Skips:         skips,
		NextDeadline:  s.sched.NextDeadline(),
	}
}

// Close 宿主关闭: 拒绝新注册, 清空并释放全部定时器
func (s *Service) Close() []Record {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	removed := s.store.Close()
	s.releaseRemoved("close", removed)
	if s.pool != nil {
		s.pool.Release()
	}
	mlog.Infof("timer service closed, %d timers cleared", len(removed))
	return removed
}

func (s *Service) Closed() bool {
	return s.closed.Load()
}
