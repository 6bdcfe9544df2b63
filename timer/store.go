package timer

import (
	"math"
	"slices"
	"sync"

	"go.uber.org/multierr"

	"github.com/fixkme/timerex/errs"
	"github.com/fixkme/timerex/lock"
	"github.com/fixkme/timerex/mlog"
)

// Store 持有全部存活的定时器, channel索引是它的派生视图.
// 所有修改都在同一把锁内完成, 锁内只做簿记, 不调用回调和资源释放.
type Store struct {
	mu       sync.Locker
	genId    int64
	maxId    int64
	maxLive  int
	records  map[int64]*Record
	index    *ChannelIndex
	version  uint64 // 每次影响触发判断的修改都加一
	releaser Releaser
	closed   bool
}

type StoreOption func(*Store)

// WithLocker 替换默认的sync.Mutex
func WithLocker(l sync.Locker) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.mu = l
		}
	}
}

// WithMaxLive 存活定时器上限, <=0不限制
func WithMaxLive(n int) StoreOption {
	return func(s *Store) {
		s.maxLive = n
	}
}

// WithReleaser 结束带FlagReleaseOnFinish的定时器时调用
func WithReleaser(r Releaser) StoreOption {
	return func(s *Store) {
		s.releaser = r
	}
}

// withMaxId 限制id分配器, 测试用
func withMaxId(n int64) StoreOption {
	return func(s *Store) {
		s.maxId = n
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		mu:      lock.New(lock.KindMutex),
		maxId:   math.MaxInt64,
		records: make(map[int64]*Record, 1024),
		index:   newChannelIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(hook Hook, owner Owner, intervalMs uint32, userData int32, flags Flags, channel int32, now int64) (int64, error) {
	if nilHook(hook) {
		return 0, errs.InvalidHook.Printf("owner:%s", owner)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errs.Closed
	}
	if s.genId >= s.maxId {
		return 0, errs.Exhausted.Printf("id allocator exhausted at %d", s.genId)
	}
	if s.maxLive > 0 && len(s.records) >= s.maxLive {
		return 0, errs.Exhausted.Printf("live timers reach %d", s.maxLive)
	}
	s.genId++
	r := &Record{
		Id:       s.genId,
		Hook:     hook,
		Owner:    owner,
		UserData: userData,
		Flags:    flags,
		Channel:  channel,
		Interval: int64(intervalMs),
	}
	r.arm(now)
	s.attach(r)
	return r.Id, nil
}

// CollectDue 取出所有到期且未暂停的定时器, 按(deadline, id)排序.
// 取出的定时器仍然存活, 之后必须由ReArm或Finalize处理.
// next是剩余可触发定时器中最早的deadline.
func (s *Store) CollectDue(now int64) (due []Record, next int64) {
	due, next, _ = s.collectDue(now)
	return
}

func (s *Store) collectDue(now int64) (due []Record, next int64, version uint64) {
	next = NoDeadline
	s.mu.Lock()
	for _, r := range s.records {
		if r.due(now) {
			r.Dispatching = true
			due = append(due, *r)
			continue
		}
		if !r.Paused && !r.Dispatching && r.Deadline < next {
			next = r.Deadline
		}
	}
	if len(due) > 0 {
		s.version++
	}
	version = s.version
	s.mu.Unlock()
	slices.SortFunc(due, lessRecord)
	return
}

// ReArm 重新计时一个正在执行的定时器, 它已被并发删除时返回NotFound
func (s *Store) ReArm(id int64, now int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || !r.Dispatching {
		return errs.NotFound.Printf("rearm id:%d", id)
	}
	r.arm(now)
	s.version++
	return nil
}

// Finalize 销毁定时器并按标记释放资源, 资源只在这里或批量删除后释放一次
func (s *Store) Finalize(id int64) error {
	s.mu.Lock()
	r, ok := s.records[id]
	if ok {
		s.detach(r)
	}
	s.mu.Unlock()
	if !ok {
		return errs.NotFound.Printf("finalize id:%d", id)
	}
	return s.release(*r)
}

// Remove 按id删除, 不释放资源
func (s *Store) Remove(id int64) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	s.detach(r)
	return *r, true
}

func (s *Store) Get(id int64) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// PauseMany 未知id跳过, 返回实际改变的个数
func (s *Store) PauseMany(ids []int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPaused(ids, true)
}

func (s *Store) ResumeMany(ids []int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPaused(ids, false)
}

func (s *Store) PauseChannel(ch int32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPaused(s.index.ids(ch), true)
}

func (s *Store) ResumeChannel(ch int32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setPaused(s.index.ids(ch), false)
}

func (s *Store) PauseAll() int {
	return s.setPausedAll(true)
}

func (s *Store) ResumeAll() int {
	return s.setPausedAll(false)
}

func (s *Store) setPausedAll(paused bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.Paused != paused {
			r.Paused = paused
			n++
		}
	}
	if n > 0 {
		s.version++
	}
	return n
}

// 调用方持锁
func (s *Store) setPaused(ids []int64, paused bool) int {
	n := 0
	for _, id := range ids {
		r, ok := s.records[id]
		if !ok || r.Paused == paused {
			continue
		}
		r.Paused = paused
		n++
	}
	if n > 0 {
		s.version++
	}
	return n
}

// RemoveChannel 摘除channel内全部定时器, 资源由调用方释放
func (s *Store) RemoveChannel(ch int32) []Record {
	s.mu.Lock()
	ids := s.index.ids(ch)
	removed := make([]Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			s.detach(r)
			removed = append(removed, *r)
		}
	}
	s.mu.Unlock()
	slices.SortFunc(removed, lessRecord)
	return removed
}

// ClearAll 摘除全部定时器, 资源由调用方释放
func (s *Store) ClearAll() []Record {
	s.mu.Lock()
	removed := s.clearLocked()
	s.mu.Unlock()
	slices.SortFunc(removed, lessRecord)
	return removed
}

// Close 清空并拒绝之后的Create, 与清空在同一临界区内生效
func (s *Store) Close() []Record {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	removed := s.clearLocked()
	s.mu.Unlock()
	slices.SortFunc(removed, lessRecord)
	return removed
}

// 调用方持锁
func (s *Store) clearLocked() []Record {
	removed := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		removed = append(removed, *r)
	}
	s.records = make(map[int64]*Record, 1024)
	s.index.clear()
	s.version++
	return removed
}

// RemoveWhere 原子地摘除所有满足pred的定时器, pred在锁内执行, 不能回调Store
func (s *Store) RemoveWhere(pred func(r *Record) bool) []Record {
	var removed []Record
	s.mu.Lock()
	for _, r := range s.records {
		if pred(r) {
			s.detach(r)
			removed = append(removed, *r)
		}
	}
	s.mu.Unlock()
	slices.SortFunc(removed, lessRecord)
	return removed
}

// Snapshot 全部存活定时器的拷贝
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	all := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		all = append(all, *r)
	}
	s.mu.Unlock()
	slices.SortFunc(all, lessRecord)
	return all
}

// ChannelIds channel索引里的id, 升序
func (s *Store) ChannelIds(ch int32) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.ids(ch)
}

func (s *Store) Channels() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.channels()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Counts 存活/暂停/执行中的数量
func (s *Store) Counts() (live, paused, dispatching int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Paused {
			paused++
		}
		if r.Dispatching {
			dispatching++
		}
	}
	return len(s.records), paused, dispatching
}

func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// ReleaseAll 释放被摘除定时器的资源, 单个失败不影响后续
func (s *Store) ReleaseAll(records []Record) (released int, err error) {
	for _, r := range records {
		if !r.Flags.Has(FlagReleaseOnFinish) || s.releaser == nil {
			continue
		}
		if e := s.release(r); e != nil {
			err = multierr.Append(err, e)
			continue
		}
		released++
	}
	return
}

func (s *Store) release(r Record) error {
	if !r.Flags.Has(FlagReleaseOnFinish) || s.releaser == nil {
		return nil
	}
	if err := s.releaser.Release(r.Owner, r.UserData); err != nil {
		mlog.Errorf("invalid data handle %x passed during timer %d end: %v", r.UserData, r.Id, err)
		return errs.ReleaseFailed.Printf("timer:%d handle:%x", r.Id, r.UserData).Wrap(err)
	}
	return nil
}

// 调用方持锁
func (s *Store) attach(r *Record) {
	s.records[r.Id] = r
	s.index.add(r.Channel, r.Id)
	s.version++
}

// 调用方持锁
func (s *Store) detach(r *Record) {
	delete(s.records, r.Id)
	s.index.remove(r.Channel, r.Id)
	s.version++
}
