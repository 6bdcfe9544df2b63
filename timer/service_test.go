package timer

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/fixkme/timerex/clock"
	"github.com/fixkme/timerex/errs"
)

type ServiceTestSuite struct {
	suite.Suite
	clock *clock.Manual
	rec   *recorder
	svc   *Service
}

func (s *ServiceTestSuite) SetupTest() {
	s.clock = clock.NewManual(0)
	s.rec = newRecorder(Continue)
	svc, err := NewService(Options{
		Clock:      s.clock,
		Dispatcher: s.rec,
		Releaser:   s.rec,
	})
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ServiceTestSuite) TearDownTest() {
	s.svc.Close()
}

// 重复定时器触发后按tick时间重新计时, 删除channel后不再触发
func (s *ServiceTestSuite) TestRepeatThenRemoveChannel() {
	a, err := s.svc.Create("A", "P", 1000, 0, FlagRepeat, 5)
	s.Require().NoError(err)

	s.Equal(0, s.svc.Tick(999))
	s.Equal(1, s.svc.Tick(1001))
	s.Equal(1, s.rec.callCount())

	r, ok := s.svc.Get(a)
	s.Require().True(ok)
	s.EqualValues(2001, r.Deadline)

	s.clock.Set(1500)
	removed := s.svc.RemoveChannel(5)
	s.Equal([]int64{a}, ids(removed))

	s.Equal(0, s.svc.Tick(2001))
	s.Equal(1, s.rec.callCount())
}

// Stop后资源只释放一次, 之后不再触发
func (s *ServiceTestSuite) TestStopReleasesOnce() {
	s.rec.verdict = func(call) (Verdict, error) { return Stop, nil }
	b, err := s.svc.Create("B", "P", 100, 42, FlagReleaseOnFinish, 0)
	s.Require().NoError(err)

	s.Equal(1, s.svc.Tick(100))
	s.Equal(1, s.rec.releasedCount(42))

	s.Equal(0, s.svc.Tick(10000))
	s.Equal(1, s.rec.callCount())
	s.NotContains(ids(s.svc.ClearAll()), b)
	s.Equal(1, s.rec.releasedCount(42))
}

// 环境重置只删除NoCarryOver
func (s *ServiceTestSuite) TestEnvironmentResetKeepsOthers() {
	c, _ := s.svc.Create("C", "P", 100, 0, FlagNoCarryOver, 0)
	d, _ := s.svc.Create("D", "P", 100, 0, 0, 0)

	s.Equal([]int64{c}, ids(s.svc.OnEnvironmentReset()))
	s.Equal(1, s.svc.Tick(100))
	s.Equal([]Hook{"D"}, s.rec.hooks())
	_, ok := s.svc.Get(d)
	s.False(ok, "one-shot finalized after firing")
}

func (s *ServiceTestSuite) TestRepeatReleasesOnlyAtEnd() {
	var fires atomic.Int32
	s.rec.verdict = func(call) (Verdict, error) {
		if fires.Add(1) < 4 {
			return Continue, nil
		}
		return Stop, nil
	}
	_, err := s.svc.Create("R", "P", 10, 7, FlagRepeat|FlagReleaseOnFinish, 0)
	s.Require().NoError(err)

	for now := int64(10); now <= 100; now += 10 {
		s.svc.Tick(now)
	}
	s.EqualValues(4, fires.Load())
	s.Equal(1, s.rec.releasedCount(7))
	st := s.svc.Stats()
	s.EqualValues(3, st.ReArmed)
	s.EqualValues(1, st.Finalized)
	s.EqualValues(1, st.Released)
	s.Equal(0, st.Live)
}

func (s *ServiceTestSuite) TestContinueWithoutRepeatFinalizes() {
	_, _ = s.svc.Create("once", "P", 10, 3, FlagReleaseOnFinish, 0)
	s.Equal(1, s.svc.Tick(10))
	s.Equal(0, s.svc.Len())
	s.Equal(1, s.rec.releasedCount(3))
}

func (s *ServiceTestSuite) TestNotRunnableFinalizes() {
	s.rec.verdict = func(call) (Verdict, error) { return Continue, ErrNotRunnable }
	_, _ = s.svc.Create("gone", "P", 10, 5, FlagRepeat|FlagReleaseOnFinish, 0)
	s.Equal(1, s.svc.Tick(10))
	s.Equal(0, s.svc.Len())
	s.Equal(1, s.rec.releasedCount(5))
}

func (s *ServiceTestSuite) TestPanicFinalizes() {
	s.rec.verdict = func(call) (Verdict, error) { panic("boom") }
	_, _ = s.svc.Create("bad", "P", 10, 0, FlagRepeat, 0)
	_, _ = s.svc.Create("bad2", "P", 10, 0, FlagRepeat, 0)
	s.Equal(2, s.svc.Tick(10))
	s.Equal(0, s.svc.Len())
}

func (s *ServiceTestSuite) TestRemovedWhileDispatching() {
	s.rec.verdict = func(c call) (Verdict, error) {
		// 回调内删除自己所在的channel
		s.svc.RemoveChannel(4)
		return Continue, nil
	}
	id, _ := s.svc.Create("self", "P", 10, 11, FlagRepeat|FlagReleaseOnFinish, 4)

	s.Equal(1, s.svc.Tick(10))
	_, ok := s.svc.Get(id)
	s.False(ok)
	s.Equal(1, s.rec.releasedCount(11))
	s.EqualValues(1, s.svc.Stats().LostRaces)
	s.Equal(0, s.svc.Tick(20))
}

func (s *ServiceTestSuite) TestPauseResume() {
	a, _ := s.svc.Create("a", "P", 100, 0, FlagRepeat, 1)
	b, _ := s.svc.Create("b", "P", 100, 0, FlagRepeat, 2)

	s.Equal(2, s.svc.Pause(a, b, 999))
	s.Equal(0, s.svc.Tick(500))
	s.Equal(1, s.svc.ResumeChannel(1))
	s.Equal(1, s.svc.Tick(501))
	s.Equal([]Hook{"a"}, s.rec.hooks())

	s.Equal(1, s.svc.ResumeAll())
	s.Equal(1, s.svc.Tick(502))
	s.Equal(2, s.svc.PauseAll())
	s.Equal(0, s.svc.Tick(10000))
	s.Equal(2, s.svc.Stats().Paused)
}

func (s *ServiceTestSuite) TestRemove() {
	id, _ := s.svc.Create("x", "P", 100, 8, FlagReleaseOnFinish, 0)
	s.True(s.svc.Remove(id))
	s.False(s.svc.Remove(id))
	s.Equal(1, s.rec.releasedCount(8))
}

func (s *ServiceTestSuite) TestOwnerUnload() {
	a, _ := s.svc.Create("a", "A", 100, 1, FlagReleaseOnFinish, 6)
	b, _ := s.svc.Create("b", "B", 100, 2, FlagReleaseOnFinish, 6)

	s.Equal([]int64{a}, ids(s.svc.OnOwnerUnload("A")))
	s.Empty(s.svc.OnOwnerUnload("A"))
	s.Equal([]int64{b}, s.svc.ChannelIds(6))
	s.Equal(1, s.rec.releasedCount(1))
	s.Equal(0, s.rec.releasedCount(2))
}

func (s *ServiceTestSuite) TestReleaseFailureDoesNotAbortSweep() {
	s.rec.failOn[1] = errors.New("invalid handle")
	for i := int32(1); i <= 3; i++ {
		_, _ = s.svc.Create("h", "P", 100, i, FlagReleaseOnFinish|FlagNoCarryOver, 0)
	}
	s.Len(s.svc.OnEnvironmentReset(), 3)
	s.Equal(1, s.rec.releasedCount(2))
	s.Equal(1, s.rec.releasedCount(3))
	st := s.svc.Stats()
	s.EqualValues(1, st.ReleaseFailed)
	s.EqualValues(2, st.Released)
}

func (s *ServiceTestSuite) TestCreateErrors() {
	_, err := s.svc.Create(nil, "P", 10, 0, 0, 0)
	s.True(errors.Is(err, errs.InvalidHook))

	s.svc.Close()
	_, err = s.svc.Create("h", "P", 10, 0, 0, 0)
	s.True(errors.Is(err, errs.Closed))
	s.Nil(s.svc.Close())
}

func (s *ServiceTestSuite) TestCloseReleases() {
	_, _ = s.svc.Create("h", "P", 100, 77, FlagReleaseOnFinish, 0)
	s.Len(s.svc.Close(), 1)
	s.True(s.svc.Closed())
	s.Equal(1, s.rec.releasedCount(77))
}

func (s *ServiceTestSuite) TestTickNowUsesClock() {
	_, _ = s.svc.Create("h", "P", 100, 0, 0, 0)
	s.Equal(0, s.svc.TickNow())
	s.clock.Advance(100)
	s.Equal(1, s.svc.TickNow())
}

func TestService(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func TestNewServiceRequiresDispatcher(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)
}

func TestServicePoolDispatch(t *testing.T) {
	rec := newRecorder(Continue)
	c := clock.NewManual(0)
	svc, err := NewService(Options{Clock: c, Dispatcher: rec, Releaser: rec, PoolSize: 4})
	require.NoError(t, err)
	defer svc.Close()

	for i := int32(0); i < 50; i++ {
		flags := FlagReleaseOnFinish
		if i%2 == 0 {
			flags |= FlagRepeat
		}
		_, err := svc.Create("h", "P", 10, i, flags, i%3)
		require.NoError(t, err)
	}
	assert.Equal(t, 50, svc.Tick(10))
	assert.Equal(t, 50, rec.callCount())
	assert.Equal(t, 25, svc.Len())
	for i := int32(0); i < 50; i++ {
		want := 0
		if i%2 == 1 {
			want = 1
		}
		assert.Equal(t, want, rec.releasedCount(i), "user data %d", i)
	}
	assert.Equal(t, 25, svc.Tick(20))
}

// 生产者和触发协程并发, 资源释放次数始终等于结束的定时器数
func TestServiceConcurrentProducers(t *testing.T) {
	rec := newRecorder(Stop)
	c := clock.NewManual(0)
	svc, err := NewService(Options{Clock: c, Dispatcher: rec, Releaser: rec})
	require.NoError(t, err)

	const producers = 4
	const perProducer = 200
	stop := make(chan struct{})
	ticked := make(chan struct{})
	go func() {
		defer close(ticked)
		for {
			select {
			case <-stop:
				return
			default:
				svc.Tick(c.Advance(5))
			}
		}
	}()

	wg := sync.WaitGroup{}
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			owner := Owner([]string{"a", "b", "c", "d"}[p])
			for i := 0; i < perProducer; i++ {
				_, err := svc.Create("h", owner, uint32(i%20), int32(p*perProducer+i), FlagReleaseOnFinish|FlagRepeat, int32(i%4))
				assert.NoError(t, err)
				switch i % 50 {
				case 10:
					svc.PauseChannel(int32(p))
				case 20:
					svc.ResumeAll()
				case 30:
					svc.RemoveChannel(int32(p))
				case 40:
					svc.OnOwnerUnload(owner)
				}
			}
		}(p)
	}
	wg.Wait()
	close(stop)
	<-ticked
	svc.Close()

	for v := int32(0); v < producers*perProducer; v++ {
		require.Equal(t, 1, rec.releasedCount(v), "user data %d", v)
	}
	assert.Equal(t, 0, svc.Len())
}

// gateLocker 第一次Lock前停住, 直到gate打开
type gateLocker struct {
	sync.Mutex
	armed  atomic.Bool
	parked chan struct{}
	gate   chan struct{}
}

func (l *gateLocker) Lock() {
	if l.armed.CompareAndSwap(true, false) {
		close(l.parked)
		<-l.gate
	}
	l.Mutex.Lock()
}

func TestCreateRacingCloseIsRejected(t *testing.T) {
	rec := newRecorder(Continue)
	l := &gateLocker{parked: make(chan struct{}), gate: make(chan struct{})}
	svc, err := NewService(Options{Clock: clock.NewManual(0), Dispatcher: rec, Releaser: rec, Locker: l})
	require.NoError(t, err)

	l.armed.Store(true)
	createErr := make(chan error, 1)
	go func() {
		_, err := svc.Create("h", "P", 100, 7, FlagReleaseOnFinish, 0)
		createErr <- err
	}()
	<-l.parked
	svc.Close()
	close(l.gate)

	err = <-createErr
	assert.True(t, errors.Is(err, errs.Closed))
	assert.True(t, svc.Closed())
	assert.Equal(t, 0, svc.Len())
	assert.Equal(t, 0, rec.releasedCount(7))
}
