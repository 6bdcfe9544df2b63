package core

import (
	"fmt"
	"time"

	"github.com/fixkme/timerex/clock"
	"github.com/fixkme/timerex/framework/config"
	g "github.com/fixkme/timerex/framework/go"
	"github.com/fixkme/timerex/lock"
	"github.com/fixkme/timerex/mlog"
	"github.com/fixkme/timerex/timer"
)

var Timer *TimerModule

// TimerModule 定时器服务加上独占的触发协程
type TimerModule struct {
	conf       *config.TimerConfig
	clock      clock.Clock
	dispatcher timer.Dispatcher
	releaser   timer.Releaser
	svc        *timer.Service
	agent      *g.RoutineAgent
	name       string
}

func InitTimerModule(name string, conf *config.TimerConfig, c clock.Clock, d timer.Dispatcher, r timer.Releaser) error {
	if conf == nil {
		return fmt.Errorf("timer config is nil")
	}
	if d == nil {
		return fmt.Errorf("timer dispatcher is nil")
	}
	Timer = &TimerModule{
		conf:       conf,
		clock:      c,
		dispatcher: d,
		releaser:   r,
		name:       name,
	}
	return nil
}

func (m *TimerModule) OnInit() error {
	svc, err := timer.NewService(timer.Options{
		Clock:      m.clock,
		Dispatcher: m.dispatcher,
		Releaser:   m.releaser,
		Locker:     lock.New(m.conf.LockKind),
		MaxLive:    m.conf.MaxTimers,
		PoolSize:   m.conf.DispatchPoolSize,
	})
	if err != nil {
		return err
	}
	interval := time.Duration(m.conf.TickIntervalMs) * time.Millisecond
	agent := g.NewRoutineAgent(m.conf.TaskChanSize, interval, m.clock)
	agent.Init(func(now int64) {
		svc.Tick(now)
	}, func() {
		svc.Close()
	})
	m.svc = svc
	m.agent = agent
	mlog.Infof("timer module %s init, tick:%v lock:%s pool:%d", m.name, interval, m.conf.LockKind, m.conf.DispatchPoolSize)
	return nil
}

func (m *TimerModule) Run() {
	m.agent.Run()
}

func (m *TimerModule) Destroy() {
	m.agent.Close()
	<-m.agent.Done()
}

func (m *TimerModule) Name() string {
	return m.name
}

func (m *TimerModule) Service() *timer.Service {
	return m.svc
}

// Agent 需要在触发协程上执行操作时使用
func (m *TimerModule) Agent() *g.RoutineAgent {
	return m.agent
}
