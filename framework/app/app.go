package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/multierr"

	"github.com/fixkme/timerex/mlog"
)

// 节点全局状态
const (
	AppStateNone = iota // 未开始或已停止
	AppStateInit        // 正在初始化中
	AppStateRun         // 正在运行中
	AppStateStop        // 正在停止中
)

// 单例
var defaultApp = new(App)

type Module interface {
	OnInit() error // 初始化
	Destroy()      // 销毁
	Run()          // 启动, 阻塞到Destroy
	Name() string  // 名字
}

// DefaultApp 默认单例
func DefaultApp() *App {
	return defaultApp
}

// App 中的 modules 在启动之后不能变更
type App struct {
	mods  []Module
	state int32
	wg    sync.WaitGroup
}

func (app *App) setState(s int32) {
	atomic.StoreInt32(&app.state, s)
}

func (app *App) GetState() int32 {
	return atomic.LoadInt32(&app.state)
}

// Start 按顺序初始化并启动模块, 初始化失败时已初始化的模块会被销毁
func (app *App) Start(mods ...Module) error {
	if !atomic.CompareAndSwapInt32(&app.state, AppStateNone, AppStateInit) {
		return fmt.Errorf("app cannot start twice")
	}
	mlog.Info("app starting up")
	for i, m := range mods {
		if err := m.OnInit(); err != nil {
			app.mods = mods[:i]
			app.destroyAll()
			app.setState(AppStateNone)
			return fmt.Errorf("module %s init error: %w", m.Name(), err)
		}
	}
	app.mods = mods
	for _, m := range app.mods {
		app.wg.Add(1)
		go run(m, &app.wg)
	}
	app.setState(AppStateRun)
	mlog.Info("app started")
	return nil
}

// Stop 先进后出销毁模块, 等待所有Run返回
func (app *App) Stop() error {
	if !atomic.CompareAndSwapInt32(&app.state, AppStateRun, AppStateStop) {
		return nil
	}
	mlog.Info("app stop begin")
	err := app.destroyAll()
	app.wg.Wait()
	app.mods = nil
	app.setState(AppStateNone)
	mlog.Info("app stopped")
	return err
}

func (app *App) destroyAll() (err error) {
	for i := len(app.mods) - 1; i >= 0; i-- {
		m := app.mods[i]
		mlog.Infof("app stop module %s", m.Name())
		err = multierr.Append(err, destroy(m))
	}
	return
}

func run(m Module, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			mlog.Errorf("%s module run panic: %v\n%s", m.Name(), r, debug.Stack())
		}
	}()
	m.Run()
}

func destroy(m Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			mlog.Errorf("%s module destroy panic: %v\n%s", m.Name(), r, debug.Stack())
			err = fmt.Errorf("%s module destroy panic: %v", m.Name(), r)
		}
	}()
	m.Destroy()
	return nil
}

// Run 启动模块, 直到ctx结束或收到退出信号, SIGHUP忽略
func (app *App) Run(ctx context.Context, mods ...Module) error {
	if err := app.Start(mods...); err != nil {
		return err
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sig)
loop:
	for {
		select {
		case <-ctx.Done():
			mlog.Infof("server closing down (%v)", ctx.Err())
			break loop
		case s := <-sig:
			mlog.Infof("server closing down (signal: %v)", s)
			if s != syscall.SIGHUP {
				break loop
			}
		}
	}
	return app.Stop()
}
