package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli"

	"github.com/fixkme/timerex/clock"
	"github.com/fixkme/timerex/framework/app"
	"github.com/fixkme/timerex/framework/config"
	"github.com/fixkme/timerex/framework/core"
	"github.com/fixkme/timerex/mlog"
)

var (
	configFile string
	listenAddr string
	logLevel   string
	logPath    string
	tickMs     int
	maxTimers  int
	lockKind   string
	poolSize   int

	serveFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "config, c",
			Usage:       "json config file",
			Destination: &configFile,
			EnvVar:      "TIMEREX_CONFIG",
		},
		cli.StringFlag{
			Name:        "listen, l",
			Usage:       "admin api listen address, empty disables the api",
			Destination: &listenAddr,
			EnvVar:      "TIMEREX_LISTEN",
		},
		cli.StringFlag{
			Name:        "log-level",
			Usage:       "trace, debug, info, notice, warn, error, fatal",
			Destination: &logLevel,
			EnvVar:      "TIMEREX_LOG_LEVEL",
		},
		cli.StringFlag{
			Name:        "log-path",
			Usage:       "log directory, empty logs to stdout only",
			Destination: &logPath,
			EnvVar:      "TIMEREX_LOG_PATH",
		},
		cli.IntFlag{
			Name:        "tick-ms",
			Usage:       "tick interval in milliseconds",
			Destination: &tickMs,
		},
		cli.IntFlag{
			Name:        "max-timers",
			Usage:       "live timer limit, 0 means unlimited",
			Destination: &maxTimers,
		},
		cli.StringFlag{
			Name:        "lock",
			Usage:       "store lock kind: mutex or spin",
			Destination: &lockKind,
		},
		cli.IntFlag{
			Name:        "pool",
			Usage:       "dispatch pool size, 0 dispatches inline",
			Destination: &poolSize,
		},
	}
)

func main() {
	a := cli.NewApp()
	a.Name = "timerex"
	a.Usage = "timer scheduling service"
	a.Flags = serveFlags
	a.Action = serve
	if err := a.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyFlags 命令行参数覆盖配置文件
func applyFlags(conf *config.AppConfig) error {
	if listenAddr != "" {
		conf.ApiListenAddr = listenAddr
	}
	if logLevel != "" {
		conf.LogLevel = logLevel
	}
	if logPath != "" {
		conf.LogPath = logPath
	}
	if tickMs > 0 {
		conf.TickIntervalMs = tickMs
	}
	if maxTimers > 0 {
		conf.MaxTimers = maxTimers
	}
	if lockKind != "" {
		conf.LockKind = lockKind
	}
	if poolSize > 0 {
		conf.DispatchPoolSize = poolSize
	}
	return nil
}

func serve(_ *cli.Context) error {
	if err := config.LoadConfig(configFile, applyFlags); err != nil {
		return err
	}
	conf := config.Config

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	defer func() {
		cancel()
		wg.Wait()
	}()
	if err := setupLogger(ctx, wg, &conf.LogConfig); err != nil {
		return err
	}
	mlog.Infof("config: %s", conf.JsonFormat())

	c := clock.NewSystem(time.Duration(conf.TimeOffsetMs) * time.Millisecond)
	hooks := newHookTable()
	if err := core.InitTimerModule("timer", &conf.TimerConfig, c, hooks, hooks); err != nil {
		return err
	}
	mods := []app.Module{core.Timer}
	if conf.ApiListenAddr != "" {
		if err := core.InitHttpApiModule("httpapi", &conf.HttpApiConfig, hooks.Resolve, nil); err != nil {
			return err
		}
		mods = append(mods, core.HttpApi)
	}
	return app.DefaultApp().Run(ctx, mods...)
}

func setupLogger(ctx context.Context, wg *sync.WaitGroup, conf *config.LogConfig) error {
	level := mlog.ParseLevel(conf.LogLevel)
	if conf.LogPath == "" {
		return mlog.UseStdLogger(level)
	}
	return mlog.UseDefaultLogger(ctx, wg, mlog.FileOptions{
		Path:       conf.LogPath,
		Name:       conf.LogName,
		Level:      level,
		StdOut:     conf.LogStdOut,
		MaxSize:    conf.LogMaxSizeMB,
		MaxBackups: conf.LogMaxBackups,
		MaxAge:     conf.LogMaxAgeDays,
	})
}
