package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixkme/timerex/clock"
	"github.com/fixkme/timerex/framework/config"
	"github.com/fixkme/timerex/timer"
)

func TestHookTable(t *testing.T) {
	hooks := newHookTable()
	_, ok := hooks.Resolve("missing")
	assert.False(t, ok)

	clk := clock.NewManual(0)
	svc, err := timer.NewService(timer.Options{Clock: clk, Dispatcher: hooks, Releaser: hooks})
	require.NoError(t, err)

	logHook, ok := hooks.Resolve("log")
	require.True(t, ok)
	onceHook, _ := hooks.Resolve("once")
	repeat, _ := svc.Create(logHook, "demo", 100, 0, timer.FlagRepeat, 0)
	once, _ := svc.Create(onceHook, "demo", 100, 0, timer.FlagRepeat, 0)
	bogus, _ := svc.Create(42, "demo", 100, 0, timer.FlagRepeat, 0)

	clk.Advance(100)
	assert.Equal(t, 3, svc.TickNow())
	_, ok = svc.Get(repeat)
	assert.True(t, ok)
	_, ok = svc.Get(once)
	assert.False(t, ok)
	_, ok = svc.Get(bogus)
	assert.False(t, ok)
}

func TestApplyFlags(t *testing.T) {
	listenAddr, tickMs, lockKind = ":9000", 5, "spin"
	defer func() { listenAddr, tickMs, lockKind = "", 0, "" }()

	conf := &config.AppConfig{}
	require.NoError(t, applyFlags(conf))
	conf.Default()
	assert.Equal(t, ":9000", conf.ApiListenAddr)
	assert.Equal(t, 5, conf.TickIntervalMs)
	assert.Equal(t, "spin", conf.LockKind)
	assert.Equal(t, "info", conf.LogLevel)
}
