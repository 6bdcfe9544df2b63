package core

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/fixkme/timerex/framework/config"
	"github.com/fixkme/timerex/httpapi"
)

var HttpApi *HttpApiModule

type HttpApiModule struct {
	router *httpapi.Server
	conf   *config.HttpApiConfig
	opt    *httpapi.Options
	name   string
}

func InitHttpApiModule(name string, conf *config.HttpApiConfig, resolve httpapi.HookResolver, middlewares []gin.HandlerFunc) error {
	opt := &httpapi.Options{
		ApiVersion:  conf.ApiVersion,
		Middlewares: middlewares,
		ResolveHook: resolve,
	}
	HttpApi = &HttpApiModule{
		conf: conf,
		opt:  opt,
		name: name,
	}
	return nil
}

func (s *HttpApiModule) OnInit() error {
	// 确保 Timer 在前面已经初始化
	if Timer == nil || Timer.Service() == nil {
		return fmt.Errorf("TimerModule is nil")
	}
	router, err := httpapi.NewWeb("tcp", s.conf.ApiListenAddr, Timer.Service(), s.opt)
	if err != nil {
		return err
	}
	s.router = router
	return nil
}

func (s *HttpApiModule) Run() {
	if err := s.router.Run(); err != nil {
		if !s.router.Stopped() {
			panic(fmt.Errorf("HttpApi.Run err:%v", err))
		}
	}
}

func (s *HttpApiModule) Destroy() {
	s.router.Stop()
}

func (s *HttpApiModule) Name() string {
	return s.name
}
