package httpapi

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"

	"github.com/fixkme/timerex/clock"
	"github.com/fixkme/timerex/errs"
	"github.com/fixkme/timerex/mlog"
	"github.com/fixkme/timerex/timer"
)

// TimerService 管理接口用到的定时器操作
type TimerService interface {
	Create(hook timer.Hook, owner timer.Owner, intervalMs uint32, userData int32, flags timer.Flags, channel int32) (int64, error)
	Get(id int64) (timer.Record, bool)
	Remove(id int64) bool
	Pause(ids ...int64) int
	Resume(ids ...int64) int
	PauseChannel(ch int32) int
	ResumeChannel(ch int32) int
	PauseAll() int
	ResumeAll() int
	RemoveChannel(ch int32) []timer.Record
	ClearAll() []timer.Record
	OnEnvironmentReset() []timer.Record
	OnOwnerUnload(owner timer.Owner) []timer.Record
	Snapshot() []timer.Record
	Stats() timer.Stats
}

// HookResolver 把请求里的hook名字解析成宿主的回调引用
type HookResolver func(name string) (timer.Hook, bool)

type Options struct {
	// 版本号，可以为空
	ApiVersion string
	// Middlewares 里可以添加鉴权的逻辑
	Middlewares []gin.HandlerFunc
	// 注册定时器时解析hook, 为空时不开放注册接口
	ResolveHook HookResolver
}

type Server struct {
	opt     *Options
	svc     TimerService
	Addr    string
	Ln      net.Listener
	Router  *gin.Engine
	stopped atomic.Bool
}

func NewWeb(network, addr string, svc TimerService, opt *Options) (*Server, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	s := New(svc, opt)
	s.Addr = ln.Addr().String()
	s.Ln = ln
	return s, nil
}

// New 只构建路由, 不监听端口
func New(svc TimerService, opt *Options) *Server {
	if opt == nil {
		opt = &Options{}
	}
	setMode()
	s := &Server{
		opt:    opt,
		svc:    svc,
		Router: gin.New(),
	}
	s.Router.Use(gin.Recovery())
	s.regWebRouter()
	return s
}

func setMode() {
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
}

func (s *Server) Start() {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				mlog.Warnf("web recover error: %v.", r)
			}
		}()
		if err := s.Run(); err != nil && !s.Stopped() {
			mlog.Warnf("web run error: %v", err)
		}
	}()
}

func (s *Server) Run() (err error) {
	if s.Ln == nil {
		return errors.New("web listener is nil")
	}
	mlog.Infof("timer admin api listening on %s", s.Addr)
	return s.Router.RunListener(s.Ln)
}

func (s *Server) Stop() {
	if !s.stopped.CompareAndSwap(false, true) || s.Ln == nil {
		return
	}
	if err := s.Ln.Close(); err != nil {
		mlog.Warnf("web stop error %v", err)
	}
}

func (s *Server) Stopped() bool {
	return s.stopped.Load()
}

func (s *Server) regWebRouter() {
	groupName := "/api"
	if s.opt.ApiVersion != "" {
		groupName = fmt.Sprintf("/api/%s", s.opt.ApiVersion)
	}
	api := s.Router.Group(groupName)
	if len(s.opt.Middlewares) > 0 {
		api.Use(s.opt.Middlewares...)
	}
	api.GET("/stats", s.statsHandler)

	timers := api.Group("/timers")
	timers.GET("", s.listHandler)
	timers.DELETE("", s.clearHandler)
	timers.GET("/:id", s.getHandler)
	timers.DELETE("/:id", s.removeHandler)
	timers.POST("/pause", s.pauseHandler)
	timers.POST("/resume", s.resumeHandler)
	timers.POST("/pause-all", s.pauseAllHandler)
	timers.POST("/resume-all", s.resumeAllHandler)
	if s.opt.ResolveHook != nil {
		timers.POST("", s.createHandler)
	}

	channels := api.Group("/channels/:channel")
	channels.POST("/pause", s.pauseChannelHandler)
	channels.POST("/resume", s.resumeChannelHandler)
	channels.DELETE("", s.removeChannelHandler)

	lifecycle := api.Group("/lifecycle")
	lifecycle.POST("/environment-reset", s.environmentResetHandler)
	lifecycle.POST("/owners/:owner/unload", s.ownerUnloadHandler)
}

type timerView struct {
	Id          int64  `json:"id"`
	Hook        string `json:"hook"`
	Owner       string `json:"owner"`
	UserData    int32  `json:"user_data"`
	Flags       int32  `json:"flags"`
	Channel     int32  `json:"channel"`
	IntervalMs  int64  `json:"interval_ms"`
	Deadline    int64  `json:"deadline"`
	Paused      bool   `json:"paused"`
	Dispatching bool   `json:"dispatching"`
}

func toView(r timer.Record) timerView {
	return timerView{
		Id:          r.Id,
		Hook:        fmt.Sprint(r.Hook),
		Owner:       string(r.Owner),
		UserData:    r.UserData,
		Flags:       int32(r.Flags),
		Channel:     r.Channel,
		IntervalMs:  r.Interval,
		Deadline:    r.Deadline,
		Paused:      r.Paused,
		Dispatching: r.Dispatching,
	}
}

func toViews(records []timer.Record) []timerView {
	views := make([]timerView, 0, len(records))
	for _, r := range records {
		views = append(views, toView(r))
	}
	return views
}

type createReq struct {
	Hook     string  `json:"hook" binding:"required"`
	Owner    string  `json:"owner"`
	Interval float64 `json:"interval"` // 秒
	UserData int32   `json:"user_data"`
	Flags    int32   `json:"flags"`
	Channel  int32   `json:"channel"`
}

type idsReq struct {
	Ids []int64 `json:"ids" binding:"required"`
}

func (s *Server) createHandler(c *gin.Context) {
	req := &createReq{}
	if err := c.ShouldBindJSON(req); err != nil {
		ResponseError(c, http.StatusBadRequest, errs.BadRequest.Wrap(err))
		return
	}
	hook, ok := s.opt.ResolveHook(req.Hook)
	if !ok {
		ResponseError(c, http.StatusBadRequest, errs.InvalidHook.Printf("hook:%s", req.Hook))
		return
	}
	if req.Owner == "" {
		req.Owner = xid.New().String()
	}
	id, err := s.svc.Create(hook, timer.Owner(req.Owner), clock.SecondsToMs(req.Interval), req.UserData, timer.Flags(req.Flags), req.Channel)
	if err != nil {
		ResponseError(c, statusOf(err), err)
		return
	}
	ResponseSuccess(c, gin.H{"id": id, "owner": req.Owner})
}

func (s *Server) listHandler(c *gin.Context) {
	ResponseSuccess(c, toViews(s.svc.Snapshot()))
}

func (s *Server) statsHandler(c *gin.Context) {
	ResponseSuccess(c, s.svc.Stats())
}

func (s *Server) getHandler(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	r, found := s.svc.Get(id)
	if !found {
		ResponseError(c, http.StatusNotFound, errs.NotFound.Printf("id:%d", id))
		return
	}
	ResponseSuccess(c, toView(r))
}

func (s *Server) removeHandler(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}
	if !s.svc.Remove(id) {
		ResponseError(c, http.StatusNotFound, errs.NotFound.Printf("id:%d", id))
		return
	}
	ResponseSuccess(c, gin.H{"id": id})
}

func (s *Server) clearHandler(c *gin.Context) {
	ResponseSuccess(c, toViews(s.svc.ClearAll()))
}

func (s *Server) pauseHandler(c *gin.Context) {
	req := &idsReq{}
	if err := c.ShouldBindJSON(req); err != nil {
		ResponseError(c, http.StatusBadRequest, errs.BadRequest.Wrap(err))
		return
	}
	ResponseSuccess(c, gin.H{"changed": s.svc.Pause(req.Ids...)})
}

func (s *Server) resumeHandler(c *gin.Context) {
	req := &idsReq{}
	if err := c.ShouldBindJSON(req); err != nil {
		ResponseError(c, http.StatusBadRequest, errs.BadRequest.Wrap(err))
		return
	}
	ResponseSuccess(c, gin.H{"changed": s.svc.Resume(req.Ids...)})
}

func (s *Server) pauseAllHandler(c *gin.Context) {
	ResponseSuccess(c, gin.H{"changed": s.svc.PauseAll()})
}

func (s *Server) resumeAllHandler(c *gin.Context) {
	ResponseSuccess(c, gin.H{"changed": s.svc.ResumeAll()})
}

func (s *Server) pauseChannelHandler(c *gin.Context) {
	ch, ok := parseChannel(c)
	if !ok {
		return
	}
	ResponseSuccess(c, gin.H{"changed": s.svc.PauseChannel(ch)})
}

func (s *Server) resumeChannelHandler(c *gin.Context) {
	ch, ok := parseChannel(c)
	if !ok {
		return
	}
	ResponseSuccess(c, gin.H{"changed": s.svc.ResumeChannel(ch)})
}

func (s *Server) removeChannelHandler(c *gin.Context) {
	ch, ok := parseChannel(c)
	if !ok {
		return
	}
	ResponseSuccess(c, toViews(s.svc.RemoveChannel(ch)))
}

func (s *Server) environmentResetHandler(c *gin.Context) {
	ResponseSuccess(c, toViews(s.svc.OnEnvironmentReset()))
}

func (s *Server) ownerUnloadHandler(c *gin.Context) {
	owner := timer.Owner(c.Param("owner"))
	ResponseSuccess(c, toViews(s.svc.OnOwnerUnload(owner)))
}

func parseId(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ResponseError(c, http.StatusBadRequest, errs.BadRequest.Printf("id:%s", c.Param("id")))
		return 0, false
	}
	return id, true
}

func parseChannel(c *gin.Context) (int32, bool) {
	ch, err := strconv.ParseInt(c.Param("channel"), 10, 32)
	if err != nil {
		ResponseError(c, http.StatusBadRequest, errs.BadRequest.Printf("channel:%s", c.Param("channel")))
		return 0, false
	}
	return int32(ch), true
}
